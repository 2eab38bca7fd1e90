// Package core holds the game-data tables and the operations on them.
//
// The package sits between the record codec and the outside world: web
// handlers, the CLI and the folder watcher all go through [Service]. It
// knows nothing about HTTP or terminals.
//
// # Table Registry
//
// Each record type is registered once, usually from an init function in
// the tables package. The key is derived from the type name:
//
//	core.Register(core.Define[model.Monster]("Creatures")) // key "Monsters"
//
// # Transfers
//
// Exports flatten every row with the codec, derive the header from the
// union of the row columns and encode the table as CSV. Imports decode the
// file (honouring UTF-8 and UTF-16 BOMs), parse it and apply each row with
// the codec's best-effort rule: a cell that does not parse leaves its field
// unchanged and is counted, never fatal. Rows without a numeric ID are
// skipped.
//
//   - [ModeUpdate] changes rows whose ID already exists.
//   - [ModeReplace] rebuilds the table from the file.
//
// Only one transfer runs at a time by default; see [TransferLimiter].
// Finished transfers are kept in a bounded [History] and counted in
// Prometheus [Metrics].
//
// # Row Operations
//
// [Service.AddRow], [Service.CopyRow], [Service.DeleteRow],
// [Service.UpdateRow] and [Service.ChangeRowID] work on a copy of the table
// and save it through the [Store] before it replaces the current state.
// Renumbering a row also rewrites every foreign key that points at it.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a code for support reference:
//
//   - TBL001-TBL002: Table errors (unknown table, missing ID column)
//   - ROW001-ROW003: Row errors (not found, duplicate or invalid ID)
//   - FILE001-FILE005: File errors (size, encoding, missing file)
//   - XFR001-XFR003: Transfer errors (busy, cancelled, timeout)
//   - STORE001-STORE003: Storage errors
//   - REQ001-REQ002: Request errors
package core
