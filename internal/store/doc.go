// Package store persists game-data tables.
//
// Every implementation satisfies core.Store: a table is loaded whole and
// saved whole, and a table that was never saved loads empty. Records are
// kept as their JSON form, the same form the file store writes, so the
// drivers can be swapped by exporting from one and loading into another.
package store
