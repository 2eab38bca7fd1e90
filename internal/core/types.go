package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/JonMunkholm/gamedata/internal/codec"
	"github.com/JonMunkholm/gamedata/internal/model"
)

var (
	ErrUnknownTable = errors.New("unknown table")
	ErrRowNotFound  = errors.New("row not found")
	ErrDuplicateID  = errors.New("duplicate id")
	ErrInvalidID    = errors.New("invalid id")
	ErrNoIDColumn   = errors.New("missing id column")
	ErrEmptyFile    = errors.New("empty file")
	ErrFileTooLarge = errors.New("file too large")
	ErrInvalidMode  = errors.New("invalid import mode")
)

// Store persists whole tables. Implementations live in internal/store.
type Store interface {
	// Load returns the saved rows of def's table, or an empty table if
	// nothing has been saved yet.
	Load(ctx context.Context, def TableDefinition) (*Table, error)
	// Save replaces the stored rows of t's table.
	Save(ctx context.Context, t *Table) error
	Close() error
}

// TableInfo contains display information about a table.
type TableInfo struct {
	Key   string `json:"key"`   // Unique identifier: "Monsters"
	Label string `json:"label"` // Record type name: "Monster"
	Group string `json:"group"` // Listing group: "Creatures"
}

// TableDefinition binds a table to its record type.
type TableDefinition struct {
	Info TableInfo
	// New returns a fresh, empty record.
	New func() model.Record
}

// Define returns a definition for records of type T in the given group.
// Key and Label are filled in by Register.
func Define[T any, P interface {
	*T
	model.Record
}](group string) TableDefinition {
	return TableDefinition{
		Info: TableInfo{Group: group},
		New:  func() model.Record { return P(new(T)) },
	}
}

// Type returns the record struct type.
func (d TableDefinition) Type() reflect.Type {
	return reflect.TypeOf(d.New()).Elem()
}

// Header returns the static CSV columns of the record type.
func (d TableDefinition) Header() []string {
	return codec.HeaderFor(d.Type())
}

// TableKey derives a table key from a record type name:
// Monster → Monsters, Ability → Abilities, Boss → Bosses.
func TableKey(typeName string) string {
	switch {
	case strings.HasSuffix(typeName, "s"):
		return typeName + "es"
	case strings.HasSuffix(typeName, "y"):
		return strings.TrimSuffix(typeName, "y") + "ies"
	default:
		return typeName + "s"
	}
}

// ImportMode selects how imported rows are matched to existing ones.
type ImportMode string

const (
	// ModeUpdate applies rows to existing records with the same ID.
	// Rows whose ID has no record are counted as unmatched.
	ModeUpdate ImportMode = "update"
	// ModeReplace rebuilds the table from the file.
	ModeReplace ImportMode = "replace"
)

// ParseImportMode accepts "update" (or "") and "replace".
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeUpdate:
		return ModeUpdate, nil
	case ModeReplace:
		return ModeReplace, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// ImportResult summarises one table import.
type ImportResult struct {
	Table       string        `json:"table"`
	Mode        ImportMode    `json:"mode"`
	Rows        int           `json:"rows"`
	Updated     int           `json:"updated"`
	Created     int           `json:"created"`
	Skipped     int           `json:"skipped"`
	Unmatched   int           `json:"unmatched"`
	FailedCells int           `json:"failed_cells"`
	Duration    time.Duration `json:"duration"`
}

// ExportResult summarises one table written by ExportAll.
type ExportResult struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
	Path  string `json:"path"`
}

// TableSummary is a registered table with its current row count.
type TableSummary struct {
	TableInfo
	Rows int `json:"rows"`
}

// Direction of a transfer.
type Direction string

const (
	DirectionExport Direction = "export"
	DirectionImport Direction = "import"
)

// TransferEntry is one line of the transfer history.
type TransferEntry struct {
	ID          string        `json:"id"`
	Table       string        `json:"table"`
	Direction   Direction     `json:"direction"`
	Mode        ImportMode    `json:"mode,omitempty"`
	Actor       string        `json:"actor,omitempty"`
	Rows        int           `json:"rows"`
	Skipped     int           `json:"skipped,omitempty"`
	FailedCells int           `json:"failed_cells,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}
