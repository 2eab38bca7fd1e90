package core

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/JonMunkholm/gamedata/internal/model"
)

// Table is the in-memory state of one table: its records ordered by ID.
type Table struct {
	Def  TableDefinition
	Rows []model.Record
}

// NewTable returns an empty table for def.
func NewTable(def TableDefinition) *Table {
	return &Table{Def: def}
}

// Key returns the table key.
func (t *Table) Key() string { return t.Def.Info.Key }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Find returns the row with the given ID and its position, or nil and -1.
func (t *Table) Find(id int) (model.Record, int) {
	for i, r := range t.Rows {
		if r.Base().ID == id {
			return r, i
		}
	}
	return nil, -1
}

// Insert adds r after the last row whose ID is not greater than r's.
func (t *Table) Insert(r model.Record) {
	id := r.Base().ID
	i := 0
	for i < len(t.Rows) && t.Rows[i].Base().ID <= id {
		i++
	}
	t.Rows = slices.Insert(t.Rows, i, r)
}

// Remove deletes the row with the given ID. It reports whether a row
// was removed.
func (t *Table) Remove(id int) bool {
	_, i := t.Find(id)
	if i < 0 {
		return false
	}
	t.Rows = slices.Delete(t.Rows, i, i+1)
	return true
}

// NextFreeID returns the smallest unused ID not below start.
func (t *Table) NextFreeID(start int) int {
	used := make(map[int]bool, len(t.Rows))
	for _, r := range t.Rows {
		used[r.Base().ID] = true
	}
	id := start
	for used[id] {
		id++
	}
	return id
}

// Sort orders rows by ID, keeping the relative order of equal IDs.
func (t *Table) Sort() {
	slices.SortStableFunc(t.Rows, func(a, b model.Record) int {
		return a.Base().ID - b.Base().ID
	})
}

// Clone returns a deep copy of t.
func (t *Table) Clone() (*Table, error) {
	c := &Table{Def: t.Def, Rows: make([]model.Record, len(t.Rows))}
	for i, r := range t.Rows {
		cp, err := CloneRecord(t.Def, r)
		if err != nil {
			return nil, err
		}
		c.Rows[i] = cp
	}
	return c, nil
}

// CloneRecord deep-copies r through its JSON form.
func CloneRecord(def TableDefinition, r model.Record) (model.Record, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("copy %s row: %w", def.Info.Key, err)
	}
	cp := def.New()
	if err := json.Unmarshal(b, cp); err != nil {
		return nil, fmt.Errorf("copy %s row: %w", def.Info.Key, err)
	}
	return cp, nil
}

// DecodeRows builds a table from a JSON array of records, the form the
// stores persist.
func DecodeRows(def TableDefinition, data []byte) (*Table, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", def.Info.Key, err)
	}
	t := NewTable(def)
	for i, msg := range raw {
		r, err := DecodeRecord(def, msg)
		if err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", def.Info.Key, i, err)
		}
		t.Rows = append(t.Rows, r)
	}
	t.Sort()
	return t, nil
}

// DecodeRecord decodes one JSON record of def's type.
func DecodeRecord(def TableDefinition, data []byte) (model.Record, error) {
	r := def.New()
	if err := json.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}
