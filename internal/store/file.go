package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/gamedata/internal/core"
	"github.com/JonMunkholm/gamedata/internal/model"
)

// File keeps one indented JSON array per table in a directory.
type File struct {
	dir string
}

// NewFile creates the directory if needed and returns a store over it.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &File{dir: dir}, nil
}

// Path returns the file holding key's rows.
func (f *File) Path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Load reads def's file. A missing file is an empty table.
func (f *File) Load(ctx context.Context, def core.TableDefinition) (*core.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path(def.Info.Key))
	if errors.Is(err, fs.ErrNotExist) {
		return core.NewTable(def), nil
	}
	if err != nil {
		return nil, err
	}
	return core.DecodeRows(def, data)
}

// Save writes t through a temporary file so a failed write never leaves
// half a table behind.
func (f *File) Save(ctx context.Context, t *core.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := t.Rows
	if rows == nil {
		rows = []model.Record{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", t.Key(), err)
	}

	tmp, err := os.CreateTemp(f.dir, t.Key()+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path(t.Key()))
}

// Close implements core.Store.
func (f *File) Close() error { return nil }
