package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/gamedata/internal/core"
)

// SQLite keeps every table in one records table of a SQLite file.
type SQLite struct {
	conn *sql.DB
}

// NewSQLite opens (or creates) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer at a time.
	conn.SetMaxOpenConns(1)

	s := &SQLite{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS records (
			table_key TEXT NOT NULL,
			position INTEGER NOT NULL,
			id INTEGER NOT NULL,
			body TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (table_key, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_id ON records(table_key, id)`,
	}
	for _, m := range migrations {
		if _, err := s.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Load reads def's rows in saved order.
func (s *SQLite) Load(ctx context.Context, def core.TableDefinition) (*core.Table, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT body FROM records WHERE table_key = ? ORDER BY position`, def.Info.Key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t := core.NewTable(def)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		r, err := core.DecodeRecord(def, []byte(body))
		if err != nil {
			return nil, fmt.Errorf("decode %s row: %w", def.Info.Key, err)
		}
		t.Rows = append(t.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	t.Sort()
	return t, nil
}

// Save replaces t's rows in one transaction.
func (s *SQLite) Save(ctx context.Context, t *core.Table) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE table_key = ?`, t.Key()); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (table_key, position, id, body) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range t.Rows {
		body, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode %s row %d: %w", t.Key(), r.Base().ID, err)
		}
		if _, err := stmt.ExecContext(ctx, t.Key(), i, r.Base().ID, string(body)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
