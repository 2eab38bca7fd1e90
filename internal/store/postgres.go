package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/gamedata/internal/config"
	"github.com/JonMunkholm/gamedata/internal/core"
)

// Postgres keeps every table in one game_records table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects using cfg's URL and pool settings and creates the
// schema if needed.
func NewPostgres(ctx context.Context, cfg config.StoreConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.MinConns = int32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS game_records (
		table_key TEXT NOT NULL,
		position INTEGER NOT NULL,
		id INTEGER NOT NULL,
		body JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (table_key, position)
	)`)
	return err
}

// Load reads def's rows in saved order.
func (p *Postgres) Load(ctx context.Context, def core.TableDefinition) (*core.Table, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT body FROM game_records WHERE table_key = $1 ORDER BY position`, def.Info.Key)
	if err != nil {
		return nil, err
	}
	bodies, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, err
	}

	t := core.NewTable(def)
	for _, body := range bodies {
		r, err := core.DecodeRecord(def, body)
		if err != nil {
			return nil, fmt.Errorf("decode %s row: %w", def.Info.Key, err)
		}
		t.Rows = append(t.Rows, r)
	}
	t.Sort()
	return t, nil
}

// Save replaces t's rows in one transaction, bulk-loading them with COPY.
func (p *Postgres) Save(ctx context.Context, t *core.Table) error {
	bodies := make([]json.RawMessage, len(t.Rows))
	for i, r := range t.Rows {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode %s row %d: %w", t.Key(), r.Base().ID, err)
		}
		bodies[i] = b
	}

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM game_records WHERE table_key = $1`, t.Key()); err != nil {
			return err
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"game_records"},
			[]string{"table_key", "position", "id", "body"},
			pgx.CopyFromSlice(len(t.Rows), func(i int) ([]any, error) {
				return []any{t.Key(), int32(i), int32(t.Rows[i].Base().ID), bodies[i]}, nil
			}),
		)
		return err
	})
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
