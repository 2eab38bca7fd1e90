package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/gamedata/internal/config"
	"github.com/JonMunkholm/gamedata/internal/core"
)

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (core.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverFile, "":
		return NewFile(cfg.DataDir)
	case config.DriverSQLite:
		return NewSQLite(cfg.SQLitePath)
	case config.DriverPostgres:
		return NewPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
