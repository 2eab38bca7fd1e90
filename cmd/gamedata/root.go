package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gamedata/internal/config"
	"github.com/JonMunkholm/gamedata/internal/core"
	_ "github.com/JonMunkholm/gamedata/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/gamedata/internal/logging"
	"github.com/JonMunkholm/gamedata/internal/store"
)

var (
	// Global flags
	envFile  string
	csvDir   string
	logLevel string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gamedata",
	Short: "Edit game-data tables and move them to and from CSV",
	Long: `gamedata keeps game-design tables (items, monsters, quests) in a store
and converts them to and from flat CSV files. Nested structs, optional values,
fixed-size collections and references to other tables become columns such as
BaseStats.ElementalResistances.Fire or Auras.2.Name.

Configuration comes from the environment and an optional .env file.

Examples:
  gamedata export Monsters > Monsters.csv
  gamedata import Monsters --mode replace --file Monsters.csv
  gamedata schema Quests --format yaml
  gamedata serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Overload(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if csvDir != "" {
			cfg.CSV.Folder = csvDir
		}
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

		slog.Debug("configuration loaded", "config", cfg.String())
		return nil
	},
}

// Execute runs the root command and exits non-zero on error. SIGINT and
// SIGTERM cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load if present")
	rootCmd.PersistentFlags().StringVar(&csvDir, "csv-dir", "", "CSV folder (overrides CSV_FOLDER)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
}

// app is the service and the resources behind it for one command run.
type app struct {
	service  *core.Service
	registry *prometheus.Registry
	store    core.Store
}

func openApp(ctx context.Context) (*app, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := core.NewService(st, core.ServiceConfig{
		MaxConcurrentTransfers: cfg.Transfer.MaxConcurrent,
		MaxWait:                cfg.Transfer.MaxWaitTime,
		TransferTimeout:        cfg.Transfer.Timeout,
		MaxImportSize:          cfg.Transfer.MaxImportSize,
		HistorySize:            cfg.Transfer.HistorySize,
		Registerer:             reg,
	})

	slog.Debug("store opened", "driver", cfg.Store.Driver, "tables", core.TableCount())
	return &app{service: svc, registry: reg, store: st}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("closing store", "error", err)
	}
}

// cliContext tags ctx with the local user as the actor.
func cliContext(ctx context.Context) context.Context {
	name := "cli"
	if u, err := user.Current(); err == nil {
		name = "cli:" + u.Username
	}
	return core.ContextWithActor(ctx, name)
}

// withApp opens the app, runs fn and closes it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cliContext(cmd.Context())
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
