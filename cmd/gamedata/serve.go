package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gamedata/internal/core"
	"github.com/JonMunkholm/gamedata/internal/watch"
	"github.com/JonMunkholm/gamedata/internal/web"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and API",
	Long: `Start the HTTP server on SERVER_HOST:SERVER_PORT.

With --watch, CSV files saved into the CSV folder are re-imported
automatically, the same as "gamedata watch".`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "re-import CSV files when they change")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"store", cfg.Store.Driver,
		"csv_folder", cfg.CSV.Folder,
		"transfer_max_concurrent", cfg.Transfer.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Info("tables registered", "count", core.TableCount(), "groups", len(core.Groups()))

	server := web.NewServer(a.service, cfg, a.registry)

	watchDone := make(chan struct{})
	if serveWatch {
		mode, err := core.ParseImportMode(cfg.Watch.Mode)
		if err != nil {
			return err
		}
		w := watch.New(cfg.CSV.Folder, a.service, mode, cfg.Watch.Debounce)
		go func() {
			defer close(watchDone)
			if err := w.Run(ctx); err != nil {
				slog.Error("watcher stopped", "error", err)
			}
		}()
	} else {
		close(watchDone)
	}

	// Graceful shutdown
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if status := a.service.Limiter().Status(); status.Active > 0 {
		slog.Info("waiting for transfers to complete", "active", status.Active)
		if err := a.service.WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("transfers did not complete in time", "error", err)
		} else {
			slog.Info("all transfers completed")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	<-watchDone
	slog.Info("server stopped")
	return nil
}
