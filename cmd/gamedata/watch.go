package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gamedata/internal/core"
	"github.com/JonMunkholm/gamedata/internal/watch"
)

var watchMode string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-import CSV files when they change",
	Long: `Watch the CSV folder and import <table>.csv whenever it is saved.
Writes are debounced by WATCH_DEBOUNCE. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchMode == "" {
			watchMode = cfg.Watch.Mode
		}
		mode, err := core.ParseImportMode(watchMode)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return watch.New(cfg.CSV.Folder, a.service, mode, cfg.Watch.Debounce).Run(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchMode, "mode", "m", "", "update or replace (default WATCH_IMPORT_MODE)")
}
