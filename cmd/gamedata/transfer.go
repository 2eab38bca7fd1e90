package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gamedata/internal/core"
)

var (
	transferAll bool
	exportOut   string
	importMode  string
	importFile  string
)

var exportCmd = &cobra.Command{
	Use:   "export [table]",
	Short: "Write tables as CSV",
	Long: `Export one table to stdout (or --out), or every non-empty table to the
CSV folder with --all.

Examples:
  gamedata export Monsters
  gamedata export Monsters --out /tmp/Monsters.csv
  gamedata export --all`,
	Args: allOrOneTable,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [table]",
	Short: "Load CSV into tables",
	Long: `Import one table from --file (default <CSV folder>/<table>.csv, "-" for
stdin), or every table that has a file in the CSV folder with --all.

Modes:
  update   apply rows to existing records with the same ID (default)
  replace  rebuild the table from the file

Examples:
  gamedata import Monsters
  gamedata import Quests --mode replace --file quests.csv
  gamedata import --all`,
	Args: allOrOneTable,
	RunE: runImport,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Rebuild every table from the CSV folder",
	Long:  `Same as "import --all --mode replace".`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return importAll(ctx, a, cmd.OutOrStdout(), core.ModeReplace)
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(loadCmd)

	exportCmd.Flags().BoolVar(&transferAll, "all", false, "export every table to the CSV folder")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to this file instead of stdout")

	importCmd.Flags().BoolVar(&transferAll, "all", false, "import every table from the CSV folder")
	importCmd.Flags().StringVarP(&importMode, "mode", "m", string(core.ModeUpdate), "update or replace")
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", `CSV file, "-" for stdin`)
}

// allOrOneTable accepts a table name, or none with --all.
func allOrOneTable(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	switch {
	case all && len(args) > 0:
		return errors.New("give a table or --all, not both")
	case !all && len(args) != 1:
		return errors.New("give a table name or --all")
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if transferAll {
			results, err := a.service.ExportAll(ctx, cfg.CSV.Folder)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TABLE\tROWS\tFILE")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Table, r.Rows, r.Path)
			}
			return tw.Flush()
		}

		text, err := a.service.ExportTable(ctx, args[0])
		if err != nil {
			return err
		}
		if exportOut == "" {
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		}
		return os.WriteFile(exportOut, []byte(text), 0o644)
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	mode, err := core.ParseImportMode(importMode)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if transferAll {
			return importAll(ctx, a, cmd.OutOrStdout(), mode)
		}

		key := args[0]
		var r io.Reader
		switch importFile {
		case "-":
			r = cmd.InOrStdin()
		default:
			path := importFile
			if path == "" {
				path = filepath.Join(cfg.CSV.Folder, core.CSVFileName(key))
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		res, err := a.service.ImportReader(ctx, key, r, mode)
		if err != nil {
			return err
		}
		return printImportResults(cmd.OutOrStdout(), []core.ImportResult{res})
	})
}

func importAll(ctx context.Context, a *app, out io.Writer, mode core.ImportMode) error {
	results, err := a.service.ImportAll(ctx, cfg.CSV.Folder, mode)
	if perr := printImportResults(out, results); perr != nil {
		return perr
	}
	return err
}

func printImportResults(out io.Writer, results []core.ImportResult) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tMODE\tROWS\tUPDATED\tCREATED\tSKIPPED\tUNMATCHED\tFAILED CELLS")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.Table, r.Mode, r.Rows, r.Updated, r.Created, r.Skipped, r.Unmatched, r.FailedCells)
	}
	return tw.Flush()
}
