package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gamedata/internal/core"
)

var rowsFormat string

var rowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "Edit single rows",
	Long: `Add, copy, edit, renumber or delete rows of a table.

Examples:
  gamedata rows add Items
  gamedata rows copy Monsters 4
  gamedata rows set Monsters 4 HP=120 BaseStats.Strength=9
  gamedata rows renumber Monsters 4 40
  gamedata rows delete Items 7
  gamedata rows show Quests 2`,
}

var rowsAddCmd = &cobra.Command{
	Use:   "add <table>",
	Short: "Add a blank row with the lowest free ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			rec, err := a.service.AddRow(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", rec.Base().DisplayName())
			return nil
		})
	},
}

var rowsCopyCmd = &cobra.Command{
	Use:   "copy <table> <id>",
	Short: "Duplicate a row under the next free ID",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			rec, err := a.service.CopyRow(ctx, args[0], id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied to %s\n", rec.Base().DisplayName())
			return nil
		})
	},
}

var rowsDeleteCmd = &cobra.Command{
	Use:   "delete <table> <id>",
	Short: "Delete a row (references to it are kept)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.service.DeleteRow(ctx, args[0], id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %d\n", args[0], id)
			return nil
		})
	},
}

var rowsRenumberCmd = &cobra.Command{
	Use:   "renumber <table> <id> <new-id>",
	Short: "Change a row's ID and every reference to it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		oldID, err := parseID(args[1])
		if err != nil {
			return err
		}
		newID, err := parseID(args[2])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			n, err := a.service.ChangeRowID(ctx, args[0], oldID, newID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renumbered %s %d to %d, %d references updated\n", args[0], oldID, newID, n)
			return nil
		})
	},
}

var rowsSetCmd = &cobra.Command{
	Use:   "set <table> <id> <column=value>...",
	Short: "Set cells of a row by column path",
	Long: `Set cells of a row by column path, parsed the way an import parses them.
An empty value clears an optional field. Cells that fail to parse are
reported and leave their field unchanged.`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		cells := make(map[string]string, len(args)-2)
		for _, kv := range args[2:] {
			col, val, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("%q is not column=value", kv)
			}
			cells[col] = val
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			rep, err := a.service.UpdateRow(ctx, args[0], id, cells)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, ce := range rep.Failed {
				fmt.Fprintf(out, "not set %s=%q: %v\n", ce.Column, ce.Value, ce.Err)
			}
			for _, col := range rep.Unknown {
				fmt.Fprintf(out, "unknown column %s\n", col)
			}
			fmt.Fprintf(out, "updated %s %d\n", args[0], id)
			return nil
		})
	},
}

var rowsShowCmd = &cobra.Command{
	Use:   "show <table> <id>",
	Short: "Print a row's field tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			fields, err := a.service.Fields(ctx, args[0], id)
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), rowsFormat, fields)
		})
	},
}

func init() {
	rootCmd.AddCommand(rowsCmd)

	rowsCmd.AddCommand(rowsAddCmd)
	rowsCmd.AddCommand(rowsCopyCmd)
	rowsCmd.AddCommand(rowsDeleteCmd)
	rowsCmd.AddCommand(rowsRenumberCmd)
	rowsCmd.AddCommand(rowsSetCmd)
	rowsCmd.AddCommand(rowsShowCmd)

	rowsShowCmd.Flags().StringVar(&rowsFormat, "format", "yaml", "output format: yaml or json")
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidID, s)
	}
	return id, nil
}
