package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/gamedata/internal/codec"
)

var schemaFormat string

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables and their row counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			tables, err := a.service.Tables(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUP\tTABLE\tTYPE\tROWS")
			for _, t := range tables {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", t.Group, t.Key, t.Label, t.Rows)
			}
			return tw.Flush()
		})
	},
}

var headerCmd = &cobra.Command{
	Use:   "header <table>",
	Short: "Print every column a table's records can produce",
	Long: `Print the full CSV header of a table's record type as one CSV line.
Exports leave out trailing collection slots that no row uses.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			header, err := a.service.Header(args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), codec.EncodeLine(header)+"\n")
			return err
		})
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema <table>",
	Short: "Describe a table's record type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			schema, err := a.service.Schema(args[0])
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), schemaFormat, schema)
		})
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(headerCmd)
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVar(&schemaFormat, "format", "yaml", "output format: yaml or json")
}

// encode writes v as YAML or indented JSON.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}
