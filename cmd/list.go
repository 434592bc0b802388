package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listCmd = &cobra.Command{
	Use:     "list <page.html>",
	Aliases: []string{"l"},
	Short:   "List the component markers of a page",
	Long: `List the component markers found in a page without loading them.

Examples:
  componentry list index.html             # table
  componentry list index.html -f json     # JSON
  componentry list index.html -f yaml     # YAML`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

var listFormat string

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table, json, yaml)")
}

type markerRow struct {
	ID     string         `json:"id" yaml:"id"`
	Path   string         `json:"path" yaml:"path"`
	Nested bool           `json:"nested" yaml:"nested"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}
	r, err := newPageRenderer(cfg, logger)
	if err != nil {
		return err
	}
	markers, err := r.Discover(context.Background(), src)
	if err != nil {
		return err
	}

	rows := make([]markerRow, 0, len(markers))
	for _, m := range markers {
		rows = append(rows, markerRow{ID: m.ID, Path: m.Path, Nested: m.Nested, Params: m.Params})
	}

	out := cmd.OutOrStdout()
	switch listFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(rows)
	case "table":
		return writeMarkerTable(cmd, rows)
	default:
		return fmt.Errorf("unsupported format: %s (supported: table, json, yaml)", listFormat)
	}
}

func writeMarkerTable(cmd *cobra.Command, rows []markerRow) error {
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No component markers found")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPATH\tKIND\tPARAMS")
	for _, row := range rows {
		kind := "component"
		if row.Nested {
			kind = "nested"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.ID, row.Path, kind, formatParams(row.Params))
	}
	return w.Flush()
}

func formatParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		b, err := json.Marshal(params[k])
		if err != nil {
			b = []byte(fmt.Sprint(params[k]))
		}
		parts = append(parts, k+"="+string(b))
	}
	return strings.Join(parts, " ")
}
