package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/componentry/internal/config"
	"github.com/conneroisu/componentry/internal/loader"
	"github.com/conneroisu/componentry/internal/logging"
	"github.com/conneroisu/componentry/internal/renderer"
	"github.com/conneroisu/componentry/internal/runtime"
	"github.com/conneroisu/componentry/internal/snapshot"
)

var renderCmd = &cobra.Command{
	Use:     "render <page.html>",
	Aliases: []string{"r"},
	Short:   "Render a page and its components",
	Long: `Render loads every component marker of a page, renders the fragments
into their elements and prints the resulting document.

Fragment paths resolve against --root, or against --base-url when set.

Examples:
  componentry render index.html
  componentry render index.html --root site --out dist/index.html
  componentry render index.html --state-out state.yaml
  componentry render index.html --state-out state.bin --state-format msgpack`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var (
	renderOut         string
	renderStateOut    string
	renderStateFormat string
	renderFailOnError bool
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "write the rendered page to this file instead of stdout")
	renderCmd.Flags().StringVar(&renderStateOut, "state-out", "", "write the component states to this file")
	renderCmd.Flags().StringVar(&renderStateFormat, "state-format", "", "state file format: json, yaml or msgpack (default from extension)")
	renderCmd.Flags().BoolVar(&renderFailOnError, "fail-on-error", false, "exit with an error when a component fails to load")
	renderCmd.Flags().Int("max-depth", runtime.DefaultMaxDepth, "maximum component nesting depth (0 disables the bound)")

	_ = viper.BindPFlag("runtime.max_depth", renderCmd.Flags().Lookup("max-depth"))
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	format := snapshot.FormatOf(renderStateOut)
	if renderStateFormat != "" {
		if format, err = snapshot.ParseFormat(renderStateFormat); err != nil {
			return err
		}
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}

	r, err := newPageRenderer(cfg, logger)
	if err != nil {
		return err
	}
	ctx := context.Background()
	page, err := r.Render(ctx, filepath.ToSlash(args[0]), src, nil)
	if err != nil {
		return err
	}

	if err := writeOutput(cmd.OutOrStdout(), renderOut, []byte(page.HTML)); err != nil {
		return err
	}
	if renderStateOut != "" {
		data, err := snapshot.New(page.Path, page.States).Marshal(format)
		if err != nil {
			return fmt.Errorf("failed to encode states: %w", err)
		}
		if err := writeFile(renderStateOut, data); err != nil {
			return err
		}
	}

	for _, e := range page.Errors {
		fmt.Fprintln(cmd.ErrOrStderr(), "component", e.Error())
	}
	if renderFailOnError && page.Failed() {
		return fmt.Errorf("%d component(s) failed to load", len(page.Errors))
	}
	return nil
}

func newPageRenderer(cfg *config.Config, logger logging.Logger) (*renderer.PageRenderer, error) {
	return renderer.FromConfig(cfg, loader.NewFSFetcher(os.DirFS(cfg.Loader.Root)),
		renderer.WithLogger(logger))
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
