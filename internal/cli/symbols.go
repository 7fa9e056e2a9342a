package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/xonecas/outline/internal/config"
	"github.com/xonecas/outline/internal/render"
	"github.com/xonecas/outline/internal/symbols"
	"github.com/xonecas/outline/internal/treesitter"
)

type symbolsOptions struct {
	json      bool
	noImports bool
	width     int
	ranges    bool
}

func newSymbolsCmd(a *app) *cobra.Command {
	var opts symbolsOptions
	cmd := &cobra.Command{
		Use:   "symbols FILE",
		Short: "Print the symbol tree of a Python file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSymbols(cmd, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "print LSP DocumentSymbol JSON")
	cmd.Flags().BoolVar(&opts.noImports, "no-imports", false, "omit import symbols")
	cmd.Flags().IntVar(&opts.width, "width", 0, "truncate lines to this many cells (default: terminal width)")
	cmd.Flags().BoolVar(&opts.ranges, "ranges", false, "show the line span of each symbol")
	return cmd
}

func (a *app) runSymbols(cmd *cobra.Command, path string, opts symbolsOptions) error {
	if !treesitter.Supported(path) {
		return fmt.Errorf("%s: not a Python source file", path)
	}
	mod, err := treesitter.ParseFile(cmd.Context(), path)
	if err != nil {
		return err
	}

	cfg := a.cfg.Clone()
	if opts.noImports {
		cfg.MergePlugins(map[string]map[string]any{
			config.SymbolsPlugin: {config.IncludeImportSymbols: false},
		})
	}
	syms := symbols.DocumentSymbols(cfg, mod)

	out := cmd.OutOrStdout()
	if opts.json {
		return render.JSON(out, syms)
	}

	textOpts := render.Options{Width: opts.width, Ranges: opts.ranges}
	if f, ok := out.(*os.File); ok && term.IsTerminal(f.Fd()) {
		textOpts.Styled = true
		if textOpts.Width == 0 {
			if w, _, err := term.GetSize(f.Fd()); err == nil {
				textOpts.Width = w
			}
		}
	}
	_, err = io.WriteString(out, render.Text(syms, textOpts))
	return err
}
