// Package cli wires the outline commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xonecas/outline/internal/config"
	"github.com/xonecas/outline/internal/constants"
	"github.com/xonecas/outline/internal/logging"
)

// app carries state shared by every subcommand.
type app struct {
	cfgPath  string
	logLevel string

	cfg       *config.Config
	logCloser io.Closer
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "outline:", err)
		return 1
	}
	return 0
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               constants.AppName,
		Short:             "Document symbols for Python sources",
		Long:              "outline computes the symbol tree of Python files, serves it to editors over LSP and exports it to SQLite.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default ~/.config/outline/config.toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn or error")

	root.AddCommand(
		newServeCmd(a),
		newSymbolsCmd(a),
		newIndexCmd(a),
		newSearchCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(*cobra.Command, []string) error {
	var (
		cfg *config.Config
		err error
	)
	if a.cfgPath != "" {
		cfg, err = config.Load(a.cfgPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	closer, err := logging.Setup(cfg.Log.LevelOrDefault(), cfg.Log.File)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logCloser = closer
	return nil
}

func (a *app) close() error {
	if a.logCloser == nil {
		return nil
	}
	err := a.logCloser.Close()
	a.logCloser = nil
	return err
}
