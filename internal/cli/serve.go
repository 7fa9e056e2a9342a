package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xonecas/outline/internal/lsp"
)

// stdio joins stdin and stdout into the connection the server reads and
// writes.
type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error {
	return nil
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the language server on stdin and stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().Msg("lsp: serving on stdio")
			err := lsp.NewServer(a.cfg).Serve(ctx, stdio{Reader: cmd.InOrStdin(), Writer: cmd.OutOrStdout()})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
