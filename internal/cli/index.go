package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/x/powernap/pkg/lsp/protocol"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xonecas/outline/internal/config"
	"github.com/xonecas/outline/internal/store"
	"github.com/xonecas/outline/internal/symbols"
	"github.com/xonecas/outline/internal/treesitter"
	"github.com/xonecas/outline/internal/workspace"
)

func newIndexCmd(a *app) *cobra.Command {
	var (
		dbPath string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "index DIR",
		Short: "Outline every Python file under DIR into a SQLite database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			stats, err := indexTree(cmd.Context(), a.cfg, args[0], dbPath, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d files (%d symbols, %d unchanged, %d skipped, %d pruned) in %s\n",
				stats.files, stats.symbols, stats.unchanged, stats.skipped, stats.pruned, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "outline.db", "SQLite database to write")
	cmd.Flags().BoolVar(&force, "force", false, "re-outline files whose content has not changed")
	return cmd
}

type indexStats struct {
	files     int64
	symbols   int64
	unchanged int64
	skipped   int64
	pruned    int
}

// indexTree walks root, outlines every Python file in parallel and replaces
// the stored outlines. Files whose content hash matches the stored one are
// left alone unless force is set. Files that fail to parse are skipped and
// logged.
func indexTree(ctx context.Context, cfg *config.Config, root, dbPath string, force bool) (indexStats, error) {
	var stats indexStats

	w, err := workspace.New(root, cfg.Workspace.Exclude)
	if err != nil {
		return stats, err
	}
	files, err := w.Files(ctx)
	if err != nil {
		return stats, fmt.Errorf("walk %s: %w", root, err)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return stats, err
	}
	defer db.Close()

	var indexed, symCount, unchanged, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, rel := range files {
		g.Go(func() error {
			path := filepath.Join(root, filepath.FromSlash(rel))
			src, err := os.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("path", rel).Msg("index: skipping file")
				skipped.Add(1)
				return nil
			}

			hash := store.ContentHash(src)
			if !force {
				prev, err := db.FileHash(gctx, rel)
				if err != nil {
					return err
				}
				if prev == hash {
					unchanged.Add(1)
					return nil
				}
			}

			mod, err := treesitter.ParsePython(gctx, path, src)
			if err != nil {
				log.Warn().Err(err).Str("path", rel).Msg("index: skipping file")
				skipped.Add(1)
				return nil
			}
			syms := symbols.DocumentSymbols(cfg, mod)
			if err := db.ReplaceFile(gctx, rel, hash, syms); err != nil {
				return err
			}
			indexed.Add(1)
			symCount.Add(count(syms))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	pruned, err := db.Prune(ctx, files)
	if err != nil {
		return stats, err
	}

	stats.files = indexed.Load()
	stats.symbols = symCount.Load()
	stats.unchanged = unchanged.Load()
	stats.skipped = skipped.Load()
	stats.pruned = pruned
	log.Debug().Int64("files", stats.files).Int64("symbols", stats.symbols).Str("db", dbPath).Msg("index: done")
	return stats, nil
}

// count returns the number of symbols in a tree.
func count(syms []protocol.DocumentSymbol) int64 {
	n := int64(len(syms))
	for _, s := range syms {
		n += count(s.Children)
	}
	return n
}
