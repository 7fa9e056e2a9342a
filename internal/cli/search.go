package cli

import (
	"fmt"
	"os"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"

	"github.com/xonecas/outline/internal/constants"
	"github.com/xonecas/outline/internal/store"
	"github.com/xonecas/outline/internal/symbols"
)

var cellStyle = lipgloss.NewStyle().PaddingRight(2)

func newSearchCmd(*app) *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find symbols by name in an index database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("index database not found: %s", dbPath)
			}
			db, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := db.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no matches")
				return nil
			}

			t := table.New().
				Border(lipgloss.HiddenBorder()).
				BorderTop(false).BorderBottom(false).BorderLeft(false).BorderRight(false).
				BorderHeader(false).BorderColumn(false).
				StyleFunc(func(int, int) lipgloss.Style { return cellStyle }).
				Headers("LOCATION", "KIND", "NAME")
			for _, e := range entries {
				name := e.Name + e.Detail
				if e.Container != "" {
					name = e.Container + "." + name
				}
				t.Row(fmt.Sprintf("%s:%d", e.Path, e.Range.Start.Line+1), symbols.KindName(e.Kind), name)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return err
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "outline.db", "SQLite database written by `outline index`")
	cmd.Flags().IntVar(&limit, "limit", constants.DefaultSearchLimit, "maximum number of results (0 for all)")
	return cmd
}
