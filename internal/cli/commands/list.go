package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(opts *globalOptions) *cobra.Command {
	var (
		where string
		page  int
		size  int
	)

	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "Page through entities",
		Long: `Page through the entities of a type in identifier order, optionally
filtered by a raw SQL condition.`,
		Example: `  bakuretsu list Character --where "coins > 100"
  bakuretsu list NPC --page 3 --size 50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stderr := cmd.ErrOrStderr()
			e, err := resolveEntity(stderr, args[0], opts.noColor)
			if err != nil {
				return err
			}

			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := e.page(cmd.Context(), s.db, where, page, size)
			if err != nil {
				return reportORMError(stderr, err, opts.noColor)
			}

			out := cmd.OutOrStdout()
			meta, _ := s.db.Registry().Get(e.name)
			renderRows(out, meta, result.rows, opts.noColor)
			fmt.Fprintf(out, "\npage %d of %d (%d %s)\n", result.page, max(result.pages, 1), result.total, meta.Table)
			return nil
		},
	}

	cmd.Flags().StringVar(&where, "where", "", "raw SQL condition")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number, starting at 1")
	cmd.Flags().IntVarP(&size, "size", "n", 20, "rows per page")
	return cmd
}
