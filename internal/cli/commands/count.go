package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCountCommand(opts *globalOptions) *cobra.Command {
	var where string

	cmd := &cobra.Command{
		Use:     "count <entity>",
		Short:   "Count entities",
		Example: `  bakuretsu count Monster --where "level_id >= 10"`,
		Args:    cobra.ExactArgs(1),
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

			n, err := e.count(cmd.Context(), s.db, where)
			if err != nil {
				return reportORMError(stderr, err, opts.noColor)
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	cmd.Flags().StringVar(&where, "where", "", "raw SQL condition")
	return cmd
}
