package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crimson-games/bakuretsu/internal/cli/ui"
)

func newFindCommand(opts *globalOptions) *cobra.Command {
	var with []string

	cmd := &cobra.Command{
		Use:   "find <entity> <id>",
		Short: "Look an entity up by identifier",
		Long: `Look an entity up by identifier through the entity cache, optionally
eager loading relation paths. Dotted paths load nested relations.`,
		Example: `  bakuretsu find User 7
  bakuretsu find User 7 --with characters
  bakuretsu find Area 3 --with handlers,monsters.areas`,
		Args: cobra.ExactArgs(2),
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

			found, err := e.find(cmd.Context(), s.db, parseID(args[1]), with)
			if err != nil {
				return reportORMError(stderr, err, opts.noColor)
			}
			meta, _ := s.db.Registry().Lookup(found)

			out := cmd.OutOrStdout()
			kv := ui.NewKeyValueTable(out, opts.noColor)
			for _, f := range meta.Fields {
				kv.AddRow(f.Name, formatValue(f.Get(found)))
			}
			kv.Render()

			for _, name := range topLevel(with) {
				rel, ok := meta.Relation(name)
				if !ok || !rel.Loaded(found) {
					continue
				}
				related, _ := s.db.Registry().Get(rel.Related())
				attached := rel.Attached(found)

				fmt.Fprintln(out)
				fmt.Fprintf(out, "%s (%s, %d)\n", rel.Name, rel.Related(), len(attached))
				if len(attached) > 0 {
					renderRows(out, related, attached, opts.noColor)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&with, "with", "w", nil, "relation paths to eager load")
	return cmd
}

// topLevel returns the distinct first segments of dotted relation paths
func topLevel(paths []string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range paths {
		name, _, _ := strings.Cut(strings.TrimSpace(p), ".")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
