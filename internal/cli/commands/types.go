package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crimson-games/bakuretsu/internal/cli/ui"
	"github.com/crimson-games/bakuretsu/internal/models"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

func newTypesCommand(opts *globalOptions) *cobra.Command {
	var relations, showSQL bool

	cmd := &cobra.Command{
		Use:   "types [entity]",
		Short: "List the registered entity types",
		Long: `List the registered entity types with their tables, identifiers and
cache policies. Naming an entity shows its fields, relations and the
statements generated for the configured database.`,
		Example: `  bakuretsu types
  bakuretsu types --relations
  bakuretsu types Character --sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			d, err := cfg.Database.Dialect()
			if err != nil {
				return err
			}
			registry := schema.NewRegistry(d)
			if err := registry.Register(models.Factories()...); err != nil {
				return reportORMError(cmd.ErrOrStderr(), err, opts.noColor)
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				renderTypes(cmd, registry.All(), relations, opts.noColor)
				return nil
			}

			e, err := resolveEntity(cmd.ErrOrStderr(), args[0], opts.noColor)
			if err != nil {
				return err
			}
			meta, _ := registry.Get(e.name)
			renderType(cmd, meta, opts.noColor)
			if showSQL {
				fmt.Fprintln(out)
				kv := ui.NewKeyValueTable(out, opts.noColor)
				kv.AddRow("select", meta.SelectByIDSQL)
				kv.AddRow("insert", meta.InsertSQL)
				kv.AddRow("update", meta.UpdateSQL)
				kv.AddRow("delete", meta.DeleteByIDSQL)
				kv.AddRow("count", meta.CountSQL)
				kv.Render()
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&relations, "relations", "r", false, "list relations instead of tables")
	cmd.Flags().BoolVar(&showSQL, "sql", false, "show generated statements of the named entity")
	return cmd
}

func cachePolicy(meta *schema.Metadata) string {
	if meta.Cache == nil {
		return "-"
	}
	return fmt.Sprintf("%d / %s", meta.Cache.MaxSize, meta.Cache.TTL)
}

func renderTypes(cmd *cobra.Command, all []*schema.Metadata, relations, noColor bool) {
	out := cmd.OutOrStdout()
	if relations {
		table := ui.NewTable(out, noColor, "ENTITY", "RELATION", "KIND", "RELATED")
		for _, meta := range all {
			for _, name := range meta.RelationNames {
				rel := meta.Relations[name]
				table.AddRow(meta.Name, rel.Name, rel.Kind.String(), rel.Related())
			}
		}
		table.Render()
		return
	}

	table := ui.NewTable(out, noColor, "ENTITY", "TABLE", "ID", "FIELDS", "CACHE")
	for _, meta := range all {
		table.AddRow(meta.Name, meta.Table, meta.ID.Column, strconv.Itoa(len(meta.Fields)), cachePolicy(meta))
	}
	table.Render()
}

func renderType(cmd *cobra.Command, meta *schema.Metadata, noColor bool) {
	out := cmd.OutOrStdout()

	kv := ui.NewKeyValueTable(out, noColor)
	kv.AddRow("entity", meta.Name)
	kv.AddRow("table", meta.Table)
	kv.AddRow("id", meta.ID.Column)
	kv.AddRow("cache", cachePolicy(meta))
	kv.Render()
	fmt.Fprintln(out)

	fields := ui.NewTable(out, noColor, "FIELD", "COLUMN", "TYPE", "NULL")
	for _, f := range meta.Fields {
		null := ""
		if f.Nullable {
			null = "yes"
		}
		fields.AddRow(f.Name, f.Column, f.Type.String(), null)
	}
	fields.Render()

	if len(meta.RelationNames) == 0 {
		return
	}
	fmt.Fprintln(out)
	rels := ui.NewTable(out, noColor, "RELATION", "KIND", "RELATED", "KEYS")
	for _, name := range meta.RelationNames {
		rel := meta.Relations[name]
		rels.AddRow(rel.Name, rel.Kind.String(), rel.Related(), describeKeys(rel.Keys))
	}
	rels.Render()
}

func describeKeys(k schema.Keys) string {
	var parts []string
	for _, kv := range [][2]string{
		{"foreign", k.ForeignKey},
		{"local", k.LocalKey},
		{"join", k.JoinTable},
		{"join_foreign", k.JoinForeignKey},
		{"join_related", k.JoinRelatedKey},
	} {
		if kv[1] != "" {
			parts = append(parts, kv[0]+"="+kv[1])
		}
	}
	return strings.Join(parts, " ")
}
