package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/crimson-games/bakuretsu/internal/cli/ui"
	"github.com/crimson-games/bakuretsu/internal/models"
	"github.com/crimson-games/bakuretsu/internal/orm/model"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// entity runs typed ORM operations for one game type, selected by name
// on the command line
type entity struct {
	name  string
	find  func(ctx context.Context, db *model.DB, id any, paths []string) (schema.Model, error)
	page  func(ctx context.Context, db *model.DB, where string, page, size int) (*pageResult, error)
	count func(ctx context.Context, db *model.DB, where string) (int64, error)
}

type pageResult struct {
	rows  []schema.Model
	page  int
	pages int
	total int64
}

func bind[T any, PT interface {
	*T
	schema.Model
}](name string) entity {
	return entity{
		name: name,
		find: func(ctx context.Context, db *model.DB, id any, paths []string) (schema.Model, error) {
			e, err := model.FindByID[T, PT](ctx, db, id)
			if err != nil {
				return nil, err
			}
			if len(paths) > 0 {
				if err := model.Load[T, PT](ctx, db, []*T{e}, paths...); err != nil {
					return nil, err
				}
			}
			return PT(e), nil
		},
		page: func(ctx context.Context, db *model.DB, where string, page, size int) (*pageResult, error) {
			p, err := model.Paginate[T, PT](db, size, where)
			if err != nil {
				return nil, err
			}
			rows, err := p.Page(ctx, page)
			if err != nil {
				return nil, err
			}
			total, err := p.Count(ctx)
			if err != nil {
				return nil, err
			}
			pages, err := p.TotalPages(ctx)
			if err != nil {
				return nil, err
			}
			result := &pageResult{page: p.Current(), pages: pages, total: total}
			for _, r := range rows {
				result.rows = append(result.rows, PT(r))
			}
			return result, nil
		},
		count: func(ctx context.Context, db *model.DB, where string) (int64, error) {
			return model.Count[T, PT](ctx, db, where)
		},
	}
}

var entities = []entity{
	bind[models.User]("User"),
	bind[models.Character]("Character"),
	bind[models.Area]("Area"),
	bind[models.AreaHandler]("AreaHandler"),
	bind[models.AreaFrame]("AreaFrame"),
	bind[models.NPC]("NPC"),
	bind[models.Monster]("Monster"),
}

func entityNames() []string {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.name
	}
	return names
}

// resolveEntity finds an entity by name, ignoring case. Unknown names are
// reported on w with suggestions.
func resolveEntity(w io.Writer, name string, noColor bool) (entity, error) {
	for _, e := range entities {
		if strings.EqualFold(e.name, name) {
			return e, nil
		}
	}
	fmt.Fprint(w, ui.UnknownEntityError(name, entityNames(), noColor))
	return entity{}, &reportedError{fmt.Errorf("unknown entity %q", name)}
}

// reportORMError writes a formatted report of err and marks it reported
func reportORMError(w io.Writer, err error, noColor bool) error {
	fmt.Fprint(w, ui.ORMError(err, noColor))
	return &reportedError{err}
}

// parseID turns a numeric identifier into an int64 and leaves anything
// else, such as a UUID, as a string
func parseID(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// formatValue renders a field value for display
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return v.Format(time.RFC3339)
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	default:
		return fmt.Sprint(v)
	}
}

// renderRows writes entities of meta as a table, one column per field
func renderRows(w io.Writer, meta *schema.Metadata, rows []schema.Model, noColor bool) {
	table := ui.NewTable(w, noColor, meta.Columns()...)
	for _, row := range rows {
		cells := make([]string, len(meta.Fields))
		for i, f := range meta.Fields {
			cells[i] = formatValue(f.Get(row))
		}
		table.AddRow(cells...)
	}
	table.Render()
}
