package crud

import (
	"context"
	"fmt"
	"strings"

	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// Update writes every non-identifier field of e to its row and replaces the
// cache entry. When no row is affected the entry is dropped instead: the row
// may be gone, and MySQL also reports 0 for an unchanged row, so the next
// lookup reads the database. Types persisting only their identifier have
// nothing to update.
func (o *Operations) Update(ctx context.Context, meta *schema.Metadata, e schema.Model) error {
	if meta.UpdateSQL == "" {
		return nil
	}
	n, err := o.Exec(ctx, meta, OperationUpdate, meta.UpdateSQL, meta.UpdateArgs(e)...)
	if err != nil {
		return err
	}
	if n == 0 {
		o.cache.Invalidate(meta, meta.IDValue(e))
		return nil
	}
	o.cache.Put(meta, meta.IDValue(e), e)
	return nil
}

// Save inserts e when its identifier is unset and updates it otherwise
func (o *Operations) Save(ctx context.Context, meta *schema.Metadata, e schema.Model) error {
	if meta.IsNew(e) {
		return o.Insert(ctx, meta, e)
	}
	return o.Update(ctx, meta, e)
}

// UpdateAll runs UPDATE with a raw SET clause and optional condition. Args
// bind the placeholders of the SET clause first, then the condition's.
// Every cached entity of the type is dropped since any of them may have
// changed.
func (o *Operations) UpdateAll(ctx context.Context, meta *schema.Metadata, set, condition string, args ...any) (int64, error) {
	set = strings.TrimSpace(set)
	if set == "" {
		return 0, ormerrors.QueryExecution(meta.Name, OperationUpdate.String(), fmt.Errorf("empty SET clause"))
	}

	query := whereClause(fmt.Sprintf("UPDATE %s SET %s", meta.Quote(meta.Table), set), condition)
	n, err := o.Exec(ctx, meta, OperationUpdate, query, args...)
	if err != nil {
		return 0, err
	}
	o.cache.InvalidateAll(meta)
	return n, nil
}
