package crud

import (
	"context"
	"fmt"

	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// DeleteByID deletes the row with the given identifier and drops its cache
// entry. Deleting a missing row is not an error; the returned count is 0.
func (o *Operations) DeleteByID(ctx context.Context, meta *schema.Metadata, id any) (int64, error) {
	n, err := o.Exec(ctx, meta, OperationDelete, meta.DeleteByIDSQL, id)
	if err != nil {
		return 0, err
	}
	o.cache.Invalidate(meta, id)
	return n, nil
}

// Delete deletes the row of e
func (o *Operations) Delete(ctx context.Context, meta *schema.Metadata, e schema.Model) error {
	if meta.IsNew(e) {
		return ormerrors.QueryExecution(meta.Name, OperationDelete.String(),
			fmt.Errorf("entity has no identifier: %w", ormerrors.ErrNotFound))
	}
	_, err := o.DeleteByID(ctx, meta, meta.IDValue(e))
	return err
}

// DeleteWhere deletes the rows matching a raw condition and drops every
// cached entity of the type. An empty condition deletes every row.
func (o *Operations) DeleteWhere(ctx context.Context, meta *schema.Metadata, condition string, args ...any) (int64, error) {
	query := whereClause("DELETE FROM "+meta.Quote(meta.Table), condition)
	n, err := o.Exec(ctx, meta, OperationDelete, query, args...)
	if err != nil {
		return 0, err
	}
	o.cache.InvalidateAll(meta)
	return n, nil
}
