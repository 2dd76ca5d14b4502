package crud

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// ErrUnknownColumn is returned when a filter names a column the type does
// not persist
var ErrUnknownColumn = errors.New("unknown column")

// FetchByID loads the entity with the given identifier from the database.
// The cache is not consulted for the read. A missing row yields an error
// matching ormerrors.ErrNotFound.
func (o *Operations) FetchByID(ctx context.Context, meta *schema.Metadata, id any) (schema.Model, error) {
	entities, err := o.Query(ctx, meta, meta.SelectByIDSQL, id)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("%s %v: %w", meta.Name, id, ormerrors.ErrNotFound)
	}

	return entities[0], nil
}

// FetchAll loads every row of the type
func (o *Operations) FetchAll(ctx context.Context, meta *schema.Metadata) ([]schema.Model, error) {
	return o.Query(ctx, meta, meta.SelectSQL)
}

// FetchWhereIn loads the rows whose column holds one of values. An empty
// value list returns no entities without touching the database.
func (o *Operations) FetchWhereIn(ctx context.Context, meta *schema.Metadata, column string, values []any) ([]schema.Model, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if !meta.HasColumn(column) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, meta.Name, column)
	}

	query := fmt.Sprintf("%s WHERE %s IN (%s)",
		meta.SelectSQL, meta.Quote(column), dialect.Placeholders(len(values)))
	return o.Query(ctx, meta, query, values...)
}

// FetchWhere loads the rows matching a raw condition. The condition uses
// '?' placeholders for args.
func (o *Operations) FetchWhere(ctx context.Context, meta *schema.Metadata, condition string, args ...any) ([]schema.Model, error) {
	return o.Query(ctx, meta, whereClause(meta.SelectSQL, condition), args...)
}

// FetchFirstWhere loads the first row matching a raw condition
func (o *Operations) FetchFirstWhere(ctx context.Context, meta *schema.Metadata, condition string, args ...any) (schema.Model, error) {
	entities, err := o.Query(ctx, meta, whereClause(meta.SelectSQL, condition)+" LIMIT 1", args...)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("%s where %s: %w", meta.Name, condition, ormerrors.ErrNotFound)
	}
	return entities[0], nil
}

// FetchSQL materializes the rows of a caller supplied select. The select
// must return every persisted column of the type.
func (o *Operations) FetchSQL(ctx context.Context, meta *schema.Metadata, query string, args ...any) ([]schema.Model, error) {
	return o.Query(ctx, meta, query, args...)
}

// CountWhere counts the rows matching a raw condition; an empty condition
// counts every row
func (o *Operations) CountWhere(ctx context.Context, meta *schema.Metadata, condition string, args ...any) (int64, error) {
	return o.Count(ctx, meta, whereClause(meta.CountSQL, condition), args...)
}

// Refresh reloads e from the database, overwriting every persisted field,
// and replaces its cache entry. The cache is not consulted.
func (o *Operations) Refresh(ctx context.Context, meta *schema.Metadata, e schema.Model) error {
	id := meta.IDValue(e)
	fresh, err := o.FetchByID(ctx, meta, id)
	if err != nil {
		return err
	}
	for _, f := range meta.Fields {
		if err := f.Copy(e, fresh); err != nil {
			return ormerrors.FieldBinding(meta.Name, f.Name, f.Column, err)
		}
	}
	o.cache.Put(meta, id, e)
	return nil
}

// FetchPairs runs a query selecting exactly two columns and returns the raw
// value pairs, as read from a join table
func (o *Operations) FetchPairs(ctx context.Context, meta *schema.Metadata, query string, args ...any) ([][2]any, error) {
	query = dialect.Rebind(meta.Dialect, query)
	o.trace(meta, OperationSelect, query, args)

	rows, err := o.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ormerrors.QueryExecution(meta.Name, OperationSelect.String(), err)
	}
	defer rows.Close()

	var pairs [][2]any
	for rows.Next() {
		var p [2]any
		if err := rows.Scan(&p[0], &p[1]); err != nil {
			return nil, ormerrors.QueryExecution(meta.Name, OperationSelect.String(), err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, ormerrors.QueryExecution(meta.Name, OperationSelect.String(), err)
	}
	return pairs, nil
}

func (o *Operations) cacheAll(meta *schema.Metadata, entities []schema.Model) {
	if !meta.Cached() {
		return
	}
	for _, e := range entities {
		o.cache.Put(meta, meta.IDValue(e), e)
	}
}

func whereClause(base, condition string) string {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return base
	}
	return base + " WHERE " + condition
}
