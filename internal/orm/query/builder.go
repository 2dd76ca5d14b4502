// Package query provides the fluent, typed query builder of the ORM
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/crimson-games/bakuretsu/internal/orm/crud"
	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// Executor runs compiled queries. crud.Operations satisfies it.
type Executor interface {
	FetchSQL(ctx context.Context, meta *schema.Metadata, query string, args ...any) ([]schema.Model, error)
	Count(ctx context.Context, meta *schema.Metadata, query string, args ...any) (int64, error)
}

// RelationshipLoader loads eager-load paths for fetched entities. This
// avoids an import cycle between query and relationships.
type RelationshipLoader interface {
	Load(ctx context.Context, meta *schema.Metadata, entities []schema.Model, paths ...string) error
}

// Builder accumulates conditions, ordering, paging and eager-load paths for
// entity type T. Accumulating methods modify the builder and return it;
// terminal methods compile a copy, so calling them repeatedly yields the
// same SQL.
//
// Invalid columns and negative limits are recorded and reported by the
// terminal call.
type Builder[T any, PT interface {
	*T
	schema.Model
}] struct {
	meta   *schema.Metadata
	exec   Executor
	loader RelationshipLoader

	conditions []*Condition
	orderBy    []string
	limit      *int
	offset     *int
	includes   []string

	err error
}

// New creates a builder for the type described by meta. loader may be nil
// when no eager loading is needed.
func New[T any, PT interface {
	*T
	schema.Model
}](meta *schema.Metadata, exec Executor, loader RelationshipLoader) *Builder[T, PT] {
	return &Builder[T, PT]{
		meta:   meta,
		exec:   exec,
		loader: loader,
	}
}

func (b *Builder[T, PT]) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder[T, PT]) checkColumn(column string) bool {
	if b.meta.HasColumn(column) {
		return true
	}
	b.fail(fmt.Errorf("%w: %s.%s", crud.ErrUnknownColumn, b.meta.Name, column))
	return false
}

// Where adds a condition comparing column with value
func (b *Builder[T, PT]) Where(column string, op Operator, value any) *Builder[T, PT] {
	if b.checkColumn(column) {
		b.conditions = append(b.conditions, &Condition{Column: column, Operator: op, Value: value})
	}
	return b
}

// WhereEq adds an equality condition
func (b *Builder[T, PT]) WhereEq(column string, value any) *Builder[T, PT] {
	return b.Where(column, OpEqual, value)
}

// WhereIn adds a WHERE IN condition. An empty list matches nothing.
func (b *Builder[T, PT]) WhereIn(column string, values []any) *Builder[T, PT] {
	return b.Where(column, OpIn, values)
}

// WhereNull adds a WHERE IS NULL condition
func (b *Builder[T, PT]) WhereNull(column string) *Builder[T, PT] {
	return b.Where(column, OpIsNull, nil)
}

// WhereRaw adds a raw SQL condition with '?' placeholders
func (b *Builder[T, PT]) WhereRaw(condition string, args ...any) *Builder[T, PT] {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return b
	}
	b.conditions = append(b.conditions, &Condition{Raw: condition, Args: args})
	return b
}

// OrderBy adds an ORDER BY clause. Any direction other than DESC sorts
// ascending.
func (b *Builder[T, PT]) OrderBy(column string, direction string) *Builder[T, PT] {
	if !b.checkColumn(column) {
		return b
	}
	dir := strings.ToUpper(strings.TrimSpace(direction))
	if dir != "DESC" {
		dir = "ASC"
	}
	b.orderBy = append(b.orderBy, fmt.Sprintf("%s %s", b.meta.Quote(column), dir))
	return b
}

// OrderByRaw adds a raw ORDER BY expression
func (b *Builder[T, PT]) OrderByRaw(expr string) *Builder[T, PT] {
	if expr = strings.TrimSpace(expr); expr != "" {
		b.orderBy = append(b.orderBy, expr)
	}
	return b
}

// Limit sets the LIMIT clause
func (b *Builder[T, PT]) Limit(n int) *Builder[T, PT] {
	if n < 0 {
		b.fail(fmt.Errorf("negative limit %d", n))
		return b
	}
	b.limit = &n
	return b
}

// Offset sets the OFFSET clause
func (b *Builder[T, PT]) Offset(n int) *Builder[T, PT] {
	if n < 0 {
		b.fail(fmt.Errorf("negative offset %d", n))
		return b
	}
	b.offset = &n
	return b
}

// With adds dotted relation paths to eager load after the fetch
func (b *Builder[T, PT]) With(paths ...string) *Builder[T, PT] {
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" || contains(b.includes, p) {
			continue
		}
		b.includes = append(b.includes, p)
	}
	return b
}

// Scope is a reusable query fragment
type Scope[T any, PT interface {
	*T
	schema.Model
}] func(*Builder[T, PT]) *Builder[T, PT]

// Scopes applies scopes in order
func (b *Builder[T, PT]) Scopes(scopes ...Scope[T, PT]) *Builder[T, PT] {
	for _, s := range scopes {
		b = s(b)
	}
	return b
}

// Clone returns an independent copy of the builder
func (b *Builder[T, PT]) Clone() *Builder[T, PT] {
	c := *b
	c.conditions = append([]*Condition(nil), b.conditions...)
	c.orderBy = append([]string(nil), b.orderBy...)
	c.includes = append([]string(nil), b.includes...)
	if b.limit != nil {
		n := *b.limit
		c.limit = &n
	}
	if b.offset != nil {
		n := *b.offset
		c.offset = &n
	}
	return &c
}

// ToSQL compiles the select statement and its bind arguments
func (b *Builder[T, PT]) ToSQL() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}

	var sql strings.Builder
	var args []any
	sql.WriteString(b.meta.SelectSQL)

	where, err := b.where(&args)
	if err != nil {
		return "", nil, err
	}
	sql.WriteString(where)

	if len(b.orderBy) > 0 {
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(b.orderBy, ", "))
	}

	switch {
	case b.limit != nil:
		sql.WriteString(" LIMIT ?")
		args = append(args, *b.limit)
	case b.offset != nil:
		// MySQL and SQLite reject OFFSET without LIMIT
		switch b.meta.Dialect {
		case dialect.MySQL:
			sql.WriteString(" LIMIT 18446744073709551615")
		case dialect.SQLite:
			sql.WriteString(" LIMIT -1")
		}
	}
	if b.offset != nil {
		sql.WriteString(" OFFSET ?")
		args = append(args, *b.offset)
	}

	return dialect.Rebind(b.meta.Dialect, sql.String()), args, nil
}

// countSQL compiles a count over the conditions, ignoring ordering and
// paging
func (b *Builder[T, PT]) countSQL() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	var args []any
	where, err := b.where(&args)
	if err != nil {
		return "", nil, err
	}
	return dialect.Rebind(b.meta.Dialect, b.meta.CountSQL+where), args, nil
}

func (b *Builder[T, PT]) where(args *[]any) (string, error) {
	if len(b.conditions) == 0 {
		return "", nil
	}
	parts := make([]string, len(b.conditions))
	for i, c := range b.conditions {
		part, err := c.toSQL(b.meta.Quote(c.Column), args)
		if err != nil {
			return "", fmt.Errorf("failed to build condition: %w", err)
		}
		parts[i] = part
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

// Get executes the query and returns every matching entity, loading the
// registered relation paths
func (b *Builder[T, PT]) Get(ctx context.Context) ([]*T, error) {
	sql, args, err := b.ToSQL()
	if err != nil {
		return nil, ormerrors.QueryExecution(b.meta.Name, "select", err)
	}

	entities, err := b.exec.FetchSQL(ctx, b.meta, sql, args...)
	if err != nil {
		return nil, err
	}

	if len(b.includes) > 0 && len(entities) > 0 {
		if b.loader == nil {
			return nil, ormerrors.RelationResolution(b.meta.Name, strings.Join(b.includes, ","), "no relationship loader configured")
		}
		if err := b.loader.Load(ctx, b.meta, entities, b.includes...); err != nil {
			return nil, err
		}
	}

	result := make([]*T, len(entities))
	for i, e := range entities {
		result[i] = any(e).(*T)
	}
	return result, nil
}

// First executes the query limited to one row. No match yields an error
// matching ormerrors.ErrNotFound.
func (b *Builder[T, PT]) First(ctx context.Context) (*T, error) {
	result, err := b.Clone().Limit(1).Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%s: %w", b.meta.Name, ormerrors.ErrNotFound)
	}
	return result[0], nil
}

// Find returns the matching entity with the given identifier
func (b *Builder[T, PT]) Find(ctx context.Context, id any) (*T, error) {
	return b.Clone().WhereEq(b.meta.ID.Column, id).First(ctx)
}

// Count returns the number of matching rows
func (b *Builder[T, PT]) Count(ctx context.Context) (int64, error) {
	sql, args, err := b.countSQL()
	if err != nil {
		return 0, ormerrors.QueryExecution(b.meta.Name, "count", err)
	}
	return b.exec.Count(ctx, b.meta, sql, args...)
}

// Exists checks if any rows match the query
func (b *Builder[T, PT]) Exists(ctx context.Context) (bool, error) {
	n, err := b.Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Metadata returns the metadata of the queried type
func (b *Builder[T, PT]) Metadata() *schema.Metadata {
	return b.meta
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
