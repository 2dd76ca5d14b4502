// Package crud executes the single-type statements of the ORM: fetching by
// identifier, inserting, updating, deleting and running filtered selects.
// Rows are materialized into typed entities through the field binders of
// the type's metadata.
package crud

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/crimson-games/bakuretsu/internal/orm/cache"
	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// Operation represents a statement kind
type Operation int

const (
	// OperationSelect represents a select
	OperationSelect Operation = iota
	// OperationInsert represents an insert
	OperationInsert
	// OperationUpdate represents an update
	OperationUpdate
	// OperationDelete represents a delete
	OperationDelete
	// OperationCount represents a count
	OperationCount
)

// String returns the string representation of the operation
func (o Operation) String() string {
	switch o {
	case OperationSelect:
		return "select"
	case OperationInsert:
		return "insert"
	case OperationUpdate:
		return "update"
	case OperationDelete:
		return "delete"
	case OperationCount:
		return "count"
	default:
		return "unknown"
	}
}

// Querier runs statements. *sql.DB and *sql.Tx both satisfy it; with a
// *sql.DB every call borrows a pooled connection and returns it before
// the call completes.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Operations provides the statements of every registered type over one
// database handle
type Operations struct {
	db         Querier
	cache      *cache.Manager
	logger     *zap.Logger
	strictKeys bool
}

// Option configures Operations
type Option func(*Operations)

// WithCache sets the entity cache kept coherent by writes and populated by
// fetches
func WithCache(m *cache.Manager) Option {
	return func(o *Operations) {
		o.cache = m
	}
}

// WithLogger sets the logger used for statement tracing
func WithLogger(logger *zap.Logger) Option {
	return func(o *Operations) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStrictGeneratedKeys makes an insert whose generated key cannot be
// assigned to the identifier fail instead of logging a warning
func WithStrictGeneratedKeys(strict bool) Option {
	return func(o *Operations) {
		o.strictKeys = strict
	}
}

// NewOperations creates a new Operations instance
func NewOperations(db Querier, opts ...Option) *Operations {
	o := &Operations{
		db:     db,
		cache:  cache.NewManager(cache.Disabled()),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Cache returns the cache manager the operations keep coherent
func (o *Operations) Cache() *cache.Manager {
	return o.cache
}

// Query runs a select returning rows of the type and materializes them.
// Materialized entities of cached types replace their cache entries.
func (o *Operations) Query(ctx context.Context, meta *schema.Metadata, query string, args ...any) ([]schema.Model, error) {
	query = dialect.Rebind(meta.Dialect, query)
	o.trace(meta, OperationSelect, query, args)

	rows, err := o.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ormerrors.QueryExecution(meta.Name, OperationSelect.String(), err)
	}
	entities, err := MaterializeRows(meta, rows)
	if err != nil {
		var oe *ormerrors.Error
		if errors.As(err, &oe) {
			return nil, err
		}
		return nil, ormerrors.QueryExecution(meta.Name, OperationSelect.String(), err)
	}
	o.cacheAll(meta, entities)
	return entities, nil
}

// Count runs a query returning a single integer
func (o *Operations) Count(ctx context.Context, meta *schema.Metadata, query string, args ...any) (int64, error) {
	query = dialect.Rebind(meta.Dialect, query)
	o.trace(meta, OperationCount, query, args)

	var n int64
	if err := o.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, ormerrors.QueryExecution(meta.Name, OperationCount.String(), err)
	}
	return n, nil
}

// Exec runs a statement and returns the number of affected rows
func (o *Operations) Exec(ctx context.Context, meta *schema.Metadata, op Operation, query string, args ...any) (int64, error) {
	query = dialect.Rebind(meta.Dialect, query)
	o.trace(meta, op, query, args)

	res, err := o.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, ormerrors.QueryExecution(meta.Name, op.String(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, ormerrors.QueryExecution(meta.Name, op.String(), err)
	}
	return n, nil
}

func (o *Operations) trace(meta *schema.Metadata, op Operation, query string, args []any) {
	if ce := o.logger.Check(zap.DebugLevel, "sql"); ce != nil {
		ce.Write(
			zap.String("entity", meta.Name),
			zap.Stringer("op", op),
			zap.String("query", query),
			zap.Int("args", len(args)),
		)
	}
}
