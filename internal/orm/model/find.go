package model

import (
	"context"
	"fmt"

	"github.com/crimson-games/bakuretsu/internal/orm/async"
	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// FindByID returns the entity of type T with the given identifier. Cached
// types are served from the cache when possible; concurrent misses for the
// same identifier share one query. A missing row yields an error matching
// ormerrors.ErrNotFound.
func FindByID[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, id any) (*T, error) {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return nil, err
	}
	e, err := db.findByID(ctx, meta, id)
	if err != nil {
		return nil, err
	}
	return any(e).(*T), nil
}

func (db *DB) findByID(ctx context.Context, meta *schema.Metadata, id any) (schema.Model, error) {
	if e, ok := db.cache.Get(meta, id); ok {
		return e, nil
	}

	key, ok := schema.Key(id)
	if !ok || !meta.Cached() {
		return db.ops.FetchByID(ctx, meta, id)
	}

	// the shared fetch outlives any one caller; each waits on its own ctx
	flightCtx := context.WithoutCancel(ctx)
	ch := db.flight.DoChan(meta.Name+"\x00"+key, func() (any, error) {
		return db.ops.FetchByID(flightCtx, meta, id)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(schema.Model), nil
	}
}

// FindByIDAsync runs FindByID on the worker pool
func FindByIDAsync[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, id any) *async.Future[*T] {
	return async.Go(ctx, db.pool, "find "+fmt.Sprint(id), func(ctx context.Context) (*T, error) {
		return FindByID[T, PT](ctx, db, id)
	})
}

// Exists reports whether an entity with the given identifier exists
func Exists[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, id any) (bool, error) {
	_, err := FindByID[T, PT](ctx, db, id)
	switch {
	case err == nil:
		return true, nil
	case ormerrors.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// WhereInID looks up each identifier through FindByID, in order, skipping
// identifiers with no row
func WhereInID[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, ids []any) ([]*T, error) {
	result := make([]*T, 0, len(ids))
	for _, id := range ids {
		e, err := FindByID[T, PT](ctx, db, id)
		if ormerrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

// Prefetch warms the cache by looking up every identifier on the worker
// pool. The returned futures may be ignored.
func Prefetch[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, ids []any) []*async.Future[*T] {
	futures := make([]*async.Future[*T], len(ids))
	for i, id := range ids {
		futures[i] = FindByIDAsync[T, PT](ctx, db, id)
	}
	return futures
}

// PurgeCache drops every cached entity of type T
func PurgeCache[T any, PT interface {
	*T
	schema.Model
}](db *DB) error {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return err
	}
	db.cache.InvalidateAll(meta)
	return nil
}

// All returns every entity of type T
func All[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB) ([]*T, error) {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return nil, err
	}
	return typed[T](db.ops.FetchAll(ctx, meta))
}

// WhereIn returns the entities whose column holds one of values. An empty
// list returns no entities without a query.
func WhereIn[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, column string, values []any) ([]*T, error) {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return nil, err
	}
	return typed[T](db.ops.FetchWhereIn(ctx, meta, column, values))
}

// Find returns the entities matching a raw condition with '?' placeholders
func Find[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, condition string, args ...any) ([]*T, error) {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return nil, err
	}
	return typed[T](db.ops.FetchWhere(ctx, meta, condition, args...))
}

// FindFirst returns the first entity matching a raw condition
func FindFirst[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, condition string, args ...any) (*T, error) {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return nil, err
	}
	e, err := db.ops.FetchFirstWhere(ctx, meta, condition, args...)
	if err != nil {
		return nil, err
	}
	return any(e).(*T), nil
}

// FindBySQL materializes the rows of a full select statement. The
// statement must return every persisted column of T.
func FindBySQL[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, query string, args ...any) ([]*T, error) {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return nil, err
	}
	return typed[T](db.ops.FetchSQL(ctx, meta, query, args...))
}

// Count counts the entities matching a raw condition
func Count[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, condition string, args ...any) (int64, error) {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return 0, err
	}
	return db.ops.CountWhere(ctx, meta, condition, args...)
}

// CountAll counts every entity of type T
func CountAll[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB) (int64, error) {
	return Count[T, PT](ctx, db, "")
}

func typed[T any](entities []schema.Model, err error) ([]*T, error) {
	if err != nil {
		return nil, err
	}
	result := make([]*T, len(entities))
	for i, e := range entities {
		result[i] = any(e).(*T)
	}
	return result, nil
}
