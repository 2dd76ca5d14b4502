package model

import (
	"context"

	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// Save inserts e when its identifier is unset and updates it otherwise. The
// saved entity replaces its cache entry.
func Save[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, e *T) error {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return err
	}
	return db.ops.Save(ctx, meta, PT(e))
}

// Delete removes e from the database and the cache
func Delete[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, e *T) error {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return err
	}
	return db.ops.Delete(ctx, meta, PT(e))
}

// DeleteByID removes the entity with the given identifier and returns the
// number of deleted rows
func DeleteByID[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, id any) (int64, error) {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return 0, err
	}
	return db.ops.DeleteByID(ctx, meta, id)
}

// Refresh reloads every persisted field of e from the database, bypassing
// the cache, and stores the result in the cache
func Refresh[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, e *T) error {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return err
	}
	return db.ops.Refresh(ctx, meta, PT(e))
}

// UpdateAll runs "UPDATE table SET set WHERE condition" and drops every
// cached entity of T. An empty condition updates every row.
func UpdateAll[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, set, condition string, args ...any) (int64, error) {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return 0, err
	}
	return db.ops.UpdateAll(ctx, meta, set, condition, args...)
}

// DeleteWhere deletes the rows matching a raw condition and drops every
// cached entity of T
func DeleteWhere[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, condition string, args ...any) (int64, error) {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return 0, err
	}
	return db.ops.DeleteWhere(ctx, meta, condition, args...)
}
