package model

import (
	"github.com/crimson-games/bakuretsu/internal/orm/pagination"
	"github.com/crimson-games/bakuretsu/internal/orm/query"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// Query starts a typed query over T
//
//	q, err := model.Query[models.Character](db)
//	chars, err := q.Where("coins", query.OpGreaterThan, 10).With("user").Get(ctx)
func Query[T any, PT interface {
	*T
	schema.Model
}](db *DB) (*query.Builder[T, PT], error) {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return nil, err
	}
	return query.New[T, PT](meta, db.ops, db.loader), nil
}

// Paginate returns a paginator over the entities of T matching a raw
// condition, ordered by identifier. An empty condition pages through every
// entity.
func Paginate[T any, PT interface {
	*T
	schema.Model
}](db *DB, pageSize int, condition string, args ...any) (*pagination.Paginator[T, PT], error) {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return nil, err
	}
	return pagination.New(func() *query.Builder[T, PT] {
		return query.New[T, PT](meta, db.ops, db.loader).
			WhereRaw(condition, args...).
			OrderBy(meta.ID.Column, "ASC")
	}, pageSize), nil
}

// SameEntity reports whether a and b denote the same row: both persisted
// with equal identifiers. Other fields are not compared, and two unsaved
// entities are the same only if they are the same instance.
func SameEntity[T any, PT interface {
	*T
	schema.Model
}](db *DB, a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	meta, err := metadata[T, PT](db)
	if err != nil {
		return false
	}
	if meta.IsNew(PT(a)) || meta.IsNew(PT(b)) {
		return false
	}
	ka, _ := schema.Key(meta.IDValue(PT(a)))
	kb, _ := schema.Key(meta.IDValue(PT(b)))
	return ka == kb
}
