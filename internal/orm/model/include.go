package model

import (
	"context"
	"fmt"
	"strings"

	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// IncludeOneOf loads the single related entity held by relation on parent,
// attaches it and returns it. A relation with no match yields an error
// matching ormerrors.ErrNotFound.
//
//	owner, err := model.IncludeOneOf[models.User](ctx, db, character, "user")
func IncludeOneOf[R any, P any, PR interface {
	*R
	schema.Model
}, PP interface {
	*P
	schema.Model
}](ctx context.Context, db *DB, parent *P, relation string) (*R, error) {
	meta, rel, related, err := includeTarget[R, P, PR, PP](db, relation)
	if err != nil {
		return nil, err
	}
	if !rel.Kind.Single() {
		return nil, ormerrors.RelationResolution(meta.Name, relation, "%s relation holds many %s, use IncludeManyOf", rel.Kind, rel.Related())
	}

	if !rel.Loaded(PP(parent)) {
		if err := db.includeOne(ctx, meta, related, rel, PP(parent)); err != nil {
			return nil, err
		}
	}

	attached := rel.Attached(PP(parent))
	if len(attached) == 0 {
		return nil, fmt.Errorf("%s.%s: %w", meta.Name, relation, ormerrors.ErrNotFound)
	}
	return any(attached[0]).(*R), nil
}

// includeOne resolves a many-to-one relation that targets the related
// identifier through the cache; everything else goes through the loader.
func (db *DB) includeOne(ctx context.Context, meta, related *schema.Metadata, rel *schema.Relation, parent schema.Model) error {
	if rel.Kind != schema.ManyToOne || !strings.EqualFold(rel.ForeignKey, related.ID.Column) {
		return db.loader.LoadPath(ctx, meta, []schema.Model{parent}, []string{rel.Name})
	}

	local, _ := meta.FieldByColumn(rel.LocalKey)
	id := local.Get(parent)
	if id == nil {
		rel.Attach(parent, nil)
		return nil
	}

	e, err := db.findByID(ctx, related, id)
	switch {
	case ormerrors.IsNotFound(err):
		rel.Attach(parent, nil)
		return nil
	case err != nil:
		return err
	}
	rel.Attach(parent, []schema.Model{e})
	return nil
}

// IncludeManyOf loads the related entities held by relation on parent,
// attaches them and returns them
//
//	monsters, err := model.IncludeManyOf[models.Monster](ctx, db, area, "monsters")
func IncludeManyOf[R any, P any, PR interface {
	*R
	schema.Model
}, PP interface {
	*P
	schema.Model
}](ctx context.Context, db *DB, parent *P, relation string) ([]*R, error) {
	meta, rel, _, err := includeTarget[R, P, PR, PP](db, relation)
	if err != nil {
		return nil, err
	}
	if rel.Kind.Single() {
		return nil, ormerrors.RelationResolution(meta.Name, relation, "%s relation holds one %s, use IncludeOneOf", rel.Kind, rel.Related())
	}

	if err := db.loader.LoadPath(ctx, meta, []schema.Model{PP(parent)}, []string{relation}); err != nil {
		return nil, err
	}

	attached := rel.Attached(PP(parent))
	result := make([]*R, len(attached))
	for i, e := range attached {
		result[i] = any(e).(*R)
	}
	return result, nil
}

// Load eager loads dotted relation paths for entities already fetched
func Load[T any, PT interface {
	*T
	schema.Model
}](ctx context.Context, db *DB, entities []*T, paths ...string) error {
	meta, err := metadata[T, PT](db)
	if err != nil {
		return err
	}
	models := make([]schema.Model, len(entities))
	for i, e := range entities {
		models[i] = PT(e)
	}
	return db.loader.Load(ctx, meta, models, paths...)
}

func includeTarget[R any, P any, PR interface {
	*R
	schema.Model
}, PP interface {
	*P
	schema.Model
}](db *DB, relation string) (*schema.Metadata, *schema.Relation, *schema.Metadata, error) {
	meta, err := metadata[P, PP](db)
	if err != nil {
		return nil, nil, nil, err
	}
	related, err := metadata[R, PR](db)
	if err != nil {
		return nil, nil, nil, err
	}

	rel, ok := meta.Relation(relation)
	if !ok {
		return nil, nil, nil, ormerrors.RelationResolution(meta.Name, relation, "unknown relationship")
	}
	if rel.Related() != related.Name {
		return nil, nil, nil, ormerrors.RelationResolution(meta.Name, relation, "relation targets %s, not %s", rel.Related(), related.Name)
	}
	return meta, rel, related, nil
}
