package relationships

import (
	"context"
	"fmt"

	"github.com/crimson-games/bakuretsu/internal/orm/crud"
	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// keyValues reads column from every entity and returns the distinct non-nil
// values in first-seen order together with the normalized key of each
// entity. hasKey is false for entities whose value is nil; they match
// nothing.
func keyValues(meta *schema.Metadata, column string, entities []schema.Model) (values []any, keys []string, hasKey []bool, err error) {
	field, ok := meta.FieldByColumn(column)
	if !ok {
		return nil, nil, nil, ormerrors.Configuration(meta.Name, "key column %s is not persisted", column)
	}

	keys = make([]string, len(entities))
	hasKey = make([]bool, len(entities))
	seen := make(map[string]struct{})
	for i, e := range entities {
		v := field.Get(e)
		k, ok := schema.Key(v)
		if !ok {
			continue
		}
		keys[i], hasKey[i] = k, true
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			values = append(values, v)
		}
	}
	return values, keys, hasKey, nil
}

// pairKey converts a raw join table value into the Go type of field before
// normalizing it, so driver text and typed identifiers share one key
func pairKey(field *schema.Field, raw any) (any, string, error) {
	if raw == nil {
		return nil, "", nil
	}
	v, err := crud.Convert(raw, field.Type)
	if err != nil {
		return nil, "", fmt.Errorf("join column for %s: %w", field.Column, err)
	}
	k, _ := schema.Key(v)
	return v, k, nil
}

// groupBy indexes entities by the normalized value of column
func groupBy(meta *schema.Metadata, column string, entities []schema.Model) (map[string][]schema.Model, error) {
	field, ok := meta.FieldByColumn(column)
	if !ok {
		return nil, ormerrors.Configuration(meta.Name, "key column %s is not persisted", column)
	}

	groups := make(map[string][]schema.Model)
	for _, e := range entities {
		if k, ok := schema.Key(field.Get(e)); ok {
			groups[k] = append(groups[k], e)
		}
	}
	return groups, nil
}

// loadByKey loads OneToMany, ManyToOne and OneToOne relations with one
// query. Parents are matched to related entities whose foreign key equals
// their local key; many relations receive every match (an empty slice when
// there is none), single relations the first match or nil.
//
//	SELECT ... FROM related WHERE foreign_key IN (...)
func (l *Loader) loadByKey(ctx context.Context, meta, related *schema.Metadata, rel *schema.Relation, parents []schema.Model) error {
	values, keys, hasKey, err := keyValues(meta, rel.LocalKey, parents)
	if err != nil {
		return err
	}

	matches, err := l.ops.FetchWhereIn(ctx, related, rel.ForeignKey, values)
	if err != nil {
		return err
	}
	grouped, err := groupBy(related, rel.ForeignKey, matches)
	if err != nil {
		return err
	}

	for i, p := range parents {
		if !hasKey[i] {
			rel.Attach(p, nil)
			continue
		}
		rel.Attach(p, grouped[keys[i]])
	}
	return nil
}

// loadManyToMany loads related entities through the join table in two
// queries:
//
//	SELECT join_fk, join_related FROM join WHERE join_fk IN (...)
//	SELECT ... FROM related WHERE id IN (...)
func (l *Loader) loadManyToMany(ctx context.Context, meta, related *schema.Metadata, rel *schema.Relation, parents []schema.Model) error {
	if rel.JoinTable == "" || rel.JoinForeignKey == "" || rel.JoinRelatedKey == "" {
		return ormerrors.RelationResolution(meta.Name, rel.Name, "join table and both join keys are required")
	}

	values, keys, hasKey, err := keyValues(meta, rel.LocalKey, parents)
	if err != nil {
		return err
	}
	localField, _ := meta.FieldByColumn(rel.LocalKey)
	if len(values) == 0 {
		for _, p := range parents {
			rel.Attach(p, nil)
		}
		return nil
	}

	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (%s)",
		meta.Quote(rel.JoinForeignKey),
		meta.Quote(rel.JoinRelatedKey),
		meta.Quote(rel.JoinTable),
		meta.Quote(rel.JoinForeignKey),
		dialect.Placeholders(len(values)))
	pairs, err := l.ops.FetchPairs(ctx, meta, query, values...)
	if err != nil {
		return err
	}

	links := make(map[string][]string)
	seen := make(map[string]struct{})
	var relatedIDs []any
	for _, p := range pairs {
		parentID, parentKey, err := pairKey(localField, p[0])
		if err != nil {
			return ormerrors.QueryExecution(meta.Name, crud.OperationSelect.String(), err)
		}
		relatedID, relatedKey, err := pairKey(related.ID, p[1])
		if err != nil {
			return ormerrors.QueryExecution(meta.Name, crud.OperationSelect.String(), err)
		}
		if parentID == nil || relatedID == nil {
			continue
		}
		links[parentKey] = append(links[parentKey], relatedKey)
		if _, dup := seen[relatedKey]; !dup {
			seen[relatedKey] = struct{}{}
			relatedIDs = append(relatedIDs, relatedID)
		}
	}

	entities, err := l.ops.FetchWhereIn(ctx, related, related.ID.Column, relatedIDs)
	if err != nil {
		return err
	}
	byID, err := groupBy(related, related.ID.Column, entities)
	if err != nil {
		return err
	}

	for i, p := range parents {
		if !hasKey[i] {
			rel.Attach(p, nil)
			continue
		}
		var attached []schema.Model
		taken := make(map[string]struct{})
		for _, k := range links[keys[i]] {
			if _, dup := taken[k]; dup {
				continue
			}
			taken[k] = struct{}{}
			attached = append(attached, byID[k]...)
		}
		rel.Attach(p, attached)
	}
	return nil
}
