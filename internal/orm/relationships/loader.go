package relationships

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// Load loads dotted relation paths such as "characters.area" for entities
// of the type described by meta. Paths are loaded in order; a path sharing
// a prefix with an earlier one finds the prefix already loaded.
func (l *Loader) Load(ctx context.Context, meta *schema.Metadata, entities []schema.Model, paths ...string) error {
	for _, p := range paths {
		segments, err := ParsePath(p)
		if err != nil {
			return ormerrors.RelationResolution(meta.Name, p, "%v", err)
		}
		if err := l.LoadPath(ctx, meta, entities, segments); err != nil {
			return err
		}
	}
	return nil
}

// LoadPath resolves path segment by segment. The frontier starts as
// entities and becomes the set of entities attached by the previous
// segment, so "orders", "items" loads the items of every loaded order.
func (l *Loader) LoadPath(ctx context.Context, meta *schema.Metadata, entities []schema.Model, path []string) error {
	if len(path) > l.maxDepth {
		return ormerrors.RelationResolution(meta.Name, strings.Join(path, "."), "%v: %d segments, limit %d",
			ErrMaxDepthExceeded, len(path), l.maxDepth)
	}

	frontier := entities
	for _, segment := range path {
		rel, ok := meta.Relation(segment)
		if !ok {
			return ormerrors.RelationResolution(meta.Name, segment, "%v", ErrUnknownRelationship)
		}
		related, err := l.registry.MetadataOf(rel.NewRelated)
		if err != nil {
			return fmt.Errorf("failed to resolve relationship %s.%s: %w", meta.Name, segment, err)
		}

		if err := l.loadSegment(ctx, meta, related, rel, frontier); err != nil {
			return fmt.Errorf("failed to load relationship %s.%s: %w", meta.Name, segment, err)
		}

		frontier = attachedSet(rel, frontier)
		meta = related
		if len(frontier) == 0 {
			return nil
		}
	}
	return nil
}

// loadSegment loads one relation for the frontier entities whose relation
// field is still empty
func (l *Loader) loadSegment(ctx context.Context, meta, related *schema.Metadata, rel *schema.Relation, frontier []schema.Model) error {
	var pending []schema.Model
	for _, e := range frontier {
		if !rel.Loaded(e) {
			pending = append(pending, e)
		}
	}

	l.logger.Debug("loading relation",
		zap.String("entity", meta.Name),
		zap.String("relation", rel.Name),
		zap.Stringer("kind", rel.Kind),
		zap.Int("frontier", len(frontier)),
		zap.Int("pending", len(pending)))

	if len(pending) == 0 {
		return nil
	}

	switch rel.Kind {
	case schema.OneToMany, schema.ManyToOne, schema.OneToOne:
		return l.loadByKey(ctx, meta, related, rel, pending)
	case schema.ManyToMany:
		return l.loadManyToMany(ctx, meta, related, rel, pending)
	default:
		return ormerrors.RelationResolution(meta.Name, rel.Name, "unsupported relation kind %s", rel.Kind)
	}
}

// attachedSet flattens the entities attached to the frontier, keeping the
// first occurrence of each instance
func attachedSet(rel *schema.Relation, frontier []schema.Model) []schema.Model {
	seen := make(map[schema.Model]struct{})
	var next []schema.Model
	for _, e := range frontier {
		for _, r := range rel.Attached(e) {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			next = append(next, r)
		}
	}
	return next
}

// ParsePath splits a dotted relation path into its segments
func ParsePath(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty relation path")
	}
	segments := strings.Split(path, ".")
	for i, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, fmt.Errorf("empty segment in relation path %q", path)
		}
		segments[i] = s
	}
	return segments, nil
}
