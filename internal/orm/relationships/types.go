// Package relationships loads related entities for an already materialized
// set of entities, one batched query per relation segment.
package relationships

import (
	"errors"

	"go.uber.org/zap"

	"github.com/crimson-games/bakuretsu/internal/orm/crud"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

var (
	// ErrMaxDepthExceeded is returned when a relation path is deeper than
	// the loader allows
	ErrMaxDepthExceeded = errors.New("maximum relationship depth exceeded")

	// ErrUnknownRelationship is returned when a path segment names no
	// relation of the frontier type
	ErrUnknownRelationship = errors.New("unknown relationship")
)

// DefaultMaxDepth bounds the number of segments in one relation path
const DefaultMaxDepth = 10

// Loader resolves relation paths against entities with N+1 prevention:
// every segment of a path costs at most two queries regardless of how many
// entities it is loaded for.
type Loader struct {
	registry *schema.Registry
	ops      *crud.Operations
	logger   *zap.Logger
	maxDepth int
}

// Option configures a Loader
type Option func(*Loader)

// WithLogger sets the logger used for segment tracing
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMaxDepth bounds the number of segments in a path
func WithMaxDepth(depth int) Option {
	return func(l *Loader) {
		if depth > 0 {
			l.maxDepth = depth
		}
	}
}

// NewLoader creates a new relationship loader. Related types are derived
// through registry and fetched through ops.
func NewLoader(registry *schema.Registry, ops *crud.Operations, opts ...Option) *Loader {
	l := &Loader{
		registry: registry,
		ops:      ops,
		logger:   zap.NewNop(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}
