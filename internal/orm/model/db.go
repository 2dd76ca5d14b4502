// Package model is the entry point of the ORM. A DB ties a database handle
// to a metadata registry, an entity cache, a relationship loader and an
// async worker pool; the generic functions of this package run typed
// operations against it:
//
//	db := model.Open(sqlDB, model.WithLogger(logger))
//	defer db.Close()
//
//	user, err := model.FindByID[models.User](ctx, db, 7)
//	chars, err := model.Query[models.Character](db)
//	...
package model

import (
	"database/sql"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/crimson-games/bakuretsu/internal/orm/async"
	"github.com/crimson-games/bakuretsu/internal/orm/cache"
	"github.com/crimson-games/bakuretsu/internal/orm/crud"
	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
	"github.com/crimson-games/bakuretsu/internal/orm/relationships"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// DB is a data-access handle. It is safe for concurrent use.
type DB struct {
	registry *schema.Registry
	ops      *crud.Operations
	loader   *relationships.Loader
	cache    *cache.Manager
	pool     *async.Pool
	flight   singleflight.Group
	logger   *zap.Logger
}

type config struct {
	logger       *zap.Logger
	dialect      dialect.Dialect
	registry     *schema.Registry
	cacheEnabled bool
	workers      int
	queueSize    int
	strictKeys   bool
	maxDepth     int
}

// Option configures a DB
type Option func(*config)

// WithLogger sets the logger shared by every component
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDialect selects the SQL dialect. MySQL is used by default.
func WithDialect(d dialect.Dialect) Option {
	return func(c *config) {
		c.dialect = d
	}
}

// WithRegistry shares an existing metadata registry. Its dialect takes
// precedence over WithDialect.
func WithRegistry(r *schema.Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithCache turns the entity cache on or off. It is on by default; types
// still opt in individually through their cache policy.
func WithCache(enabled bool) Option {
	return func(c *config) {
		c.cacheEnabled = enabled
	}
}

// WithWorkers sizes the async pool used by FindByIDAsync and Prefetch
func WithWorkers(workers, queueSize int) Option {
	return func(c *config) {
		c.workers = workers
		c.queueSize = queueSize
	}
}

// WithStrictGeneratedKeys makes Save fail when the database returns a
// generated key that cannot be assigned to the identifier field
func WithStrictGeneratedKeys() Option {
	return func(c *config) {
		c.strictKeys = true
	}
}

// WithMaxDepth bounds the number of segments of an eager-load path
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		c.maxDepth = depth
	}
}

// Open creates a DB over db. The caller keeps ownership of db; Close
// releases only what Open started.
func Open(db *sql.DB, opts ...Option) *DB {
	cfg := &config{
		logger:       zap.NewNop(),
		dialect:      dialect.MySQL,
		cacheEnabled: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	registry := cfg.registry
	if registry == nil {
		registry = schema.NewRegistry(cfg.dialect)
	}

	cacheOpts := []cache.Option{cache.WithLogger(cfg.logger.Named("cache"))}
	if !cfg.cacheEnabled {
		cacheOpts = append(cacheOpts, cache.Disabled())
	}
	entityCache := cache.NewManager(cacheOpts...)

	ops := crud.NewOperations(db,
		crud.WithCache(entityCache),
		crud.WithLogger(cfg.logger.Named("sql")),
		crud.WithStrictGeneratedKeys(cfg.strictKeys),
	)

	return &DB{
		registry: registry,
		ops:      ops,
		loader: relationships.NewLoader(registry, ops,
			relationships.WithLogger(cfg.logger.Named("relationships")),
			relationships.WithMaxDepth(cfg.maxDepth),
		),
		cache:  entityCache,
		pool:   async.NewPool(cfg.workers, cfg.queueSize, async.WithLogger(cfg.logger.Named("async"))),
		logger: cfg.logger,
	}
}

// Register derives the metadata of entity types up front so configuration
// errors surface at startup. Use schema.Factory to build the constructors.
func (db *DB) Register(factories ...func() schema.Model) error {
	return db.registry.Register(factories...)
}

// Registry returns the metadata registry
func (db *DB) Registry() *schema.Registry {
	return db.registry
}

// Cache returns the entity cache manager
func (db *DB) Cache() *cache.Manager {
	return db.cache
}

// Logger returns the logger
func (db *DB) Logger() *zap.Logger {
	return db.logger
}

// Close waits for pending async lookups and stops the worker pool. The
// underlying *sql.DB is left open.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

// metadata returns the metadata of T
func metadata[T any, PT interface {
	*T
	schema.Model
}](db *DB) (*schema.Metadata, error) {
	return schema.For[T, PT](db.registry)
}
