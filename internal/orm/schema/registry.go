package schema

import (
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
)

// Registry derives and memoizes entity metadata. Each Go type is derived at
// most once per registry, even when many goroutines ask for it at the same
// time; a failed derivation is remembered and returned on every later call.
//
// A Registry is owned by the data-access layer that uses it. There is no
// package-level registry.
type Registry struct {
	dialect     dialect.Dialect
	entries     sync.Map // reflect.Type -> *entry
	derivations atomic.Int64
}

type entry struct {
	resolve func() (*Metadata, error)
}

// NewRegistry creates a registry generating SQL for d. A nil dialect
// selects MySQL.
func NewRegistry(d dialect.Dialect) *Registry {
	if d == nil {
		d = dialect.MySQL
	}
	return &Registry{dialect: d}
}

// Factory returns a constructor for entity type T, for use with
// Registry.Register and Registry.MetadataOf.
func Factory[T any, PT interface {
	*T
	Model
}]() func() Model {
	return func() Model { return PT(new(T)) }
}

// For returns the metadata of entity type T
func For[T any, PT interface {
	*T
	Model
}](r *Registry) (*Metadata, error) {
	return r.MetadataOf(Factory[T, PT]())
}

// Dialect returns the dialect SQL is generated for
func (r *Registry) Dialect() dialect.Dialect {
	return r.dialect
}

// MetadataOf returns the metadata of the type built by newFn, deriving it on
// first use.
func (r *Registry) MetadataOf(newFn func() Model) (*Metadata, error) {
	proto := newFn()
	if proto == nil {
		return nil, ormerrors.Configuration("", "entity constructor returned nil")
	}
	key := reflect.TypeOf(proto)

	v, ok := r.entries.Load(key)
	if !ok {
		v, _ = r.entries.LoadOrStore(key, &entry{
			resolve: sync.OnceValues(func() (*Metadata, error) {
				r.derivations.Add(1)
				return derive(r.dialect, proto, newFn)
			}),
		})
	}
	return v.(*entry).resolve()
}

// MustMetadataOf is like MetadataOf but panics on a configuration error.
// It is meant for startup registration.
func (r *Registry) MustMetadataOf(newFn func() Model) *Metadata {
	meta, err := r.MetadataOf(newFn)
	if err != nil {
		panic(err)
	}
	return meta
}

// Lookup returns the metadata of m's type if it has already been derived
func (r *Registry) Lookup(m Model) (*Metadata, bool) {
	v, ok := r.entries.Load(reflect.TypeOf(m))
	if !ok {
		return nil, false
	}
	meta, err := v.(*entry).resolve()
	if err != nil {
		return nil, false
	}
	return meta, true
}

// Register derives metadata for every factory and returns the first error
func (r *Registry) Register(factories ...func() Model) error {
	for _, f := range factories {
		if _, err := r.MetadataOf(f); err != nil {
			return err
		}
	}
	return nil
}

// All returns every successfully derived type, sorted by name
func (r *Registry) All() []*Metadata {
	var result []*Metadata
	r.entries.Range(func(_, v any) bool {
		if meta, err := v.(*entry).resolve(); err == nil {
			result = append(result, meta)
		}
		return true
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Get returns a derived type by entity name
func (r *Registry) Get(name string) (*Metadata, bool) {
	for _, m := range r.All() {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Exists checks if a type with the given entity name has been derived
func (r *Registry) Exists(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Count returns the number of successfully derived types
func (r *Registry) Count() int {
	return len(r.All())
}

// Derivations returns how many derivations have run
func (r *Registry) Derivations() int64 {
	return r.derivations.Load()
}
