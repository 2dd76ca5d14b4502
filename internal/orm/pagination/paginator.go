// Package pagination provides page-oriented access over a query
package pagination

import (
	"context"

	"github.com/crimson-games/bakuretsu/internal/orm/query"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// Paginator pages through the results of a fixed query with a fixed page
// size. It tracks a current page and is not safe for concurrent use.
type Paginator[T any, PT interface {
	*T
	schema.Model
}] struct {
	factory func() *query.Builder[T, PT]
	size    int
	current int
}

// New creates a paginator. factory must return a fresh builder carrying the
// filter and ordering on every call. A page size below 1 is raised to 1.
func New[T any, PT interface {
	*T
	schema.Model
}](factory func() *query.Builder[T, PT], pageSize int) *Paginator[T, PT] {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Paginator[T, PT]{
		factory: factory,
		size:    pageSize,
		current: 1,
	}
}

// PageSize returns the number of entities per page
func (p *Paginator[T, PT]) PageSize() int {
	return p.size
}

// Current returns the current page number, starting at 1
func (p *Paginator[T, PT]) Current() int {
	return p.current
}

// Page fetches page n and makes it the current page. Pages below 1 are
// treated as page 1; pages past the end are empty.
func (p *Paginator[T, PT]) Page(ctx context.Context, n int) ([]*T, error) {
	if n < 1 {
		n = 1
	}
	p.current = n
	return p.factory().
		Limit(p.size).
		Offset((n - 1) * p.size).
		Get(ctx)
}

// Fetch returns the current page
func (p *Paginator[T, PT]) Fetch(ctx context.Context) ([]*T, error) {
	return p.Page(ctx, p.current)
}

// Next advances to the following page and fetches it
func (p *Paginator[T, PT]) Next(ctx context.Context) ([]*T, error) {
	return p.Page(ctx, p.current+1)
}

// Previous moves back one page, stopping at page 1, and fetches it
func (p *Paginator[T, PT]) Previous(ctx context.Context) ([]*T, error) {
	return p.Page(ctx, p.current-1)
}

// Count returns the number of entities matching the query
func (p *Paginator[T, PT]) Count(ctx context.Context) (int64, error) {
	return p.factory().Count(ctx)
}

// TotalPages returns the number of non-empty pages
func (p *Paginator[T, PT]) TotalPages(ctx context.Context) (int, error) {
	n, err := p.Count(ctx)
	if err != nil {
		return 0, err
	}
	size := int64(p.size)
	return int((n + size - 1) / size), nil
}

// HasNext reports whether a page follows the current one
func (p *Paginator[T, PT]) HasNext(ctx context.Context) (bool, error) {
	total, err := p.TotalPages(ctx)
	if err != nil {
		return false, err
	}
	return p.current < total, nil
}

// HasPrevious reports whether a page precedes the current one
func (p *Paginator[T, PT]) HasPrevious() bool {
	return p.current > 1
}
