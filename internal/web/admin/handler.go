// Package admin serves a small read-mostly HTTP API over a model.DB:
// registered entity types, entity cache statistics and cache purging.
//
//	GET  /healthz
//	GET  /types
//	GET  /types/{name}
//	GET  /cache
//	POST /cache/purge[?entity=Name]
package admin

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/crimson-games/bakuretsu/internal/cli/ui"
	"github.com/crimson-games/bakuretsu/internal/orm/model"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// Pinger checks database connectivity. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves the admin API
type Handler struct {
	db     *model.DB
	pinger Pinger
	logger *zap.Logger
	mux    chi.Router
}

// NewHandler builds the admin routes. pinger may be nil, in which case
// /healthz reports only the process.
func NewHandler(db *model.DB, pinger Pinger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{db: db, pinger: pinger, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestID(), Logging(logger), Recovery(logger))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed on "+r.URL.Path, nil)
	})
	r.Get("/healthz", h.health)
	r.Route("/types", func(r chi.Router) {
		r.Get("/", h.listTypes)
		r.Get("/{name}", h.showType)
	})
	r.Route("/cache", func(r chi.Router) {
		r.Get("/", h.cacheStats)
		r.Post("/purge", h.purgeCache)
	})
	h.mux = r
	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// TypeInfo describes a registered entity type
type TypeInfo struct {
	Name      string         `json:"name"`
	Table     string         `json:"table"`
	ID        string         `json:"id"`
	Cached    bool           `json:"cached"`
	Cache     *CacheInfo     `json:"cache,omitempty"`
	Fields    []FieldInfo    `json:"fields"`
	Relations []RelationInfo `json:"relations,omitempty"`
}

// CacheInfo is the declared cache policy of a type
type CacheInfo struct {
	MaxSize int    `json:"max_size"`
	TTL     string `json:"ttl"`
}

// FieldInfo describes a persisted field
type FieldInfo struct {
	Name     string `json:"name"`
	Column   string `json:"column"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}

// RelationInfo describes a declared relation
type RelationInfo struct {
	Name    string      `json:"name"`
	Kind    string      `json:"kind"`
	Related string      `json:"related"`
	Keys    schema.Keys `json:"keys"`
}

// DescribeType converts metadata into its admin representation
func DescribeType(meta *schema.Metadata) TypeInfo {
	info := TypeInfo{
		Name:   meta.Name,
		Table:  meta.Table,
		ID:     meta.ID.Column,
		Cached: meta.Cached(),
		Fields: make([]FieldInfo, len(meta.Fields)),
	}
	if meta.Cache != nil {
		info.Cache = &CacheInfo{MaxSize: meta.Cache.MaxSize, TTL: meta.Cache.TTL.String()}
	}
	for i, f := range meta.Fields {
		info.Fields[i] = FieldInfo{Name: f.Name, Column: f.Column, Type: f.Type.String(), Nullable: f.Nullable}
	}
	for _, name := range meta.RelationNames {
		rel := meta.Relations[name]
		info.Relations = append(info.Relations, RelationInfo{
			Name:    rel.Name,
			Kind:    rel.Kind.String(),
			Related: rel.Related(),
			Keys:    rel.Keys,
		})
	}
	return info
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok", "types": h.db.Registry().Count()}
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.PingContext(ctx); err != nil {
			renderError(w, http.StatusServiceUnavailable, "database_unavailable", err.Error(), nil)
			return
		}
		status["database"] = "ok"
	}
	renderJSON(w, http.StatusOK, status)
}

func (h *Handler) listTypes(w http.ResponseWriter, r *http.Request) {
	all := h.db.Registry().All()
	types := make([]TypeInfo, len(all))
	for i, meta := range all {
		types[i] = DescribeType(meta)
	}
	renderJSON(w, http.StatusOK, map[string]any{"types": types})
}

func (h *Handler) showType(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.lookup(w, chi.URLParam(r, "name"))
	if !ok {
		return
	}
	renderJSON(w, http.StatusOK, DescribeType(meta))
}

func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{"caches": h.db.Cache().Stats()})
}

// purgeCache clears the cache of the entity named by ?entity=, or every
// cache when the parameter is absent
func (h *Handler) purgeCache(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("entity")
	if name == "" {
		h.db.Cache().ClearAll()
		h.logger.Info("entity caches purged", zap.String("request_id", GetRequestID(r.Context())))
		renderJSON(w, http.StatusOK, map[string]any{"purged": "all"})
		return
	}

	meta, ok := h.lookup(w, name)
	if !ok {
		return
	}
	if !meta.Cached() {
		renderError(w, http.StatusConflict, "not_cached", meta.Name+" declares no cache policy", nil)
		return
	}
	h.db.Cache().InvalidateAll(meta)
	h.logger.Info("entity cache purged",
		zap.String("entity", meta.Name),
		zap.String("request_id", GetRequestID(r.Context())))
	renderJSON(w, http.StatusOK, map[string]any{"purged": meta.Name})
}

// lookup resolves an entity name, rendering a 404 with suggestions when it
// is unknown
func (h *Handler) lookup(w http.ResponseWriter, name string) (*schema.Metadata, bool) {
	if meta, ok := h.db.Registry().Get(name); ok {
		return meta, true
	}

	var names []string
	for _, meta := range h.db.Registry().All() {
		names = append(names, meta.Name)
	}
	sort.Strings(names)

	var details map[string]any
	if suggestions := ui.FindSimilar(name, names); len(suggestions) > 0 {
		details = map[string]any{"suggestions": suggestions}
	}
	renderError(w, http.StatusNotFound, "unknown_entity", "no registered entity is named "+name, details)
	return nil, false
}
