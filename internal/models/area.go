package models

import "github.com/crimson-games/bakuretsu/internal/orm/schema"

// Area is a map of the game world
type Area struct {
	ID    int32
	Name  string
	Asset string
	Music string

	Handlers []*AreaHandler
	Monsters []*Monster
}

// Declare implements schema.Model
func (a *Area) Declare() *schema.Declaration {
	return &schema.Declaration{
		Name:  "Area",
		Table: "areas",
		Fields: []schema.Field{
			schema.Column("ID", "id", func(a *Area) *int32 { return &a.ID }).Primary(),
			schema.Column("Name", "name", func(a *Area) *string { return &a.Name }),
			schema.Column("Asset", "asset", func(a *Area) *string { return &a.Asset }),
			schema.Column("Music", "music", func(a *Area) *string { return &a.Music }),
		},
		Relations: []schema.Relation{
			schema.HasMany("handlers", schema.Keys{ForeignKey: "area_id"}, func(a *Area) *[]*AreaHandler { return &a.Handlers }),
			schema.BelongsToMany("monsters", schema.Keys{
				JoinTable:      "areas_monsters",
				JoinForeignKey: "area_id",
				JoinRelatedKey: "monster_id",
			}, func(a *Area) *[]*Monster { return &a.Monsters }),
		},
		Cache: cachePolicy(),
	}
}

// AreaHandler is a script hook run when a player enters an area. Handlers
// run in ascending Order.
type AreaHandler struct {
	schema.RelationState

	ID        int32
	AreaID    int32
	Handler   string
	Parameter string
	Order     int32

	Area *Area
}

// Declare implements schema.Model
func (h *AreaHandler) Declare() *schema.Declaration {
	return &schema.Declaration{
		Name:  "AreaHandler",
		Table: "areas_handlers",
		Fields: []schema.Field{
			schema.Column("ID", "id", func(h *AreaHandler) *int32 { return &h.ID }).Primary(),
			schema.Column("AreaID", "area_id", func(h *AreaHandler) *int32 { return &h.AreaID }),
			schema.Column("Handler", "handler", func(h *AreaHandler) *string { return &h.Handler }),
			schema.Column("Parameter", "parameter", func(h *AreaHandler) *string { return &h.Parameter }),
			schema.Column("Order", "order", func(h *AreaHandler) *int32 { return &h.Order }),
		},
		Relations: []schema.Relation{
			schema.BelongsTo("area", schema.Keys{LocalKey: "area_id"}, func(h *AreaHandler) **Area { return &h.Area }),
		},
		Cache: cachePolicy(),
	}
}

// AreaFrame is a named frame of an area's scene
type AreaFrame struct {
	ID   int32
	Name string
}

// Declare implements schema.Model
func (f *AreaFrame) Declare() *schema.Declaration {
	return &schema.Declaration{
		Name:  "AreaFrame",
		Table: "areas_frames",
		Fields: []schema.Field{
			schema.Column("ID", "id", func(f *AreaFrame) *int32 { return &f.ID }).Primary(),
			schema.Column("Name", "Name", func(f *AreaFrame) *string { return &f.Name }),
		},
		Cache: cachePolicy(),
	}
}
