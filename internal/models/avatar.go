package models

import "github.com/crimson-games/bakuretsu/internal/orm/schema"

// NPC is a non-player character
type NPC struct {
	ID   int32
	Name string
}

// Declare implements schema.Model
func (n *NPC) Declare() *schema.Declaration {
	return &schema.Declaration{
		Name:  "NPC",
		Table: "npcs",
		Fields: []schema.Field{
			schema.Column("ID", "id", func(n *NPC) *int32 { return &n.ID }).Primary(),
			schema.Column("Name", "Name", func(n *NPC) *string { return &n.Name }),
		},
		Cache: cachePolicy(),
	}
}

// Monster is a hostile avatar. Monsters roam the areas linked through the
// areas_monsters table.
type Monster struct {
	ID   int32
	Name string

	Areas []*Area
}

// Declare implements schema.Model
func (m *Monster) Declare() *schema.Declaration {
	return &schema.Declaration{
		Name:  "Monster",
		Table: "monsters",
		Fields: []schema.Field{
			schema.Column("ID", "id", func(m *Monster) *int32 { return &m.ID }).Primary(),
			schema.Column("Name", "Name", func(m *Monster) *string { return &m.Name }),
		},
		Relations: []schema.Relation{
			schema.BelongsToMany("areas", schema.Keys{
				JoinTable:      "areas_monsters",
				JoinForeignKey: "monster_id",
				JoinRelatedKey: "area_id",
			}, func(m *Monster) *[]*Area { return &m.Areas }),
		},
		Cache: cachePolicy(),
	}
}
