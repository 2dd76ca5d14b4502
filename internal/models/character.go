package models

import "github.com/crimson-games/bakuretsu/internal/orm/schema"

// Character is a playable avatar owned by a user. Characters change too
// often to be cached.
type Character struct {
	schema.RelationState

	ID        int32
	UserID    int32
	LevelID   int32
	Name      string
	Gender    string
	Coins     int32
	ColorHair string
	ColorSkin string
	ColorEye  string
	SlotBag   int32
	SlotBank  int32

	User *User
}

// Declare implements schema.Model
func (c *Character) Declare() *schema.Declaration {
	return &schema.Declaration{
		Name:  "Character",
		Table: "characters",
		Fields: []schema.Field{
			schema.Column("ID", "id", func(c *Character) *int32 { return &c.ID }).Primary(),
			schema.Column("UserID", "user_id", func(c *Character) *int32 { return &c.UserID }),
			schema.Column("LevelID", "level_id", func(c *Character) *int32 { return &c.LevelID }),
			schema.Column("Name", "name", func(c *Character) *string { return &c.Name }),
			schema.Column("Gender", "gender", func(c *Character) *string { return &c.Gender }),
			schema.Column("Coins", "coins", func(c *Character) *int32 { return &c.Coins }),
			schema.Column("ColorHair", "color_hair", func(c *Character) *string { return &c.ColorHair }),
			schema.Column("ColorSkin", "color_skin", func(c *Character) *string { return &c.ColorSkin }),
			schema.Column("ColorEye", "color_eye", func(c *Character) *string { return &c.ColorEye }),
			schema.Column("SlotBag", "slot_bag", func(c *Character) *int32 { return &c.SlotBag }),
			schema.Column("SlotBank", "slot_bank", func(c *Character) *int32 { return &c.SlotBank }),
		},
		Relations: []schema.Relation{
			schema.BelongsTo("user", schema.Keys{LocalKey: "user_id"}, func(c *Character) **User { return &c.User }),
		},
	}
}
