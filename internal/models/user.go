// Package models declares the game entities persisted by bakuretsu
package models

import (
	"time"

	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// Default cache policy of the cached game entities
var defaultCache = schema.CachePolicy{MaxSize: 1024, TTL: 10 * time.Minute}

func cachePolicy() *schema.CachePolicy {
	p := defaultCache
	return &p
}

// User is a player account
type User struct {
	ID       int32
	Name     string
	Password string

	Characters []*Character
}

// Declare implements schema.Model
func (u *User) Declare() *schema.Declaration {
	return &schema.Declaration{
		Name:  "User",
		Table: "users",
		Fields: []schema.Field{
			schema.Column("ID", "id", func(u *User) *int32 { return &u.ID }).Primary(),
			schema.Column("Name", "Name", func(u *User) *string { return &u.Name }),
			schema.Column("Password", "Password", func(u *User) *string { return &u.Password }),
		},
		Relations: []schema.Relation{
			schema.HasMany("characters", schema.Keys{ForeignKey: "user_id"}, func(u *User) *[]*Character { return &u.Characters }),
		},
		Cache: cachePolicy(),
	}
}

// Factories returns the constructors of every game entity, for startup
// registration
func Factories() []func() schema.Model {
	return []func() schema.Model{
		schema.Factory[User](),
		schema.Factory[Character](),
		schema.Factory[Area](),
		schema.Factory[AreaHandler](),
		schema.Factory[AreaFrame](),
		schema.Factory[NPC](),
		schema.Factory[Monster](),
	}
}
