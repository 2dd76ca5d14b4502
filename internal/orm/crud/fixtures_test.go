package crud

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

type hero struct {
	ID      int64
	Name    string
	Level   int32
	Gold    decimal.Decimal
	Guild   *string
	Created time.Time
}

func (h *hero) Declare() *schema.Declaration {
	return &schema.Declaration{
		Name:  "Hero",
		Table: "heroes",
		Fields: []schema.Field{
			schema.Column("ID", "id", func(h *hero) *int64 { return &h.ID }).Primary(),
			schema.Column("Name", "name", func(h *hero) *string { return &h.Name }),
			schema.Column("Level", "level", func(h *hero) *int32 { return &h.Level }),
			schema.Column("Gold", "gold", func(h *hero) *decimal.Decimal { return &h.Gold }),
			schema.Column("Guild", "guild", func(h *hero) **string { return &h.Guild }),
			schema.Column("Created", "created_at", func(h *hero) *time.Time { return &h.Created }),
		},
		Cache: &schema.CachePolicy{MaxSize: 16, TTL: time.Minute},
	}
}

type relic struct {
	ID   uuid.UUID
	Name string
}

func (r *relic) Declare() *schema.Declaration {
	return &schema.Declaration{
		Name:  "Relic",
		Table: "relics",
		Fields: []schema.Field{
			schema.Column("ID", "id", func(r *relic) *uuid.UUID { return &r.ID }).Primary(),
			schema.Column("Name", "name", func(r *relic) *string { return &r.Name }),
		},
	}
}

var heroColumns = []string{"id", "name", "level", "gold", "guild", "created_at"}

const (
	selectHeroes    = "SELECT `id`, `name`, `level`, `gold`, `guild`, `created_at` FROM `heroes`"
	selectHeroByID  = selectHeroes + " WHERE `id` = ? LIMIT 1"
	insertHero      = "INSERT INTO `heroes` (`name`, `level`, `gold`, `guild`, `created_at`) VALUES (?, ?, ?, ?, ?)"
	updateHero      = "UPDATE `heroes` SET `name` = ?, `level` = ?, `gold` = ?, `guild` = ?, `created_at` = ? WHERE `id` = ?"
	deleteHeroByID  = "DELETE FROM `heroes` WHERE `id` = ?"
	countHeroes     = "SELECT COUNT(*) FROM `heroes`"
	createdAtString = "2024-03-01 12:30:00"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	return db, mock
}

func metadataFor(t *testing.T, d dialect.Dialect) (*schema.Metadata, *schema.Metadata) {
	t.Helper()
	registry := schema.NewRegistry(d)
	heroes, err := schema.For[hero](registry)
	require.NoError(t, err)
	relics, err := schema.For[relic](registry)
	require.NoError(t, err)
	return heroes, relics
}

func heroRows() *sqlmock.Rows {
	return sqlmock.NewRows(heroColumns)
}
