package schema

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type testUser struct {
	ID     int64
	Name   string
	Email  *string
	Orders []*testOrder
	Groups []*testGroup
}

func (u *testUser) Declare() *Declaration {
	return &Declaration{
		Name:  "User",
		Table: "users",
		Fields: []Field{
			Column("ID", "id", func(u *testUser) *int64 { return &u.ID }).Primary(),
			Column("Name", "name", func(u *testUser) *string { return &u.Name }),
			Column("Email", "email", func(u *testUser) **string { return &u.Email }),
		},
		Relations: []Relation{
			HasMany("orders", Keys{ForeignKey: "user_id"}, func(u *testUser) *[]*testOrder { return &u.Orders }),
			BelongsToMany("groups", Keys{
				JoinTable:      "group_members",
				JoinForeignKey: "user_id",
				JoinRelatedKey: "group_id",
			}, func(u *testUser) *[]*testGroup { return &u.Groups }),
		},
		Cache: &CachePolicy{MaxSize: 100, TTL: time.Minute},
	}
}

type testOrder struct {
	RelationState

	ID     int64
	UserID int64
	Total  decimal.Decimal
	Placed time.Time
	User   *testUser
}

func (o *testOrder) Declare() *Declaration {
	return &Declaration{
		Table: "orders",
		Fields: []Field{
			Column("ID", "id", func(o *testOrder) *int64 { return &o.ID }).Primary(),
			Column("UserID", "user_id", func(o *testOrder) *int64 { return &o.UserID }),
			Column("Total", "total", func(o *testOrder) *decimal.Decimal { return &o.Total }),
			Column("Placed", "placed_on", func(o *testOrder) *time.Time { return &o.Placed }).AsDate(),
		},
		Relations: []Relation{
			BelongsTo("user", Keys{LocalKey: "user_id"}, func(o *testOrder) **testUser { return &o.User }),
		},
	}
}

type testGroup struct {
	ID   uuid.UUID
	Name string
}

func (g *testGroup) Declare() *Declaration {
	return &Declaration{
		Name:  "Group",
		Table: "groups",
		Fields: []Field{
			Column("ID", "id", func(g *testGroup) *uuid.UUID { return &g.ID }).Primary(),
			Column("Name", "name", func(g *testGroup) *string { return &g.Name }),
		},
	}
}

// declared is a model whose declaration is supplied by the test
type declared struct {
	ID    int
	Name  string
	Other *declared
	calls *int
	decl  func(*declared) *Declaration
}

func (d *declared) Declare() *Declaration {
	if d.calls != nil {
		*d.calls++
	}
	if d.decl == nil {
		return nil
	}
	return d.decl(d)
}

func idField() Field {
	return Column("ID", "id", func(d *declared) *int { return &d.ID })
}

func nameField() Field {
	return Column("Name", "name", func(d *declared) *string { return &d.Name })
}
