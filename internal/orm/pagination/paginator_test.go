package pagination

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-games/bakuretsu/internal/orm/crud"
	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
	"github.com/crimson-games/bakuretsu/internal/orm/query"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

type item struct {
	ID   int64
	Name string
}

func (i *item) Declare() *schema.Declaration {
	return &schema.Declaration{
		Name:  "Item",
		Table: "items",
		Fields: []schema.Field{
			schema.Column("ID", "id", func(i *item) *int64 { return &i.ID }).Primary(),
			schema.Column("Name", "name", func(i *item) *string { return &i.Name }),
		},
	}
}

const (
	pageSQL  = "SELECT `id`, `name` FROM `items` WHERE (name LIKE ?) ORDER BY `id` ASC LIMIT ? OFFSET ?"
	countSQL = "SELECT COUNT(*) FROM `items` WHERE (name LIKE ?)"
)

func newPaginator(t *testing.T, size int) (*Paginator[item, *item], sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	meta, err := schema.For[item](schema.NewRegistry(dialect.MySQL))
	require.NoError(t, err)
	ops := crud.NewOperations(db)

	return New(func() *query.Builder[item, *item] {
		return query.New[item](meta, ops, nil).WhereRaw("name LIKE ?", "sword%").OrderBy("id", "asc")
	}, size), mock
}

// itemRows returns the rows from..to (inclusive) of a table holding 25 items
func itemRows(from, to int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name"})
	for i := from; i <= to && i <= 25; i++ {
		rows.AddRow(int64(i), "sword")
	}
	return rows
}

func expectCount(mock sqlmock.Sqlmock, n int64) {
	mock.ExpectQuery(countSQL).
		WithArgs("sword%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))
}

func TestPaginator_Boundary(t *testing.T) {
	p, mock := newPaginator(t, 10)
	ctx := context.Background()

	for page, want := range map[int]int{1: 10, 2: 10, 3: 5, 4: 0} {
		offset := (page - 1) * 10
		mock.ExpectQuery(pageSQL).
			WithArgs("sword%", 10, offset).
			WillReturnRows(itemRows(offset+1, offset+10))

		items, err := p.Page(ctx, page)
		require.NoError(t, err)
		assert.Len(t, items, want, "page %d", page)
		if want > 0 {
			assert.Equal(t, int64(offset+1), items[0].ID)
		}
	}

	expectCount(mock, 25)
	total, err := p.TotalPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaginator_Navigation(t *testing.T) {
	p, mock := newPaginator(t, 10)
	ctx := context.Background()

	assert.Equal(t, 1, p.Current())
	assert.False(t, p.HasPrevious())

	expectCount(mock, 25)
	hasNext, err := p.HasNext(ctx)
	require.NoError(t, err)
	assert.True(t, hasNext)

	mock.ExpectQuery(pageSQL).WithArgs("sword%", 10, 10).WillReturnRows(itemRows(11, 20))
	items, err := p.Next(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.Equal(t, 2, p.Current())
	assert.True(t, p.HasPrevious())

	mock.ExpectQuery(pageSQL).WithArgs("sword%", 10, 20).WillReturnRows(itemRows(21, 30))
	_, err = p.Next(ctx)
	require.NoError(t, err)

	expectCount(mock, 25)
	hasNext, err = p.HasNext(ctx)
	require.NoError(t, err)
	assert.False(t, hasNext)

	mock.ExpectQuery(pageSQL).WithArgs("sword%", 10, 0).WillReturnRows(itemRows(1, 10))
	_, err = p.Page(ctx, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Current())

	mock.ExpectQuery(pageSQL).WithArgs("sword%", 10, 0).WillReturnRows(itemRows(1, 10))
	_, err = p.Previous(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Current(), "previous clamps at the first page")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaginator_ClampsPageSize(t *testing.T) {
	p, mock := newPaginator(t, 0)
	assert.Equal(t, 1, p.PageSize())

	expectCount(mock, 3)
	total, err := p.TotalPages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
