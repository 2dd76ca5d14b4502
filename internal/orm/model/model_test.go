package model

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/crimson-games/bakuretsu/internal/models"
	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/query"
)

const (
	selectUsers     = "SELECT `id`, `Name`, `Password` FROM `users`"
	selectUserByID  = selectUsers + " WHERE `id` = ? LIMIT 1"
	insertUser      = "INSERT INTO `users` (`Name`, `Password`) VALUES (?, ?)"
	updateUser      = "UPDATE `users` SET `Name` = ?, `Password` = ? WHERE `id` = ?"
	deleteUser      = "DELETE FROM `users` WHERE `id` = ?"
	selectChars     = "SELECT `id`, `user_id`, `level_id`, `name`, `gender`, `coins`, `color_hair`, `color_skin`, `color_eye`, `slot_bag`, `slot_bank` FROM `characters`"
	selectCharByID  = selectChars + " WHERE `id` = ? LIMIT 1"
	selectCharsByUs = selectChars + " WHERE `user_id` IN (?)"
)

var (
	userColumns = []string{"id", "Name", "Password"}
	charColumns = []string{"id", "user_id", "level_id", "name", "gender", "coins", "color_hair", "color_skin", "color_eye", "slot_bag", "slot_bank"}
)

func newDB(t *testing.T, opts ...Option) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	db := Open(sqlDB, opts...)
	t.Cleanup(func() {
		db.Close()
		sqlDB.Close()
	})
	return db, mock
}

func userRows(rows ...[]driver.Value) *sqlmock.Rows {
	r := sqlmock.NewRows(userColumns)
	for _, row := range rows {
		r.AddRow(row...)
	}
	return r
}

func charRow(id, userID int64, name string) []driver.Value {
	return []driver.Value{id, userID, int64(1), name, "f", int64(100), "red", "pale", "blue", int64(10), int64(20)}
}

func TestFindByID_ServesCachedTypesFromCache(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()

	mock.ExpectQuery(selectUserByID).
		WithArgs(7).
		WillReturnRows(userRows([]driver.Value{int64(7), "megumin", "explosion"}))

	first, err := FindByID[models.User](ctx, db, 7)
	require.NoError(t, err)
	assert.Equal(t, "megumin", first.Name)

	// int64 and string forms of the identifier share the entry
	second, err := FindByID[models.User](ctx, db, int64(7))
	require.NoError(t, err)
	assert.Same(t, first, second)

	third, err := FindByID[models.User](ctx, db, "7")
	require.NoError(t, err)
	assert.Same(t, first, third)

	ok, err := Exists[models.User](ctx, db, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_UncachedTypeQueriesEveryTime(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(selectCharByID).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows(charColumns).AddRow(charRow(3, 7, "kazuma")...))
		c, err := FindByID[models.Character](ctx, db, 3)
		require.NoError(t, err)
		assert.Equal(t, "kazuma", c.Name)
		assert.Equal(t, int32(7), c.UserID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_NotFound(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()

	mock.ExpectQuery(selectUserByID).WithArgs(404).WillReturnRows(userRows())
	_, err := FindByID[models.User](ctx, db, 404)
	assert.True(t, ormerrors.IsNotFound(err))

	mock.ExpectQuery(selectUserByID).WithArgs(404).WillReturnRows(userRows())
	ok, err := Exists[models.User](ctx, db, 404)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectQuery(selectUserByID).WithArgs(500).WillReturnError(sql.ErrConnDone)
	_, err = Exists[models.User](ctx, db, 500)
	assert.ErrorIs(t, err, sql.ErrConnDone)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_CoalescesConcurrentMisses(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()

	mock.ExpectQuery(selectUserByID).
		WithArgs(9).
		WillDelayFor(100 * time.Millisecond).
		WillReturnRows(userRows([]driver.Value{int64(9), "aqua", "water"}))

	const callers = 8
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		users = make([]*models.User, callers)
		errs  = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			users[i], errs[i] = FindByID[models.User](ctx, db, 9)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, users[0], users[i])
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_CallerCancelDoesNotFailOthers(t *testing.T) {
	db, mock := newDB(t)

	mock.ExpectQuery(selectUserByID).
		WithArgs(9).
		WillDelayFor(150 * time.Millisecond).
		WillReturnRows(userRows([]driver.Value{int64(9), "aqua", "water"}))

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := FindByID[models.User](leaderCtx, db, 9)
		leaderErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	type result struct {
		user *models.User
		err  error
	}
	follower := make(chan result, 1)
	go func() {
		u, err := FindByID[models.User](context.Background(), db, 9)
		follower <- result{u, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, "aqua", got.user.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDAsync(t *testing.T) {
	db, mock := newDB(t, WithWorkers(2, 4))
	ctx := context.Background()

	mock.ExpectQuery(selectUserByID).
		WithArgs(1).
		WillReturnRows(userRows([]driver.Value{int64(1), "darkness", "crusader"}))

	u, err := FindByIDAsync[models.User](ctx, db, 1).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "darkness", u.Name)

	// Prefetch warmed nothing new: the entry is already cached
	for _, f := range Prefetch[models.User](ctx, db, []any{1, int64(1)}) {
		got, err := f.Wait(ctx)
		require.NoError(t, err)
		assert.Same(t, u, got)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWhereInID_SkipsMissing(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()

	mock.ExpectQuery(selectUserByID).WithArgs(1).
		WillReturnRows(userRows([]driver.Value{int64(1), "a", "x"}))
	mock.ExpectQuery(selectUserByID).WithArgs(2).WillReturnRows(userRows())
	mock.ExpectQuery(selectUserByID).WithArgs(3).
		WillReturnRows(userRows([]driver.Value{int64(3), "c", "z"}))

	users, err := WhereInID[models.User](ctx, db, []any{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int32(1), users[0].ID)
	assert.Equal(t, int32(3), users[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_WritesThroughCache(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()

	mock.ExpectExec(insertUser).
		WithArgs("yunyun", "rival").
		WillReturnResult(sqlmock.NewResult(12, 1))

	u := &models.User{Name: "yunyun", Password: "rival"}
	require.NoError(t, Save(ctx, db, u))
	assert.Equal(t, int32(12), u.ID)

	cached, err := FindByID[models.User](ctx, db, 12)
	require.NoError(t, err)
	assert.Same(t, u, cached)

	mock.ExpectExec(updateUser).
		WithArgs("yunyun", "friend", int32(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	u.Password = "friend"
	require.NoError(t, Save(ctx, db, u))

	mock.ExpectExec(deleteUser).WithArgs(int32(12)).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, Delete(ctx, db, u))

	// the delete dropped the cache entry
	mock.ExpectQuery(selectUserByID).WithArgs(12).WillReturnRows(userRows())
	_, err = FindByID[models.User](ctx, db, 12)
	assert.True(t, ormerrors.IsNotFound(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_GeneratedKeyModes(t *testing.T) {
	ctx := context.Background()

	t.Run("permissive logs and keeps the entity", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		db, mock := newDB(t, WithLogger(zap.New(core)))

		mock.ExpectExec(insertUser).WithArgs("chris", "thief").
			WillReturnResult(sqlmock.NewResult(0, 1))

		u := &models.User{Name: "chris", Password: "thief"}
		require.NoError(t, Save(ctx, db, u))
		assert.Zero(t, u.ID)
		assert.Equal(t, 1, logs.FilterMessage("generated key left unassigned").Len())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("strict fails", func(t *testing.T) {
		db, mock := newDB(t, WithStrictGeneratedKeys())

		mock.ExpectExec(insertUser).WithArgs("chris", "thief").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := Save(ctx, db, &models.User{Name: "chris", Password: "thief"})
		require.Error(t, err)
		assert.True(t, ormerrors.IsFieldBinding(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRefresh_BypassesCache(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()

	mock.ExpectQuery(selectUserByID).WithArgs(4).
		WillReturnRows(userRows([]driver.Value{int64(4), "wiz", "lich"}))
	u, err := FindByID[models.User](ctx, db, 4)
	require.NoError(t, err)

	mock.ExpectQuery(selectUserByID).WithArgs(int32(4)).
		WillReturnRows(userRows([]driver.Value{int64(4), "wiz", "shopkeeper"}))
	require.NoError(t, Refresh(ctx, db, u))
	assert.Equal(t, "shopkeeper", u.Password)

	again, err := FindByID[models.User](ctx, db, 4)
	require.NoError(t, err)
	assert.Same(t, u, again)
	assert.Equal(t, "shopkeeper", again.Password)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkWrites_InvalidateType(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()

	mock.ExpectQuery(selectUserByID).WithArgs(1).
		WillReturnRows(userRows([]driver.Value{int64(1), "a", "x"}))
	_, err := FindByID[models.User](ctx, db, 1)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE `users` SET `Password` = ? WHERE `Name` = ?").
		WithArgs("reset", "a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	n, err := UpdateAll[models.User](ctx, db, "`Password` = ?", "`Name` = ?", "reset", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectQuery(selectUserByID).WithArgs(1).
		WillReturnRows(userRows([]driver.Value{int64(1), "a", "reset"}))
	u, err := FindByID[models.User](ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, "reset", u.Password)

	mock.ExpectExec("DELETE FROM `users` WHERE `id` > ?").
		WithArgs(0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = DeleteWhere[models.User](ctx, db, "`id` > ?", 0)
	require.NoError(t, err)

	mock.ExpectQuery(selectUserByID).WithArgs(1).WillReturnRows(userRows())
	_, err = FindByID[models.User](ctx, db, 1)
	assert.True(t, ormerrors.IsNotFound(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeCache(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(selectUserByID).WithArgs(1).
			WillReturnRows(userRows([]driver.Value{int64(1), "a", "x"}))
		_, err := FindByID[models.User](ctx, db, 1)
		require.NoError(t, err)
		require.NoError(t, PurgeCache[models.User](db))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRawConditionFinders(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()

	mock.ExpectQuery(selectUsers+" WHERE `Name` LIKE ?").WithArgs("k%").
		WillReturnRows(userRows([]driver.Value{int64(1), "kazuma", "x"}, []driver.Value{int64(2), "kyouya", "y"}))
	users, err := Find[models.User](ctx, db, "`Name` LIKE ?", "k%")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	mock.ExpectQuery(selectUsers+" WHERE `Name` = ? LIMIT 1").WithArgs("nobody").
		WillReturnRows(userRows())
	_, err = FindFirst[models.User](ctx, db, "`Name` = ?", "nobody")
	assert.True(t, ormerrors.IsNotFound(err))

	mock.ExpectQuery("SELECT * FROM users ORDER BY id DESC").
		WillReturnRows(userRows([]driver.Value{int64(2), "kyouya", "y"}))
	users, err = FindBySQL[models.User](ctx, db, "SELECT * FROM users ORDER BY id DESC")
	require.NoError(t, err)
	require.Len(t, users, 1)

	mock.ExpectQuery("SELECT COUNT(*) FROM `users` WHERE `Name` LIKE ?").WithArgs("k%").
		WillReturnRows(sqlmock.NewRows([]string{"c"}).AddRow(int64(2)))
	n, err := Count[models.User](ctx, db, "`Name` LIKE ?", "k%")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	mock.ExpectQuery("SELECT COUNT(*) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"c"}).AddRow(int64(5)))
	n, err = CountAll[models.User](ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	users, err = WhereIn[models.User](ctx, db, "id", nil)
	require.NoError(t, err)
	assert.Empty(t, users)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()

	mock.ExpectQuery(selectChars+" WHERE `coins` > ? ORDER BY `name` ASC LIMIT ?").
		WithArgs(50, 10).
		WillReturnRows(sqlmock.NewRows(charColumns).AddRow(charRow(3, 7, "kazuma")...))
	mock.ExpectQuery(selectUsers + " WHERE `id` IN (?)").
		WithArgs(int32(7)).
		WillReturnRows(userRows([]driver.Value{int64(7), "megumin", "explosion"}))

	q, err := Query[models.Character](db)
	require.NoError(t, err)
	chars, err := q.Where("coins", query.OpGreaterThan, 50).OrderBy("name", "asc").Limit(10).With("user").Get(ctx)
	require.NoError(t, err)
	require.Len(t, chars, 1)
	require.NotNil(t, chars[0].User)
	assert.Equal(t, "megumin", chars[0].User.Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncludeOneOf_UsesCache(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()

	mock.ExpectQuery(selectUserByID).WithArgs(7).
		WillReturnRows(userRows([]driver.Value{int64(7), "megumin", "explosion"}))
	owner, err := FindByID[models.User](ctx, db, 7)
	require.NoError(t, err)

	c := &models.Character{ID: 3, UserID: 7}
	got, err := IncludeOneOf[models.User](ctx, db, c, "user")
	require.NoError(t, err)
	assert.Same(t, owner, got)
	assert.Same(t, owner, c.User)

	// already attached
	got, err = IncludeOneOf[models.User](ctx, db, c, "user")
	require.NoError(t, err)
	assert.Same(t, owner, got)

	mock.ExpectQuery(selectUserByID).WithArgs(int32(8)).WillReturnRows(userRows())
	orphan := &models.Character{ID: 4, UserID: 8}
	_, err = IncludeOneOf[models.User](ctx, db, orphan, "user")
	assert.True(t, ormerrors.IsNotFound(err))

	// the miss is remembered
	_, err = IncludeOneOf[models.User](ctx, db, orphan, "user")
	assert.True(t, ormerrors.IsNotFound(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncludeManyOf(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()

	mock.ExpectQuery(selectCharsByUs).WithArgs(int32(7)).
		WillReturnRows(sqlmock.NewRows(charColumns).
			AddRow(charRow(3, 7, "kazuma")...).
			AddRow(charRow(4, 7, "megumin")...))

	u := &models.User{ID: 7}
	chars, err := IncludeManyOf[models.Character](ctx, db, u, "characters")
	require.NoError(t, err)
	assert.Len(t, chars, 2)
	assert.Len(t, u.Characters, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInclude_Errors(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()
	u := &models.User{ID: 7}

	_, err := IncludeOneOf[models.Character](ctx, db, u, "characters")
	assert.True(t, ormerrors.IsRelationResolution(err))

	_, err = IncludeManyOf[models.User](ctx, db, &models.Character{}, "user")
	assert.True(t, ormerrors.IsRelationResolution(err))

	_, err = IncludeManyOf[models.Area](ctx, db, u, "characters")
	assert.True(t, ormerrors.IsRelationResolution(err))

	_, err = IncludeManyOf[models.Character](ctx, db, u, "pets")
	assert.True(t, ormerrors.IsRelationResolution(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSameEntity(t *testing.T) {
	db, _ := newDB(t)

	a := &models.User{ID: 1, Name: "a"}
	b := &models.User{ID: 1, Name: "b"}
	assert.True(t, SameEntity(db, a, b))
	assert.False(t, SameEntity(db, a, &models.User{ID: 2}))
	assert.False(t, SameEntity(db, &models.User{}, &models.User{}))

	unsaved := &models.User{}
	assert.True(t, SameEntity(db, unsaved, unsaved))
	assert.False(t, SameEntity(db, a, nil))
}

func TestRegister(t *testing.T) {
	db, _ := newDB(t)
	require.NoError(t, db.Register(models.Factories()...))
	assert.Equal(t, 7, db.Registry().Count())
	assert.True(t, db.Registry().Exists("AreaHandler"))
}
