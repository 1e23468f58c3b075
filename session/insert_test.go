// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package session

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hashicorp/go-dbw"
	"github.com/hashicorp/go-hclog"
	"github.com/lib/pq"
	"github.com/parnell/gormext/internal/db"
	"github.com/parnell/gormext/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertIgnore_CommittedTwice(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	d := db.TestSetup(t, testSchema...)
	base, err := New(dbw.New(d))
	require.NoError(err)

	tx, err := base.Begin(ctx)
	require.NoError(err)
	staged, err := InsertIgnore(ctx, tx, &item{Id: 1, Name: "first"})
	require.NoError(err)
	assert.True(staged)
	require.NoError(tx.Commit(ctx))

	tx, err = base.Begin(ctx)
	require.NoError(err)
	staged, err = InsertIgnore(ctx, tx, &item{Id: 1, Name: "second"})
	require.NoError(err)
	assert.False(staged)
	require.NoError(tx.Commit(ctx))

	assert.Equal(int64(1), count[item](t, base))
	var found []*item
	require.NoError(base.Conn().SearchWhere(ctx, &found, "id = ?", []any{1}))
	require.Len(found, 1)
	assert.Equal("first", found[0].Name)
}

func TestInsertIgnore(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s, _ := testSession(t)

	staged, err := InsertIgnore(ctx, s, &item{Id: 5, Name: "five"})
	require.NoError(err)
	assert.True(staged)

	staged, err = InsertIgnore(ctx, s, &item{Id: 5, Name: "again"})
	require.NoError(err)
	assert.False(staged)

	unassigned := &item{Name: "assigned by the db"}
	staged, err = InsertIgnore(ctx, s, unassigned)
	require.NoError(err)
	assert.True(staged)
	assert.NotZero(unassigned.Id)
	assert.Equal(int64(2), count[item](t, s))

	var missing *item
	_, err = InsertIgnore(ctx, s, missing)
	assert.True(IsInvalidParameter(err))
}

func TestInsertIgnoreAll(t *testing.T) {
	ctx := context.Background()
	s, _ := testSession(t)
	exec(t, s, "insert into item (id, name) values (2, 'two'), (4, 'four')")

	t.Run("one-query", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		cs, c := counting(t, s)
		one, two, three, four := &item{Id: 1}, &item{Id: 2}, &item{Id: 3}, &item{Id: 4}
		dupThree := &item{Id: 3, Name: "dup"}
		unassigned := &item{Name: "new"}
		staged, err := InsertIgnoreAll(ctx, cs, []*item{one, two, three, four, dupThree, unassigned})
		require.NoError(err)
		assert.Equal(int64(1), c.queries.Load())
		require.Len(staged, 3)
		assert.Same(one, staged[0])
		assert.Same(three, staged[1])
		assert.Same(unassigned, staged[2])
		assert.NotZero(unassigned.Id)
		assert.Equal(int64(5), count[item](t, s))
	})
	t.Run("empty", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		cs, c := counting(t, s)
		staged, err := InsertIgnoreAll[item](ctx, cs, nil)
		require.NoError(err)
		assert.Empty(staged)
		assert.Zero(c.queries.Load())
	})
	t.Run("all-exist", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		staged, err := InsertIgnoreAll(ctx, s, []*item{{Id: 2}, {Id: 4}})
		require.NoError(err)
		assert.Empty(staged)
	})
	t.Run("nil-record", func(t *testing.T) {
		_, err := InsertIgnoreAll(ctx, s, []*item{{Id: 9}, nil})
		assert.True(t, IsInvalidParameter(err))
	})
}

func TestInsertIgnoreAll_CompositeKey(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s, _ := testSession(t)
	exec(t, s, "insert into pair (a, b, note) values (1, 1, 'existing')")

	cs, c := counting(t, s)
	staged, err := InsertIgnoreAll(ctx, cs, []*pair{
		{A: 1, B: 1, Note: "skipped"},
		{A: 1, B: 2},
		{A: 2, B: 1},
		{A: 1, B: 2, Note: "dup"},
	})
	require.NoError(err)
	assert.Equal(int64(1), c.queries.Load())
	require.Len(staged, 2)
	assert.Equal(pair{A: 1, B: 2}, *staged[0])
	assert.Equal(pair{A: 2, B: 1}, *staged[1])
	assert.Equal(int64(3), count[pair](t, s))
}

func TestInsertIgnoreAll_LostRace(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s, _ := testSession(t, WithLogger(hclog.New(&hclog.LoggerOptions{Level: hclog.Debug})))
	exec(t, s, "insert into item (id, name) values (1, 'one')")

	blind, bc := blinded(s)

	// the batch fails on id 1 and falls back to one insert per record
	staged, err := InsertIgnoreAll(ctx, blind, []*item{{Id: 1}, {Id: 2}, {Name: "new"}})
	require.NoError(err)
	require.Len(staged, 2)
	assert.Equal(2, staged[0].Id)
	assert.NotZero(staged[1].Id)

	bc.misses.Store(1)
	ok, err := InsertIgnore(ctx, blind, &item{Id: 2})
	require.NoError(err)
	assert.False(ok)

	// the transaction is still usable
	assert.Equal(int64(3), count[item](t, s))
	require.NoError(s.Commit(ctx))
}

func TestInsertIgnore_UniqueViolationOnAnotherKey(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s, _ := testSession(t)
	exec(t, s, "insert into account (id, email) values (1, 'a@example.com')")

	// no row has id 2, the email belongs to id 1
	staged, err := InsertIgnore(ctx, s, &account{Id: 2, Email: "a@example.com"})
	assert.True(IsUnique(err), "got %v", err)
	assert.False(staged)

	// no row has the email, id 1 belongs to a@example.com
	staged, err = LInsertIgnore(ctx, s, &account{Id: 1, Email: "b@example.com"}, nil)
	assert.True(IsUnique(err), "got %v", err)
	assert.False(staged)

	// the transaction is still usable
	assert.Equal(int64(1), count[account](t, s))

	// a batch falls back to one insert per record and fails the same way
	_, err = InsertIgnoreAll(ctx, s, []*account{{Id: 3, Email: "c@example.com"}, {Id: 4, Email: "a@example.com"}})
	assert.True(IsUnique(err), "got %v", err)

	// a row found after the violation is still a skip
	blind, _ := blinded(s)
	staged, err = InsertIgnore(ctx, blind, &account{Id: 1, Email: "a@example.com"})
	require.NoError(err)
	assert.False(staged)
}

func TestInsertIgnore_QuotedIdentifiers(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s, _ := testSession(t)

	staged, err := InsertIgnore(ctx, s, &order{Id: 1, Group: "a"})
	require.NoError(err)
	assert.True(staged)
	staged, err = InsertIgnore(ctx, s, &order{Id: 1, Group: "b"})
	require.NoError(err)
	assert.False(staged)

	o := &order{Group: "a"}
	staged, err = LInsertIgnore(ctx, s, o, nil)
	require.NoError(err)
	assert.False(staged)
	assert.Equal(1, o.Id)

	staged2, err := LInsertIgnoreAll(ctx, s, []*order{{Group: "a"}, {Group: "b"}}, nil)
	require.NoError(err)
	require.Len(staged2, 1)
	assert.Equal("b", staged2[0].Group)

	exists, err := LExists[order](ctx, s, nil, []any{"b"})
	require.NoError(err)
	assert.True(exists)
	got, err := LGet[order](ctx, s, nil, []any{"a"})
	require.NoError(err)
	assert.Equal(1, got.Id)
	assert.Equal(int64(2), count[order](t, s))
}

func TestInsertIgnoreAll_OnConflict(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s, _ := testSession(t, WithStrategy(StrategyOnConflict))
	exec(t, s, "insert into item (id, name) values (2, 'two')")

	cs, c := counting(t, s)
	staged, err := InsertIgnoreAll(ctx, cs, []*item{{Id: 1}, {Id: 2}, {Id: 3}, {Id: 3}})
	require.NoError(err)
	assert.Zero(c.queries.Load())
	require.Len(staged, 2)
	assert.Equal(1, staged[0].Id)
	assert.Equal(3, staged[1].Id)
	assert.Equal(int64(3), count[item](t, s))
}

func TestLInsertIgnore(t *testing.T) {
	ctx := context.Background()
	s, _ := testSession(t)
	exec(t, s, "insert into app_user (id, name, region) values (7, 'alice', 'us')")

	t.Run("found", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		u := &user{Name: "alice", Region: "us", Email: ptr("alice@example.com")}
		staged, err := LInsertIgnore(ctx, s, u, nil)
		require.NoError(err)
		assert.False(staged)
		assert.Equal(7, u.Id)
	})
	t.Run("not-found", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		u := &user{Name: "alice", Region: "eu"}
		staged, err := LInsertIgnore(ctx, s, u, nil)
		require.NoError(err)
		assert.True(staged)
		assert.NotZero(u.Id)
		assert.NotEqual(7, u.Id)
	})
	t.Run("explicit-key", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		// alice is in us and eu by now
		_, err := LInsertIgnore(ctx, s, &user{Name: "alice", Region: "apac"}, []string{"Name"})
		assert.True(IsAmbiguous(err), "got %v", err)

		bob := &user{Name: "bob", Region: "us"}
		staged, err := LInsertIgnore(ctx, s, bob, []string{"region"})
		require.NoError(err)
		assert.False(staged)
		assert.Equal(7, bob.Id)

		carol := &user{Name: "carol", Region: "apac"}
		staged, err = LInsertIgnore(ctx, s, carol, []string{"region"})
		require.NoError(err)
		assert.True(staged)
	})
	t.Run("already-keyed", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		u := &user{Id: 99, Name: "alice", Region: "us"}
		_, err := LInsertIgnore(ctx, s, u, nil)
		assert.True(IsInvalidParameter(err), "got %v", err)
		assert.Equal(99, u.Id)

		staged, err := LInsertIgnore(ctx, s, u, nil, WithAllowKeyOverwrite(true))
		require.NoError(err)
		assert.False(staged)
		assert.Equal(7, u.Id)
	})
	t.Run("bad-key", func(t *testing.T) {
		assert := assert.New(t)
		_, err := LInsertIgnore(ctx, s, &user{Name: "x"}, []string{"Nope"})
		assert.True(IsInvalidParameter(err), "got %v", err)
		_, err = LInsertIgnore(ctx, s, &item{Id: 1}, nil)
		assert.True(IsNoLogicalKey(err), "got %v", err)
	})
}

func TestLInsertIgnoreAll(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s, _ := testSession(t)
	exec(t, s, "insert into app_user (id, name, region) values (7, 'alice', 'us')")

	cs, c := counting(t, s)
	alice := &user{Name: "alice", Region: "us"}
	bob := &user{Name: "bob", Region: "us"}
	bobAgain := &user{Name: "bob", Region: "us", Email: ptr("bob@example.com")}
	staged, err := LInsertIgnoreAll(ctx, cs, []*user{alice, bob, bobAgain}, nil)
	require.NoError(err)
	assert.Equal(int64(1), c.queries.Load())
	require.Len(staged, 1)
	assert.Same(bob, staged[0])
	assert.Equal(7, alice.Id)
	assert.NotZero(bob.Id)
	assert.Equal(bob.Id, bobAgain.Id)
	assert.Equal(int64(2), count[user](t, s))
}

func TestLInsertIgnoreAll_OnConflict(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s, _ := testSession(t, WithStrategy(StrategyOnConflict))
	exec(t, s, "insert into account (id, email) values (3, 'a@example.com')")

	a := &account{Email: "a@example.com"}
	b := &account{Email: "b@example.com"}
	staged, err := LInsertIgnoreAll(ctx, s, []*account{a, b}, nil)
	require.NoError(err)
	require.Len(staged, 1)
	assert.Same(b, staged[0])
	assert.Equal(3, a.Id)
	assert.NotZero(b.Id)

	// a lost race isn't staged and gets the key of the row it lost to
	blind, _ := blinded(s)
	c := &account{Email: "b@example.com"}
	staged2, err := LInsertIgnore(ctx, blind, c, nil)
	require.NoError(err)
	assert.False(staged2)
	assert.Equal(b.Id, c.Id)
	assert.Equal(int64(2), count[account](t, s))
}

func TestInsertIgnore_Cascade(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s, _ := testSession(t, WithCascade(true))

	pub := &publisher{Name: "parnassus"}
	a := &author{
		Name: "le guin",
		Books: []*book{
			{Title: "a wizard of earthsea", Publisher: pub},
			{Title: "the dispossessed", Publisher: pub},
		},
		Bio: &bio{Text: "wrote books"},
	}
	staged, err := LInsertIgnore(ctx, s, a, nil)
	require.NoError(err)
	assert.True(staged)
	assert.NotZero(a.Id)
	assert.NotZero(pub.Id)
	require.Len(a.Books, 2)
	for _, b := range a.Books {
		assert.NotZero(b.Id)
		assert.Equal(a.Id, b.AuthorId)
		require.NotNil(b.PublisherId)
		assert.Equal(pub.Id, *b.PublisherId)
		assert.Same(pub, b.Publisher)
	}
	assert.Equal(a.Id, a.Bio.AuthorId)
	assert.Equal(int64(1), count[author](t, s))
	assert.Equal(int64(2), count[book](t, s))
	assert.Equal(int64(1), count[publisher](t, s))
	assert.Equal(int64(1), count[bio](t, s))

	again := &author{
		Name:  "le guin",
		Books: []*book{{Title: "the dispossessed", Publisher: &publisher{Name: "parnassus"}}},
	}
	staged, err = LInsertIgnore(ctx, s, again, nil)
	require.NoError(err)
	assert.False(staged)
	assert.Equal(a.Id, again.Id)
	assert.Equal(a.Books[1].Id, again.Books[0].Id)
	assert.Equal(int64(2), count[book](t, s))
	assert.Equal(int64(1), count[publisher](t, s))

	// without the cascade associations are left alone
	plain := &author{Name: "butler", Books: []*book{{Title: "kindred"}}}
	staged, err = LInsertIgnore(ctx, s, plain, nil, WithCascade(false))
	require.NoError(err)
	assert.True(staged)
	require.Len(plain.Books, 1)
	assert.Zero(plain.Books[0].Id)
	assert.Equal(int64(2), count[book](t, s))
}

func TestInsertIgnore_Errors(t *testing.T) {
	ctx := context.Background()
	t.Run("lookup", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		conn, mock := dbw.TestSetupWithMock(t)
		s, err := New(dbw.New(conn))
		require.NoError(err)
		boom := stderrors.New("connection reset")
		mock.ExpectQuery(`select`).WillReturnError(boom)
		_, err = InsertIgnoreAll(ctx, s, []*item{{Id: 1}})
		assert.NoError(mock.ExpectationsWereMet())
		assert.Truef(errors.Match(errors.T(errors.Op("session.InsertIgnoreAll")), err), "got error %v", err)
		assert.ErrorIs(err, boom)
	})
	t.Run("create", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		conn, mock := dbw.TestSetupWithMock(t)
		s, err := New(dbw.New(conn))
		require.NoError(err)
		mock.ExpectQuery(`select`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT`).WillReturnError(&pq.Error{Code: "23502", Message: "null value in column"})
		mock.ExpectRollback()
		_, err = InsertIgnore(ctx, s, &item{Id: 1})
		assert.True(errors.IsNotNullError(err), "got %v", err)
		assert.False(IsUnique(err))
	})
	t.Run("bad-options", func(t *testing.T) {
		s, _ := testSession(t)
		_, err := InsertIgnoreAll(ctx, s, []*item{{Id: 1}}, WithBatchSize(-1))
		assert.True(t, IsInvalidParameter(err))
		_, err = InsertIgnoreAll(ctx, s, []*item{{Id: 1}}, WithStrategy(Strategy(7)))
		assert.True(t, IsInvalidParameter(err))
	})
}
