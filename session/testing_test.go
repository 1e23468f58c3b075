// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package session

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-dbw"
	"github.com/parnell/gormext/internal/db"
	"github.com/stretchr/testify/require"
)

type item struct {
	Id   int `gorm:"primaryKey"`
	Name string
}

func (item) TableName() string { return "item" }

type user struct {
	Id     int    `gorm:"primaryKey"`
	Name   string `gormext:"logical_key"`
	Region string `gormext:"logical_key"`
	Email  *string
}

func (user) TableName() string { return "app_user" }

type account struct {
	Id    int    `gorm:"primaryKey"`
	Email string `gormext:"logical_key"`
	Name  string
}

func (account) TableName() string { return "account" }

type pair struct {
	A    int `gorm:"primaryKey;autoIncrement:false"`
	B    int `gorm:"primaryKey;autoIncrement:false"`
	Note string
}

func (pair) TableName() string { return "pair" }

type publisher struct {
	Id   int    `gorm:"primaryKey"`
	Name string `gormext:"logical_key"`
}

func (publisher) TableName() string { return "publisher" }

type author struct {
	Id    int     `gorm:"primaryKey"`
	Name  string  `gormext:"logical_key"`
	Books []*book `gorm:"foreignKey:AuthorId"`
	Bio   *bio    `gorm:"foreignKey:AuthorId"`
}

func (author) TableName() string { return "author" }

type book struct {
	Id          int `gorm:"primaryKey"`
	AuthorId    int
	Title       string `gormext:"logical_key"`
	PublisherId *int
	Publisher   *publisher `gorm:"foreignKey:PublisherId"`
}

func (book) TableName() string { return "book" }

type bio struct {
	Id       int `gorm:"primaryKey"`
	AuthorId int
	Text     string
}

func (bio) TableName() string { return "bio" }

// order has table and column names which are SQL keywords.
type order struct {
	Id    int    `gorm:"primaryKey"`
	Group string `gorm:"column:group" gormext:"logical_key"`
}

func (order) TableName() string { return "order" }

var testSchema = []string{
	`create table item (id integer primary key, name text not null)`,
	`create table app_user (id integer primary key, name text not null, region text not null, email text)`,
	`create table account (id integer primary key, email text not null unique, name text not null default '')`,
	`create table pair (a integer not null, b integer not null, note text not null default '', primary key (a, b))`,
	`create table publisher (id integer primary key, name text not null unique)`,
	`create table author (id integer primary key, name text not null unique)`,
	`create table book (
		id integer primary key,
		author_id integer not null references author (id),
		title text not null unique,
		publisher_id integer references publisher (id)
	)`,
	`create table bio (id integer primary key, author_id integer not null references author (id), text text not null)`,
	`create table "order" (id integer primary key, "group" text not null unique)`,
}

// testSession returns a Session in a transaction on a new in memory sqlite
// database, rolled back when the test ends unless committed.
func testSession(t *testing.T, opt ...Option) (*Session, *dbw.DB) {
	t.Helper()
	d := db.TestSetup(t, testSchema...)
	s, err := New(dbw.New(d), opt...)
	require.NoError(t, err)
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})
	return tx, d
}

// countingConn counts the queries run through it.
type countingConn struct {
	Conn
	queries atomic.Int64
}

func (c *countingConn) Query(ctx context.Context, query string, values []any, opt ...dbw.Option) (*sql.Rows, error) {
	c.queries.Add(1)
	return c.Conn.Query(ctx, query, values, opt...)
}

// blindConn finds nothing for its next misses queries, so the inserts that
// follow race rows which already exist. Later queries see every row.
type blindConn struct {
	Conn
	misses atomic.Int64
}

func (c *blindConn) Query(ctx context.Context, query string, values []any, opt ...dbw.Option) (*sql.Rows, error) {
	if c.misses.Add(-1) >= 0 {
		return c.Conn.Query(ctx, "select 1 where 0 = 1", nil, opt...)
	}
	return c.Conn.Query(ctx, query, values, opt...)
}

// blinded returns a Session sharing the connection and options of s whose
// first lookup finds nothing.
func blinded(s *Session) (*Session, *blindConn) {
	c := &blindConn{Conn: s.Conn()}
	c.misses.Store(1)
	return &Session{conn: c, opts: s.opts}, c
}

// counting returns a Session sharing the connection and options of s which
// counts its queries.
func counting(t *testing.T, s *Session) (*Session, *countingConn) {
	t.Helper()
	c := &countingConn{Conn: s.Conn()}
	return &Session{conn: c, opts: s.opts}, c
}

func exec(t *testing.T, s *Session, sql string, args ...any) {
	t.Helper()
	_, err := s.Conn().Exec(context.Background(), sql, args)
	require.NoError(t, err)
}

func count[T any](t *testing.T, s *Session) int64 {
	t.Helper()
	n, err := Count[T](context.Background(), s)
	require.NoError(t, err)
	return n
}

func ptr[T any](v T) *T { return &v }
