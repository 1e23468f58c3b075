// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package db opens the databases the session helpers run against. It selects
// the sqlite driver at build time (cgo or pure go), configures logging and
// connection limits, and provides the retrying transaction loop used by
// session.Maker.
package db

import (
	"context"
	"strings"

	"github.com/hashicorp/go-dbw"
	"github.com/hashicorp/go-hclog"
	"github.com/parnell/gormext/internal/errors"
)

// DbType defines a database type.
type DbType = dbw.DbType

const (
	UnknownDB DbType = dbw.UnknownDB
	Postgres  DbType = dbw.Postgres
	Sqlite    DbType = dbw.Sqlite
)

// StringToDbType provides a string to type conversion. The engine names
// "sqlite3" and "postgresql" are accepted as aliases.
func StringToDbType(engine string) (DbType, error) {
	const op = "db.StringToDbType"
	switch strings.ToLower(engine) {
	case "sqlite", "sqlite3":
		return Sqlite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	default:
		return UnknownDB, errors.New(context.Background(), errors.InvalidParameter, op, "unknown engine "+engine, errors.WithoutEvent())
	}
}

// IsMemoryUrl reports whether the sqlite connection url refers to an
// in-memory database.
func IsMemoryUrl(url string) bool {
	return strings.Contains(url, ":memory:") || strings.Contains(url, "mode=memory")
}

// Open a database connection which is long-lived. For sqlite the driver is
// chosen at build time and foreign keys are enabled. An in-memory sqlite
// database is limited to a single connection, since every new connection to
// it would open a different, empty database.
//
// Supported options: WithLogger, WithLogLevel, WithMaxOpenConnections and
// WithDebug.
func Open(ctx context.Context, dbType DbType, url string, opt ...Option) (*dbw.DB, error) {
	const op = "db.Open"
	if url == "" {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing connection url")
	}
	opts, err := getOpts(opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	dbwOpts := []dbw.Option{
		dbw.WithLogLevel(gormLevel(opts.withLogLevel)),
		dbw.WithDebug(opts.withDebug),
	}
	if opts.withLogger != nil {
		dbwOpts = append(dbwOpts, dbw.WithLogger(opts.withLogger.Named("db")))
	}

	var conn *dbw.DB
	switch dbType {
	case Sqlite:
		maxOpen := opts.withMaxOpenConnections
		if IsMemoryUrl(url) {
			maxOpen = 1
		}
		if maxOpen > 0 {
			dbwOpts = append(dbwOpts, dbw.WithMaxOpenConnections(maxOpen))
		}
		conn, err = dbw.OpenWith(sqliteOpen(url), dbwOpts...)
	case Postgres:
		if opts.withMaxOpenConnections > 0 {
			dbwOpts = append(dbwOpts, dbw.WithMaxOpenConnections(opts.withMaxOpenConnections))
		}
		conn, err = dbw.Open(dbw.Postgres, url, dbwOpts...)
	default:
		return nil, errors.New(ctx, errors.InvalidParameter, op, "unsupported database type "+dbType.String())
	}
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return conn, nil
}

// gormLevel maps an hclog level onto the level of the gorm logger underneath
// dbw. Debug and trace log every statement.
func gormLevel(l hclog.Level) dbw.LogLevel {
	switch l {
	case hclog.Trace, hclog.Debug:
		return dbw.Info
	case hclog.Info, hclog.Warn:
		return dbw.Warn
	case hclog.Off:
		return dbw.Silent
	default:
		return dbw.Error
	}
}
