// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package db

import (
	"context"
	"testing"

	"github.com/hashicorp/go-dbw"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

// TestSetup opens a fresh in-memory sqlite database for a test and runs the
// provided schema statements against it. The database is closed when the
// test completes.
func TestSetup(t testing.TB, schema ...string) *dbw.DB {
	t.Helper()
	require := require.New(t)
	ctx := context.Background()

	conn, err := Open(ctx, Sqlite, "file::memory:",
		WithLogger(hclog.New(&hclog.LoggerOptions{
			Name:  t.Name(),
			Level: hclog.Trace,
		})),
	)
	require.NoError(err)
	t.Cleanup(func() {
		require.NoError(conn.Close(ctx))
	})
	rw := dbw.New(conn)
	for _, stmt := range schema {
		_, err := rw.Exec(ctx, stmt, nil)
		require.NoError(err)
	}
	return conn
}
