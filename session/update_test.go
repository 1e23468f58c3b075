// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLInsertUpdate(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s, _ := testSession(t)
	exec(t, s, "insert into app_user (id, name, region) values (1, 'alice', 'us')")

	u := &user{Name: "alice", Region: "us", Email: ptr("alice@example.com")}
	staged, err := LInsertUpdate(ctx, s, u, nil)
	require.NoError(err)
	assert.False(staged)
	assert.Equal(1, u.Id)

	got, err := LGet[user](ctx, s, nil, []any{"alice", "us"})
	require.NoError(err)
	require.NotNil(got.Email)
	assert.Equal("alice@example.com", *got.Email)

	// a nil pointer clears the column
	staged, err = LInsertUpdate(ctx, s, &user{Name: "alice", Region: "us"}, nil)
	require.NoError(err)
	assert.False(staged)
	got, err = LGet[user](ctx, s, nil, []any{"alice", "us"})
	require.NoError(err)
	assert.Nil(got.Email)

	created := &user{Name: "bob", Region: "us"}
	staged, err = LInsertUpdate(ctx, s, created, nil)
	require.NoError(err)
	assert.True(staged)
	assert.NotZero(created.Id)
	assert.Equal(int64(2), count[user](t, s))

	_, err = LInsertUpdate[user](ctx, s, nil, nil)
	assert.True(IsInvalidParameter(err), "got %v", err)
}

func TestLInsertUpdateAll(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s, _ := testSession(t)
	exec(t, s, "insert into app_user (id, name, region) values (1, 'alice', 'us')")

	users := []*user{
		{Name: "alice", Region: "us", Email: ptr("first@example.com")},
		{Name: "carol", Region: "eu"},
		{Name: "alice", Region: "us", Email: ptr("second@example.com")},
		{Name: "carol", Region: "eu"},
	}
	staged, err := LInsertUpdateAll(ctx, s, users, nil)
	require.NoError(err)
	require.Len(staged, 1)
	assert.Same(users[1], staged[0])
	assert.Equal(1, users[0].Id)
	assert.Equal(1, users[2].Id)
	assert.NotZero(users[1].Id)
	assert.Equal(users[1].Id, users[3].Id)
	assert.Equal(int64(2), count[user](t, s))

	// only the first record of a repeated key is written
	got, err := LGet[user](ctx, s, nil, []any{"alice", "us"})
	require.NoError(err)
	require.NotNil(got.Email)
	assert.Equal("first@example.com", *got.Email)

	t.Run("conflicting-key", func(t *testing.T) {
		_, err := LInsertUpdateAll(ctx, s, []*user{{Id: 42, Name: "alice", Region: "us"}}, nil)
		assert.True(IsInvalidParameter(err), "got %v", err)
	})
}
