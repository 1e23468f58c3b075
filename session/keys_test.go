// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package session

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/parnell/gormext/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := testSession(t)
	exec(t, s, "insert into item (id, name) values (1, 'one'), (2, 'two')")

	tests := []struct {
		name    string
		keys    []model.Key
		want    []model.Key
		wantErr bool
	}{
		{name: "empty", keys: nil, want: []model.Key{}},
		{name: "none", keys: []model.Key{{3}, {4}}, want: []model.Key{}},
		{name: "input-order", keys: []model.Key{{int64(2)}, {3}, {1}, {2}}, want: []model.Key{{2}, {1}}},
		{name: "all", keys: []model.Key{{1}, {2}}, want: []model.Key{{1}, {2}}},
		{name: "arity", keys: []model.Key{{1, 2}}, wantErr: true},
		{name: "type", keys: []model.Key{{"1"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			cs, c := counting(t, s)
			got, err := FindKeys[item](ctx, cs, tt.keys)
			if tt.wantErr {
				assert.True(IsInvalidParameter(err), "got %v", err)
				return
			}
			require.NoError(err)
			assert.Empty(cmp.Diff(tt.want, got))
			if len(tt.keys) == 0 {
				assert.Zero(c.queries.Load())
			} else {
				assert.Equal(int64(1), c.queries.Load())
			}
		})
	}
}

func TestFindKeys_Composite(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s, _ := testSession(t)
	exec(t, s, "insert into pair (a, b) values (1, 1), (1, 2)")

	got, err := FindKeys[pair](ctx, s, []model.Key{{1, 2}, {2, 1}, {1, 1}})
	require.NoError(err)
	assert.Empty(cmp.Diff([]model.Key{{1, 2}, {1, 1}}, got))
}

func TestFindLogicalKeys(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s, _ := testSession(t)
	exec(t, s, "insert into app_user (id, name, region) values (1, 'alice', 'us'), (2, 'bob', 'us'), (3, 'alice', 'eu')")

	cs, c := counting(t, s)
	got, err := FindLogicalKeys[user](ctx, cs, nil, [][]any{
		{"bob", "us"},
		{"carol", "us"},
		{"alice", "eu"},
		{"bob", "us"},
	})
	require.NoError(err)
	assert.Equal(int64(1), c.queries.Load())
	assert.Empty(cmp.Diff([]model.Key{{2}, nil, {3}, {2}}, got))

	_, err = FindLogicalKeys[user](ctx, s, []string{"Name"}, [][]any{{"alice"}})
	assert.True(IsAmbiguous(err), "got %v", err)

	_, err = FindLogicalKeys[item](ctx, s, nil, [][]any{{"x"}})
	assert.True(IsNoLogicalKey(err), "got %v", err)
}

func TestAttachKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := testSession(t)
	exec(t, s, "insert into app_user (id, name, region) values (1, 'alice', 'us'), (2, 'bob', 'us')")

	t.Run("single", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		u := &user{Name: "alice", Region: "us"}
		found, err := AttachKeys(ctx, s, u, nil)
		require.NoError(err)
		assert.True(found)
		assert.Equal(1, u.Id)

		missing := &user{Name: "carol", Region: "us"}
		found, err = AttachKeys(ctx, s, missing, nil)
		require.NoError(err)
		assert.False(found)
		assert.Zero(missing.Id)
	})
	t.Run("all", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		cs, c := counting(t, s)
		users := []*user{
			{Name: "bob", Region: "us"},
			{Name: "carol", Region: "us"},
			{Id: 1, Name: "alice", Region: "us"},
		}
		n, err := AttachKeysAll(ctx, cs, users, nil)
		require.NoError(err)
		assert.Equal(int64(1), c.queries.Load())
		assert.Equal(2, n)
		assert.Equal(2, users[0].Id)
		assert.Zero(users[1].Id)
		assert.Equal(1, users[2].Id)
	})
	t.Run("conflicting-key", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		users := []*user{
			{Id: 5, Name: "alice", Region: "us"},
			{Name: "bob", Region: "us"},
		}
		n, err := AttachKeysAll(ctx, s, users, nil)
		assert.True(IsInvalidParameter(err), "got %v", err)
		assert.Equal(1, n)
		assert.Equal(5, users[0].Id)
		assert.Equal(2, users[1].Id)

		n, err = AttachKeysAll(ctx, s, users, nil, WithAllowKeyOverwrite(true))
		require.NoError(err)
		assert.Equal(2, n)
		assert.Equal(1, users[0].Id)
	})
}
