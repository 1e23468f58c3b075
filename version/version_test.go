// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_VersionNumber(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		info Info
		want string
		full string
	}{
		{name: "unknown", info: Info{}, want: "(version unknown)", full: "gormext v(version unknown)"},
		{name: "plain", info: Info{Version: "1.2.3"}, want: "1.2.3", full: "gormext v1.2.3"},
		{name: "prerelease", info: Info{Version: "1.2.3", VersionPrerelease: "dev"}, want: "1.2.3-dev", full: "gormext v1.2.3-dev"},
		{
			name: "everything",
			info: Info{Version: "1.2.3", VersionPrerelease: "rc1", VersionMetadata: "ent", Revision: "abc"},
			want: "1.2.3-rc1+ent",
			full: "gormext v1.2.3-rc1+ent (abc)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.VersionNumber())
			assert.Equal(t, tt.full, tt.info.FullVersionNumber(true))
		})
	}
}

func TestGet(t *testing.T) {
	got := Get()
	assert.Equal(t, Version, got.Version)
	assert.Equal(t, VersionPrerelease, got.VersionPrerelease)
}
