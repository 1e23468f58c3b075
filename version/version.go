// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package version reports the version of the gormext binary, as set at build
// time with -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

var (
	// GitCommit is the git commit that was compiled. This will be filled in by the compiler.
	GitCommit string

	// Version is the base version
	Version = "0.1.0"

	// VersionPrerelease is also set at compile time, similarly to Version.
	VersionPrerelease = "dev"

	// VersionMetadata is also set at compile time.
	VersionMetadata string

	// BuildDate is the date of the build, which corresponds to the timestamp of
	// the most recent commit
	BuildDate string
)

// Info
type Info struct {
	Revision          string `json:"revision,omitempty"`
	Version           string `json:"version,omitempty"`
	VersionPrerelease string `json:"version_prerelease,omitempty"`
	VersionMetadata   string `json:"version_metadata,omitempty"`
	BuildDate         string `json:"build_date,omitempty"`
	GoVersion         string `json:"go_version,omitempty"`
}

// Get returns the version of the binary. A revision missing from the build
// flags is taken from the build info the toolchain embeds.
func Get() *Info {
	info := &Info{
		Revision:          GitCommit,
		Version:           Version,
		VersionPrerelease: VersionPrerelease,
		VersionMetadata:   VersionMetadata,
		BuildDate:         BuildDate,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Revision == "":
				info.Revision = s.Value
			case s.Key == "vcs.time" && info.BuildDate == "":
				info.BuildDate = s.Value
			}
		}
	}
	return info
}

// VersionNumber returns the version with its prerelease and metadata, e.g.
// 0.1.0-dev+ent.
func (c *Info) VersionNumber() string {
	if c.Version == "" {
		return "(version unknown)"
	}
	var b strings.Builder
	b.WriteString(c.Version)
	if c.VersionPrerelease != "" {
		fmt.Fprintf(&b, "-%s", c.VersionPrerelease)
	}
	if c.VersionMetadata != "" {
		fmt.Fprintf(&b, "+%s", c.VersionMetadata)
	}
	return b.String()
}

// FullVersionNumber returns the name of the binary and its version, with the
// revision when rev is true.
func (c *Info) FullVersionNumber(rev bool) string {
	s := "gormext v" + c.VersionNumber()
	if rev && c.Revision != "" {
		s += fmt.Sprintf(" (%s)", c.Revision)
	}
	return s
}
