// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars contains variables injected at build time.
package buildvars

// Version is set at link time via `-ldflags -X github.com/toeirei/warden/buildvars.Version=...`.
// It will be empty for local or development builds.
var Version string

// Commit and Date are set the same way with the short commit SHA and the
// RFC3339 build time.
var (
	Commit string
	Date   string
)

// VersionOrDefault returns `Version` if set, otherwise returns the provided default.
func VersionOrDefault(def string) string {
	if len(Version) > 0 {
		return Version
	}
	return def
}
