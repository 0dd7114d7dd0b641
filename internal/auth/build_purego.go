//go:build !cgosqlite
// +build !cgosqlite

package auth

// Default build: pure Go SQLite driver, no C compiler required.
//
//	CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver used for token persistence
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
