// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package layout implements the on-disk directory manager: enumerating
// the data directory, performing one-shot layout migrations from two
// legacy formats, creating new database directories, reading/writing
// per-database parameter.json descriptors, and reading/writing the
// SHUTDOWN marker. The process-exclusive LOCK file lives in lock.go.
package layout

import "path/filepath"

// SystemDatabaseName is the bootstrap database that must exist after a
// successful Start.
const SystemDatabaseName = "_system"

// ParameterFile is the descriptor file name inside every database
// directory.
const ParameterFile = "parameter.json"

// Paths holds the well-known locations derived from a server's base
// directory.
type Paths struct {
	BasePath     string
	DatabasePath string
	LockFile     string
	ShutdownFile string
	ServerIDFile string
}

// NewPaths derives the standard layout from basePath.
func NewPaths(basePath string) Paths {
	return Paths{
		BasePath:     basePath,
		DatabasePath: filepath.Join(basePath, "databases"),
		LockFile:     filepath.Join(basePath, "LOCK"),
		ShutdownFile: filepath.Join(basePath, "SHUTDOWN"),
		ServerIDFile: filepath.Join(basePath, "SERVER"),
	}
}

// DatabaseDir returns the directory name for a database created at tick.
func DatabaseDir(tick uint64) string {
	return "database-" + formatTick(tick)
}
