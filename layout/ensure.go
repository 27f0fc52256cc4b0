// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package layout

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/arangodb/vocserver/vocerrors"
)

// EnsureBaseDir validates that basePath exists and is writable, the
// first check the server façade makes during Start.
func EnsureBaseDir(fs afero.Fs, basePath string) error {
	info, err := fs.Stat(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return vocerrors.NewWithPath(vocerrors.DatadirInvalid, basePath, "data directory does not exist")
		}
		return vocerrors.NewWithPath(vocerrors.DatadirInvalid, basePath, "failed to stat data directory: %v", err)
	}
	if !info.IsDir() {
		return vocerrors.NewWithPath(vocerrors.DatadirInvalid, basePath, "data directory path is not a directory")
	}
	return checkWritable(fs, basePath)
}

func checkWritable(fs afero.Fs, dir string) error {
	probe := filepath.Join(dir, ".vocserver-write-check")
	f, err := fs.Create(probe)
	if err != nil {
		return vocerrors.NewWithPath(vocerrors.DatadirNotWritable, dir, "data directory is not writable: %v", err)
	}
	f.Close()
	fs.Remove(probe)
	return nil
}

// CreateDatabaseDir creates a new database directory at
// databasePath/database-<tick> and writes its parameter.json. Returns
// the directory name (not the full path).
func CreateDatabaseDir(fs afero.Fs, databasePath string, tick uint64, name string, properties []byte) (string, error) {
	dirName := DatabaseDir(tick)
	dir := filepath.Join(databasePath, dirName)

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", vocerrors.NewWithPath(vocerrors.DatadirNotWritable, dir, "failed to create database directory: %v", err)
	}

	desc := Descriptor{ID: formatTick(tick), Name: name, Deleted: false, Properties: properties}
	if err := WriteDescriptor(fs, dir, desc); err != nil {
		return "", err
	}

	return dirName, nil
}
