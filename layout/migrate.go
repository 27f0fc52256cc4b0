// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package layout

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/arangodb/vocserver/logging"
	"github.com/arangodb/vocserver/vocerrors"
)

// TickSource is satisfied by tick.Generator; kept as an interface here
// so layout does not import the tick package just to call NewTick.
type TickSource interface {
	NewTick() uint64
}

// EnsureLayout brings basePath to the canonical "databases/database-<tick>"
// layout, migrating the two legacy formats the distilled specification
// names. Ordering matters and matches §4.3 exactly:
//
//  1. compile the regexes matching both legacy layouts (package init)
//  2. enumerate databases already in canonical form
//  3. if none, bootstrap a system database directory
//  4. move legacy collections under the system database
//  5. rename legacy name-keyed directories into canonical form
//
// defaults is the server's own configuration record (spec §3's
// "default-configuration record"); it is persisted into every
// descriptor this function writes, the same as the original's
// CreateDatabaseDirectory/SaveDatabaseParameters always serializing
// server->_defaults for a freshly created or migrated directory.
func EnsureLayout(fs afero.Fs, paths Paths, ticks TickSource, defaults map[string]interface{}, logger logging.Logger) error {
	if err := fs.MkdirAll(paths.DatabasePath, 0o755); err != nil {
		return vocerrors.NewWithPath(vocerrors.DatadirNotWritable, paths.DatabasePath, "failed to create databases directory: %v", err)
	}

	canonical, err := ListDatabaseDirs(fs, paths.DatabasePath)
	if err != nil {
		return err
	}

	if len(canonical) == 0 {
		if err := bootstrapSystemDatabase(fs, paths, ticks, defaults, logger); err != nil {
			return err
		}
	}

	if err := migratePreVersionedCollections(fs, paths, logger); err != nil {
		return err
	}

	if err := migrateEarlyVersionedDatabases(fs, paths, ticks, defaults, logger); err != nil {
		return err
	}

	return nil
}

// bootstrapSystemDatabase creates database-<tick>/parameter.json naming
// "_system" when databases/ holds no canonical database-<tick>
// directory (legacy name-keyed directories may still be there). This covers both
// the fresh-install scenario and the pre-versioned-migration scenario
// (where collections need a system database directory to land in
// before they are moved).
func bootstrapSystemDatabase(fs afero.Fs, paths Paths, ticks TickSource, defaults map[string]interface{}, logger logging.Logger) error {
	t := ticks.NewTick()
	dir := filepath.Join(paths.DatabasePath, DatabaseDir(t))

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return vocerrors.NewWithPath(vocerrors.DatadirNotWritable, dir, "failed to create system database directory: %v", err)
	}

	props, err := MarshalDefaults(defaults)
	if err != nil {
		return err
	}

	desc := Descriptor{ID: formatTick(t), Name: SystemDatabaseName, Deleted: false, Properties: props}
	if err := WriteDescriptor(fs, dir, desc); err != nil {
		return err
	}

	logger.Info("bootstrapped system database at %s", dir)
	return nil
}

// migratePreVersionedCollections moves "collection-<n>" directories
// living directly under basePath into the system database's directory.
// This is the pre-versioned layout: the whole data directory used to
// just be one big pile of collections with no database directory at
// all.
func migratePreVersionedCollections(fs afero.Fs, paths Paths, logger logging.Logger) error {
	collections, err := listCollectionDirs(fs, paths.BasePath)
	if err != nil {
		return err
	}
	if len(collections) == 0 {
		return nil
	}

	systemDir, err := findDatabaseDirByName(fs, paths.DatabasePath, SystemDatabaseName)
	if err != nil {
		return err
	}
	if systemDir == "" {
		return vocerrors.New(vocerrors.Internal, "pre-versioned migration found collections but no system database directory exists")
	}

	target := filepath.Join(paths.DatabasePath, systemDir)
	for _, name := range collections {
		oldPath := filepath.Join(paths.BasePath, name)
		newPath := filepath.Join(target, name)

		logger.Info("moving standalone collection directory from %s to system database directory %s", oldPath, newPath)
		if err := fs.Rename(oldPath, newPath); err != nil {
			return vocerrors.NewWithPath(vocerrors.Internal, oldPath, "failed to move legacy collection directory: %v", err)
		}
	}

	return nil
}

// migrateEarlyVersionedDatabases renames database directories still
// named by their logical name (rather than database-<tick>) into the
// canonical form, writing a fresh parameter.json that records the old
// directory name as the database name.
func migrateEarlyVersionedDatabases(fs afero.Fs, paths Paths, ticks TickSource, defaults map[string]interface{}, logger logging.Logger) error {
	entries, err := afero.ReadDir(fs, paths.DatabasePath)
	if err != nil {
		return vocerrors.NewWithPath(vocerrors.Internal, paths.DatabasePath, "failed to list databases directory: %v", err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if reDatabaseDir.MatchString(name) {
			// already canonical
			continue
		}

		t := ticks.NewTick()
		oldPath := filepath.Join(paths.DatabasePath, name)
		newPath := filepath.Join(paths.DatabasePath, DatabaseDir(t))

		if err := fs.Rename(oldPath, newPath); err != nil {
			return vocerrors.NewWithPath(vocerrors.Internal, oldPath, "failed to rename legacy database directory: %v", err)
		}

		props, err := MarshalDefaults(defaults)
		if err != nil {
			return err
		}

		desc := Descriptor{ID: formatTick(t), Name: name, Deleted: false, Properties: props}
		if err := WriteDescriptor(fs, newPath, desc); err != nil {
			return err
		}

		logger.Info("migrated legacy database directory %s to %s (name=%s)", oldPath, newPath, name)
	}

	return nil
}

// findDatabaseDirByName scans canonical database directories for one
// whose descriptor names it name, returning its directory name (not
// full path) or "" if none matches.
func findDatabaseDirByName(fs afero.Fs, databasePath string, name string) (string, error) {
	dirs, err := ListDatabaseDirs(fs, databasePath)
	if err != nil {
		return "", err
	}
	for _, d := range dirs {
		desc, ok, err := ReadDescriptor(fs, filepath.Join(databasePath, d))
		if err != nil {
			return "", err
		}
		if ok && desc.Name == name {
			return d, nil
		}
	}
	return "", nil
}
