// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package layout

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/spf13/afero"

	"github.com/arangodb/vocserver/vocerrors"
)

// reDatabaseDir and reCollectionDir are the exact patterns the original
// server.c compiles once at startup (GetDatabases / MoveOldCollections):
// "^database-([0-9][0-9]*)$" and "^collection-([0-9][0-9]*)$".
var (
	reDatabaseDir   = regexp.MustCompile(`^database-([0-9]+)$`)
	reCollectionDir = regexp.MustCompile(`^collection-([0-9]+)$`)
)

// ListDatabaseDirs returns the directory names under databasePath that
// match ^database-[0-9]+$ and are actual directories, sorted ascending
// by their numeric suffix. A directory named "database-" (no digits)
// does not match and is skipped entirely.
func ListDatabaseDirs(fs afero.Fs, databasePath string) ([]string, error) {
	entries, err := afero.ReadDir(fs, databasePath)
	if err != nil {
		return nil, vocerrors.NewWithPath(vocerrors.Internal, databasePath, "failed to list database directory: %v", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if reDatabaseDir.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}

	sort.Slice(names, func(i, j int) bool {
		return suffixOf(names[i]) < suffixOf(names[j])
	})

	return names, nil
}

// suffixOf returns the numeric suffix after the last "-" in name, or 0
// if name has no such suffix (e.g. "database-" or a name that does not
// match the canonical pattern at all). Processing directories in this
// order guarantees creation order is the open order.
func suffixOf(name string) uint64 {
	m := reDatabaseDir.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// listCollectionDirs returns the legacy "collection-<n>" directory
// names directly under basePath (pre-versioned layout), in no
// particular order (MoveOldCollections does not sort them either).
func listCollectionDirs(fs afero.Fs, basePath string) ([]string, error) {
	entries, err := afero.ReadDir(fs, basePath)
	if err != nil {
		return nil, vocerrors.NewWithPath(vocerrors.Internal, basePath, "failed to list base directory: %v", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if reCollectionDir.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
