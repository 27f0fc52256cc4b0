// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package registry tracks the set of currently open databases, mapping
// logical names to storage engine handles the way plugins.Manager
// tracks named plugin instances: a reader/writer lock protects the map
// for lookups, with a separate non-reentrant lock serializing the
// create path.
package registry

import (
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/arangodb/vocserver/layout"
	"github.com/arangodb/vocserver/logging"
	"github.com/arangodb/vocserver/tick"
	"github.com/arangodb/vocserver/vocbase"
	"github.com/arangodb/vocserver/vocerrors"
)

// Registry owns every currently open database handle.
type Registry struct {
	mtx        sync.RWMutex
	createLock sync.Mutex
	databases  map[string]*vocbase.Database

	fs       afero.Fs
	paths    layout.Paths
	metrics  *vocbase.Metrics
	defaults map[string]interface{}
}

// New constructs an empty registry bound to paths on fs. defaults is
// the server's own default-configuration record (spec §3); it is
// blended with each database's own persisted properties before that
// database is opened.
func New(fs afero.Fs, paths layout.Paths, metrics *vocbase.Metrics, defaults map[string]interface{}) *Registry {
	return &Registry{
		databases: map[string]*vocbase.Database{},
		fs:        fs,
		paths:     paths,
		metrics:   metrics,
		defaults:  defaults,
	}
}

// OpenAll enumerates databases/, opening every directory whose
// descriptor is readable and not marked deleted. A directory with a
// missing or invalid descriptor (layout.ReadDescriptor reports it as
// not ok) is logged and skipped. Two distinct
// directories resolving to the same database name is an invariant
// violation and aborts.
func (r *Registry) OpenAll(logger logging.Logger, wasCleanShutdown bool) error {
	dirs, err := layout.ListDatabaseDirs(r.fs, r.paths.DatabasePath)
	if err != nil {
		return err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, dirName := range dirs {
		dir := filepath.Join(r.paths.DatabasePath, dirName)

		desc, ok, err := layout.ReadDescriptor(r.fs, dir)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warn("skipping database directory %s: unreadable or invalid descriptor", dir)
			continue
		}
		if desc.Deleted {
			logger.Info("skipping database directory %s: marked deleted", dir)
			continue
		}

		if _, exists := r.databases[desc.Name]; exists {
			return vocerrors.New(vocerrors.Internal, "two database directories both resolve to name %q", desc.Name)
		}

		blended, err := layout.MergeDefaults(r.defaults, desc.Properties)
		if err != nil {
			return err
		}

		handle, err := vocbase.OpenDatabase(dir, desc.Name, vocbase.Defaults(blended), wasCleanShutdown, logger)
		if err != nil {
			return err
		}

		r.databases[desc.Name] = handle
		if r.metrics != nil {
			r.metrics.OpenDatabases.Inc()
		}
	}

	return nil
}

// CloseAll closes every open database. Failures are logged, not
// returned: a stuck database must not prevent the rest from closing
// during shutdown.
func (r *Registry) CloseAll(logger logging.Logger) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for name, handle := range r.databases {
		if err := vocbase.CloseDatabase(handle); err != nil {
			logger.Error("failed to close database %q: %v", name, err)
		}
		if r.metrics != nil {
			r.metrics.OpenDatabases.Dec()
		}
		delete(r.databases, name)
	}
}

// Lookup returns the handle for name, or ok=false if no such database
// is open. Takes only a read lock; this is the latency-critical path.
func (r *Registry) Lookup(name string) (*vocbase.Database, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	h, ok := r.databases[name]
	return h, ok
}

// Names returns a snapshot of currently open database names.
func (r *Registry) Names() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	names := make([]string, 0, len(r.databases))
	for name := range r.databases {
		names = append(names, name)
	}
	return names
}

// CreateDatabase validates name, serializes against concurrent
// creators via createLock, creates the on-disk directory and
// descriptor, opens the storage engine, and inserts the new handle.
//
// properties is the caller's explicit per-database overrides (may be
// nil/empty). If empty, the server's own defaults are persisted for
// this database instead, matching CreateDatabaseDirectory always
// serializing a concrete defaults value for the new directory. Either
// way, the value actually opened with is properties blended over the
// server's defaults (layout.MergeDefaults), the same blend OpenAll
// applies on every subsequent restart.
//
// createLock is always acquired before the rw-lock, and is held across
// the whole directory-creation and open sequence so that two
// concurrent creators of the same name cannot both pass the
// existence check: the second creator blocks on createLock until the
// first either finishes (and it observes DATABASE_NAME_USED under the
// read lock) or fails (and it proceeds to create its own directory).
func (r *Registry) CreateDatabase(ticks *tick.Generator, logger logging.Logger, name string, properties []byte) (*vocbase.Database, error) {
	if !IsAllowedDatabaseName(false, name) {
		return nil, vocerrors.New(vocerrors.DatabaseNameInvalid, "invalid database name %q", name)
	}

	r.createLock.Lock()
	defer r.createLock.Unlock()

	r.mtx.RLock()
	_, exists := r.databases[name]
	r.mtx.RUnlock()
	if exists {
		return nil, vocerrors.New(vocerrors.DatabaseNameUsed, "database %q already exists", name)
	}

	persisted := properties
	if len(persisted) == 0 {
		bs, err := layout.MarshalDefaults(r.defaults)
		if err != nil {
			return nil, err
		}
		persisted = bs
	}

	t := ticks.NewTick()
	dirName, err := layout.CreateDatabaseDir(r.fs, r.paths.DatabasePath, t, name, persisted)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(r.paths.DatabasePath, dirName)

	blended, err := layout.MergeDefaults(r.defaults, persisted)
	if err != nil {
		return nil, err
	}

	handle, err := vocbase.OpenDatabase(dir, name, vocbase.Defaults(blended), true, logger)
	if err != nil {
		// the directory is left on disk with deleted=false; per the
		// spec's open question on orphan directories, the next Start's
		// OpenAll will pick it up as an ordinary database.
		return nil, err
	}

	r.mtx.Lock()
	r.databases[name] = handle
	r.mtx.Unlock()

	if r.metrics != nil {
		r.metrics.OpenDatabases.Inc()
	}

	return handle, nil
}
