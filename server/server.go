// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package server is the thin façade that sequences the tick generator,
// server-id store, directory manager, and database registry during
// Start and Stop, and exposes the module's public surface.
package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/arangodb/vocserver/layout"
	"github.com/arangodb/vocserver/logging"
	"github.com/arangodb/vocserver/registry"
	"github.com/arangodb/vocserver/serverid"
	"github.com/arangodb/vocserver/tick"
	"github.com/arangodb/vocserver/vocbase"
	"github.com/arangodb/vocserver/vocerrors"
)

// Defaults carries server-wide bootstrap options, round-tripped to
// VocBase the same way per-database defaults are: a plain
// JSON-serializable struct, not a generalized config object.
type Defaults map[string]interface{}

// Server is the process-facing handle returned by CreateServer. All of
// its methods are safe for concurrent use.
type Server struct {
	mu      sync.Mutex
	started bool

	fs     afero.Fs
	logger logging.Logger

	paths    layout.Paths
	ticks    *tick.Generator
	registry *registry.Registry
	lock     *layout.Lock
	serverID uint64
	defaults Defaults

	metrics            *serverMetrics
	vocMetrics         *vocbase.Metrics
	wasShutdownCleanly bool
}

// CreateServer allocates an empty, unstarted server. No filesystem
// work happens here; InitServer does that.
func CreateServer(logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		fs:     afero.NewOsFs(),
		logger: logger,
		ticks:  tick.NewGenerator(),
	}
}

// WithFilesystem overrides the filesystem implementation, used by
// tests to substitute an in-memory afero.Fs. Must be called before
// InitServer.
func (s *Server) WithFilesystem(fs afero.Fs) *Server {
	s.fs = fs
	return s
}

// WithPrometheus registers this server's metrics with reg. A nil
// reg (the default) disables metrics entirely.
func (s *Server) WithPrometheus(reg prometheus.Registerer) *Server {
	s.metrics = newServerMetrics(reg)
	s.vocMetrics = vocbase.NewMetrics(reg)
	return s
}

// InitServer allocates the paths and registry bound to basePath.
// defaults is the server's default-configuration record (spec §3); it
// is stored on Server and blended with each database's own persisted
// properties every time that database is opened, by both OpenAll and
// CreateDatabase.
func (s *Server) InitServer(basePath string, defaults Defaults) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paths = layout.NewPaths(basePath)
	s.defaults = defaults
	if s.metrics == nil {
		s.metrics = newServerMetrics(nil)
	}
	if s.vocMetrics == nil {
		s.vocMetrics = vocbase.NewMetrics(nil)
	}
	s.registry = registry.New(s.fs, s.paths, s.vocMetrics, map[string]interface{}(s.defaults))
	return nil
}

// StartServer sequences: validate basePath → acquire lock → determine
// server id → read shutdown info → ensure/migrate layout → open all
// databases → if clean, remove the shutdown marker. Any failure aborts
// and releases whatever was acquired so far.
func (s *Server) StartServer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return vocerrors.New(vocerrors.Internal, "server already started")
	}

	if err := layout.EnsureBaseDir(s.fs, s.paths.BasePath); err != nil {
		return err
	}

	lock, err := layout.AcquireLock(s.paths.LockFile)
	if err != nil {
		return err
	}

	serverID, err := serverid.Determine(s.fs, s.paths.ServerIDFile, s.logger)
	if err != nil {
		lock.Release()
		return err
	}

	shutdownTick, wasClean, err := layout.ReadShutdownInfo(s.fs, s.paths.ShutdownFile)
	if err != nil {
		lock.Release()
		return err
	}
	if wasClean {
		s.ticks.UpdateTick(shutdownTick)
	}

	beforeMigrate, err := layout.ListDatabaseDirs(s.fs, s.paths.DatabasePath)
	migratedAlready := err == nil && len(beforeMigrate) > 0

	if err := layout.EnsureLayout(s.fs, s.paths, s.ticks, map[string]interface{}(s.defaults), s.logger); err != nil {
		lock.Release()
		return err
	}
	if !migratedAlready {
		s.metrics.migrations.Inc()
	}

	if err := s.registry.OpenAll(s.logger, wasClean); err != nil {
		s.registry.CloseAll(s.logger)
		lock.Release()
		return err
	}

	if wasClean {
		if err := layout.RemoveShutdownInfo(s.fs, s.paths.ShutdownFile); err != nil {
			s.registry.CloseAll(s.logger)
			lock.Release()
			return err
		}
	}

	s.lock = lock
	s.serverID = serverID
	s.wasShutdownCleanly = wasClean
	s.started = true
	return nil
}

// StopServer closes all databases, best-effort writes the shutdown
// marker, then releases the lock. Marker write failures are logged,
// not fatal: the storage engine can reconstruct ticks on next start.
func (s *Server) StopServer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.registry.CloseAll(s.logger)

	if err := layout.WriteShutdownInfo(s.fs, s.paths.ShutdownFile, s.ticks.CurrentTick()); err != nil {
		s.logger.Error("failed to write shutdown marker: %v", err)
	}

	if err := s.lock.Release(); err != nil {
		s.logger.Error("failed to release data directory lock: %v", err)
	}

	s.started = false
	s.lock = nil
	return nil
}

// CreateDatabase validates name, creates the on-disk directory, opens
// it, and registers the handle.
func (s *Server) CreateDatabase(name string, defaults []byte) (*vocbase.Database, error) {
	h, err := s.registry.CreateDatabase(s.ticks, s.logger, name, defaults)
	if err == nil {
		s.metrics.ticksGenerated.Inc()
	}
	return h, err
}

// LookupDatabaseByName returns the handle for name if open.
func (s *Server) LookupDatabaseByName(name string) (*vocbase.Database, bool) {
	return s.registry.Lookup(name)
}

// ListDatabaseNames returns every currently open database's name.
func (s *Server) ListDatabaseNames() []string {
	return s.registry.Names()
}

// NewTick issues a fresh, strictly increasing tick.
func (s *Server) NewTick() uint64 {
	s.metrics.ticksGenerated.Inc()
	return s.ticks.NewTick()
}

// CurrentTick returns the generator's current composed tick without
// incrementing.
func (s *Server) CurrentTick() uint64 {
	return s.ticks.CurrentTick()
}

// UpdateTick raises the generator's sequence counter to at least t's
// high 48 bits.
func (s *Server) UpdateTick(t uint64) {
	s.ticks.UpdateTick(t)
}

// GetServerId returns the per-installation identifier determined
// during StartServer.
func (s *Server) GetServerId() uint64 {
	return s.serverID
}

// WasShutdownCleanly reports whether the previous run's SHUTDOWN
// marker was found at the start of the most recent StartServer call.
func (s *Server) WasShutdownCleanly() bool {
	return s.wasShutdownCleanly
}
