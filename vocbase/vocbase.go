// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package vocbase wraps github.com/dgraph-io/badger/v3 as the
// per-database storage engine. One Database wraps one badger.DB rooted
// at a single database-<tick> directory; the registry owns one Database
// per open logical database.
package vocbase

import (
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arangodb/vocserver/logging"
	"github.com/arangodb/vocserver/vocerrors"
)

// a value log file is rewritten if half its space can be discarded.
const valueLogGCDiscardRatio = 0.5

// Defaults carries the blended server-wide and per-database properties
// a database is opened with (the registry blends them before calling
// OpenDatabase; see layout.MergeDefaults). A handful of recognized
// keys configure the underlying storage engine directly; anything else
// is retained opaquely on Database.Properties for inspection.
type Defaults map[string]interface{}

// defaultGCInterval is used when defaults carries no
// valueLogGCIntervalSeconds override.
const defaultGCInterval = time.Minute

func boolDefault(defaults Defaults, key string, fallback bool) bool {
	v, ok := defaults[key]
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}

func gcIntervalDefault(defaults Defaults, key string, fallback time.Duration) time.Duration {
	v, ok := defaults[key]
	if !ok {
		return fallback
	}
	seconds, ok := v.(float64)
	if !ok || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds * float64(time.Second))
}

// Database is a single open per-database storage engine instance.
type Database struct {
	Name       string
	Properties Defaults

	db       *badger.DB
	gcTicker *time.Ticker
	closeCh  chan struct{}
}

// OpenDatabase opens (creating if necessary) the badger store rooted at
// dir for the logical database name. wasCleanShutdown is threaded
// through from the server façade's SHUTDOWN-marker check; VocBase uses
// it to decide whether to run recovery-oriented work before serving
// traffic. This implementation logs the distinction but otherwise
// relies on badger's own crash-consistent value log for recovery.
//
// defaults is consulted for two recognized keys: "syncWrites" (bool,
// default true) and "valueLogGCIntervalSeconds" (number, default 60)
// controlling the GC ticker started below; any other keys are carried
// on the returned Database's Properties unexamined.
func OpenDatabase(dir string, name string, defaults Defaults, wasCleanShutdown bool, logger logging.Logger) (*Database, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(&wrap{logger}).
		WithSyncWrites(boolDefault(defaults, "syncWrites", true))

	db, err := badger.Open(opts)
	if err != nil {
		return nil, vocerrors.Wrap(err, vocerrors.OutOfMemory, dir, "failed to open storage engine")
	}

	if !wasCleanShutdown {
		logger.Warn("database %q opened after an unclean shutdown, badger will replay its value log", name)
	}

	vdb := &Database{
		Name:       name,
		Properties: defaults,
		db:         db,
		gcTicker:   time.NewTicker(gcIntervalDefault(defaults, "valueLogGCIntervalSeconds", defaultGCInterval)),
		closeCh:    make(chan struct{}),
	}

	go vdb.runGC(logger)

	return vdb, nil
}

// CloseDatabase stops background work and closes the underlying store.
// Safe to call once; handle must not be used afterward.
func CloseDatabase(handle *Database) error {
	if handle == nil {
		return nil
	}
	close(handle.closeCh)
	handle.gcTicker.Stop()
	if err := handle.db.Close(); err != nil {
		return vocerrors.New(vocerrors.Internal, "failed to close storage engine for database %q: %v", handle.Name, err)
	}
	return nil
}

func (d *Database) runGC(logger logging.Logger) {
	for {
		select {
		case <-d.closeCh:
			return
		case <-d.gcTicker.C:
			for err := error(nil); err == nil; err = d.db.RunValueLogGC(valueLogGCDiscardRatio) {
				logger.Debug("badger value log GC: err=%v", err)
			}
		}
	}
}

// wrap adapts a logging.Logger to badger's four-method internal
// logger interface. Each badger level maps straight through to the
// matching Logger method; the underlying logrus level filter (set via
// SetLevel) decides what is actually emitted, the same as every other
// logged line in this module.
type wrap struct {
	l logging.Logger
}

func (w *wrap) Debugf(f string, as ...interface{})   { w.l.Debug("badger: "+f, as...) }
func (w *wrap) Infof(f string, as ...interface{})    { w.l.Info("badger: "+f, as...) }
func (w *wrap) Warningf(f string, as ...interface{}) { w.l.Warn("badger: "+f, as...) }
func (w *wrap) Errorf(f string, as ...interface{})   { w.l.Error("badger: "+f, as...) }

// Metrics holds the Prometheus collectors the server façade registers
// once and passes down to the registry, which updates them as it opens
// and closes databases.
type Metrics struct {
	OpenDatabases prometheus.Gauge
}

// NewMetrics builds the collector set and registers it with reg.
// Registration failures (e.g. a duplicate registration during tests
// that construct more than one server) are non-fatal: the existing
// collector is reused, matching how OPA's disk store tolerates
// repeated initPrometheus calls in its own test suite.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OpenDatabases: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vocserver_open_databases",
			Help: "Number of currently open databases.",
		}),
	}
	if reg != nil {
		if err := reg.Register(m.OpenDatabases); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				m.OpenDatabases = are.ExistingCollector.(prometheus.Gauge)
			}
		}
	}
	return m
}
