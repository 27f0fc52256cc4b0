// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package server

import "github.com/prometheus/client_golang/prometheus"

// serverMetrics is the small set of collectors the façade registers,
// the same way storage/disk/disk.go's initPrometheus hook registers a
// handful of collectors from New. Registration is skipped entirely
// when reg is nil, keeping the core embeddable without Prometheus.
type serverMetrics struct {
	ticksGenerated prometheus.Counter
	migrations     prometheus.Counter
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		ticksGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vocserver_ticks_generated_total",
			Help: "Number of ticks issued through Server.NewTick and successful Server.CreateDatabase calls.",
		}),
		migrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vocserver_layout_migrations_total",
			Help: "Number of startups that found no canonical database directory and ran layout bootstrap or migration.",
		}),
	}
	if reg == nil {
		return m
	}
	for _, c := range []prometheus.Collector{m.ticksGenerated, m.migrations} {
		if err := reg.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
					switch c {
					case m.ticksGenerated:
						m.ticksGenerated = existing
					case m.migrations:
						m.migrations = existing
					}
				}
			}
		}
	}
	return m
}
