// Copyright 2026 The sliverpick Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry instruments the selection core with Prometheus
// collectors. A nil *Metrics is valid everywhere and records nothing, so
// callers never have to guard instrumentation calls.
package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mlabns/sliverpick/lookup"
)

// Lookup outcome label values.
const (
	outcomeFound    = "found"
	outcomeNotFound = "not_found"
	outcomeInvalid  = "invalid_query"
	outcomeError    = "error"
)

// Metrics holds the collectors for the selection core.
type Metrics struct {
	lookupDuration *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	storeFetches   prometheus.Histogram
	degraded       prometheus.Counter
}

// New registers the core's collectors with registerer and returns them.
// A nil registerer uses prometheus.DefaultRegisterer.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		lookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sliverpick_lookup_duration_seconds",
				Help:    "Duration of lookup resolutions in seconds",
				Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"policy", "outcome"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sliverpick_cache_lookups_total",
				Help: "Total number of tool cache lookups by result",
			},
			[]string{"result"},
		),
		storeFetches: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sliverpick_store_fetch_duration_seconds",
				Help:    "Duration of backing store fetches in seconds",
				Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		degraded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sliverpick_degraded_selections_total",
				Help: "Total number of geo lookups answered randomly for lack of client coordinates",
			},
		),
	}
}

// ObserveLookup records one resolution with its policy, duration and
// outcome category.
func (m *Metrics) ObserveLookup(policy lookup.Policy, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := outcomeFound
	switch {
	case err == nil:
	case errors.Is(err, lookup.ErrNoCandidates):
		outcome = outcomeNotFound
	case errors.Is(err, lookup.ErrInvalidQuery):
		outcome = outcomeInvalid
	default:
		outcome = outcomeError
	}
	m.lookupDuration.WithLabelValues(string(policy), outcome).Observe(duration.Seconds())
}

// CacheLookup records one tool cache lookup. The result label is "hit",
// "miss" or "error".
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveStoreFetch records the duration of one backing store fetch.
func (m *Metrics) ObserveStoreFetch(duration time.Duration) {
	if m == nil {
		return
	}
	m.storeFetches.Observe(duration.Seconds())
}

// DegradedSelection records a geo lookup that fell back to a random pick
// because the query carried no client coordinates.
func (m *Metrics) DegradedSelection() {
	if m == nil {
		return
	}
	m.degraded.Inc()
}
