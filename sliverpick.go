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

package sliverpick

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mlabns/sliverpick/cache"
	"github.com/mlabns/sliverpick/config"
	"github.com/mlabns/sliverpick/lookup"
	"github.com/mlabns/sliverpick/provider"
	"github.com/mlabns/sliverpick/resolver"
	"github.com/mlabns/sliverpick/store"
	"github.com/mlabns/sliverpick/store/boltstore"
	"github.com/mlabns/sliverpick/telemetry"
)

// Option is an option used to customize the behavior of a Selector.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

type options struct {
	logger     *zap.Logger
	cache      provider.Cache
	rand       resolver.Rand
	registerer prometheus.Registerer
	metrics    bool
}

// WithLogger configures the logger used by the selector and everything
// it builds. If not specified, logging is disabled.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *options) {
		opts.logger = logger
	})
}

// WithCache attaches an advisory tool cache consulted before the store.
// Entries must be complete unfiltered candidate sets per tool ID; the
// external registration path is responsible for populating them.
func WithCache(c provider.Cache) Option {
	return optionFunc(func(opts *options) {
		opts.cache = c
	})
}

// WithRand configures the source of randomness used for random selection
// and tie-breaking. If not specified, a seeded concurrency-safe source
// is used. Supplying a fixed-sequence source makes selection
// deterministic, which is useful in tests.
func WithRand(r resolver.Rand) Option {
	return optionFunc(func(opts *options) {
		opts.rand = r
	})
}

// WithMetrics enables Prometheus instrumentation, registering the core's
// collectors with registerer. A nil registerer uses
// prometheus.DefaultRegisterer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return optionFunc(func(opts *options) {
		opts.registerer = registerer
		opts.metrics = true
	})
}

// Selector answers lookup queries by dispatching them to the policy
// resolver named by each query. It is safe for concurrent use.
type Selector struct {
	deps    resolver.Deps
	logger  *zap.Logger
	metrics *telemetry.Metrics

	// ownedStore is non-nil when the selector opened the store itself
	// (NewFromConfig) and is responsible for closing it.
	ownedStore *boltstore.Store
}

// New creates a Selector reading candidates from st.
func New(st store.Store, opts ...Option) *Selector {
	var o options
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.rand == nil {
		o.rand = resolver.NewRand()
	}

	var metrics *telemetry.Metrics
	if o.metrics {
		metrics = telemetry.New(o.registerer)
	}

	providerOpts := []provider.Option{
		provider.WithLogger(o.logger),
		provider.WithMetrics(metrics),
	}
	if o.cache != nil {
		providerOpts = append(providerOpts, provider.WithCache(o.cache))
	}

	return &Selector{
		deps: resolver.Deps{
			Provider: provider.New(st, providerOpts...),
			Sites:    st,
			Logger:   o.logger,
			Metrics:  metrics,
			Rand:     o.rand,
		},
		logger:  o.logger,
		metrics: metrics,
	}
}

// NewFromConfig opens the configured bbolt store, builds the tool cache
// when the configured TTL is nonzero, and returns a Selector owning
// both. Close the Selector to release the store.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Selector, error) {
	st, err := boltstore.Open(cfg.StorePath, &boltstore.Options{
		Timeout:    cfg.StoreTimeout(),
		MaxResults: cfg.MaxFetchedResults,
	})
	if err != nil {
		return nil, fmt.Errorf("open backing store: %w", err)
	}
	if cfg.CacheTTL() > 0 {
		opts = append(opts, WithCache(cache.New(cfg.CacheTTL())))
	}
	selector := New(st, opts...)
	selector.ownedStore = st
	return selector, nil
}

// Close releases resources the selector owns. It is a no-op for
// selectors built with New.
func (s *Selector) Close() error {
	if s.ownedStore == nil {
		return nil
	}
	return s.ownedStore.Close()
}

// Lookup answers one query with the policy it names. Unrecognized
// policies resolve with the random policy. The error is
// lookup.ErrNoCandidates when nothing matches, lookup.ErrInvalidQuery
// when a policy-required field is missing, and anything else only for a
// backend failure.
func (s *Selector) Lookup(ctx context.Context, query *lookup.Query) (*lookup.Answer, error) {
	start := time.Now()
	answer, err := s.lookup(ctx, query)
	s.metrics.ObserveLookup(query.Policy, time.Since(start), err)
	return answer, err
}

func (s *Selector) lookup(ctx context.Context, query *lookup.Query) (*lookup.Answer, error) {
	if query.ToolID == "" {
		return nil, fmt.Errorf("%w: tool ID is required", lookup.ErrInvalidQuery)
	}
	answer, err := resolver.New(query.Policy, s.deps).Resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("lookup answered",
		zap.String("tool", query.ToolID),
		zap.String("policy", string(query.Policy)),
		zap.Int("results", len(answer.Tools)),
		zap.Int("distance_km", answer.DistanceKM))
	return answer, nil
}
