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

// Package provider implements the two-tier candidate lookup: an advisory
// in-memory cache is consulted first and filtered in memory; on a miss
// the backing store is queried with the predicates pushed down.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mlabns/sliverpick/cache"
	"github.com/mlabns/sliverpick/internal"
	"github.com/mlabns/sliverpick/sliver"
	"github.com/mlabns/sliverpick/store"
	"github.com/mlabns/sliverpick/telemetry"
)

// Cache is the advisory cache boundary. Entries, when present, are the
// complete unfiltered candidate set for a tool ID. Get returns
// cache.ErrMiss when no entry exists; any other error is treated as a
// cache outage and degrades silently to the store path.
type Cache interface {
	Get(toolID string) ([]sliver.Tool, error)
}

// Option configures a ToolProvider.
type Option interface {
	apply(*ToolProvider)
}

type optionFunc func(*ToolProvider)

func (f optionFunc) apply(p *ToolProvider) {
	f(p)
}

// WithCache attaches an advisory cache. Without one, every fetch goes to
// the store.
func WithCache(c Cache) Option {
	return optionFunc(func(p *ToolProvider) {
		p.cache = c
	})
}

// WithLogger attaches a logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(p *ToolProvider) {
		if logger != nil {
			p.logger = logger
		}
	})
}

// WithMetrics attaches telemetry collectors.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return optionFunc(func(p *ToolProvider) {
		p.metrics = metrics
	})
}

// ToolProvider fetches candidate sliver tools, cache first, store on
// miss. It holds no mutable state besides the singleflight group and is
// safe for concurrent use.
type ToolProvider struct {
	store   store.Store
	cache   Cache
	logger  *zap.Logger
	metrics *telemetry.Metrics
	clock   internal.Clock
	group   singleflight.Group
}

// New creates a provider backed by st.
func New(st store.Store, opts ...Option) *ToolProvider {
	p := &ToolProvider{
		store:  st,
		logger: zap.NewNop(),
		clock:  internal.NewRealClock(),
	}
	for _, opt := range opts {
		opt.apply(p)
	}
	return p
}

// FetchByToolAndFamily returns the sliver tools of toolID that are online
// on the given address family, optionally restricted to the siteIDs
// allowlist (nil means unrestricted). An empty result is not an error;
// an error means the backing store failed.
func (p *ToolProvider) FetchByToolAndFamily(
	ctx context.Context,
	toolID string,
	family sliver.Family,
	siteIDs []string,
) ([]sliver.Tool, error) {
	criteria := store.ToolCriteria{
		ToolID:  toolID,
		Status:  sliver.StatusOnline,
		Family:  family,
		SiteIDs: siteIDs,
	}

	if tools, ok := p.fromCache(criteria); ok {
		return tools, nil
	}
	return p.fromStore(ctx, criteria)
}

// fromCache filters a cached candidate set in memory. The second return
// value reports whether the cache could answer at all; a miss or a cache
// outage both fall through to the store.
func (p *ToolProvider) fromCache(criteria store.ToolCriteria) ([]sliver.Tool, bool) {
	if p.cache == nil {
		return nil, false
	}
	cached, err := p.cache.Get(criteria.ToolID)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			p.metrics.CacheLookup("miss")
		} else {
			// The cache is advisory, never authoritative.
			p.metrics.CacheLookup("error")
			p.logger.Warn("tool cache lookup failed, falling back to store",
				zap.String("tool", criteria.ToolID),
				zap.Error(err))
		}
		return nil, false
	}
	p.metrics.CacheLookup("hit")

	var tools []sliver.Tool
	for _, tool := range cached {
		if criteria.Matches(tool) {
			tools = append(tools, tool)
		}
	}
	p.logger.Debug("answered candidate fetch from cache",
		zap.String("tool", criteria.ToolID),
		zap.Int("cached", len(cached)),
		zap.Int("matching", len(tools)))
	return tools, true
}

// fromStore queries the backing store with the predicates pushed down.
// Concurrent identical fetches are collapsed into one store query. The
// shared query runs detached from any single caller's cancellation, so
// one caller giving up cannot fail the others; each caller still stops
// waiting as soon as its own context is done.
func (p *ToolProvider) fromStore(ctx context.Context, criteria store.ToolCriteria) ([]sliver.Tool, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(criteriaKey(criteria), func() (any, error) {
		start := p.clock.Now()
		tools, err := p.store.FetchTools(fetchCtx, criteria)
		p.metrics.ObserveStoreFetch(p.clock.Since(start))
		return tools, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("fetch tools from store: %w", res.Err)
		}
		tools := res.Val.([]sliver.Tool)
		p.logger.Debug("answered candidate fetch from store",
			zap.String("tool", criteria.ToolID),
			zap.Int("matching", len(tools)))
		return tools, nil
	}
}

func criteriaKey(criteria store.ToolCriteria) string {
	var b strings.Builder
	b.WriteString(criteria.ToolID)
	b.WriteByte('|')
	b.WriteString(string(criteria.Family))
	b.WriteByte('|')
	b.WriteString(string(criteria.Status))
	if criteria.SiteIDs != nil {
		b.WriteByte('|')
		b.WriteString(strings.Join(criteria.SiteIDs, ","))
	}
	return b.String()
}
