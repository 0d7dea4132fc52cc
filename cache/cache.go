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

// Package cache provides the advisory in-memory tool cache consulted by
// the candidate provider before the backing store. An entry, when
// present, is always the complete unfiltered candidate set for its tool
// ID; filtering by address family or site happens in the provider.
//
// The cache is populated by the external registration path, never by the
// provider, so a stale or missing entry only costs a store round trip.
package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/mlabns/sliverpick/internal"
	"github.com/mlabns/sliverpick/sliver"
)

// ErrMiss is returned by Get when no live entry exists for a tool ID.
var ErrMiss = errors.New("tool not present in cache")

// ToolCache is a TTL-bounded map from tool ID to that tool's complete
// candidate set. It is safe for concurrent use.
type ToolCache struct {
	ttl   time.Duration
	clock internal.Clock

	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	tools []sliver.Tool
	exp   time.Time
}

// New creates a cache whose entries expire ttl after they are stored.
func New(ttl time.Duration) *ToolCache {
	return newWithClock(ttl, internal.NewRealClock())
}

func newWithClock(ttl time.Duration, clock internal.Clock) *ToolCache {
	return &ToolCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]entry),
	}
}

// Get returns the cached candidate set for toolID, or ErrMiss if the
// entry is absent or expired. Expired entries are removed lazily on
// lookup. Callers must treat the returned slice as read-only.
func (c *ToolCache) Get(toolID string) ([]sliver.Tool, error) {
	now := c.clock.Now()

	c.mu.RLock()
	e, ok := c.entries[toolID]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if now.After(e.exp) {
		c.remove(toolID, e.exp)
		return nil, ErrMiss
	}
	return e.tools, nil
}

// Put stores the complete candidate set for toolID, replacing any
// existing entry and restarting its TTL.
func (c *ToolCache) Put(toolID string, tools []sliver.Tool) {
	e := entry{tools: tools, exp: c.clock.Now().Add(c.ttl)}
	c.mu.Lock()
	c.entries[toolID] = e
	c.mu.Unlock()
}

// remove deletes the entry for toolID unless it was refreshed since the
// expiry we observed.
func (c *ToolCache) remove(toolID string, exp time.Time) {
	c.mu.Lock()
	if e, ok := c.entries[toolID]; ok && e.exp.Equal(exp) {
		delete(c.entries, toolID)
	}
	c.mu.Unlock()
}
