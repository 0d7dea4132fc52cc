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

package provider_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlabns/sliverpick/cache"
	"github.com/mlabns/sliverpick/provider"
	"github.com/mlabns/sliverpick/sliver"
	"github.com/mlabns/sliverpick/store"
)

type fakeStore struct {
	mu       sync.Mutex
	criteria []store.ToolCriteria
	tools    []sliver.Tool
	err      error
}

func (f *fakeStore) FetchTools(_ context.Context, criteria store.ToolCriteria) ([]sliver.Tool, error) {
	f.mu.Lock()
	f.criteria = append(f.criteria, criteria)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var tools []sliver.Tool
	for _, tool := range f.tools {
		if criteria.Matches(tool) {
			tools = append(tools, tool)
		}
	}
	return tools, nil
}

func (f *fakeStore) FetchSitesByMetro(context.Context, string) ([]sliver.Site, error) {
	return nil, nil
}

func (f *fakeStore) fetches(t *testing.T) []store.ToolCriteria {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.ToolCriteria(nil), f.criteria...)
}

type failingCache struct{ err error }

func (f failingCache) Get(string) ([]sliver.Tool, error) {
	return nil, f.err
}

var testTools = []sliver.Tool{
	{ToolID: "ndt", SiteID: "lga01", FQDN: "a", StatusIPv4: sliver.StatusOnline, StatusIPv6: sliver.StatusOffline},
	{ToolID: "ndt", SiteID: "lga01", FQDN: "b", StatusIPv4: sliver.StatusOffline, StatusIPv6: sliver.StatusOnline},
	{ToolID: "ndt", SiteID: "ams01", FQDN: "c", StatusIPv4: sliver.StatusOnline, StatusIPv6: sliver.StatusOnline},
}

func TestCacheHitFiltersInMemory(t *testing.T) {
	t.Parallel()

	st := &fakeStore{tools: testTools}
	liveCache := cache.New(time.Minute)
	liveCache.Put("ndt", testTools)

	p := provider.New(st, provider.WithCache(liveCache))
	tools, err := p.FetchByToolAndFamily(context.Background(), "ndt", sliver.FamilyIPv4, nil)
	require.NoError(t, err)
	require.Len(t, tools, 2)
	for _, tool := range tools {
		assert.Equal(t, sliver.StatusOnline, tool.StatusIPv4)
	}
	assert.Empty(t, st.fetches(t), "cache hit must not reach the store")
}

func TestCacheHitHonorsAllowlist(t *testing.T) {
	t.Parallel()

	st := &fakeStore{tools: testTools}
	liveCache := cache.New(time.Minute)
	liveCache.Put("ndt", testTools)

	p := provider.New(st, provider.WithCache(liveCache))
	tools, err := p.FetchByToolAndFamily(context.Background(), "ndt", sliver.FamilyIPv4, []string{"ams01"})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "ams01", tools[0].SiteID)
	assert.Empty(t, st.fetches(t))
}

func TestCacheMissQueriesStore(t *testing.T) {
	t.Parallel()

	st := &fakeStore{tools: testTools}
	p := provider.New(st, provider.WithCache(cache.New(time.Minute)))

	tools, err := p.FetchByToolAndFamily(context.Background(), "ndt", sliver.FamilyIPv6, []string{"ams01"})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "c", tools[0].FQDN)

	fetches := st.fetches(t)
	require.Len(t, fetches, 1)
	assert.Equal(t, store.ToolCriteria{
		ToolID:  "ndt",
		Status:  sliver.StatusOnline,
		Family:  sliver.FamilyIPv6,
		SiteIDs: []string{"ams01"},
	}, fetches[0])
}

func TestNoCacheQueriesStore(t *testing.T) {
	t.Parallel()

	st := &fakeStore{tools: testTools}
	p := provider.New(st)

	tools, err := p.FetchByToolAndFamily(context.Background(), "ndt", sliver.FamilyIPv4, nil)
	require.NoError(t, err)
	assert.Len(t, tools, 2)
	assert.Len(t, st.fetches(t), 1)
}

func TestCacheOutageFallsBackToStore(t *testing.T) {
	t.Parallel()

	st := &fakeStore{tools: testTools}
	p := provider.New(st, provider.WithCache(failingCache{err: errors.New("memcache unreachable")}))

	tools, err := p.FetchByToolAndFamily(context.Background(), "ndt", sliver.FamilyIPv4, nil)
	require.NoError(t, err)
	assert.Len(t, tools, 2)
	assert.Len(t, st.fetches(t), 1)
}

func TestStoreFailurePropagates(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("store unavailable")
	p := provider.New(&fakeStore{err: storeErr})

	_, err := p.FetchByToolAndFamily(context.Background(), "ndt", sliver.FamilyIPv4, nil)
	assert.ErrorIs(t, err, storeErr)
}

func TestEmptyStoreResultIsNotAnError(t *testing.T) {
	t.Parallel()

	p := provider.New(&fakeStore{})
	tools, err := p.FetchByToolAndFamily(context.Background(), "ndt", sliver.FamilyIPv4, nil)
	require.NoError(t, err)
	assert.Empty(t, tools)
}

type blockingStore struct {
	entered chan struct{}
	release chan struct{}
	tools   []sliver.Tool
}

func (b *blockingStore) FetchTools(ctx context.Context, criteria store.ToolCriteria) ([]sliver.Tool, error) {
	b.entered <- struct{}{}
	<-b.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var tools []sliver.Tool
	for _, tool := range b.tools {
		if criteria.Matches(tool) {
			tools = append(tools, tool)
		}
	}
	return tools, nil
}

func (b *blockingStore) FetchSitesByMetro(context.Context, string) ([]sliver.Site, error) {
	return nil, nil
}

func TestCancelledCallerDoesNotFailConcurrentFetch(t *testing.T) {
	t.Parallel()

	st := &blockingStore{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
		tools:   testTools,
	}
	p := provider.New(st)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	firstErr := make(chan error, 1)
	go func() {
		_, err := p.FetchByToolAndFamily(firstCtx, "ndt", sliver.FamilyIPv4, nil)
		firstErr <- err
	}()
	// Wait until the first caller's store query is in flight, then let a
	// second caller attach to it before the first one gives up.
	<-st.entered

	secondDone := make(chan struct{})
	var secondTools []sliver.Tool
	var secondErr error
	go func() {
		defer close(secondDone)
		secondTools, secondErr = p.FetchByToolAndFamily(context.Background(), "ndt", sliver.FamilyIPv4, nil)
	}()
	time.Sleep(10 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(st.release)
	select {
	case <-secondDone:
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}
	require.NoError(t, secondErr)
	assert.Len(t, secondTools, 2)
}
