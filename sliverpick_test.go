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

package sliverpick_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlabns/sliverpick"
	"github.com/mlabns/sliverpick/cache"
	"github.com/mlabns/sliverpick/config"
	"github.com/mlabns/sliverpick/lookup"
	"github.com/mlabns/sliverpick/sliver"
	"github.com/mlabns/sliverpick/store/boltstore"
)

func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sliverpick.db")
	st, err := boltstore.Open(path, nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, st.Close())
	}()

	tools := []sliver.Tool{
		{
			ToolID: "ndt", SiteID: "lga01", FQDN: "ndt.lga01.example.net", Country: "US",
			Latitude: 40.7, Longitude: -73.9,
			StatusIPv4: sliver.StatusOnline, StatusIPv6: sliver.StatusOnline,
		},
		{
			ToolID: "ndt", SiteID: "ams01", FQDN: "ndt.ams01.example.net", Country: "NL",
			Latitude: 52.3, Longitude: 4.9,
			StatusIPv4: sliver.StatusOnline, StatusIPv6: sliver.StatusOffline,
		},
	}
	for _, tool := range tools {
		require.NoError(t, st.PutTool(tool))
	}
	sites := []sliver.Site{
		{SiteID: "lga01", Metro: "lga", Latitude: 40.7, Longitude: -73.9},
		{SiteID: "ams01", Metro: "ams", Latitude: 52.3, Longitude: 4.9},
	}
	for _, site := range sites {
		require.NoError(t, st.PutSite(site))
	}
	return path
}

func TestSelectorEndToEnd(t *testing.T) {
	t.Parallel()

	path := seedStore(t)
	st, err := boltstore.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, st.Close())
	})

	selector := sliverpick.New(st,
		sliverpick.WithCache(cache.New(30*time.Minute)),
		sliverpick.WithMetrics(prometheus.NewRegistry()),
	)
	ctx := context.Background()

	t.Run("geo picks the closest site", func(t *testing.T) {
		answer, err := selector.Lookup(ctx, &lookup.Query{
			ToolID:   "ndt",
			Policy:   lookup.PolicyGeo,
			Family:   sliver.FamilyIPv4,
			Location: &lookup.Location{Latitude: 52.0, Longitude: 4.0},
		})
		require.NoError(t, err)
		require.Len(t, answer.Tools, 1)
		assert.Equal(t, "ams01", answer.Tools[0].SiteID)
		assert.Positive(t, answer.DistanceKM)
	})

	t.Run("metro restricts to the requested metro", func(t *testing.T) {
		answer, err := selector.Lookup(ctx, &lookup.Query{
			ToolID: "ndt",
			Policy: lookup.PolicyMetro,
			Family: sliver.FamilyIPv4,
			Metro:  "lga",
		})
		require.NoError(t, err)
		require.Len(t, answer.Tools, 1)
		assert.Equal(t, "lga01", answer.Tools[0].SiteID)
	})

	t.Run("country filters exactly", func(t *testing.T) {
		answer, err := selector.Lookup(ctx, &lookup.Query{
			ToolID:  "ndt",
			Policy:  lookup.PolicyCountry,
			Family:  sliver.FamilyIPv4,
			Country: "NL",
		})
		require.NoError(t, err)
		require.Len(t, answer.Tools, 1)
		assert.Equal(t, "ams01", answer.Tools[0].SiteID)
	})

	t.Run("all returns every candidate", func(t *testing.T) {
		answer, err := selector.Lookup(ctx, &lookup.Query{
			ToolID: "ndt",
			Policy: lookup.PolicyAll,
			Family: sliver.FamilyIPv4,
		})
		require.NoError(t, err)
		assert.Len(t, answer.Tools, 2)
	})

	t.Run("unknown policy resolves like random", func(t *testing.T) {
		answer, err := selector.Lookup(ctx, &lookup.Query{
			ToolID: "ndt",
			Policy: lookup.Policy("mystery"),
			Family: sliver.FamilyIPv4,
		})
		require.NoError(t, err)
		assert.Len(t, answer.Tools, 1)
	})

	t.Run("unknown tool is not found", func(t *testing.T) {
		_, err := selector.Lookup(ctx, &lookup.Query{
			ToolID: "paris-traceroute",
			Policy: lookup.PolicyRandom,
			Family: sliver.FamilyIPv4,
		})
		assert.ErrorIs(t, err, lookup.ErrNoCandidates)
	})

	t.Run("missing tool id is invalid", func(t *testing.T) {
		_, err := selector.Lookup(ctx, &lookup.Query{Policy: lookup.PolicyRandom})
		assert.ErrorIs(t, err, lookup.ErrInvalidQuery)
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	path := seedStore(t)
	selector, err := sliverpick.NewFromConfig(&config.Config{
		StorePath:         path,
		StoreTimeoutMS:    config.DefaultStoreTimeoutMS,
		MaxFetchedResults: config.DefaultMaxFetchedResults,
		CacheTTLSeconds:   config.DefaultCacheTTLSeconds,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, selector.Close())
	})

	answer, err := selector.Lookup(context.Background(), &lookup.Query{
		ToolID: "ndt",
		Policy: lookup.PolicyRandom,
		Family: sliver.FamilyIPv6,
	})
	require.NoError(t, err)
	require.Len(t, answer.Tools, 1)
	assert.Equal(t, "lga01", answer.Tools[0].SiteID, "only lga01 is online on ipv6")
}
