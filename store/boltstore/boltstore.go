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

// Package boltstore implements the store boundary on an embedded bbolt
// database. Tools live in per-tool-ID sub-buckets keyed by
// "site_id/fqdn"; sites live in a flat bucket keyed by site ID. Values
// are JSON.
//
// The write methods exist for the registration path and for seeding test
// fixtures; the selection core only reads.
package boltstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mlabns/sliverpick/sliver"
	"github.com/mlabns/sliverpick/store"
)

var (
	bucketTools = []byte("tools")
	bucketSites = []byte("sites")
)

// errStopScan terminates a bucket scan early once enough results have
// been collected. It never escapes this package.
var errStopScan = errors.New("stop scan")

// DefaultMaxResults bounds store scans when Options.MaxResults is unset.
const DefaultMaxResults = 500

// Options configures a Store.
type Options struct {
	// Timeout bounds the wait for the bbolt file lock. Defaults to one
	// second.
	Timeout time.Duration

	// MaxResults caps the number of records returned by a single fetch.
	// Defaults to DefaultMaxResults.
	MaxResults int
}

func (o *Options) withDefaults() Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	return opts
}

// Store is a bbolt-backed implementation of store.Store.
type Store struct {
	db         *bolt.DB
	maxResults int
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at path.
func Open(path string, opts *Options) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	options := opts.withDefaults()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: options.Timeout})
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, maxResults: options.MaxResults}, nil
}

func ensureSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketTools, bucketSites} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FetchTools implements store.Store. The scan stops after the configured
// maximum number of matches.
func (s *Store) FetchTools(ctx context.Context, criteria store.ToolCriteria) ([]sliver.Tool, error) {
	if criteria.ToolID == "" {
		return nil, fmt.Errorf("tool criteria: tool ID is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tools []sliver.Tool
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketTools).Bucket([]byte(criteria.ToolID))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(key, value []byte) error {
			var tool sliver.Tool
			if err := json.Unmarshal(value, &tool); err != nil {
				return fmt.Errorf("decode tool %q: %w", key, err)
			}
			if !criteria.Matches(tool) {
				return nil
			}
			tools = append(tools, tool)
			if len(tools) >= s.maxResults {
				return errStopScan
			}
			return nil
		})
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return nil, fmt.Errorf("fetch tools for %q: %w", criteria.ToolID, err)
	}
	return tools, nil
}

// FetchSitesByMetro implements store.Store.
func (s *Store) FetchSitesByMetro(ctx context.Context, metro string) ([]sliver.Site, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sites []sliver.Site
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSites).ForEach(func(key, value []byte) error {
			var site sliver.Site
			if err := json.Unmarshal(value, &site); err != nil {
				return fmt.Errorf("decode site %q: %w", key, err)
			}
			if site.Metro != metro {
				return nil
			}
			sites = append(sites, site)
			if len(sites) >= s.maxResults {
				return errStopScan
			}
			return nil
		})
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return nil, fmt.Errorf("fetch sites for metro %q: %w", metro, err)
	}
	return sites, nil
}

// PutTool inserts or replaces a tool record. The record key is
// "site_id/fqdn", so co-hosted instances of the same tool stay distinct.
func (s *Store) PutTool(tool sliver.Tool) error {
	if tool.ToolID == "" || tool.SiteID == "" {
		return fmt.Errorf("tool record requires tool ID and site ID")
	}
	value, err := json.Marshal(tool)
	if err != nil {
		return fmt.Errorf("encode tool: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.Bucket(bucketTools).CreateBucketIfNotExists([]byte(tool.ToolID))
		if err != nil {
			return fmt.Errorf("create tool bucket %q: %w", tool.ToolID, err)
		}
		return bucket.Put([]byte(tool.SiteID+"/"+tool.FQDN), value)
	})
}

// PutSite inserts or replaces a site record.
func (s *Store) PutSite(site sliver.Site) error {
	if site.SiteID == "" {
		return fmt.Errorf("site record requires a site ID")
	}
	value, err := json.Marshal(site)
	if err != nil {
		return fmt.Errorf("encode site: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSites).Put([]byte(site.SiteID), value)
	})
}
