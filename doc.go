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

// Package sliverpick is the server-selection core of a geographically
// aware name-resolution service. Given a lookup request for a named
// measurement tool, it chooses one or more candidate backend instances
// ("sliver tools") according to a pluggable selection policy: closest by
// geography, top closest distinct sites, metro-restricted,
// country-restricted, random, or return-all.
//
// To create a new selector use the [New] function with a backing
// [store.Store] (typically [store/boltstore]), or [NewFromConfig] to
// build the store and cache from a [config.Config]. The returned
// Selector answers queries via its Lookup method, which dispatches to
// the policy named by the query.
//
// The core performs no network I/O and holds no per-request mutable
// state: one Selector safely serves any number of concurrent lookups.
// Response formatting, client geolocation and request routing belong to
// the calling layer.
package sliverpick
