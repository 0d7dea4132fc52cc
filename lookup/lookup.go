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

// Package lookup defines the request and response types of the selection
// core: the per-request Query, the selection Policy it names, and the
// Answer a resolver produces.
package lookup

import (
	"errors"

	"github.com/mlabns/sliverpick/sliver"
)

// Errors returned by resolvers. Both describe expected outcomes of a
// well-behaved system, not faults: callers distinguish them from backend
// failures with errors.Is.
var (
	// ErrNoCandidates indicates that no sliver tool satisfies the query.
	ErrNoCandidates = errors.New("no sliver tool matches the query")

	// ErrInvalidQuery indicates that a field required by the requested
	// policy is missing. It is returned without consulting the backend.
	ErrInvalidQuery = errors.New("invalid lookup query")
)

// Policy names a server-selection strategy.
type Policy string

const (
	// PolicyGeo selects the tool closest to the client's coordinates.
	PolicyGeo Policy = "geo"
	// PolicyGeoOptions returns one tool for each of the closest distinct
	// sites, nearest first.
	PolicyGeoOptions Policy = "geo_options"
	// PolicyMetro selects a random tool hosted in the requested metro.
	PolicyMetro Policy = "metro"
	// PolicyCountry selects a random tool in the requested country.
	PolicyCountry Policy = "country"
	// PolicyRandom selects a random tool.
	PolicyRandom Policy = "random"
	// PolicyAll returns every candidate tool.
	PolicyAll Policy = "all"
)

// Location is a client geolocation in decimal degrees.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Query describes one lookup request. A Query is constructed per incoming
// request, consumed by exactly one resolver invocation, and never mutated
// by the resolver.
type Query struct {
	// ToolID names the measurement tool being looked up. Required.
	ToolID string

	// Policy selects the resolution strategy. Unrecognized values resolve
	// with the random policy.
	Policy Policy

	// Family is the requested address family. When empty the core treats
	// the query as IPv4 with fallback to IPv6 permitted.
	Family sliver.Family

	// UserDefinedFamily records whether the client forced the address
	// family. When false, an empty candidate set triggers one retry with
	// the opposite family; when true the requested family is never
	// substituted.
	UserDefinedFamily bool

	// Location is the client's geolocation, or nil when unknown. Only the
	// geo policies consult it.
	Location *Location

	// Metro restricts selection to sites in a metro. Required by the
	// metro policy, ignored by the others.
	Metro string

	// Country restricts selection to tools in a country, matched exactly.
	// Required by the country policy, ignored by the others.
	Country string
}

// Answer is a successful resolution: an ordered, non-empty list of tools.
type Answer struct {
	// Tools holds the selected tools. For the geo, metro, country and
	// random policies it has exactly one element; geo_options returns up
	// to four, closest first; all returns the full candidate set.
	Tools []sliver.Tool

	// DistanceKM is the distance from the client to the selected site,
	// rounded up to the next whole kilometer. It is set only by the geo
	// policy when client coordinates were available, and is zero
	// otherwise. It replaces the side-channel the original system used
	// for request logging.
	DistanceKM int
}
