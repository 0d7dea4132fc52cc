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

// Package resolver implements the selection policies of the lookup core.
// Each policy is a Resolver built on a shared candidate-acquisition base;
// the New factory maps any policy value to a resolver, defaulting to the
// random policy for unrecognized values.
//
// Resolvers hold no mutable state across invocations, so one resolver
// may serve any number of concurrent lookups.
package resolver

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/mlabns/sliverpick/internal"
	"github.com/mlabns/sliverpick/lookup"
	"github.com/mlabns/sliverpick/sliver"
	"github.com/mlabns/sliverpick/telemetry"
)

// Resolver answers lookup queries according to one selection policy.
type Resolver interface {
	// Resolve selects candidate tools for the query. It returns
	// lookup.ErrNoCandidates when nothing matches, lookup.ErrInvalidQuery
	// when a policy-required field is missing, and any other error only
	// for a backend failure.
	Resolve(ctx context.Context, query *lookup.Query) (*lookup.Answer, error)
}

// CandidateProvider supplies the candidate tools a policy selects from.
// An empty result is "no match", not an error.
type CandidateProvider interface {
	FetchByToolAndFamily(ctx context.Context, toolID string, family sliver.Family, siteIDs []string) ([]sliver.Tool, error)
}

// SiteFinder looks up sites by metro tag. Only the metro policy uses it.
type SiteFinder interface {
	FetchSitesByMetro(ctx context.Context, metro string) ([]sliver.Site, error)
}

// Rand is the source of randomness used for tie-breaking and random
// selection. Implementations must be safe for concurrent use.
type Rand interface {
	// IntN returns a uniformly distributed int in [0, n). n must be > 0.
	IntN(n int) int
}

// Deps carries the collaborators shared by every policy resolver. Logger,
// Metrics and Rand are optional; Sites is required only by the metro
// policy.
type Deps struct {
	Provider CandidateProvider
	Sites    SiteFinder
	Logger   *zap.Logger
	Metrics  *telemetry.Metrics
	Rand     Rand
}

// New returns the resolver for the given policy. It is total: an
// unrecognized policy value yields the random resolver rather than an
// error.
func New(policy lookup.Policy, deps Deps) Resolver {
	b := newBase(deps)
	switch policy {
	case lookup.PolicyGeo:
		return &geoResolver{base: b}
	case lookup.PolicyGeoOptions:
		return &geoOptionsResolver{base: b}
	case lookup.PolicyMetro:
		return &metroResolver{base: b}
	case lookup.PolicyCountry:
		return &countryResolver{base: b}
	case lookup.PolicyAll:
		return &allResolver{base: b}
	case lookup.PolicyRandom:
		return &randomResolver{base: b}
	default:
		return &randomResolver{base: b}
	}
}

// base provides candidate acquisition with address-family fallback, plus
// the shared selection helpers.
type base struct {
	provider CandidateProvider
	sites    SiteFinder
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	rand     Rand
}

func newBase(deps Deps) base {
	b := base{
		provider: deps.Provider,
		sites:    deps.Sites,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		rand:     deps.Rand,
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.rand == nil {
		b.rand = NewRand()
	}
	return b
}

// candidates fetches the query's candidate set for its address family.
// If the family was not forced by the client and nothing is online on
// it, the fetch is retried once with the opposite family; a family the
// client explicitly demanded is never substituted. A query without a
// family is treated as IPv4 with fallback permitted.
func (b *base) candidates(ctx context.Context, query *lookup.Query) ([]sliver.Tool, error) {
	family := query.Family
	forced := query.UserDefinedFamily
	if family == "" {
		family = sliver.FamilyIPv4
		forced = false
	}

	tools, err := b.provider.FetchByToolAndFamily(ctx, query.ToolID, family, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates for tool %q: %w", query.ToolID, err)
	}
	if len(tools) > 0 || forced {
		return tools, nil
	}

	other := family.Other()
	b.logger.Debug("no candidates on requested family, retrying the other",
		zap.String("tool", query.ToolID),
		zap.String("requested", string(family)),
		zap.String("fallback", string(other)))
	tools, err = b.provider.FetchByToolAndFamily(ctx, query.ToolID, other, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates for tool %q: %w", query.ToolID, err)
	}
	return tools, nil
}

// pickOne returns one tool chosen uniformly at random.
func (b *base) pickOne(tools []sliver.Tool) sliver.Tool {
	return tools[b.rand.IntN(len(tools))]
}

func notFound(query *lookup.Query) error {
	return fmt.Errorf("%w: tool %q", lookup.ErrNoCandidates, query.ToolID)
}

// NewRand returns the default Rand: a maphash-seeded source guarded by a
// mutex so one resolver can serve concurrent lookups.
func NewRand() Rand {
	return &lockedRand{rand: internal.NewRand()}
}

type lockedRand struct {
	mu   sync.Mutex
	rand *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rand.Intn(n)
}
