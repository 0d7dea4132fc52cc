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

// Package store defines the boundary to the persistent entity store the
// selection core reads candidates from. Implementations must return an
// empty list, not an error, for "no match"; an error always means a
// genuine backend failure.
package store

import (
	"context"

	"github.com/mlabns/sliverpick/sliver"
)

// ToolCriteria is the predicate pushed down to a store query for sliver
// tools. The zero value of an optional field disables that predicate.
type ToolCriteria struct {
	// ToolID selects the measurement tool. Required.
	ToolID string

	// Status, when set, restricts results to tools with that status on
	// the address family given by Family. An empty Family matches the
	// status on either family.
	Status sliver.Status

	// Family scopes the Status predicate to one address family.
	Family sliver.Family

	// SiteIDs, when non-nil, is an allowlist of site IDs. A non-nil empty
	// slice matches nothing.
	SiteIDs []string

	// Country, when set, restricts results to tools whose country equals
	// it exactly (case-sensitive).
	Country string
}

// Matches reports whether the tool satisfies every predicate of the
// criteria. It is used both by stores that filter while scanning and by
// the provider when filtering cached candidate sets in memory.
func (c ToolCriteria) Matches(tool sliver.Tool) bool {
	if tool.ToolID != c.ToolID {
		return false
	}
	if c.Status != "" && !c.statusMatches(tool) {
		return false
	}
	if c.SiteIDs != nil && !containsString(c.SiteIDs, tool.SiteID) {
		return false
	}
	if c.Country != "" && tool.Country != c.Country {
		return false
	}
	return true
}

func (c ToolCriteria) statusMatches(tool sliver.Tool) bool {
	if c.Family == "" {
		return tool.StatusIPv4 == c.Status || tool.StatusIPv6 == c.Status
	}
	return tool.StatusFor(c.Family) == c.Status
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Store is the persistent entity store boundary. Both methods bound their
// result sets by an implementation-configured maximum to keep pathological
// data from producing unbounded results.
type Store interface {
	// FetchTools returns the sliver tools matching the criteria.
	FetchTools(ctx context.Context, criteria ToolCriteria) ([]sliver.Tool, error)

	// FetchSitesByMetro returns the sites whose metro tag equals metro.
	FetchSitesByMetro(ctx context.Context, metro string) ([]sliver.Site, error)
}
