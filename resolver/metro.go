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

package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mlabns/sliverpick/lookup"
	"github.com/mlabns/sliverpick/sliver"
)

// metroResolver selects a random tool hosted at one of the sites in the
// requested metro. The site restriction is pushed into the candidate
// fetch rather than applied after it.
//
// Metro queries never fall back to the other address family: a
// metro-restricted lookup that finds nothing on the requested family is
// "not found" rather than a silent family switch.
type metroResolver struct {
	base
}

func (r *metroResolver) Resolve(ctx context.Context, query *lookup.Query) (*lookup.Answer, error) {
	if query.Metro == "" {
		return nil, fmt.Errorf("%w: metro is required by the metro policy", lookup.ErrInvalidQuery)
	}
	if r.sites == nil {
		return nil, fmt.Errorf("metro policy requires a site finder")
	}

	sites, err := r.sites.FetchSitesByMetro(ctx, query.Metro)
	if err != nil {
		return nil, fmt.Errorf("fetch sites for metro %q: %w", query.Metro, err)
	}
	if len(sites) == 0 {
		r.logger.Debug("no sites in metro", zap.String("metro", query.Metro))
		return nil, fmt.Errorf("%w: no site in metro %q", lookup.ErrNoCandidates, query.Metro)
	}
	siteIDs := make([]string, len(sites))
	for i, site := range sites {
		siteIDs[i] = site.SiteID
	}

	family := query.Family
	if family == "" {
		family = sliver.FamilyIPv4
	}
	tools, err := r.provider.FetchByToolAndFamily(ctx, query.ToolID, family, siteIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates for tool %q: %w", query.ToolID, err)
	}
	if len(tools) == 0 {
		return nil, notFound(query)
	}
	return &lookup.Answer{Tools: []sliver.Tool{r.pickOne(tools)}}, nil
}
