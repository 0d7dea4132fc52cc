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
	"sort"

	"github.com/mlabns/sliverpick/geomath"
	"github.com/mlabns/sliverpick/lookup"
	"github.com/mlabns/sliverpick/sliver"
)

// geoOptionCount is the maximum number of distinct sites returned by the
// geo_options policy.
const geoOptionCount = 4

// geoOptionsResolver returns one tool per site for the closest distinct
// sites, nearest first. Binning by site before ranking keeps a site with
// many co-hosted tools from crowding out genuinely distinct locations.
type geoOptionsResolver struct {
	base
}

func (r *geoOptionsResolver) Resolve(ctx context.Context, query *lookup.Query) (*lookup.Answer, error) {
	tools, err := r.candidates(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(tools) == 0 {
		return nil, notFound(query)
	}
	if !usableLocation(query.Location) {
		return &lookup.Answer{Tools: []sliver.Tool{r.degradedPick(query, tools)}}, nil
	}

	// Bin candidates by site, keeping first-appearance order.
	bins := make(map[string][]sliver.Tool)
	var siteIDs []string
	for _, tool := range tools {
		if _, ok := bins[tool.SiteID]; !ok {
			siteIDs = append(siteIDs, tool.SiteID)
		}
		bins[tool.SiteID] = append(bins[tool.SiteID], tool)
	}

	// One representative per site, chosen uniformly among the site's
	// interchangeable tools; then rank sites by distance to the client.
	type scored struct {
		tool     sliver.Tool
		distance float64
	}
	representatives := make([]scored, 0, len(siteIDs))
	for _, siteID := range siteIDs {
		bin := bins[siteID]
		tool := r.pickOne(bin)
		representatives = append(representatives, scored{
			tool: tool,
			distance: geomath.DistanceKM(
				query.Location.Latitude, query.Location.Longitude,
				tool.Latitude, tool.Longitude),
		})
	}
	sort.SliceStable(representatives, func(i, j int) bool {
		return representatives[i].distance < representatives[j].distance
	})

	n := geoOptionCount
	if len(representatives) < n {
		n = len(representatives)
	}
	answer := &lookup.Answer{Tools: make([]sliver.Tool, 0, n)}
	for _, rep := range representatives[:n] {
		answer.Tools = append(answer.Tools, rep.tool)
	}
	return answer, nil
}
