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
	"math"

	"go.uber.org/zap"

	"github.com/mlabns/sliverpick/geomath"
	"github.com/mlabns/sliverpick/lookup"
	"github.com/mlabns/sliverpick/sliver"
)

// geoResolver selects the candidate whose site is closest to the
// client's coordinates, randomizing among exact-distance ties.
type geoResolver struct {
	base
}

func (r *geoResolver) Resolve(ctx context.Context, query *lookup.Query) (*lookup.Answer, error) {
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

	// Distances are memoized per site: co-hosted tools share coordinates,
	// and recomputing would make the exact-equality tie test fragile.
	distances := make(map[string]float64)
	minDistance := math.Inf(1)
	var closest []sliver.Tool
	for _, tool := range tools {
		d, ok := distances[tool.SiteID]
		if !ok {
			d = geomath.DistanceKM(
				query.Location.Latitude, query.Location.Longitude,
				tool.Latitude, tool.Longitude)
			distances[tool.SiteID] = d
		}
		switch {
		case d < minDistance:
			minDistance = d
			closest = append(closest[:0], tool)
		case d == minDistance:
			closest = append(closest, tool)
		}
	}

	return &lookup.Answer{
		Tools:      []sliver.Tool{r.pickOne(closest)},
		DistanceKM: int(math.Ceil(minDistance)),
	}, nil
}

// usableLocation reports whether loc carries coordinates that distances
// can be computed from. Non-finite coordinates make every distance NaN,
// so they count as no location at all.
func usableLocation(loc *lookup.Location) bool {
	if loc == nil {
		return false
	}
	finite := func(f float64) bool {
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return finite(loc.Latitude) && finite(loc.Longitude)
}

// degradedPick answers a geo query that carries no client coordinates:
// geography cannot be evaluated, so one candidate is chosen at random.
func (b *base) degradedPick(query *lookup.Query, tools []sliver.Tool) sliver.Tool {
	b.logger.Warn("no client geolocation, selecting a sliver tool at random",
		zap.String("tool", query.ToolID))
	b.metrics.DegradedSelection()
	return b.pickOne(tools)
}
