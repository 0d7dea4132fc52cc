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

	"github.com/mlabns/sliverpick/lookup"
	"github.com/mlabns/sliverpick/sliver"
)

// countryResolver selects a random tool among the candidates whose
// country exactly equals the requested one (case-sensitive).
type countryResolver struct {
	base
}

func (r *countryResolver) Resolve(ctx context.Context, query *lookup.Query) (*lookup.Answer, error) {
	if query.Country == "" {
		return nil, fmt.Errorf("%w: country is required by the country policy", lookup.ErrInvalidQuery)
	}

	tools, err := r.candidates(ctx, query)
	if err != nil {
		return nil, err
	}
	var matching []sliver.Tool
	for _, tool := range tools {
		if tool.Country == query.Country {
			matching = append(matching, tool)
		}
	}
	if len(matching) == 0 {
		return nil, fmt.Errorf("%w: tool %q in country %q", lookup.ErrNoCandidates, query.ToolID, query.Country)
	}
	return &lookup.Answer{Tools: []sliver.Tool{r.pickOne(matching)}}, nil
}
