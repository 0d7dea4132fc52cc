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

	"github.com/mlabns/sliverpick/lookup"
	"github.com/mlabns/sliverpick/sliver"
)

// randomResolver selects one candidate uniformly at random. It also
// serves as the fallback for unrecognized policy values.
type randomResolver struct {
	base
}

func (r *randomResolver) Resolve(ctx context.Context, query *lookup.Query) (*lookup.Answer, error) {
	tools, err := r.candidates(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(tools) == 0 {
		return nil, notFound(query)
	}
	return &lookup.Answer{Tools: []sliver.Tool{r.pickOne(tools)}}, nil
}
