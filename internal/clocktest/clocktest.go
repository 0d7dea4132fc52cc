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

// Package clocktest adapts clockwork fake clocks to the internal.Clock
// interface so tests can drive TTL expiry without sleeping.
package clocktest

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mlabns/sliverpick/internal"
)

// FakeClock is a clock that can be manually advanced through time.
type FakeClock interface {
	internal.Clock
	Advance(d time.Duration)
}

// NewFakeClock creates a new FakeClock using clockwork.
func NewFakeClock() FakeClock {
	return clockwork.NewFakeClock()
}
