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

package internal

import (
	"hash/maphash"
	"math/rand"
)

// NewRand returns a properly seeded *rand.Rand. The seed is computed with
// the "hash/maphash" package, which is lock-free and usable concurrently,
// so seeding avoids the global rand's synchronization overhead.
//
// The returned value is not safe for concurrent use; callers that share
// one across goroutines must synchronize access themselves.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(randomSeed())) //nolint:gosec // tie-breaking does not need cryptographic RNG
}

// randomSeed generates a high-quality seed for new *rand.Rand instances
// using the runtime's internal per-thread RNG.
func randomSeed() int64 {
	var hash maphash.Hash
	return int64(hash.Sum64())
}
