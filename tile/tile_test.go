/*
 *	Copyright 2023 The Halide-Go Authors.
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package tile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnumerateSlideSuppressesTrivialTuples(t *testing.T) {
	candidates := Enumerate([]int64{8, 1}, false)
	for _, c := range candidates {
		isAllOnes := c[0] == 1 && c[1] == 1
		isAllFull := c[0] == 8 && c[1] == 1
		require.False(t, isAllOnes)
		require.False(t, isAllFull)
	}
	// dimension 1 has extent 1, so its only candidate factor is 1; the only
	// non-trivial combination left is dimension 0's full extent, which is
	// also the all-full tuple and gets suppressed too.
	require.Empty(t, candidates)
}

func TestEnumerateSlideTwoCandidatesPerDim(t *testing.T) {
	candidates := Enumerate([]int64{4, 4}, false)
	require.NotEmpty(t, candidates)
	for _, c := range candidates {
		for _, f := range c {
			require.Contains(t, []int64{1, 4}, f)
		}
	}
}

func TestEnumerateSplitStopsAtParallelismFloor(t *testing.T) {
	// At extent 64 the two candidate factor 8 (implying an inner extent of
	// 8, below the floor of 16) is reachable from either walk. The
	// outermost dimension's floor check suppresses it from the outer-doubles
	// walk, and since the inner-doubles walk breaks exactly at that same
	// point (without adding it either — the break check runs before add),
	// factor 8 is absent entirely for the outermost dimension but present
	// for any other dimension, which carries no floor check at all.
	outermost := splitFactors(64, true)
	other := splitFactors(64, false)
	require.NotContains(t, outermost, int64(8))
	require.Contains(t, other, int64(8))
}

func TestEnumerateSplitNeverExceedsExtent(t *testing.T) {
	candidates := Enumerate([]int64{100, 100}, true)
	for _, c := range candidates {
		for _, f := range c {
			require.LessOrEqual(t, f, int64(100))
			require.Greater(t, f, int64(0))
		}
	}
}
