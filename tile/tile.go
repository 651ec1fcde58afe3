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

// Package tile enumerates candidate tile-factor tuples for a loop extent
// vector.
package tile

// Enumerate returns tile-factor vectors for a loop-extent vector s.
//
// When allowSplits is false (the sliding case), each dimension gets
// exactly two candidates — factor 1 and factor s[i] — combined
// independently; the all-ones and all-full tuples are suppressed as
// trivial.
//
// When allowSplits is true, each dimension is walked as a power-of-two
// "outer doubles" and "inner doubles" sequence, recording factor=outer;
// the outer-doubles walk stops once outer exceeds inner, the inner-doubles
// walk once inner reaches outer. Dimension 0 additionally stops the
// outer-doubles walk once the resulting inner extent would drop below 16
// (the parallelism floor). The all-ones and all-full tuples are suppressed.
func Enumerate(s []int64, allowSplits bool) [][]int64 {
	if len(s) == 0 {
		return nil
	}
	perDim := make([][]int64, len(s))
	for i, extent := range s {
		if allowSplits {
			perDim[i] = splitFactors(extent, i == 0)
		} else {
			perDim[i] = slideFactors(extent)
		}
	}

	var out [][]int64
	combo := make([]int64, len(s))
	var rec func(dim int)
	rec = func(dim int) {
		if dim == len(s) {
			allOnes, allFull := true, true
			for i, f := range combo {
				if f != 1 {
					allOnes = false
				}
				if f != s[i] {
					allFull = false
				}
			}
			if allOnes || allFull {
				return
			}
			cp := make([]int64, len(combo))
			copy(cp, combo)
			out = append(out, cp)
			return
		}
		for _, f := range perDim[dim] {
			combo[dim] = f
			rec(dim + 1)
		}
	}
	rec(0)
	return out
}

// slideFactors implements the allowSplits=false case for one dimension.
func slideFactors(extent int64) []int64 {
	factors := []int64{1}
	if extent != 1 {
		factors = append(factors, extent)
	}
	return factors
}

const parallelismFloor = 16

// splitFactors implements the allowSplits=true case for one dimension:
// an "outer doubles" walk (outer = 1, 2, 4, ...) and an "inner doubles"
// walk (inner = 1, 2, 4, ..., factor = ceil(extent/inner)), each recording
// factor=outer; the outer walk stops once outer > inner (so outer == inner
// is still recorded), the inner walk once inner >= outer. Only the outer walk
// additionally stops for dimension 0 once the resulting inner extent would
// drop below the parallelism floor — the inner walk has no such floor
// check, matching the source this was ported from.
func splitFactors(extent int64, isOutermostDim bool) []int64 {
	seen := make(map[int64]bool)
	var factors []int64
	add := func(f int64) {
		if f < 1 || f > extent || seen[f] {
			return
		}
		seen[f] = true
		factors = append(factors, f)
	}

	for outer := int64(1); outer <= extent; outer *= 2 {
		inner := ceilDiv(extent, outer)
		if outer > inner || (isOutermostDim && inner < parallelismFloor) {
			break
		}
		add(outer)
	}

	for inner := int64(1); inner < extent; inner *= 2 {
		outer := ceilDiv(extent, inner)
		if inner >= outer {
			break
		}
		add(outer)
	}

	return factors
}

func ceilDiv(a, b int64) int64 {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}
