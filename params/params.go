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

// Package params holds the target-machine description the cost model and
// emitter are parameterized by.
package params

import "math"

// MachineParams is the recognized configuration input to the scheduler.
type MachineParams struct {
	// Parallelism is the target core count. It controls the emitter's
	// parallel directives. Root-level tile pruning does not read it: that
	// uses the fixed ParallelismFloor below.
	Parallelism uint32

	// LastLevelCacheSize, in bytes, divides the memory coefficient by
	// log(LastLevelCacheSize).
	LastLevelCacheSize uint64

	// Balance multiplies the memory coefficient: higher balance penalizes
	// memory traffic more heavily relative to compute.
	Balance float64
}

// MemoryCoefficientScale returns balance / log(last_level_cache_size), the
// factor every stage's per-byte memory coefficient is scaled by.
func (mp MachineParams) MemoryCoefficientScale() float64 {
	return mp.Balance / math.Log(float64(mp.LastLevelCacheSize))
}

// ParallelismFloor is the minimum root-level tile size below which a
// tiling is rejected as failing to keep the target core count busy.
const ParallelismFloor = 16
