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

// Package emit walks a finished schedule.PartialScheduleNode tree and
// produces the ordered sequence of directives an external loop-nest
// realizer would apply, plus a human-readable dump of the same tree.
package emit

// Kind identifies which realizer operation a Directive requests.
type Kind int

const (
	ComputeRoot Kind = iota
	Vectorize
	Unroll
	Parallel
	Split
	Fuse
	StoreAt
	ComputeAt
	Reorder
)

func (k Kind) String() string {
	switch k {
	case ComputeRoot:
		return "compute_root"
	case Vectorize:
		return "vectorize"
	case Unroll:
		return "unroll"
	case Parallel:
		return "parallel"
	case Split:
		return "split"
	case Fuse:
		return "fuse"
	case StoreAt:
		return "store_at"
	case ComputeAt:
		return "compute_at"
	case Reorder:
		return "reorder"
	default:
		return "unknown"
	}
}

// Directive is one instruction in the emitted schedule. The fields that
// matter vary by Kind:
//
//   - ComputeRoot: Stage.
//   - Vectorize, Unroll: Stage, Var, Factor (Unroll's Factor is informational,
//     the realizer unrolls fully).
//   - Parallel: Stage, Var, Factor (0 means "no explicit task size").
//   - Split: Stage, Var (the split variable), Outer, Inner, Factor.
//   - Fuse: Stage, Var (inner), Outer (the other fused variable), Inner
//     (the resulting fused variable name).
//   - StoreAt, ComputeAt: Stage, Level (the loop level, "root" or
//     "<stage>.<var>").
//   - Reorder: Stage, Vars (the final accumulated variable order).
type Directive struct {
	Kind   Kind
	Stage  string
	Var    string
	Outer  string
	Inner  string
	Factor int64
	Level  string
	Vars   []string
}
