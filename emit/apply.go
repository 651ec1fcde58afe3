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

package emit

import (
	"fmt"
	"math"
	"sort"

	"github.com/xdestiny110/Halide/dag"
	"github.com/xdestiny110/Halide/schedule"
)

const rootLevel = "root"

// Apply walks root and returns the ordered directive sequence a realizer
// would need to reconstruct the schedule: per-loop splits, vectorize,
// unroll and parallel calls, store_at/compute_at placements, and finally
// one reorder per stage using its accumulated variable order. See spec
// §4.6.
func Apply(root *schedule.PartialScheduleNode, fdag *dag.FunctionDAG, parallelism uint32) ([]Directive, error) {
	varsMap := map[string][]string{}
	var out []Directive
	if err := applyNode(root, rootLevel, fdag, varsMap, float64(parallelism), &out); err != nil {
		return nil, err
	}

	// One reorder per stage that accumulated a variable list, emitted in
	// realization order (fdag.Nodes index order) for determinism.
	for _, n := range fdag.Nodes {
		vars, ok := varsMap[n.Name()]
		if !ok {
			continue
		}
		out = append(out, Directive{Kind: Reorder, Stage: n.Name(), Vars: append([]string(nil), vars...)})
	}
	return out, nil
}

func applyNode(n *schedule.PartialScheduleNode, here string, fdag *dag.FunctionDAG, varsMap map[string][]string, numCores float64, out *[]Directive) error {
	if n.IsRoot() {
		for _, c := range n.Children {
			*out = append(*out, Directive{Kind: ComputeRoot, Stage: c.Stage.Name()})
			if err := applyNode(c, rootLevel, fdag, varsMap, numCores, out); err != nil {
				return err
			}
		}
		return nil
	}

	stage := n.Stage.Name()
	vars := varsMap[stage]
	if len(vars) == 0 {
		vars = append([]string(nil), n.Stage.Stage.Args...)
	}

	if n.Innermost {
		v := vars[0]
		here = fmt.Sprintf("%s.%s", stage, v)
		switch {
		case n.Size[0] >= 16:
			*out = append(*out, Directive{Kind: Vectorize, Stage: stage, Var: v, Factor: 16})
		case n.Size[0] >= 8:
			*out = append(*out, Directive{Kind: Vectorize, Stage: stage, Var: v, Factor: 8})
		case n.Size[0] >= 4:
			*out = append(*out, Directive{Kind: Vectorize, Stage: stage, Var: v, Factor: 4})
		}
		if len(vars) > n.Stage.Dims() && n.Size[0] <= 32 {
			*out = append(*out, Directive{Kind: Unroll, Stage: stage, Var: v, Factor: n.Size[0]})
		}
		if numCores > 1 {
			taskSize := float64(n.Size[len(n.Size)-1]) / numCores
			last := vars[n.Stage.Dims()-1]
			if taskSize > 1 {
				*out = append(*out, Directive{Kind: Parallel, Stage: stage, Var: last, Factor: int64(math.Ceil(taskSize))})
			} else {
				*out = append(*out, Directive{Kind: Parallel, Stage: stage, Var: last})
			}
		}
		varsMap[stage] = vars
	} else {
		bound, err := n.GetBounds(n.Stage, fdag)
		if err != nil {
			return err
		}
		var newInner []string
		for i, region := range bound.Region {
			extent := region.Count()
			old := vars[i]
			outer, inner := old+"o", old+"i"
			*out = append(*out, Directive{Kind: Split, Stage: stage, Var: old, Outer: outer, Inner: inner, Factor: extent})
			vars[i] = outer
			newInner = append(newInner, inner)
		}

		cores := numCores
		numParallelDims := 0
		innermostParallelDim := 0
		for i := n.Stage.Dims() - 1; cores > 1 && i >= 0; i-- {
			*out = append(*out, Directive{Kind: Parallel, Stage: stage, Var: vars[i]})
			numParallelDims++
			innermostParallelDim = i
			cores /= float64(n.Size[i])
		}
		for i := 0; i < numParallelDims-1; i++ {
			inner := vars[innermostParallelDim]
			outer := vars[innermostParallelDim+1]
			fused := inner + "_" + outer
			*out = append(*out, Directive{Kind: Fuse, Stage: stage, Var: inner, Outer: outer, Inner: fused})
			vars[innermostParallelDim] = fused
			vars = append(vars[:innermostParallelDim+1], vars[innermostParallelDim+2:]...)
		}

		here = fmt.Sprintf("%s.%s", stage, vars[0])
		vars = append(append([]string(nil), newInner...), vars...)
		varsMap[stage] = vars
	}

	storeAt := make([]string, 0, len(n.StoreAt))
	for name := range n.StoreAt {
		storeAt = append(storeAt, name)
	}
	sort.Strings(storeAt)
	for _, name := range storeAt {
		*out = append(*out, Directive{Kind: StoreAt, Stage: name, Level: here})
	}

	for _, c := range n.Children {
		if c.Stage.Name() != stage {
			*out = append(*out, Directive{Kind: ComputeAt, Stage: c.Stage.Name(), Level: here})
		}
		if err := applyNode(c, here, fdag, varsMap, numCores, out); err != nil {
			return err
		}
	}
	return nil
}
