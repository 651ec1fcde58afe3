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

package schedule

import (
	"math"

	"github.com/pkg/errors"
	"github.com/xdestiny110/Halide/dag"
	"github.com/xdestiny110/Halide/scheduleerr"
)

// CostTelemetry captures the per-stage, per-edge cost breakdown Cost would
// otherwise discard; pass nil when only the aggregate total is wanted. Used
// by the diagnostic dump to explain where a schedule's predicted cost comes
// from.
type CostTelemetry struct {
	NodeCosts map[string]float64
	EdgeCosts map[*dag.Edge]float64
	Inlined   map[string]bool
}

// Cost recursively prices n's subtree. instances is the number
// of times this loop body runs from the enclosing context; parent is n's
// enclosing loop (nil only at the root). computeSite and overcompute are
// shared, mutable accumulators threaded through the whole recursion:
// computeSite records, for every stage, the first loop level that resolved
// its storage site; overcompute records the vectorization/loop-boundary
// recompute factor recorded at each stage's innermost loop.
func (n *PartialScheduleNode) Cost(
	fdag *dag.FunctionDAG,
	computeSite map[string]*PartialScheduleNode,
	overcompute map[string]float64,
	instances int64,
	parent *PartialScheduleNode,
	telemetry *CostTelemetry,
) (float64, error) {
	if !n.IsRoot() {
		if _, ok := computeSite[n.Stage.Name()]; !ok {
			computeSite[n.Stage.Name()] = parent
		}
	}

	var result float64

	subinstances := instances
	for _, s := range n.Size {
		subinstances *= s
	}
	if n.Innermost {
		idealSubinstances := subinstances
		subinstances /= n.Size[0]
		subinstances *= ((n.Size[0] + 15) / 16) * 16

		factor := float64(subinstances) / float64(idealSubinstances)
		// Generic loop overhead for the operations at the inner loop
		// boundary.
		factor *= (float64(n.Size[0]) + 0.01) / float64(n.Size[0])
		overcompute[n.Stage.Name()] = factor
	}

	for _, c := range n.Children {
		childCost, err := c.Cost(fdag, computeSite, overcompute, subinstances, n, telemetry)
		if err != nil {
			return 0, err
		}
		result += childCost
	}

	// Bill compute and memory costs for all funcs realized within this loop.
	for name := range n.StoreAt {
		f, _ := fdag.NodeByName(name)
		boundsRealized, err := n.GetBounds(f, fdag)
		if err != nil {
			return 0, err
		}
		points := float64(1)
		for _, p := range boundsRealized.Region {
			points *= float64(p.Count())
		}
		computeCost := f.Compute * points * float64(subinstances)

		// Most recompute is due to overlapping realizations of a func;
		// the rest is due to vectorization of its innermost loop. Assume
		// any other potential recompute is avoided by sliding.
		computeCost *= overcompute[name]

		if telemetry != nil {
			if telemetry.NodeCosts == nil {
				telemetry.NodeCosts = map[string]float64{}
			}
			telemetry.NodeCosts[name] = computeCost
		}

		// Locality discount from assumed storage folding.
		site, ok := computeSite[name]
		if !ok {
			panic(errors.Wrapf(scheduleerr.ErrPartialStateIncoherent, "no compute site recorded for stage %q", name))
		}
		discount := 1.0
		if site != n {
			boundsComputed, err := site.GetBounds(f, fdag)
			if err != nil {
				return 0, err
			}
			discount = 1.01
			for i := len(boundsRealized.Region); i > 0; i-- {
				r := boundsRealized.Region[i-1]
				c := boundsComputed.Region[i-1]
				er, ec := r.Count(), c.Count()
				if er == ec {
					continue
				}
				discount = float64(ec) / float64(er)
				break
			}
		}

		// Memory cost is the number of cold loads times the cost per
		// cold load. The discount reduces the cost per cold load, not
		// the number of cold loads.
		costPerColdLoad := math.Log(discount * points)
		numColdLoads := float64(instances) * points
		memCost := f.Memory * numColdLoads * costPerColdLoad
		// Billed once per outgoing edge, and then again unconditionally
		// below, so an output stage (no outgoing edges) is billed once
		// while an intermediate is billed once per consumer plus once
		// more — preserved as-is, see DESIGN.md.
		for _, e := range fdag.OutgoingEdges(f) {
			result += memCost
			if telemetry != nil {
				if telemetry.EdgeCosts == nil {
					telemetry.EdgeCosts = map[*dag.Edge]float64{}
				}
				telemetry.EdgeCosts[e] = memCost
			}
		}

		result += memCost + computeCost
	}

	// Bill compute cost for all funcs inlined in this loop.
	for name, calls := range n.Inlined {
		f, _ := fdag.NodeByName(name)
		result += f.ComputeIfInlined * float64(subinstances) * float64(calls)
		if telemetry != nil {
			if telemetry.Inlined == nil {
				telemetry.Inlined = map[string]bool{}
			}
			telemetry.Inlined[name] = true
		}
	}

	return result, nil
}
