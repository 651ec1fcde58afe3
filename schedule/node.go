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
	"github.com/pkg/errors"
	"github.com/xdestiny110/Halide/dag"
	"github.com/xdestiny110/Halide/scheduleerr"
	"github.com/xdestiny110/Halide/symbolic"
)

// PartialScheduleNode is one loop-nest fragment: a root node (Stage == nil)
// covering all top-level parallel work, or a loop nest over some stage.
//
// Children, Inlined, StoreAt and the bounds cache are shared by value-
// semantics copies of the tree (copy-on-write) so that cloning a State
// during beam search is cheap: a node that isn't about to be mutated keeps
// pointing at its parent's maps and slices. Every mutating method in this
// package returns a new node instead of modifying its receiver in place.
type PartialScheduleNode struct {
	// Stage is nil at the root.
	Stage *dag.Node

	// Innermost marks the point-compute body of its stage. computeHere
	// creates such a node with no Children; when a producer is later
	// computed inside it, the producer's loop is appended to Children and
	// Innermost stays true, so an Innermost node may have Children.
	Innermost bool

	// Tileable is false once this loop has been used for a sliding
	// placement, permanently forbidding further re-tiling of it.
	Tileable bool

	// Size holds one loop extent per stage dimension; empty at the root.
	Size []int64

	// Children is the ordered list of inner loop-nest nodes.
	Children []*PartialScheduleNode

	// Inlined maps stage name to call multiplier; non-empty only when
	// Innermost.
	Inlined map[string]int64

	// StoreAt is the set of stage names whose storage is allocated at this
	// loop level.
	StoreAt map[string]bool

	bounds map[string]*Bound
}

// NewRoot returns an empty root PartialScheduleNode. Tileable starts false:
// the root is never itself re-tiled, only its children are.
func NewRoot() *PartialScheduleNode {
	return &PartialScheduleNode{
		bounds: map[string]*Bound{},
	}
}

// IsRoot reports whether n has no associated stage.
func (n *PartialScheduleNode) IsRoot() bool { return n.Stage == nil }

// shallowCopy duplicates the struct header only: Children, Inlined,
// StoreAt and the bounds cache all keep pointing at the receiver's current
// maps/slices until a mutator copies them.
func (n *PartialScheduleNode) shallowCopy() *PartialScheduleNode {
	cp := *n
	return &cp
}

// cloneForMutation is shallowCopy plus a fresh (initially empty) bounds
// cache: this node's own Size/StoreAt/Children are about to change, which
// would otherwise leave stale entries behind for descendants that read
// through it.
func (n *PartialScheduleNode) cloneForMutation() *PartialScheduleNode {
	cp := n.shallowCopy()
	cp.bounds = map[string]*Bound{}
	return cp
}

func cloneInt64Map(m map[string]int64) map[string]int64 {
	cp := make(map[string]int64, len(m)+1)
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func cloneBoolSet(m map[string]bool) map[string]bool {
	cp := make(map[string]bool, len(m)+1)
	for k := range m {
		cp[k] = true
	}
	return cp
}

func cloneChildren(children []*PartialScheduleNode) []*PartialScheduleNode {
	cp := make([]*PartialScheduleNode, len(children), len(children)+1)
	copy(cp, children)
	return cp
}

// withStoreAt returns a mutated clone of n with stage name added to
// StoreAt.
func (n *PartialScheduleNode) withStoreAt(name string) *PartialScheduleNode {
	cp := n.cloneForMutation()
	cp.StoreAt = cloneBoolSet(n.StoreAt)
	cp.StoreAt[name] = true
	return cp
}

// GetBounds returns the required box, MinPoints and MinCost for stage f at
// this loop level, memoized per node.
//
// f with no outgoing edges (an output) always resolves from its Estimates.
// The recursion below re-invokes itself on the *same* node for each
// consumer as it walks up through intermediate loop levels, so the output
// base case is reached however deep the recursion goes; whether n happens
// to literally be the tree root does not change the formula.
func (n *PartialScheduleNode) GetBounds(f *dag.Node, fdag *dag.FunctionDAG) (*Bound, error) {
	if b, ok := n.bounds[f.Name()]; ok {
		return b, nil
	}

	if !fdag.HasConsumers(f) {
		region := make([]Extent, f.Dims())
		var minPoints int64 = 1
		for i, est := range f.Stage.Estimates {
			region[i] = Extent{Lo: est.Min, Hi: est.Min + est.Extent - 1}
			minPoints *= est.Extent
		}
		b := &Bound{Region: region, MinPoints: minPoints, MinCost: float64(minPoints) * f.Compute}
		n.bounds[f.Name()] = b
		return b, nil
	}

	edges := fdag.OutgoingEdges(f)
	dims := f.Dims()
	region := make([]Extent, dims)
	haveRegion := false
	var callsIfInlined int64

	for _, e := range edges {
		consumerBound, err := n.GetBounds(e.Consumer, fdag)
		if err != nil {
			return nil, err
		}
		subs := make(map[string]*symbolic.Expr, 2*e.Consumer.Dims())
		for i, iv := range e.Consumer.Region {
			subs[iv.Min.Name] = symbolic.ConstInt(consumerBound.Region[i].Lo)
			subs[iv.Max.Name] = symbolic.ConstInt(consumerBound.Region[i].Hi)
		}
		for i, iv := range e.Bounds {
			loExpr := symbolic.Simplify(symbolic.Substitute(subs, iv.Min))
			hiExpr := symbolic.Simplify(symbolic.Substitute(subs, iv.Max))
			lo, ok := symbolic.AsConstInt(loExpr)
			if !ok {
				return nil, errors.Wrapf(scheduleerr.ErrNonConstantBound, "stage %q dim %d lower bound", f.Name(), i)
			}
			hi, ok := symbolic.AsConstInt(hiExpr)
			if !ok {
				return nil, errors.Wrapf(scheduleerr.ErrNonConstantBound, "stage %q dim %d upper bound", f.Name(), i)
			}
			// Preserved bit-for-bit: min of the mins AND min of the maxes
			// across consumers. The second should arguably be max to take
			// the tightest covering superset; see DESIGN.md.
			if !haveRegion {
				region[i] = Extent{Lo: lo, Hi: hi}
			} else {
				if lo < region[i].Lo {
					region[i].Lo = lo
				}
				if hi < region[i].Hi {
					region[i].Hi = hi
				}
			}
		}
		haveRegion = true
		callsIfInlined += consumerBound.MinPoints * e.Calls
	}

	pointsIfRealized := int64(1)
	for _, ext := range region {
		pointsIfRealized *= ext.Count()
	}
	minPoints := pointsIfRealized
	if callsIfInlined < minPoints {
		minPoints = callsIfInlined
	}
	costRealized := float64(pointsIfRealized) * f.Compute
	costInlined := float64(callsIfInlined) * f.ComputeIfInlined
	minCost := costRealized
	if costInlined < minCost {
		minCost = costInlined
	}

	b := &Bound{Region: region, MinPoints: minPoints, MinCost: minCost}
	n.bounds[f.Name()] = b
	return b, nil
}

// assertCoherent panics with ErrPartialStateIncoherent if a just-generated
// candidate does not actually compute stage f anywhere in its subtree —
// an internal consistency check, never expected to fire.
func assertCoherent(n *PartialScheduleNode, f string) {
	if !computesStage(n, f) {
		panic(errors.Wrapf(scheduleerr.ErrPartialStateIncoherent, "stage %q", f))
	}
}

func computesStage(n *PartialScheduleNode, f string) bool {
	if !n.IsRoot() && n.Stage.Name() == f {
		return true
	}
	if _, ok := n.Inlined[f]; ok {
		return true
	}
	for _, c := range n.Children {
		if computesStage(c, f) {
			return true
		}
	}
	return false
}
