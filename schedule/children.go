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
	"github.com/xdestiny110/Halide/dag"
	"github.com/xdestiny110/Halide/params"
	"github.com/xdestiny110/Halide/tile"
)

// Calls reports whether f is invoked anywhere in n's subtree, either by a
// descendant loop or by direct/inlined call at this level.
func (n *PartialScheduleNode) Calls(f *dag.Node, fdag *dag.FunctionDAG) bool {
	for _, c := range n.Children {
		if c.Calls(f, fdag) {
			return true
		}
	}
	for _, e := range fdag.OutgoingEdges(f) {
		if !n.IsRoot() && e.Consumer.Name() == n.Stage.Name() {
			return true
		}
		if _, ok := n.Inlined[e.Consumer.Name()]; ok {
			return true
		}
	}
	return false
}

// InlineFunc returns a clone of n with f inlined at every innermost loop
// that calls it, directly or through another already-inlined stage.
func (n *PartialScheduleNode) InlineFunc(f *dag.Node, fdag *dag.FunctionDAG) *PartialScheduleNode {
	result := n.shallowCopy()

	children := cloneChildren(n.Children)
	for i, c := range children {
		if c.Calls(f, fdag) {
			children[i] = c.InlineFunc(f, fdag)
		}
	}
	result.Children = children

	if n.Innermost {
		var calls int64
		for _, e := range fdag.OutgoingEdges(f) {
			if mult, ok := n.Inlined[e.Consumer.Name()]; ok {
				calls += mult * e.Calls
			}
			if !n.IsRoot() && e.Consumer.Name() == n.Stage.Name() {
				calls += e.Calls
			}
		}
		if calls != 0 {
			inlined := cloneInt64Map(n.Inlined)
			inlined[f.Name()] = calls
			result.Inlined = inlined
		}
	}
	return result
}

// computeHere returns a clone of n with a new innermost leaf child that
// realizes f one point at a time, covering the box n requires of it.
func (n *PartialScheduleNode) computeHere(f *dag.Node, fdag *dag.FunctionDAG) (*PartialScheduleNode, error) {
	bounds, err := n.GetBounds(f, fdag)
	if err != nil {
		return nil, err
	}
	dims := f.Dims()
	child := &PartialScheduleNode{
		Stage:     f,
		Innermost: true,
		Tileable:  true,
		Size:      make([]int64, dims),
		bounds:    map[string]*Bound{},
	}
	singlePoint := &Bound{
		Region:    make([]Extent, dims),
		MinPoints: 1,
		MinCost:   f.Compute,
	}
	for i := 0; i < dims; i++ {
		child.Size[i] = bounds.Region[i].Count()
		singlePoint.Region[i] = Extent{Lo: bounds.Region[i].Lo, Hi: bounds.Region[i].Lo}
	}
	child.bounds[f.Name()] = singlePoint

	cp := n.cloneForMutation()
	cp.Children = append(cloneChildren(n.Children), child)
	return cp, nil
}

// ComputeInTiles returns every legal way to inject a realization of f
// somewhere within n's subtree: computed directly in this loop, tiled and
// placed at some coarser granularity (optionally with the storage kept
// here while sliding the computation further in), or pushed into the
// unique child that already calls f. parent is the enclosing loop used to
// resolve f's required box for tiling; it is nil only when n is the
// search root.
func (n *PartialScheduleNode) ComputeInTiles(f *dag.Node, fdag *dag.FunctionDAG, parent *PartialScheduleNode, inRealization bool) ([]*PartialScheduleNode, error) {
	var result []*PartialScheduleNode

	child := -1
	calledByMultiple := false
	for i, c := range n.Children {
		if c.Calls(f, fdag) {
			if child != -1 {
				calledByMultiple = true
			}
			child = i
		}
	}

	{
		r, err := n.computeHere(f, fdag)
		if err != nil {
			return nil, err
		}
		if !inRealization {
			r = r.withStoreAt(f.Name())
		}
		result = append(result, r)
	}

	if !fdag.HasConsumers(f) {
		// Can't tile outputs.
		return result, nil
	}

	if n.Tileable {
		tilings := tile.Enumerate(n.Size, !inRealization)
		for _, t := range tilings {
			if parent.IsRoot() {
				// Skip root-level tilings with insufficient parallelism,
				// to avoid nested parallelism.
				total := int64(1)
				for _, s := range t {
					total *= s
				}
				if total < params.ParallelismFloor {
					continue
				}
			}

			outer, inner := n.split(t)

			parentBounds, err := parent.GetBounds(n.Stage, fdag)
			if err != nil {
				return nil, err
			}
			ownBound := outer.bounds[n.Stage.Name()]
			for i, factor := range t {
				inner.Size[i] = ceilDiv(outer.Size[i], factor)
				outer.Size[i] = factor
				min := parentBounds.Region[i].Lo
				extent := ceilDiv(parentBounds.Region[i].Count(), factor)
				ownBound.Region[i] = Extent{Lo: min, Hi: min + extent - 1}
			}
			outer.Children = []*PartialScheduleNode{inner}

			computeAtHere, err := outer.computeHere(f, fdag)
			if err != nil {
				return nil, err
			}
			if !inRealization {
				computeAtHere = computeAtHere.withStoreAt(f.Name())
			}
			result = append(result, computeAtHere)

			if !inRealization {
				// Also consider just storing here, but computing further
				// in: all the parallelism was already forced to the
				// outer loop, so there's no constraint left to respect.
				//
				// storeAtHere keeps outer's bounds cache as-is rather
				// than going through withStoreAt/cloneForMutation: the
				// manually-narrowed self-region entry seeded above is
				// exactly what the recursive tiling call below needs
				// when it asks storeAtHere how much of this stage it
				// requires — recomputing it generically would answer a
				// different question (this stage's consumers elsewhere
				// in the DAG, not this tile).
				storeAtHere := outer.shallowCopy()
				storeAtHere.StoreAt = cloneBoolSet(outer.StoreAt)
				storeAtHere.StoreAt[f.Name()] = true
				v, err := inner.ComputeInTiles(f, fdag, storeAtHere, true)
				if err != nil {
					return nil, err
				}
				for _, sub := range v {
					// Once a function is being slid over a loop, it's
					// best not to tile it again.
					sub.Tileable = false
					placed := storeAtHere.shallowCopy()
					placed.Children = []*PartialScheduleNode{sub}
					result = append(result, placed)
				}
			}
		}
	}

	if child >= 0 && !calledByMultiple {
		for _, storeHere := range []bool{false, true} {
			if storeHere && (inRealization || n.IsRoot()) {
				// is_root: all parallel loops live at the root level, so
				// storing further out than that would constrain
				// parallelism. in_realization: storage is already
				// pinned further out.
				continue
			}
			v, err := n.Children[child].ComputeInTiles(f, fdag, n, storeHere)
			if err != nil {
				return nil, err
			}
			for _, sub := range v {
				r := n.shallowCopy()
				if storeHere {
					r = r.withStoreAt(f.Name())
				}
				children := cloneChildren(n.Children)
				children[child] = sub
				r.Children = children
				result = append(result, r)
			}
		}
	}

	return result, nil
}

// split produces the outer/inner pair used by the tiling branch of
// ComputeInTiles: inner inherits n's current children, inlined funcs,
// storage and bounds cache (nothing about them changes yet), sized to a
// 1x1x1... tile; outer starts as an empty loop over the same stage, with
// a fresh bounds cache seeded from whatever n had cached for its own
// stage (region left to be narrowed by the caller, MinPoints/MinCost
// left stale — preserved as-is, see DESIGN.md).
func (n *PartialScheduleNode) split(t []int64) (outer, inner *PartialScheduleNode) {
	inner = &PartialScheduleNode{
		Size:      append([]int64(nil), n.Size...),
		Stage:     n.Stage,
		Innermost: n.Innermost,
		Tileable:  n.Tileable,
		Children:  n.Children,
		Inlined:   n.Inlined,
		StoreAt:   n.StoreAt,
		bounds:    n.bounds,
	}
	for i := range inner.Size {
		inner.Size[i] = 1
	}

	outer = &PartialScheduleNode{
		Size:      append([]int64(nil), n.Size...),
		Stage:     n.Stage,
		Innermost: false,
		Tileable:  n.Tileable,
		bounds:    map[string]*Bound{},
	}
	if b, ok := n.bounds[n.Stage.Name()]; ok {
		outer.bounds[n.Stage.Name()] = &Bound{
			Region:    append([]Extent(nil), b.Region...),
			MinPoints: b.MinPoints,
			MinCost:   b.MinCost,
		}
	} else {
		outer.bounds[n.Stage.Name()] = &Bound{Region: make([]Extent, len(n.Size))}
	}
	return outer, inner
}

func ceilDiv(a, b int64) int64 {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}
