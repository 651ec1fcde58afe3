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
)

// State is one whole-pipeline partial schedule under construction: a
// prefix of stages (in realization order) has been placed in Root, and the
// rest remain to be scheduled.
type State struct {
	Root *PartialScheduleNode

	// Cost is Root's predicted cost minus the minimum essential cost of
	// the stages placed so far: the overhead of the current placement
	// above the least work those stages need. Stages not yet scheduled
	// contribute nothing — see CalculateCost. It is only comparable
	// between States scheduling the same FunctionDAG.
	Cost float64

	// NumFuncsScheduled is how many of FunctionDAG.Nodes (in order) have
	// been placed so far.
	NumFuncsScheduled int
}

// NewState returns the initial, empty State: nothing scheduled, Root is a
// bare search root.
func NewState() *State {
	return &State{Root: NewRoot()}
}

// CalculateCost prices Root's current placement, then subtracts the
// already-scheduled stages' essential cost (their Bound.MinCost at the
// root), leaving the overhead above the minimum necessary work so that
// States at different scheduling depths are comparable.
func (s *State) CalculateCost(fdag *dag.FunctionDAG) error {
	computeSite := map[string]*PartialScheduleNode{}
	overcompute := map[string]float64{}
	cost, err := s.Root.Cost(fdag, computeSite, overcompute, 1, nil, nil)
	if err != nil {
		return err
	}

	for i := 0; i < s.NumFuncsScheduled; i++ {
		n := fdag.Nodes[i]
		bound, err := s.Root.GetBounds(n, fdag)
		if err != nil {
			return err
		}
		cost -= bound.MinCost
	}

	s.Cost = cost
	return nil
}

// GenerateChildren enumerates every legal way to schedule the next
// not-yet-placed stage — inlining it, or realizing it somewhere in the
// tree — and calls accept for each resulting State. It is a no-op once
// every stage has been scheduled.
func (s *State) GenerateChildren(fdag *dag.FunctionDAG, accept func(*State)) error {
	if s.NumFuncsScheduled == len(fdag.Nodes) {
		return nil
	}

	f := fdag.Nodes[s.NumFuncsScheduled]
	for _, e := range fdag.OutgoingEdges(f) {
		if !computesStage(s.Root, e.Consumer.Name()) {
			panic(errors.Wrapf(scheduleerr.ErrPartialStateIncoherent,
				"partially scheduled code doesn't compute consumer %q of stage %q", e.Consumer.Name(), f.Name()))
		}
	}

	// 1) Inline it.
	if fdag.HasConsumers(f) {
		child := &State{Root: s.Root.InlineFunc(f, fdag), NumFuncsScheduled: s.NumFuncsScheduled + 1}
		if err := child.CalculateCost(fdag); err != nil {
			return err
		}
		assertCoherent(child.Root, f.Name())
		accept(child)
	}

	// 2) Realize it somewhere.
	options, err := s.Root.ComputeInTiles(f, fdag, nil, false)
	if err != nil {
		return err
	}
	for _, n := range options {
		child := &State{Root: n, NumFuncsScheduled: s.NumFuncsScheduled + 1}
		if err := child.CalculateCost(fdag); err != nil {
			return err
		}
		assertCoherent(child.Root, f.Name())
		accept(child)
	}
	return nil
}
