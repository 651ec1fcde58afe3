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
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xdestiny110/Halide/dag"
	"github.com/xdestiny110/Halide/params"
	"github.com/xdestiny110/Halide/symbolic"
)

func testMachineParams() params.MachineParams {
	return params.MachineParams{Parallelism: 8, LastLevelCacheSize: 16 * 1024 * 1024, Balance: 40}
}

// buildPointwiseChain builds a purely pointwise chain:
// f(x,y)=(x+y)^2, g=f*2+1, h=g*2+1.
func buildPointwiseChain(t *testing.T) *dag.FunctionDAG {
	t.Helper()
	x := symbolic.MakeVariable("x")
	y := symbolic.MakeVariable("y")
	f := &dag.Stage{
		Name:            "f",
		Args:            []string{"x", "y"},
		Dims:            2,
		Values:          []*symbolic.Expr{symbolic.Mul(symbolic.Add(x, y), symbolic.Add(x, y))},
		BytesPerElement: 4,
	}
	g := &dag.Stage{
		Name:            "g",
		Args:            []string{"x", "y"},
		Dims:            2,
		Values:          []*symbolic.Expr{symbolic.Add(symbolic.Mul(symbolic.Call("f", x, y), symbolic.ConstInt(2)), symbolic.ConstInt(1))},
		BytesPerElement: 4,
		Producers:       []*dag.Stage{f},
	}
	h := &dag.Stage{
		Name:            "h",
		Args:            []string{"x", "y"},
		Dims:            2,
		Values:          []*symbolic.Expr{symbolic.Add(symbolic.Mul(symbolic.Call("g", x, y), symbolic.ConstInt(2)), symbolic.ConstInt(1))},
		BytesPerElement: 4,
		Producers:       []*dag.Stage{g},
		Estimates:       []dag.Estimate{{Min: 0, Extent: 1000}, {Min: 0, Extent: 1000}},
	}
	d, err := dag.Build([]*dag.Stage{h}, testMachineParams())
	require.NoError(t, err)
	return d
}

func TestGetBoundsOutputResolvesFromEstimates(t *testing.T) {
	d := buildPointwiseChain(t)
	h, _ := d.NodeByName("h")
	root := NewRoot()
	b, err := root.GetBounds(h, d)
	require.NoError(t, err)
	require.Equal(t, int64(1000), b.Region[0].Count())
	require.Equal(t, int64(1000), b.Region[1].Count())
	require.Equal(t, int64(1000*1000), b.MinPoints)
}

func TestGetBoundsIsMemoized(t *testing.T) {
	d := buildPointwiseChain(t)
	h, _ := d.NodeByName("h")
	root := NewRoot()
	b1, err := root.GetBounds(h, d)
	require.NoError(t, err)
	b2, err := root.GetBounds(h, d)
	require.NoError(t, err)
	require.Same(t, b1, b2)
}

func TestGetBoundsPropagatesThroughProducerChain(t *testing.T) {
	d := buildPointwiseChain(t)
	h, _ := d.NodeByName("h")
	f, _ := d.NodeByName("f")
	root := NewRoot()
	_, err := root.GetBounds(h, d)
	require.NoError(t, err)
	fb, err := root.GetBounds(f, d)
	require.NoError(t, err)
	require.Equal(t, int64(1000), fb.Region[0].Count())
	require.Equal(t, int64(1000), fb.Region[1].Count())
}

func TestInlineFuncMarksInlinedOnInnermostNode(t *testing.T) {
	d := buildPointwiseChain(t)
	f, _ := d.NodeByName("f")
	g, _ := d.NodeByName("g")
	inner := &PartialScheduleNode{Stage: g, Innermost: true, Tileable: true, Size: []int64{1, 1}}
	root := NewRoot()
	root.Children = []*PartialScheduleNode{inner}

	inlined := root.InlineFunc(f, d)
	require.True(t, computesStage(inlined, "f"))
	child := inlined.Children[0]
	require.Contains(t, child.Inlined, "f")
}

func TestComputeInTilesProducesComputeHereOption(t *testing.T) {
	d := buildPointwiseChain(t)
	f, _ := d.NodeByName("f")
	g, _ := d.NodeByName("g")
	h, _ := d.NodeByName("h")

	root := NewRoot()
	// Place h directly under root so f (a producer of g, which is a
	// producer of h) has somewhere to be called from.
	hOptions, err := root.ComputeInTiles(h, d, nil, false)
	require.NoError(t, err)
	require.NotEmpty(t, hOptions)

	// Pick the compute_here-at-root option (first result per
	// ComputeInTiles's own ordering) and continue scheduling g under it.
	afterH := hOptions[0]
	gOptions, err := afterH.ComputeInTiles(g, d, nil, false)
	require.NoError(t, err)
	require.NotEmpty(t, gOptions)

	afterG := gOptions[0]
	fOptions, err := afterG.ComputeInTiles(f, d, nil, false)
	require.NoError(t, err)
	require.NotEmpty(t, fOptions)
	for _, opt := range fOptions {
		require.True(t, computesStage(opt, "f"))
	}
}

func TestCostIsNonNegativeForFullyRealizedSchedule(t *testing.T) {
	d := buildPointwiseChain(t)
	f, _ := d.NodeByName("f")
	g, _ := d.NodeByName("g")
	h, _ := d.NodeByName("h")

	root := NewRoot()
	hOptions, err := root.ComputeInTiles(h, d, nil, false)
	require.NoError(t, err)
	state := hOptions[0]

	gOptions, err := state.ComputeInTiles(g, d, nil, false)
	require.NoError(t, err)
	state = gOptions[0]

	fOptions, err := state.ComputeInTiles(f, d, nil, false)
	require.NoError(t, err)
	state = fOptions[0]

	cost, err := state.Cost(d, map[string]*PartialScheduleNode{}, map[string]float64{}, 1, nil, nil)
	require.NoError(t, err)
	require.Greater(t, cost, 0.0)
}

func TestInliningReducesCostForCheapPointwiseChain(t *testing.T) {
	// A purely pointwise chain should find inlining f and g into h
	// cheaper than realizing them separately, since there
	// is no data reuse across points to amortize the extra storage. Every
	// enumerated realized-both placement is checked, not just one, since
	// ComputeInTiles's option ordering is an implementation detail.
	d := buildPointwiseChain(t)
	f, _ := d.NodeByName("f")
	g, _ := d.NodeByName("g")
	h, _ := d.NodeByName("h")

	root := NewRoot()
	hOptions, err := root.ComputeInTiles(h, d, nil, false)
	require.NoError(t, err)
	realizedH := hOptions[0]

	inlinedState := realizedH.InlineFunc(g, d).InlineFunc(f, d)
	inlinedCost, err := inlinedState.Cost(d, map[string]*PartialScheduleNode{}, map[string]float64{}, 1, nil, nil)
	require.NoError(t, err)

	gOptions, err := realizedH.ComputeInTiles(g, d, nil, false)
	require.NoError(t, err)
	require.NotEmpty(t, gOptions)

	minRealizedCost := math.Inf(1)
	for _, afterG := range gOptions {
		fOptions, err := afterG.ComputeInTiles(f, d, nil, false)
		require.NoError(t, err)
		for _, afterF := range fOptions {
			cost, err := afterF.Cost(d, map[string]*PartialScheduleNode{}, map[string]float64{}, 1, nil, nil)
			require.NoError(t, err)
			if cost < minRealizedCost {
				minRealizedCost = cost
			}
		}
	}

	require.Less(t, inlinedCost, minRealizedCost)
}

func TestStateGenerateChildrenCoversWholeFunctionDAG(t *testing.T) {
	d := buildPointwiseChain(t)
	s := NewState()
	var leaves []*State
	var walk func(*State)
	walk = func(st *State) {
		var children []*State
		err := st.GenerateChildren(d, func(c *State) { children = append(children, c) })
		require.NoError(t, err)
		if len(children) == 0 {
			leaves = append(leaves, st)
			return
		}
		// Only descend into the first child to keep the test bounded; the
		// point is that some path reaches full scheduling of every stage.
		walk(children[0])
	}
	walk(s)
	require.NotEmpty(t, leaves)
	require.Equal(t, len(d.Nodes), leaves[0].NumFuncsScheduled)
}
