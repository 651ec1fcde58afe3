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
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xdestiny110/Halide/dag"
	"github.com/xdestiny110/Halide/params"
	"github.com/xdestiny110/Halide/schedule"
	"github.com/xdestiny110/Halide/search"
	"github.com/xdestiny110/Halide/symbolic"
)

func testMachineParams() params.MachineParams {
	return params.MachineParams{Parallelism: 4, LastLevelCacheSize: 16 * 1024 * 1024, Balance: 40}
}

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
		Estimates:       []dag.Estimate{{Min: 0, Extent: 64}, {Min: 0, Extent: 64}},
	}
	d, err := dag.Build([]*dag.Stage{g}, testMachineParams())
	require.NoError(t, err)
	return d
}

func schedulePointwiseChain(t *testing.T) (*dag.FunctionDAG, *schedule.State) {
	t.Helper()
	d := buildPointwiseChain(t)
	cfg := search.Config{MachineParams: testMachineParams(), BeamSize: 8}
	s, err := search.OptimalSchedule(d, cfg, cfg.BeamSize)
	require.NoError(t, err)
	require.Equal(t, len(d.Nodes), s.NumFuncsScheduled)
	return d, s
}

func TestApplyEmitsComputeRootForEveryTopLevelChild(t *testing.T) {
	d, s := schedulePointwiseChain(t)
	directives, err := Apply(s.Root, d, testMachineParams().Parallelism)
	require.NoError(t, err)
	require.NotEmpty(t, directives)

	var roots int
	for _, dir := range directives {
		if dir.Kind == ComputeRoot {
			roots++
		}
	}
	require.Equal(t, len(s.Root.Children), roots)
}

func TestApplyEmitsExactlyOneReorderPerScheduledStage(t *testing.T) {
	d, s := schedulePointwiseChain(t)
	directives, err := Apply(s.Root, d, testMachineParams().Parallelism)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, dir := range directives {
		if dir.Kind == Reorder {
			seen[dir.Stage]++
		}
	}
	for name, count := range seen {
		require.Equal(t, 1, count, "stage %q got %d reorder directives", name, count)
	}
}

func TestDumpTreeMentionsEveryScheduledStage(t *testing.T) {
	d, s := schedulePointwiseChain(t)
	dump := DumpTree(s.Root)
	for _, n := range d.Nodes {
		require.Contains(t, dump, n.Name())
	}
}

func TestCostBreakdownRendersOneRowPerNonInlinedStage(t *testing.T) {
	d, s := schedulePointwiseChain(t)
	telemetry := &schedule.CostTelemetry{}
	_, err := s.Root.Cost(d, map[string]*schedule.PartialScheduleNode{}, map[string]float64{}, 1, nil, telemetry)
	require.NoError(t, err)

	table := CostBreakdown(d, telemetry)
	require.NotEmpty(t, table)
	for name := range telemetry.NodeCosts {
		require.Contains(t, table, name)
	}
}
