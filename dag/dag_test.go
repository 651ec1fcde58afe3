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

package dag

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/xdestiny110/Halide/params"
	"github.com/xdestiny110/Halide/scheduleerr"
	"github.com/xdestiny110/Halide/symbolic"
)

func testMachineParams() params.MachineParams {
	return params.MachineParams{Parallelism: 8, LastLevelCacheSize: 16 * 1024 * 1024, Balance: 100}
}

// buildPointwiseChain builds a purely pointwise chain: f(x,y)=(x+y)^2,
// g=f*2+1, h=g*2+1.
func buildPointwiseChain() []*Stage {
	x := symbolic.MakeVariable("x")
	y := symbolic.MakeVariable("y")
	f := &Stage{
		Name: "f",
		Args: []string{"x", "y"},
		Dims: 2,
		Values: []*symbolic.Expr{
			symbolic.Mul(symbolic.Add(x, y), symbolic.Add(x, y)),
		},
		BytesPerElement: 4,
	}
	g := &Stage{
		Name: "g",
		Args: []string{"x", "y"},
		Dims: 2,
		Values: []*symbolic.Expr{
			symbolic.Add(symbolic.Mul(symbolic.Call("f", x, y), symbolic.ConstInt(2)), symbolic.ConstInt(1)),
		},
		BytesPerElement: 4,
		Producers:       []*Stage{f},
	}
	h := &Stage{
		Name: "h",
		Args: []string{"x", "y"},
		Dims: 2,
		Values: []*symbolic.Expr{
			symbolic.Add(symbolic.Mul(symbolic.Call("g", x, y), symbolic.ConstInt(2)), symbolic.ConstInt(1)),
		},
		BytesPerElement: 4,
		Producers:       []*Stage{g},
		Estimates:       []Estimate{{Min: 0, Extent: 1000}, {Min: 0, Extent: 1000}},
	}
	return []*Stage{h}
}

func TestBuildOrdersConsumerBeforeProducer(t *testing.T) {
	d, err := Build(buildPointwiseChain(), testMachineParams())
	require.NoError(t, err)
	require.Len(t, d.Nodes, 3)
	require.Equal(t, "h", d.Nodes[0].Name())
	for _, e := range d.Edges {
		require.Greater(t, e.Producer.Index, e.Consumer.Index)
	}
}

func TestBuildMissingEstimateFails(t *testing.T) {
	stages := buildPointwiseChain()
	stages[0].Estimates = nil
	_, err := Build(stages, testMachineParams())
	require.Error(t, err)
	require.True(t, errors.Is(err, scheduleerr.ErrMissingEstimate))
}

func TestBuildUnsupportedStageFails(t *testing.T) {
	stages := buildPointwiseChain()
	stages[0].Updates = []Update{{}}
	_, err := Build(stages, testMachineParams())
	require.Error(t, err)
	require.True(t, errors.Is(err, scheduleerr.ErrUnsupportedStage))
}

func TestComputeIfInlinedIsClampedAtZero(t *testing.T) {
	// A stage with fewer leaves than dimensions (e.g. a 2-D stage that
	// copies one argument: 1 leaf, 2 dims) must not go negative.
	x := symbolic.MakeVariable("x")
	st := &Stage{
		Name:            "id",
		Args:            []string{"x", "y"},
		Dims:            2,
		Values:          []*symbolic.Expr{x},
		BytesPerElement: 4,
		Estimates:       []Estimate{{Min: 0, Extent: 10}, {Min: 0, Extent: 10}},
	}
	d, err := Build([]*Stage{st}, testMachineParams())
	require.NoError(t, err)
	require.Equal(t, float64(0), d.Nodes[0].ComputeIfInlined)
}

func TestStencilEdgeBounds(t *testing.T) {
	x := symbolic.MakeVariable("x")
	y := symbolic.MakeVariable("y")
	f := &Stage{
		Name:            "f",
		Args:            []string{"x", "y"},
		Dims:            2,
		Values:          []*symbolic.Expr{symbolic.Add(x, y)},
		BytesPerElement: 4,
	}
	h := &Stage{
		Name: "h",
		Args: []string{"x", "y"},
		Dims: 2,
		Values: []*symbolic.Expr{
			symbolic.Add(
				symbolic.Call("f", symbolic.Sub(x, symbolic.ConstInt(9)), symbolic.Sub(y, symbolic.ConstInt(9))),
				symbolic.Call("f", symbolic.Add(x, symbolic.ConstInt(9)), symbolic.Add(y, symbolic.ConstInt(9))),
			),
		},
		BytesPerElement: 4,
		Producers:       []*Stage{f},
		Estimates:       []Estimate{{Min: 0, Extent: 2048}, {Min: 0, Extent: 2048}},
	}
	d, err := Build([]*Stage{h}, testMachineParams())
	require.NoError(t, err)
	require.Len(t, d.Edges, 1)
	edge := d.Edges[0]
	require.Equal(t, "f", edge.Producer.Name())
	require.Equal(t, int64(2), edge.Calls)
	require.Len(t, edge.Bounds, 2)
}
