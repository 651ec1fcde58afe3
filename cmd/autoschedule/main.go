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

// Command autoschedule runs the beam-search scheduler over a small
// built-in pipeline and prints its winning schedule. Authoring stages from
// an arbitrary host language's pipeline description is out of scope; this
// command exists to exercise the scheduler end to end the way a sample
// driver program would.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/xdestiny110/Halide/dag"
	"github.com/xdestiny110/Halide/emit"
	"github.com/xdestiny110/Halide/params"
	"github.com/xdestiny110/Halide/schedule"
	"github.com/xdestiny110/Halide/search"
	"github.com/xdestiny110/Halide/symbolic"
	"k8s.io/klog/v2"
)

var (
	flagParallelism  = flag.Uint("parallelism", 8, "Number of parallel execution units (MachineParams.Parallelism).")
	flagCacheSize    = flag.Uint64("last_level_cache_size", 16*1024*1024, "Last-level cache size in bytes (MachineParams.LastLevelCacheSize).")
	flagBalance      = flag.Float64("balance", 40, "Ratio of the cost of a load compared to a flop (MachineParams.Balance).")
	flagBeamSizeOvr  = flag.Int("beam_size", 0, "Override HL_BEAM_SIZE; 0 defers to the environment (default 1).")
	flagBreakdown    = flag.Bool("cost_breakdown", false, "Print the per-stage cost breakdown table alongside the tree dump.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	mp := params.MachineParams{
		Parallelism:        uint32(*flagParallelism),
		LastLevelCacheSize: *flagCacheSize,
		Balance:            *flagBalance,
	}

	if err := run(mp); err != nil {
		klog.Errorf("autoschedule: %+v", err)
		os.Exit(1)
	}
}

func run(mp params.MachineParams) error {
	stages := pointwiseChainPipeline()
	fdag, err := dag.Build(stages, mp)
	if err != nil {
		return errors.Wrap(err, "building function dag")
	}

	cfg := search.ConfigFromEnv(mp)
	if *flagBeamSizeOvr > 0 {
		cfg.BeamSize = *flagBeamSizeOvr
	}
	if *flagBreakdown {
		cfg.DebugLevel = 1
	}

	best, err := search.GenerateSchedulesTopDown(fdag, cfg)
	if err != nil {
		return errors.Wrap(err, "searching for a schedule")
	}

	fmt.Printf("Optimal schedule (cost %.2f):\n", best.Cost)
	fmt.Println(emit.DumpTree(best.Root))

	directives, err := emit.Apply(best.Root, fdag, mp.Parallelism)
	if err != nil {
		return errors.Wrap(err, "emitting directives")
	}
	for _, d := range directives {
		fmt.Printf("%s\n", formatDirective(d))
	}

	if *flagBreakdown {
		telemetry := &schedule.CostTelemetry{}
		if _, err := best.Root.Cost(fdag, map[string]*schedule.PartialScheduleNode{}, map[string]float64{}, 1, nil, telemetry); err != nil {
			return errors.Wrap(err, "computing cost breakdown")
		}
		fmt.Println(emit.CostBreakdown(fdag, telemetry))
	}
	return nil
}

func formatDirective(d emit.Directive) string {
	switch d.Kind {
	case emit.ComputeRoot:
		return fmt.Sprintf("%s.compute_root()", d.Stage)
	case emit.Vectorize:
		return fmt.Sprintf("%s.vectorize(%s, %d)", d.Stage, d.Var, d.Factor)
	case emit.Unroll:
		return fmt.Sprintf("%s.unroll(%s)", d.Stage, d.Var)
	case emit.Parallel:
		if d.Factor > 0 {
			return fmt.Sprintf("%s.parallel(%s, %d)", d.Stage, d.Var, d.Factor)
		}
		return fmt.Sprintf("%s.parallel(%s)", d.Stage, d.Var)
	case emit.Split:
		return fmt.Sprintf("%s.split(%s, %s, %s, %d)", d.Stage, d.Var, d.Outer, d.Inner, d.Factor)
	case emit.Fuse:
		return fmt.Sprintf("%s.fuse(%s, %s, %s)", d.Stage, d.Var, d.Outer, d.Inner)
	case emit.StoreAt:
		return fmt.Sprintf("%s.store_at(%s)", d.Stage, d.Level)
	case emit.ComputeAt:
		return fmt.Sprintf("%s.compute_at(%s)", d.Stage, d.Level)
	case emit.Reorder:
		return fmt.Sprintf("%s.reorder(%v)", d.Stage, d.Vars)
	default:
		return d.Kind.String()
	}
}

// pointwiseChainPipeline builds a purely pointwise chain:
// f(x,y)=(x+y)^2, g=f*2+1, h=g*2+1.
func pointwiseChainPipeline() []*dag.Stage {
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
	return []*dag.Stage{h}
}
