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

// Package dag builds the producer-consumer FunctionDAG: immutable Nodes
// with compute/memory coefficients and Edges carrying required-box
// footprints, from a host-supplied list of output Stages.
package dag

import "github.com/xdestiny110/Halide/symbolic"

// Estimate is a user-supplied concrete extent for one dimension of an
// output stage: the loop runs [Min, Min+Extent).
type Estimate struct {
	Min, Extent int64
}

// Update marks that a stage has a reduction/update definition. Its
// presence on a Stage is fatal (ErrUnsupportedStage); the type carries no
// data because Build only ever checks len(Updates) > 0.
type Update struct{}

// Stage is a stable handle to a pure, array-producing function supplied by
// the host environment. Stages are immutable once constructed.
type Stage struct {
	// Name is the stage's identity; also the symbolic-bounds namespace
	// ("<Name>.<i>.min" / "<Name>.<i>.max").
	Name string

	// Args names each dimension's loop variable, len(Args) == Dims.
	Args []string

	// Dims is the stage's dimensionality d.
	Dims int

	// Values are the stage's right-hand-side expressions, analyzed as one
	// aggregate expression.
	Values []*symbolic.Expr

	// Updates must be empty: reductions with update definitions are
	// rejected outright (Non-goal).
	Updates []Update

	// Estimates gives a concrete extent per dimension. Required only for
	// stages with no consumers (outputs); Build returns MissingEstimate
	// for such a stage when len(Estimates) differs from Dims.
	Estimates []Estimate

	// BytesPerElement is Σ value.type.bytes() over Values, computed by the
	// host's type system before the stage reaches this package.
	BytesPerElement int64

	// Producers lists, in first-reference order, the direct callee Stages
	// (the stages this one's Values call into). Calls to non-stage
	// callees (input images) are not listed here and never produce an
	// Edge.
	Producers []*Stage

	// ParamValues are scalar parameter objects (as opposed to loop bound
	// variables) whose values are known at DAG-construction time and get
	// substituted into edge bounds.
	ParamValues map[string]int64
}

// leafCount is the result of the leaf-counter visitor.
type leafCount struct {
	Leaves int64
	Calls  map[string]int64
}

// countLeaves implements the leaf counter: integer/float/uint literals and
// variables are 1 leaf each; a call recurses into its own arguments' leaves
// and adds one further leaf per argument (addressing arithmetic) on top.
func countLeaves(values []*symbolic.Expr) leafCount {
	total := leafCount{Calls: map[string]int64{}}
	var walk func(e *symbolic.Expr)
	walk = func(e *symbolic.Expr) {
		if e == nil {
			return
		}
		switch e.Kind {
		case symbolic.KindConst, symbolic.KindVar:
			total.Leaves++
		case symbolic.KindCall:
			for _, a := range e.Args {
				walk(a)
			}
			total.Leaves += int64(len(e.Args))
			total.Calls[e.Name]++
		default:
			for _, a := range e.Args {
				walk(a)
			}
		}
	}
	for _, v := range values {
		walk(v)
	}
	return total
}

// aggregateValue folds Values into the single expression the rest of
// construction analyzes, treating multiple outputs as one aggregate
// expression.
func aggregateValue(values []*symbolic.Expr) *symbolic.Expr {
	if len(values) == 0 {
		return symbolic.ConstInt(0)
	}
	agg := values[0]
	for _, v := range values[1:] {
		agg = symbolic.Add(agg, v)
	}
	return agg
}
