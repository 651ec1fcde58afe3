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
	"github.com/google/uuid"
	"github.com/xdestiny110/Halide/symbolic"
)

// Node is one immutable vertex of the FunctionDAG.
type Node struct {
	Stage *Stage

	// Index is this Node's position in FunctionDAG.Nodes: index 0 is an
	// output, and for every Edge the producer's Index is strictly greater
	// than the consumer's.
	Index int

	// Region holds, per dimension, the symbolic (min, max) variables
	// allocated for this stage at construction time.
	Region []symbolic.Interval

	// Compute is the per-point work when this stage is realized
	// separately.
	Compute float64

	// ComputeIfInlined is the per-call-site work when this stage is
	// inlined into a consumer.
	ComputeIfInlined float64

	// Memory is the cost coefficient applied to each cold load of this
	// stage's storage.
	Memory float64

	// InstanceID disambiguates log lines and dumps when two stages share
	// a name prefix; it carries no scheduling semantics.
	InstanceID uuid.UUID
}

// Name returns the stage's stable identity.
func (n *Node) Name() string { return n.Stage.Name }

// Dims returns the stage's dimensionality.
func (n *Node) Dims() int { return n.Stage.Dims }

// Edge is a directed producer -> consumer relation derived from
// required-box analysis of the consumer's right-hand side.
type Edge struct {
	Producer *Node
	Consumer *Node

	// Bounds gives, per producer dimension, the region required expressed
	// in the consumer's own symbolic region variables, already simplified
	// after ParamValues substitution.
	Bounds symbolic.Box

	// Calls is the number of call-sites from one point of the consumer to
	// the producer.
	Calls int64
}
