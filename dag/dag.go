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
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/xdestiny110/Halide/params"
	"github.com/xdestiny110/Halide/scheduleerr"
	"github.com/xdestiny110/Halide/symbolic"
	"k8s.io/klog/v2"
)

// FunctionDAG owns the Nodes and Edges of a pipeline, plus the auxiliary
// producer/consumer indices. It is immutable once Build returns and must
// not be copied: the indices hold interior references into Nodes/Edges.
type FunctionDAG struct {
	// Nodes are stored in reverse realization order: index 0 is an
	// output, and every producer has a strictly greater Index than its
	// consumers.
	Nodes []*Node
	Edges []*Edge

	byName   map[string]*Node
	outgoing map[string][]*Edge // by producer name
	incoming map[string][]*Edge // by consumer name
}

// NodeByName looks up a Node by its stage name.
func (d *FunctionDAG) NodeByName(name string) (*Node, bool) {
	n, ok := d.byName[name]
	return n, ok
}

// OutgoingEdges returns the edges from Node n to its consumers.
func (d *FunctionDAG) OutgoingEdges(n *Node) []*Edge { return d.outgoing[n.Name()] }

// IncomingEdges returns the edges into Node n from its producers.
func (d *FunctionDAG) IncomingEdges(n *Node) []*Edge { return d.incoming[n.Name()] }

// HasConsumers reports whether n is consumed by anything in the DAG (false
// for an output stage).
func (d *FunctionDAG) HasConsumers(n *Node) bool { return len(d.outgoing[n.Name()]) > 0 }

// Build walks the transitive producer closure of outputs, derives a
// realization order, and constructs an immutable, cross-referenced
// FunctionDAG.
func Build(outputs []*Stage, mp params.MachineParams) (*FunctionDAG, error) {
	order, err := realizationOrder(outputs)
	if err != nil {
		return nil, err
	}
	isDeclaredOutput := make(map[string]bool, len(outputs))
	for _, out := range outputs {
		isDeclaredOutput[out.Name] = true
	}

	d := &FunctionDAG{
		byName:   make(map[string]*Node, len(order)),
		outgoing: make(map[string][]*Edge),
		incoming: make(map[string][]*Edge),
	}

	// Phase 1: allocate a Node (symbolic region + coefficients) for every
	// stage. Each Node only depends on its own Stage, so order doesn't
	// matter here; we still walk consumer-before-producer so Nodes end up
	// stored that way.
	d.Nodes = make([]*Node, len(order))
	for i, st := range order {
		if len(st.Updates) > 0 {
			return nil, errors.Wrapf(scheduleerr.ErrUnsupportedStage, "stage %q", st.Name)
		}
		region := make([]symbolic.Interval, st.Dims)
		for dim := 0; dim < st.Dims; dim++ {
			region[dim] = symbolic.Interval{
				Min: symbolic.MakeVariable(fmt.Sprintf("%s.%d.min", st.Name, dim)),
				Max: symbolic.MakeVariable(fmt.Sprintf("%s.%d.max", st.Name, dim)),
			}
		}

		leaves := countLeaves(st.Values)
		bytesPerElement := st.BytesPerElement
		compute := float64(leaves.Leaves) * float64(bytesPerElement)
		leavesIfInlined := leaves.Leaves - int64(st.Dims)
		if leavesIfInlined < 0 {
			leavesIfInlined = 0
		}
		computeIfInlined := float64(leavesIfInlined) * float64(bytesPerElement)
		memory := float64(bytesPerElement) * mp.MemoryCoefficientScale()

		node := &Node{
			Stage:            st,
			Index:            i,
			Region:           region,
			Compute:          compute,
			ComputeIfInlined: computeIfInlined,
			Memory:           memory,
			InstanceID:       uuid.New(),
		}
		d.Nodes[i] = node
		d.byName[st.Name] = node
	}

	// Phase 2: required-box analysis per stage, producing Edges.
	for _, st := range order {
		consumer := d.byName[st.Name]
		scope := make(map[string]symbolic.Interval, st.Dims)
		for dim, argName := range st.Args {
			scope[argName] = consumer.Region[dim]
		}

		boxes := make(map[string]symbolic.Box)
		callCounts := make(map[string]int64)
		for _, v := range st.Values {
			for callee, box := range symbolic.RequiredBoxes(v, scope) {
				mergeBoxInto(boxes, callee, box)
			}
		}
		leaves := countLeaves(st.Values)
		for callee, calls := range leaves.Calls {
			callCounts[callee] += calls
		}

		for _, producerStage := range st.Producers {
			producer, ok := d.byName[producerStage.Name]
			if !ok {
				continue
			}
			box, ok := boxes[producerStage.Name]
			if !ok {
				continue
			}
			substituted := substituteParams(box, st.ParamValues)
			e := &Edge{
				Producer: producer,
				Consumer: consumer,
				Bounds:   substituted,
				Calls:    callCounts[producerStage.Name],
			}
			d.Edges = append(d.Edges, e)
			d.outgoing[producer.Name()] = append(d.outgoing[producer.Name()], e)
			d.incoming[consumer.Name()] = append(d.incoming[consumer.Name()], e)
		}
	}

	// Now that outgoing/incoming are populated: outputs must carry
	// estimates on every dimension, and every non-output must have at
	// least one consumer.
	for _, n := range d.Nodes {
		if d.HasConsumers(n) {
			continue
		}
		if !isDeclaredOutput[n.Stage.Name] {
			return nil, errors.Wrapf(scheduleerr.ErrMissingConsumer, "stage %q", n.Stage.Name)
		}
		if len(n.Stage.Estimates) != n.Stage.Dims {
			return nil, errors.Wrapf(scheduleerr.ErrMissingEstimate, "stage %q: expected %d estimates, got %d",
				n.Stage.Name, n.Stage.Dims, len(n.Stage.Estimates))
		}
	}
	klog.V(2).InfoS("function dag built", "nodes", len(d.Nodes), "edges", len(d.Edges))
	return d, nil
}

// mergeBoxInto unions box into boxes[name], matching symbolic.RequiredBoxes'
// own merge semantics (elementwise min of mins, max of maxes).
func mergeBoxInto(boxes map[string]symbolic.Box, name string, box symbolic.Box) {
	existing, ok := boxes[name]
	if !ok {
		boxes[name] = box
		return
	}
	merged := make(symbolic.Box, len(existing))
	for i := range existing {
		merged[i] = symbolic.Interval{
			Min: symbolic.Simplify(symbolic.Min(existing[i].Min, box[i].Min)),
			Max: symbolic.Simplify(symbolic.Max(existing[i].Max, box[i].Max)),
		}
	}
	boxes[name] = merged
}

func substituteParams(box symbolic.Box, paramValues map[string]int64) symbolic.Box {
	if len(paramValues) == 0 {
		out := make(symbolic.Box, len(box))
		for i, iv := range box {
			out[i] = symbolic.Interval{Min: symbolic.Simplify(iv.Min), Max: symbolic.Simplify(iv.Max)}
		}
		return out
	}
	subs := make(map[string]*symbolic.Expr, len(paramValues))
	for name, v := range paramValues {
		subs[name] = symbolic.ConstInt(v)
	}
	out := make(symbolic.Box, len(box))
	for i, iv := range box {
		out[i] = symbolic.Interval{
			Min: symbolic.Simplify(symbolic.Substitute(subs, iv.Min)),
			Max: symbolic.Simplify(symbolic.Substitute(subs, iv.Max)),
		}
	}
	return out
}

// realizationOrder walks the transitive producer closure of outputs and
// returns stages consumer-before-producer (index 0 is an output), using a
// post-order DFS over Producers reversed.
func realizationOrder(outputs []*Stage) ([]*Stage, error) {
	var postOrder []*Stage // producer-before-consumer (realization order)
	visited := make(map[string]bool)
	visiting := make(map[string]bool)

	var visit func(st *Stage) error
	visit = func(st *Stage) error {
		if visited[st.Name] {
			return nil
		}
		if visiting[st.Name] {
			return errors.Errorf("cycle detected through stage %q", st.Name)
		}
		visiting[st.Name] = true
		for _, p := range st.Producers {
			if err := visit(p); err != nil {
				return err
			}
		}
		visiting[st.Name] = false
		visited[st.Name] = true
		postOrder = append(postOrder, st)
		return nil
	}

	for _, out := range outputs {
		if err := visit(out); err != nil {
			return nil, err
		}
	}

	// postOrder is producer-before-consumer; reverse for consumer-first,
	// output-first storage order.
	order := make([]*Stage, len(postOrder))
	for i, st := range postOrder {
		order[len(postOrder)-1-i] = st
	}
	return order, nil
}
