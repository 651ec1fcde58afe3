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

package search

import "github.com/xdestiny110/Halide/schedule"

// stateQueue is a container/heap min-heap of *schedule.State ordered by
// ascending Cost: Pop always returns the cheapest remaining candidate. No
// library in the retrieval pack offers a priority queue; container/heap is
// the standard-library idiom for one, see DESIGN.md.
type stateQueue []*schedule.State

func (q stateQueue) Len() int            { return len(q) }
func (q stateQueue) Less(i, j int) bool  { return q[i].Cost < q[j].Cost }
func (q stateQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *stateQueue) Push(x interface{}) { *q = append(*q, x.(*schedule.State)) }
func (q *stateQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
