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
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/xdestiny110/Halide/dag"
	"github.com/xdestiny110/Halide/schedule"
)

var (
	treeBorderColor = lipgloss.Color("62")
	storeAtStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	innermostStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

// DumpTree renders the loop-nest tree as indented text, one line per loop
// level plus one per store_at, matching the structure (if not the exact
// formatting) of the source's own recursive dump.
func DumpTree(root *schedule.PartialScheduleNode) string {
	var b strings.Builder
	dumpNode(&b, root, "")
	return b.String()
}

func dumpNode(b *strings.Builder, n *schedule.PartialScheduleNode, prefix string) {
	if !n.IsRoot() {
		fmt.Fprintf(b, "%s%s", prefix, n.Stage.Name())
		for _, s := range n.Size {
			fmt.Fprintf(b, " %d", s)
		}
		if n.Tileable {
			b.WriteString(" t")
		}
		if n.Innermost {
			b.WriteString(innermostStyle.Render(" *"))
		}
		b.WriteString("\n")
		prefix += "  "
	}

	storeAt := make([]string, 0, len(n.StoreAt))
	for name := range n.StoreAt {
		storeAt = append(storeAt, name)
	}
	sort.Strings(storeAt)
	for _, name := range storeAt {
		fmt.Fprintf(b, "%s%s\n", prefix, storeAtStyle.Render("realize: "+name))
	}

	for _, c := range n.Children {
		dumpNode(b, c, prefix)
	}

	inlined := make([]string, 0, len(n.Inlined))
	for name := range n.Inlined {
		inlined = append(inlined, name)
	}
	sort.Strings(inlined)
	for _, name := range inlined {
		fmt.Fprintf(b, "%sinlined: %s x%s\n", prefix, name, humanize.Comma(n.Inlined[name]))
	}
}

// CostBreakdown renders one lipgloss table row per stage with a cost
// breakdown, using the bookkeeping Cost leaves in telemetry when given a
// non-nil *schedule.CostTelemetry. Supplements the original dump, which
// only ever printed this when a debug flag was set (original_source's
// print_predicted_runtimes); kept as its own function rather than folded
// into DumpTree so callers can opt in.
func CostBreakdown(fdag *dag.FunctionDAG, telemetry *schedule.CostTelemetry) string {
	t := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(treeBorderColor)).
		Headers("Stage", "Compute", "Memory", "Total")

	// Inlined funcs fold their cost into their consumer's edge cost, same
	// as print_predicted_runtimes: walk producer-to-consumer (reverse of
	// FunctionDAG.Nodes' consumer-first order) pushing each inlined
	// stage's incoming edge cost onto its own outgoing edges first.
	for i := len(fdag.Nodes); i > 0; i-- {
		n := fdag.Nodes[i-1]
		if !telemetry.Inlined[n.Name()] {
			continue
		}
		var c float64
		for _, e := range fdag.IncomingEdges(n) {
			c += telemetry.EdgeCosts[e]
		}
		for _, e := range fdag.OutgoingEdges(n) {
			if telemetry.EdgeCosts == nil {
				telemetry.EdgeCosts = map[*dag.Edge]float64{}
			}
			telemetry.EdgeCosts[e] += c
		}
	}

	for _, n := range fdag.Nodes {
		computeCost, ok := telemetry.NodeCosts[n.Name()]
		if !ok {
			continue
		}
		var memCost float64
		for _, e := range fdag.IncomingEdges(n) {
			memCost += telemetry.EdgeCosts[e]
		}
		t.Row(n.Name(),
			strconv.FormatFloat(computeCost, 'f', 2, 64),
			strconv.FormatFloat(memCost, 'f', 2, 64),
			strconv.FormatFloat(computeCost+memCost, 'f', 2, 64),
		)
	}
	return t.Render()
}
