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

import (
	"container/heap"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/xdestiny110/Halide/dag"
	"github.com/xdestiny110/Halide/schedule"
	"k8s.io/klog/v2"
)

// OptimalSchedule runs one beam search of the given width to completion:
// grow the queue by generating every child of every surviving state, trim
// back to beamSize keeping the cheapest, and repeat until some state has
// every stage scheduled.
func OptimalSchedule(fdag *dag.FunctionDAG, cfg Config, beamSize int) (*schedule.State, error) {
	if beamSize < 1 {
		beamSize = 1
	}

	q := &stateQueue{}
	heap.Init(q)
	heap.Push(q, schedule.NewState())

	var bar *progressbar.ProgressBar
	if cfg.DebugLevel > 0 {
		bar = progressbar.NewOptions(len(fdag.Nodes),
			progressbar.OptionSetDescription("scheduling"),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionClearOnFinish(),
		)
	}

	// counter and the &1023 gate below fire whenever the low 10 bits of
	// counter are nonzero, i.e. on 1023 out of every 1024 generated
	// children, skipping only the exact multiples of 1024 — almost
	// certainly an inverted typo for "== 0", but preserved bit-for-bit
	// rather than silently fixed. See DESIGN.md.
	var counter uint32
	var genErr error
	accept := func(s *schedule.State) {
		counter++
		if bar != nil && counter&1023 != 0 {
			_ = bar.Set(s.NumFuncsScheduled)
		}
		heap.Push(q, s)
	}

	for {
		if q.Len() > beamSize {
			trimmed := &stateQueue{}
			heap.Init(trimmed)
			for i := 0; i < beamSize; i++ {
				heap.Push(trimmed, heap.Pop(q))
			}
			q = trimmed
		}

		pending := q
		q = &stateQueue{}
		heap.Init(q)
		for pending.Len() > 0 {
			state := heap.Pop(pending).(*schedule.State)
			if state.NumFuncsScheduled == len(fdag.Nodes) {
				if bar != nil {
					_ = bar.Finish()
				}
				return state, nil
			}
			if err := state.GenerateChildren(fdag, accept); err != nil {
				genErr = err
				break
			}
		}
		if genErr != nil {
			return nil, genErr
		}
	}
}

// GenerateSchedulesTopDown is the top-level entry point: it either runs a
// single fixed-width search (cfg.TimeLimit == 0) or repeatedly doubles the
// beam size, keeping the cheapest schedule found, until half of
// cfg.TimeLimit has elapsed.
func GenerateSchedulesTopDown(fdag *dag.FunctionDAG, cfg Config) (*schedule.State, error) {
	if cfg.TimeLimit <= 0 {
		s, err := OptimalSchedule(fdag, cfg, cfg.BeamSize)
		if err != nil {
			return nil, err
		}
		klog.V(1).InfoS("schedule found", "beam_size", cfg.BeamSize, "cost", s.Cost)
		return s, nil
	}

	start := time.Now()
	var best *schedule.State
	for beamSize := 1; ; beamSize *= 2 {
		s, err := OptimalSchedule(fdag, cfg, beamSize)
		if err != nil {
			return nil, err
		}
		if best == nil || s.Cost < best.Cost {
			best = s
		}
		klog.V(1).InfoS("beam search iteration", "beam_size", beamSize, "cost", s.Cost, "best_cost", best.Cost)
		if time.Since(start) > cfg.TimeLimit/2 {
			break
		}
	}
	if best == nil {
		return nil, errors.New("no schedule found within time limit")
	}
	return best, nil
}
