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

// Package scheduleerr defines the fatal error kinds the auto-scheduler can
// return. None of them are retried by the caller; see DESIGN.md.
package scheduleerr

import "github.com/pkg/errors"

// Sentinel errors. Wrap with errors.Wrapf at the call site to attach the
// stage/dimension context; test with errors.Is against these.
var (
	// ErrMissingEstimate: an output stage dimension lacks an extent estimate.
	ErrMissingEstimate = errors.New("missing estimate")

	// ErrUnsupportedStage: a stage has an update (reduction) definition.
	ErrUnsupportedStage = errors.New("unsupported stage: has an update definition")

	// ErrNonConstantBound: an inferred interval failed to simplify to an
	// integer literal after substitution.
	ErrNonConstantBound = errors.New("bound did not simplify to a constant")

	// ErrMissingConsumer: a non-output stage has no outgoing edges. Should
	// be unreachable once a stage is only created from an output's
	// transitive producer closure; indicates a corrupt DAG.
	ErrMissingConsumer = errors.New("stage reachable from an output has no consumer")

	// ErrPartialStateIncoherent: a generated child does not actually
	// compute the stage it was meant to place. Internal assertion: it is
	// raised as a panic value (wrapped with errors.Wrapf), not returned.
	ErrPartialStateIncoherent = errors.New("partial schedule state is incoherent")
)
