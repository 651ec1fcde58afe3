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

package symbolic

// RequiredBoxes walks e and, for every KindCall node found (recursing into
// operator and call arguments alike), returns the union across all
// occurrences of the callee's required box: for each argument position,
// the elementwise min of the lower bound and max of the upper bound of the
// interval that argument expression can take over scope.
//
// This mirrors the host bounds-inference API's required_boxes: it is
// conservative interval arithmetic, not a general solver. Multiplication is
// only resolved exactly when one side simplifies to a constant; otherwise
// the argument expression is treated as its own (unexpanded) bound, which
// is always sound but may fail to simplify to an integer later.
func RequiredBoxes(e *Expr, scope map[string]Interval) map[string]Box {
	boxes := make(map[string]Box)
	var walk func(e *Expr)
	walk = func(e *Expr) {
		if e == nil {
			return
		}
		switch e.Kind {
		case KindConst, KindVar:
			return
		case KindCall:
			box := make(Box, len(e.Args))
			for i, a := range e.Args {
				box[i] = intervalOf(a, scope)
				walk(a)
			}
			mergeBox(boxes, e.Name, box)
		default:
			for _, a := range e.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return boxes
}

func mergeBox(boxes map[string]Box, name string, box Box) {
	existing, ok := boxes[name]
	if !ok {
		boxes[name] = box
		return
	}
	merged := make(Box, len(existing))
	for i := range existing {
		merged[i] = Interval{
			Min: Simplify(Min(existing[i].Min, box[i].Min)),
			Max: Simplify(Max(existing[i].Max, box[i].Max)),
		}
	}
	boxes[name] = merged
}

// intervalOf computes a conservative symbolic Interval for e given the
// intervals of its free variables.
func intervalOf(e *Expr, scope map[string]Interval) Interval {
	switch e.Kind {
	case KindConst:
		return Interval{Min: e, Max: e}
	case KindVar:
		if iv, ok := scope[e.Name]; ok {
			return iv
		}
		return Interval{Min: e, Max: e}
	case KindAdd:
		a := intervalOf(e.Args[0], scope)
		b := intervalOf(e.Args[1], scope)
		return Interval{Min: Simplify(Add(a.Min, b.Min)), Max: Simplify(Add(a.Max, b.Max))}
	case KindSub:
		a := intervalOf(e.Args[0], scope)
		b := intervalOf(e.Args[1], scope)
		return Interval{Min: Simplify(Sub(a.Min, b.Max)), Max: Simplify(Sub(a.Max, b.Min))}
	case KindMul:
		a := intervalOf(e.Args[0], scope)
		b := intervalOf(e.Args[1], scope)
		return mulInterval(a, b)
	case KindMin:
		a := intervalOf(e.Args[0], scope)
		b := intervalOf(e.Args[1], scope)
		return Interval{Min: Simplify(Min(a.Min, b.Min)), Max: Simplify(Min(a.Max, b.Max))}
	case KindMax:
		a := intervalOf(e.Args[0], scope)
		b := intervalOf(e.Args[1], scope)
		return Interval{Min: Simplify(Max(a.Min, b.Min)), Max: Simplify(Max(a.Max, b.Max))}
	default:
		// KindCall or anything else: treated as an opaque point value; its
		// own required box is still collected by RequiredBoxes's walk.
		return Interval{Min: e, Max: e}
	}
}

func mulInterval(a, b Interval) Interval {
	if v, ok := AsConstInt(Simplify(a.Min)); ok && a.Min == a.Max {
		return scaleInterval(b, v)
	}
	if v, ok := AsConstInt(Simplify(b.Min)); ok && b.Min == b.Max {
		return scaleInterval(a, v)
	}
	// Neither side is a known scalar: fall back to the product expression
	// itself, unexpanded, as a conservative (degenerate) interval.
	p := Simplify(Mul(a.Min, b.Min))
	return Interval{Min: p, Max: p}
}

func scaleInterval(iv Interval, c int64) Interval {
	if c >= 0 {
		return Interval{Min: Simplify(Mul(iv.Min, ConstInt(c))), Max: Simplify(Mul(iv.Max, ConstInt(c)))}
	}
	return Interval{Min: Simplify(Mul(iv.Max, ConstInt(c))), Max: Simplify(Mul(iv.Min, ConstInt(c)))}
}
