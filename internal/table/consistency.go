package table

import (
	"context"
	"errors"
	"fmt"

	"github.com/ioltslearn/ioltslearn/internal/trace"
)

// ErrStabilizeExceeded is wrapped into the error Stabilize returns when it
// exhausts maxIterations without reaching a fixed point — per §7, this is
// the "inconsistency unresolvable by adding to E" stall condition: a
// violation keeps reappearing because addSuffix has stopped changing the
// table's shape (the suffix it reports is already in E). Callers match it with errors.Is.
var ErrStabilizeExceeded = errors.New("table: stabilize exceeded max iterations without reaching a fixed point")

// Closed implements §4.3's closedness check: the table is closed iff for
// every s ∈ S and a ∈ A with s·a valid, some s′ ∈ S has row⁺(s·a) =
// row⁺(s′). On violation, the first offending s·a (in S×A order, both
// already sorted) is returned so the caller can append it to S.
func (t *Table) Closed() (bool, trace.Trace) {
	for _, s := range t.S {
		for _, a := range t.alphabet {
			cand := s.Append(a)
			if !t.Valid(cand) {
				continue
			}
			closedOver := false
			for _, s2 := range t.S {
				if t.RowPlusEqual(cand, s2) {
					closedOver = true
					break
				}
			}
			if !closedOver {
				return false, cand
			}
		}
	}
	return true, nil
}

// Consistent implements §4.3's consistency check. Every violation across
// all (s1, s2, a, e) quadruples is collected, and the shortest offending
// a·e (by trace.Compare — length then lexicographic) is returned to
// extend E with — the original implementation picks the lexicographically
// smallest tuple from the full violation set; "shortest" is what spec.md
// asks for, which trace.Compare's length-first order gives directly.
func (t *Table) Consistent() (bool, trace.Trace) {
	var violations []trace.Trace

	for _, s1 := range t.S {
		for _, s2 := range t.S {
			if !t.RowEqual(s1, s2) {
				continue
			}
			rowPlusEq := t.RowPlusEqual(s1, s2)

			for _, a := range t.alphabet {
				c1 := s1.Append(a)
				c2 := s2.Append(a)
				if !t.Valid(c1) || !t.Valid(c2) {
					continue
				}
				for _, e := range t.E {
					cell1, cell2 := t.Cell(c1, e), t.Cell(c2, e)
					out1 := outputsOf(cell1)
					out2 := outputsOf(cell2)
					if !out1.Equal(out2) {
						violations = append(violations, trace.Concat(trace.Trace{a}, e))
						break
					}
					if rowPlusEq && !completePlusEqual(cell1, cell2) {
						violations = append(violations, trace.Concat(trace.Trace{a}, e))
						break
					}
				}
			}
		}
	}

	if len(violations) == 0 {
		return true, nil
	}
	shortest := violations[0]
	for _, v := range violations[1:] {
		if trace.Compare(v, shortest) < 0 {
			shortest = v
		}
	}
	return false, shortest
}

func outputsOf(c *Cell) OutputSet {
	if c == nil {
		return nil
	}
	return c.Outputs
}

func completePlusEqual(a, b *Cell) bool {
	ac := a != nil && a.Complete
	bc := b != nil && b.Complete
	return ac == bc
}

// QuiescenceReducible implements §4.3's δ-reducibility check: a δ-transition
// from s must lead to a state indistinguishable from some existing state
// w.r.t. future behavior. On violation, returns the distinguishing trace
// to extend E with.
func (t *Table) QuiescenceReducible() (bool, trace.Trace) {
	for _, s1 := range t.S {
		for _, s2 := range t.S {
			c := t.Cell(s1, trace.Empty)
			if c == nil || !c.Outputs.Contains(trace.Delta) {
				continue
			}
			if !t.RowPlusEqual(s1.Append(trace.Delta), s2) {
				continue
			}

			type item struct {
				s1, s2, t trace.Trace
			}
			wait := []item{{s1, s2, trace.Empty}}
			past := map[string]bool{}

			for len(wait) > 0 {
				cur := wait[0]
				wait = wait[1:]

				cell1 := t.Cell(cur.s1, trace.Empty)
				cell2 := t.Cell(cur.s2, trace.Empty)
				s1Values := candidateContinuations(cell1, t.alphabetInputs)
				s2Values := candidateContinuations(cell2, t.alphabetInputs)

				for _, a := range s2Values {
					if !containsLetter(s1Values, a) {
						return false, cur.t
					}

					prime1, ok1 := t.findRowEqual(cur.s1.Append(a))
					prime2, ok2 := t.findRowEqual(cur.s2.Append(a))
					if !ok1 || !ok2 {
						continue
					}
					if prime1.String() == prime2.String() {
						continue
					}
					pastKey := prime1.String() + "\x1f" + prime2.String()
					if past[pastKey] {
						continue
					}
					past[pastKey] = true
					wait = append(wait, item{prime1, prime2, trace.Concat(cur.t, trace.Trace{a})})
				}
			}
		}
	}
	return true, nil
}

// candidateContinuations is row(s)[ε] (the observed outputs/quiescence at
// s) unioned with every input letter — inputs are always candidate
// continuations regardless of whether literally observed from s, since
// their acceptance is checked structurally elsewhere.
func candidateContinuations(c *Cell, inputs []trace.Letter) []trace.Letter {
	out := append([]trace.Letter(nil), inputs...)
	if c != nil {
		out = append(out, c.Outputs...)
	}
	return out
}

// Stabilize runs §4.3's fixed-point loop: alternate {refresh, close,
// consistent} until neither extends S nor E; then, if configured, check
// quiescence-reducibility, re-stabilizing on any E extension it causes.
// maxIterations bounds the loop (the driver's round cap is the outer
// safety net; this one exists so a single Stabilize call can't spin
// forever inside one round).
func (t *Table) Stabilize(ctx context.Context, maxIterations int) error {
	for i := 0; i < maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.Refresh(ctx); err != nil {
			return err
		}

		if ok, s := t.Closed(); !ok {
			t.S = append(t.S, s)
			sortTraces(t.S)
			continue
		}

		if ok, e := t.Consistent(); !ok {
			t.addSuffix(e)
			continue
		}

		if t.cfg.EnforceQuiescenceReduced {
			if ok, e := t.QuiescenceReducible(); !ok {
				t.addSuffix(e)
				continue
			}
		}

		return nil
	}
	return fmt.Errorf("%w (%d iterations)", ErrStabilizeExceeded, maxIterations)
}

func (t *Table) addSuffix(e trace.Trace) bool {
	for _, existing := range t.E {
		if existing.Equal(e) {
			return false
		}
	}
	t.E = append(t.E, e)
	sortTraces(t.E)
	return true
}

func sortTraces(ts []trace.Trace) {
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && trace.Compare(ts[j], ts[j-1]) < 0; j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}
