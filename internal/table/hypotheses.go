package table

import (
	"sort"

	"github.com/ioltslearn/ioltslearn/internal/iolts"
	"github.com/ioltslearn/ioltslearn/internal/trace"
)

// GenerateHMinus implements §4.4's H⁻: the under-approximation. States are
// equivalence classes of row(s); transitions come directly from what was
// actually observed. Unreachable states are pruned afterwards.
func (t *Table) GenerateHMinus() *iolts.Automaton {
	a := iolts.NewAutomaton()
	stateByRowKey := map[string]iolts.StateID{}
	stateOfS := map[string]iolts.StateID{}

	for _, s := range t.S {
		key := t.rowKey(s)
		if id, ok := stateByRowKey[key]; ok {
			stateOfS[s.String()] = id
			continue
		}
		id := a.AddState()
		stateByRowKey[key] = id
		stateOfS[s.String()] = id
	}

	for _, s := range t.S {
		from := stateOfS[s.String()]
		for _, in := range t.alphabetInputs {
			dest := s.Append(in)
			if id, ok := stateByRowKey[t.rowKey(dest)]; ok && t.Valid(dest) {
				a.AddInput(from, in.Symbol, id)
			}
		}

		c := t.Cell(s, trace.Empty)
		if c == nil {
			continue
		}
		for _, o := range c.Outputs {
			if o.IsQuiescence() {
				if t.cfg.EnforceQuiescenceSelfLoops {
					if id, ok := stateByRowKey[t.rowKey(s.Append(trace.Delta))]; ok {
						a.AddQuiescence(from, id)
					}
				}
				continue
			}
			if id, ok := stateByRowKey[t.rowKey(s.Append(o))]; ok {
				a.AddOutput(from, o.Symbol, id)
			}
		}
	}

	a.RemoveDisconnected()
	return a
}

// GenerateHPlus implements §4.4's H⁺: the over-approximation. States are
// equivalence classes of row⁺(s). For every (s, output) not observed whose
// cell is not complete, transitions route to the Chaos/ChaosQuiescence
// sinks instead of being omitted. withChaos lets GenerateHStar reuse this
// construction without the sinks.
func (t *Table) GenerateHPlus(withChaos bool) *iolts.Automaton {
	a := iolts.NewAutomaton()
	stateByRowPlusKey := map[string]iolts.StateID{}
	stateOfS := map[string]iolts.StateID{}

	// t.S is sorted with ε first, so the state created for it here becomes
	// Automaton.Initial (AddState's first call wins) — the chaos sinks must
	// be added afterwards to avoid stealing that slot.
	for _, s := range t.S {
		key := t.rowPlusKey(s)
		if id, ok := stateByRowPlusKey[key]; ok {
			stateOfS[s.String()] = id
			continue
		}
		id := a.AddState()
		stateByRowPlusKey[key] = id
		stateOfS[s.String()] = id
	}

	var chaos, chaosQuiescence iolts.StateID
	if withChaos {
		chaos = a.AddState()
		chaosQuiescence = a.AddState()
		for _, o := range t.alphabetOutputs {
			a.AddOutput(chaos, o.Symbol, chaos)
		}
		a.AddQuiescence(chaos, chaosQuiescence)
		a.AddQuiescence(chaosQuiescence, chaosQuiescence)
	}

	for _, s := range t.S {
		from := stateOfS[s.String()]
		for _, in := range t.alphabetInputs {
			dest := s.Append(in)
			if id, ok := stateByRowPlusKey[t.rowPlusKey(dest)]; ok && t.Valid(dest) {
				a.AddInput(from, in.Symbol, id)
			}
		}

		c := t.Cell(s, trace.Empty)
		observed := outputsOf(c)
		epsilonComplete := c != nil && c.Complete

		for _, o := range append(append([]trace.Letter(nil), t.alphabetOutputs...), trace.Delta) {
			if observed.Contains(o) {
				dest := s.Append(o)
				id, ok := stateByRowPlusKey[t.rowPlusKey(dest)]
				if !ok {
					continue
				}
				if o.IsQuiescence() {
					if t.cfg.EnforceQuiescenceSelfLoops {
						a.AddQuiescence(from, id)
					}
				} else {
					a.AddOutput(from, o.Symbol, id)
				}
				continue
			}
			if !epsilonComplete && withChaos {
				if o.IsQuiescence() {
					a.AddQuiescence(from, chaosQuiescence)
				} else {
					a.AddOutput(from, o.Symbol, chaos)
				}
			}
		}
	}

	a.RemoveDisconnected()
	return a
}

// GenerateHStar implements §4.4's H★: H⁺ without the chaos sinks, pruned of
// the states landed on by walking every trace the oracle's cache has
// recorded as unreachable (⊥), per gen_hypothesis_star's
// reset_to_initial()/step_to(letter) walk — and, per SPEC_FULL.md's Open
// Question 2 resolution, only when that landed state has no transition to
// a different state. Gating on the walked witness first (rather than a
// blanket scan of every state for the self-loop property) is what keeps a
// legitimately reachable, genuinely self-looping state that no unreachable
// trace ever landed on from being pruned.
func (t *Table) GenerateHStar() *iolts.Automaton {
	a := t.GenerateHPlus(false)
	pruneUnreachableWitnessStates(a, t.oracle.Cache().UnreachableTraces())
	return a
}

// pruneUnreachableWitnessStates removes, for every trace the cache marks
// unreachable, the state a's own transitions land on when walked from its
// initial state along that trace's letters — but only if that state makes
// no observable progress (every outgoing transition, if any, loops back to
// itself) — then re-runs reachability pruning. A trace whose walk falls
// short of a transition (the hypothesis has no edge for some letter along
// the way) witnesses nothing in this automaton and is skipped.
func pruneUnreachableWitnessStates(a *iolts.Automaton, unreachable []trace.Trace) {
	toRemove := map[iolts.StateID]bool{}
	for _, tr := range unreachable {
		landed, ok := a.Walk(tr)
		if !ok || landed == a.Initial {
			continue
		}
		if onlySelfLoops(a.State(landed)) {
			toRemove[landed] = true
		}
	}
	ids := make([]iolts.StateID, 0, len(toRemove))
	for id := range toRemove {
		ids = append(ids, id)
	}
	// RemoveState renumbers the whole arena on every call, so removing
	// highest-ID-first keeps the remaining queued IDs valid: a removal only
	// ever shifts the IDs of states that sorted after it.
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	for _, id := range ids {
		a.RemoveState(id)
	}
	a.RemoveDisconnected()
}

// onlySelfLoops reports whether every outgoing transition of s (if any)
// points back to s itself — the "no observable progress" criterion a
// walked-to state must meet before H★ prunes it.
func onlySelfLoops(s *iolts.State) bool {
	hasAny := false
	for _, dests := range s.Inputs {
		for _, d := range dests {
			hasAny = true
			if d != s.ID {
				return false
			}
		}
	}
	for _, dests := range s.Outputs {
		for _, d := range dests {
			hasAny = true
			if d != s.ID {
				return false
			}
		}
	}
	for _, d := range s.Quiescence {
		hasAny = true
		if d != s.ID {
			return false
		}
	}
	return hasAny
}
