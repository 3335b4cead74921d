package iolts

import "github.com/ioltslearn/ioltslearn/internal/trace"

// StateID indexes into an Automaton's dense state arena. Representing
// states as arena indices (rather than cyclic pointer graphs) avoids shared
// ownership entirely: every transition is a (letter, index) pair, and all
// mutation goes through the owning Automaton (§9).
type StateID int

// State is one node of an Automaton: its identity (ID) plus the three
// transition maps of §3. Non-determinism is represented directly — each
// map value is a set (slice, deduplicated) of successor states, not a
// single successor.
type State struct {
	ID StateID

	// Inputs maps an input symbol to the set of states it may lead to.
	Inputs map[string][]StateID
	// Outputs maps an output symbol to the set of states it may lead to.
	Outputs map[string][]StateID
	// Quiescence holds the successors of a δ-transition. Per §3, for an
	// ordinary (non-sink) state this is non-empty if and only if Outputs is
	// empty — quiescence is the absence of spontaneous output. The two
	// chaos sink states are the documented exception: Chaos has both
	// outputs and a δ-transition, because it represents total uncertainty
	// about what happens next, including whether the system is quiescent.
	Quiescence []StateID
}

// EnablesQuiescence reports whether s has at least one δ-successor.
func (s *State) EnablesQuiescence() bool { return len(s.Quiescence) > 0 }

// Automaton is an IOLTS: an initial state plus the state arena. Input and
// output alphabets are derivable as the union, over all states, of the
// transition map keys.
type Automaton struct {
	States  []*State
	Initial StateID
}

// NewAutomaton returns an empty automaton with no states. AddState must be
// called at least once (for the initial state) before use.
func NewAutomaton() *Automaton {
	return &Automaton{}
}

// AddState appends a new, transition-less state and returns its ID. The
// first state added becomes Initial.
func (a *Automaton) AddState() StateID {
	id := StateID(len(a.States))
	a.States = append(a.States, &State{
		ID:      id,
		Inputs:  map[string][]StateID{},
		Outputs: map[string][]StateID{},
	})
	if id == 0 {
		a.Initial = id
	}
	return id
}

// State returns the state with the given ID.
func (a *Automaton) State(id StateID) *State { return a.States[id] }

// AddInput records a non-deterministic input transition from→to on symbol.
func (a *Automaton) AddInput(from StateID, symbol string, to StateID) {
	s := a.States[from]
	if !containsState(s.Inputs[symbol], to) {
		s.Inputs[symbol] = append(s.Inputs[symbol], to)
	}
}

// AddOutput records a non-deterministic output transition from→to on symbol.
func (a *Automaton) AddOutput(from StateID, symbol string, to StateID) {
	s := a.States[from]
	if !containsState(s.Outputs[symbol], to) {
		s.Outputs[symbol] = append(s.Outputs[symbol], to)
	}
}

// AddQuiescence records a δ-transition from→to.
func (a *Automaton) AddQuiescence(from, to StateID) {
	s := a.States[from]
	if !containsState(s.Quiescence, to) {
		s.Quiescence = append(s.Quiescence, to)
	}
}

// Step follows a single letter from state from, returning its first
// recorded successor. The hypothesis generators never register more than
// one destination per (state, symbol) pair, so "first" is in practice the
// only one; ok is false if the letter has no transition there at all.
func (a *Automaton) Step(from StateID, l trace.Letter) (to StateID, ok bool) {
	s := a.States[from]
	var dests []StateID
	switch l.Kind {
	case trace.Input:
		dests = s.Inputs[l.Symbol]
	case trace.Output:
		dests = s.Outputs[l.Symbol]
	case trace.Quiescence:
		dests = s.Quiescence
	}
	if len(dests) == 0 {
		return 0, false
	}
	return dests[0], true
}

// Walk follows letters from the initial state in order, stopping early if a
// letter has no transition. ok reports whether every letter was followed;
// to is the state reached by the longest followed prefix.
func (a *Automaton) Walk(letters []trace.Letter) (to StateID, ok bool) {
	cur := a.Initial
	for _, l := range letters {
		next, stepped := a.Step(cur, l)
		if !stepped {
			return cur, false
		}
		cur = next
	}
	return cur, true
}

func containsState(set []StateID, id StateID) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}

// InputAlphabet returns the union, over all states, of input symbols.
func (a *Automaton) InputAlphabet() []string { return unionKeys(a.States, func(s *State) map[string][]StateID { return s.Inputs }) }

// OutputAlphabet returns the union, over all states, of output symbols.
func (a *Automaton) OutputAlphabet() []string {
	return unionKeys(a.States, func(s *State) map[string][]StateID { return s.Outputs })
}

func unionKeys(states []*State, get func(*State) map[string][]StateID) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range states {
		for k := range get(s) {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				out = append(out, k)
			}
		}
	}
	return out
}

// RemoveState deletes a single state and every transition referencing it,
// then renumbers the remaining states contiguously from 0. Used by H★'s
// no-progress pruning (§4.4) ahead of the final RemoveDisconnected pass.
// Removing the initial state panics — callers are expected to only ever
// remove states already known to be non-initial.
func (a *Automaton) RemoveState(id StateID) {
	if id == a.Initial {
		panic("iolts: cannot remove the initial state")
	}
	remap := map[StateID]StateID{}
	var kept []*State
	for _, s := range a.States {
		if s.ID == id {
			continue
		}
		remap[s.ID] = StateID(len(kept))
		kept = append(kept, s)
	}
	for _, s := range kept {
		s.Inputs = remapTransitions(s.Inputs, remap)
		s.Outputs = remapTransitions(s.Outputs, remap)
		s.Quiescence = remapStates(s.Quiescence, remap)
		s.ID = remap[s.ID]
	}
	a.States = kept
	a.Initial = remap[a.Initial]
}

// RemoveDisconnected prunes every state unreachable from Initial, and
// renumbers the remaining states contiguously from 0. Used to finish each
// hypothesis generator per §4.4 ("disconnected states are removed from
// each hypothesis").
func (a *Automaton) RemoveDisconnected() {
	reachable := map[StateID]bool{a.Initial: true}
	queue := []StateID{a.Initial}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		s := a.States[id]
		for _, succs := range [][]StateID{flatten(s.Inputs), flatten(s.Outputs), s.Quiescence} {
			for _, next := range succs {
				if !reachable[next] {
					reachable[next] = true
					queue = append(queue, next)
				}
			}
		}
	}

	remap := map[StateID]StateID{}
	var kept []*State
	for _, s := range a.States {
		if reachable[s.ID] {
			remap[s.ID] = StateID(len(kept))
			kept = append(kept, s)
		}
	}
	for _, s := range kept {
		s.Inputs = remapTransitions(s.Inputs, remap)
		s.Outputs = remapTransitions(s.Outputs, remap)
		s.Quiescence = remapStates(s.Quiescence, remap)
		s.ID = remap[s.ID]
	}
	a.States = kept
	a.Initial = remap[a.Initial]
}

func flatten(m map[string][]StateID) []StateID {
	var out []StateID
	for _, v := range m {
		out = append(out, v...)
	}
	return out
}

func remapTransitions(m map[string][]StateID, remap map[StateID]StateID) map[string][]StateID {
	out := make(map[string][]StateID, len(m))
	for k, v := range m {
		out[k] = remapStates(v, remap)
	}
	return out
}

func remapStates(ids []StateID, remap map[StateID]StateID) []StateID {
	out := make([]StateID, 0, len(ids))
	for _, id := range ids {
		if n, ok := remap[id]; ok {
			out = append(out, n)
		}
	}
	return out
}
