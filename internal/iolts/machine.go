package iolts

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/ioltslearn/ioltslearn/internal/trace"
)

// MachineConfig models optional configuration for NewMachine, following the
// documented-defaults idiom of the teacher's generic config structs (e.g.
// longpoll.ChannelConfig): zero values fall back to sane defaults rather
// than requiring every caller to specify everything.
type MachineConfig struct {
	// QuiescenceTimeout bounds how long Listen waits for a spontaneous
	// output before reporting quiescence. Defaults to 20ms if zero.
	QuiescenceTimeout time.Duration
	// Rand seeds the machine's non-deterministic choices. Defaults to a
	// fixed seed (reproducible runs) if nil.
	Rand *rand.Rand
}

// Machine is a small in-memory, arena-indexed IOLTS implementing SUL. It is
// not part of the learner proper (the IOLTS data structure is out of scope
// per spec.md §1) but is needed to exercise the learner in tests and the
// cmd/ioltslearn demo: a genuinely non-deterministic, quiescence-aware
// black box to learn.
type Machine struct {
	automaton *Automaton
	current   StateID
	lastOK    bool
	timeout   time.Duration
	rnd       *rand.Rand
}

// NewMachine wraps automaton as a SUL. automaton must have at least one
// state; the zero state (the first one ever added via AddState) is the
// initial state.
func NewMachine(automaton *Automaton, cfg *MachineConfig) *Machine {
	if len(automaton.States) == 0 {
		panic("iolts: automaton has no states")
	}

	timeout := 20 * time.Millisecond
	var rnd *rand.Rand
	if cfg != nil {
		if cfg.QuiescenceTimeout > 0 {
			timeout = cfg.QuiescenceTimeout
		}
		rnd = cfg.Rand
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}

	return &Machine{
		automaton: automaton,
		current:   automaton.Initial,
		timeout:   timeout,
		rnd:       rnd,
	}
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset(ctx context.Context) error {
	m.current = m.automaton.Initial
	m.lastOK = true
	return nil
}

// Step fires an input letter, choosing uniformly among its non-deterministic
// successors. It reports false (unaccepted) if the input has no transition
// from the current state.
func (m *Machine) Step(ctx context.Context, l trace.Letter) (bool, error) {
	if l.Kind != trace.Input {
		return false, fmt.Errorf("iolts: Step requires an input letter, got %s", l)
	}
	state := m.automaton.State(m.current)
	succ := state.Inputs[l.Symbol]
	if len(succ) == 0 {
		m.lastOK = false
		return false, nil
	}
	m.current = succ[m.rnd.Intn(len(succ))]
	m.lastOK = true
	return true, nil
}

// Listen returns the next spontaneous output letter, chosen uniformly among
// the current state's enabled outputs, or trace.Delta if none are enabled
// before the configured timeout elapses. This mirrors longpoll.Channel's
// timeout-bounded receive: a bounded wait for "at least one value", falling
// back to an explicit absence signal rather than blocking forever.
func (m *Machine) Listen(ctx context.Context) (trace.Letter, error) {
	state := m.automaton.State(m.current)
	if len(state.Outputs) == 0 {
		select {
		case <-ctx.Done():
			return trace.Letter{}, ctx.Err()
		case <-time.After(m.timeout):
			return trace.Delta, nil
		}
	}

	symbols := make([]string, 0, len(state.Outputs))
	for sym := range state.Outputs {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	chosenSymbol := symbols[m.rnd.Intn(len(symbols))]
	succ := state.Outputs[chosenSymbol]
	m.current = succ[m.rnd.Intn(len(succ))]
	return trace.NewOutput(chosenSymbol), nil
}

// InputAlphabet returns the machine's input letters.
func (m *Machine) InputAlphabet() []trace.Letter {
	var out []trace.Letter
	for _, s := range m.automaton.InputAlphabet() {
		out = append(out, trace.NewInput(s))
	}
	return out
}

// OutputAlphabet returns the machine's output letters.
func (m *Machine) OutputAlphabet() []trace.Letter {
	var out []trace.Letter
	for _, s := range m.automaton.OutputAlphabet() {
		out = append(out, trace.NewOutput(s))
	}
	return out
}
