// Package trace models the letters and traces of an Input/Output Labeled
// Transition System with quiescence: a tagged three-way letter variant
// (input, output, or the distinguished quiescence token), finite sequences
// of letters, and the structural half of the validity predicate used by the
// observation table.
package trace

import (
	"fmt"
	"strings"
)

// Kind tags a Letter as input, output, or quiescence. It replaces the
// dynamically-typed "startswith('?')/startswith('!')" tagging of the
// original implementation with an exhaustive, compile-time-checked variant.
type Kind int

const (
	// Input is a letter chosen by the environment (prefixed `?` in DOT).
	Input Kind = iota
	// Output is a letter emitted by the system under learning (prefixed `!` in DOT).
	Output
	// Quiescence is the single distinguished "no output occurred" token (δ).
	Quiescence
)

// String renders the Kind for debugging.
func (k Kind) String() string {
	switch k {
	case Input:
		return "input"
	case Output:
		return "output"
	case Quiescence:
		return "quiescence"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Letter is a single symbol of the extended alphabet A = Σᵢ ∪ Σₒ ∪ {δ}.
type Letter struct {
	Kind   Kind
	Symbol string
}

// Delta is the single quiescence letter. All quiescence letters compare
// equal regardless of Symbol; Symbol is carried only for display.
var Delta = Letter{Kind: Quiescence, Symbol: "δ"}

// NewInput constructs an input letter.
func NewInput(symbol string) Letter { return Letter{Kind: Input, Symbol: symbol} }

// NewOutput constructs an output letter.
func NewOutput(symbol string) Letter { return Letter{Kind: Output, Symbol: symbol} }

// IsQuiescence reports whether l is the quiescence token.
func (l Letter) IsQuiescence() bool { return l.Kind == Quiescence }

// Equal reports letter equality: quiescence letters are always equal to one
// another, input/output letters must match both Kind and Symbol.
func (l Letter) Equal(o Letter) bool {
	if l.Kind != o.Kind {
		return false
	}
	if l.Kind == Quiescence {
		return true
	}
	return l.Symbol == o.Symbol
}

// String renders the letter using the DOT-style prefix convention of the
// external automaton format (§6): `?` for input, `!` for output, the
// distinguished token for quiescence.
func (l Letter) String() string {
	switch l.Kind {
	case Input:
		return "?" + l.Symbol
	case Output:
		return "!" + l.Symbol
	default:
		return "QUIESCENCE"
	}
}

// CompareLetters orders letters deterministically: by Kind, then Symbol.
// Used to keep S, E, and per-state transition iteration in the sorted order
// that gives the driver its reproducibility guarantee (§5).
func CompareLetters(a, b Letter) int {
	if a.Kind != b.Kind {
		return int(a.Kind) - int(b.Kind)
	}
	if a.Symbol < b.Symbol {
		return -1
	}
	if a.Symbol > b.Symbol {
		return 1
	}
	return 0
}

// Trace is a finite ordered sequence of letters. The empty trace (nil or
// zero-length slice) is ε.
type Trace []Letter

// Empty is ε, the empty trace.
var Empty = Trace(nil)

// Append returns a new trace with l appended; the receiver is never
// mutated, so callers may freely share sub-traces (all of S and S·A hang
// off shared backing prefixes in the table).
func (t Trace) Append(l Letter) Trace {
	out := make(Trace, len(t)+1)
	copy(out, t)
	out[len(t)] = l
	return out
}

// Last returns the final letter of t, and false if t is empty.
func (t Trace) Last() (Letter, bool) {
	if len(t) == 0 {
		return Letter{}, false
	}
	return t[len(t)-1], true
}

// DropLast returns t without its final letter (ε if len(t) <= 1).
func (t Trace) DropLast() Trace {
	if len(t) == 0 {
		return t
	}
	return t[:len(t)-1]
}

// Prefixes returns every prefix of t, including ε and t itself, shortest
// first.
func (t Trace) Prefixes() []Trace {
	out := make([]Trace, len(t)+1)
	for i := range out {
		out[i] = t[:i]
	}
	return out
}

// Suffixes returns every suffix of t, including ε and t itself, shortest
// first.
func (t Trace) Suffixes() []Trace {
	out := make([]Trace, len(t)+1)
	for i := range out {
		out[i] = t[len(t)-i:]
	}
	return out
}

// Concat returns a new trace with o appended after t; neither operand is
// mutated.
func Concat(t, o Trace) Trace {
	out := make(Trace, 0, len(t)+len(o))
	out = append(out, t...)
	out = append(out, o...)
	return out
}

// Equal reports whether t and o are letter-wise equal.
func (t Trace) Equal(o Trace) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if !t[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Compare orders traces by length, then lexicographically by letter — the
// "sorted by length then lexicographically" order §5 requires of S and E.
func Compare(t, o Trace) int {
	if len(t) != len(o) {
		return len(t) - len(o)
	}
	for i := range t {
		if c := CompareLetters(t[i], o[i]); c != 0 {
			return c
		}
	}
	return 0
}

// String renders a trace as a dot-separated sequence of its letters, ε for
// the empty trace.
func (t Trace) String() string {
	if len(t) == 0 {
		return "ε"
	}
	parts := make([]string, len(t))
	for i, l := range t {
		parts[i] = l.String()
	}
	return strings.Join(parts, ".")
}

// StructurallyValid checks the single letter-sequencing rule of §3 that
// holds regardless of table state: a letter following quiescence must be
// an input (this also rules out two consecutive quiescence letters, the
// REJECT semantics chosen by SPEC_FULL.md's Open Question 1).
//
// Every other adjacency — input-then-input, output-then-output,
// output-then-quiescence, and so on — is only conditionally valid,
// depending on what was actually observed in the cell immediately
// preceding the letter in question (e.g. an input may repeat if the
// preceding cell already shows quiescence was observed there; an output
// may repeat if that same output was observed there). That table-dependent
// half of validity is implemented by the table package's Valid method;
// this function only rejects what can never be valid under any table
// state.
func (t Trace) StructurallyValid() bool {
	for i := 1; i < len(t); i++ {
		prev, cur := t[i-1], t[i]
		if prev.Kind == Quiescence && cur.Kind != Input {
			return false
		}
	}
	return true
}
