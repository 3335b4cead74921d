// Package dotfmt writes IOLTS automata in the DOT-like textual format of
// spec.md §6: input letters carry a `?` prefix, outputs a `!` prefix,
// quiescence the distinguished token `QUIESCENCE`, and multiple edges with
// the same label encode non-determinism. Loading this format is explicitly
// out of scope (spec.md §1); this package only writes it, for inspection
// and for feeding external tooling.
package dotfmt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ioltslearn/ioltslearn/internal/iolts"
)

// Write renders automaton as a DOT digraph. name is used as the graph's
// name and should be a valid DOT identifier (e.g. "HMinus", "HStar").
func Write(name string, automaton *iolts.Automaton) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", name)
	fmt.Fprintf(&b, "\trankdir=LR;\n")
	fmt.Fprintf(&b, "\t__start__ [shape=point];\n")
	fmt.Fprintf(&b, "\t__start__ -> q%d;\n", automaton.Initial)

	for _, s := range automaton.States {
		fmt.Fprintf(&b, "\tq%d [shape=circle];\n", s.ID)
		writeEdges(&b, s.ID, "?", s.Inputs)
		writeEdges(&b, s.ID, "!", s.Outputs)
		for _, to := range sortedStates(s.Quiescence) {
			fmt.Fprintf(&b, "\tq%d -> q%d [label=\"QUIESCENCE\"];\n", s.ID, to)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func writeEdges(b *strings.Builder, from iolts.StateID, prefix string, m map[string][]iolts.StateID) {
	symbols := make([]string, 0, len(m))
	for sym := range m {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		for _, to := range sortedStates(m[sym]) {
			fmt.Fprintf(b, "\tq%d -> q%d [label=\"%s%s\"];\n", from, to, prefix, sym)
		}
	}
}

func sortedStates(ids []iolts.StateID) []iolts.StateID {
	out := append([]iolts.StateID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
