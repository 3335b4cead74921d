package table

import (
	"sort"
	"strings"

	"github.com/ioltslearn/ioltslearn/internal/trace"
)

// OutputSet is a sorted, deduplicated set of letters observed in a single
// observation-table cell: it is the "set of observed outputs" half of the
// two-layer cell structure (§3/§4.3). Sorted order keeps row keys (and
// therefore equivalence-class comparisons and hypothesis construction)
// reproducible, per §5.
type OutputSet []trace.Letter

// Add inserts l if not already present, keeping the set sorted.
func (s OutputSet) Add(l trace.Letter) OutputSet {
	i := sort.Search(len(s), func(i int) bool { return trace.CompareLetters(s[i], l) >= 0 })
	if i < len(s) && s[i].Equal(l) {
		return s
	}
	out := make(OutputSet, len(s)+1)
	copy(out, s[:i])
	out[i] = l
	copy(out[i+1:], s[i:])
	return out
}

// Contains reports whether l is a member of s.
func (s OutputSet) Contains(l trace.Letter) bool {
	i := sort.Search(len(s), func(i int) bool { return trace.CompareLetters(s[i], l) >= 0 })
	return i < len(s) && s[i].Equal(l)
}

// Equal reports whether s and o have identical members.
func (s OutputSet) Equal(o OutputSet) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if !s[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Clone returns a copy, safe to mutate independently.
func (s OutputSet) Clone() OutputSet {
	out := make(OutputSet, len(s))
	copy(out, s)
	return out
}

// String renders the set as a deterministic key, used both for display and
// as the building block of row/row⁺ equivalence keys.
func (s OutputSet) String() string {
	parts := make([]string, len(s))
	for i, l := range s {
		parts[i] = l.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// SeenSet converts s into the map shape oracle.CompletenessQuery expects.
func (s OutputSet) SeenSet() map[string]bool {
	out := make(map[string]bool, len(s))
	for _, l := range s {
		out[l.String()] = true
	}
	return out
}

// containsLetter reports whether l appears in ls, using Letter.Equal.
func containsLetter(ls []trace.Letter, l trace.Letter) bool {
	for _, x := range ls {
		if x.Equal(l) {
			return true
		}
	}
	return false
}
