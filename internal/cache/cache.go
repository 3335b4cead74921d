// Package cache implements the sampling oracle's trace→output multiset
// cache (§3, §4.2): a mapping from a trace to every outcome observed when
// executing it, plus a permanent "unreachable" mark that propagates to
// every extension of a trace it's set on. The cache only ever grows —
// nothing is ever removed — so a driver reset (§4.7), which discards the
// observation table, can keep reusing it as accumulated evidence.
package cache

import (
	"math/rand"
	"sort"

	"github.com/ioltslearn/ioltslearn/internal/trace"
)

// Outcome is one observed result of executing a trace: either a letter
// (an output symbol, or the quiescence token), or the distinguished ⊥
// ("unreachable") marker produced when the trace itself could not be
// traversed.
type Outcome struct {
	Bottom bool
	Letter trace.Letter
}

// Output wraps an observed letter as a non-⊥ Outcome.
func Output(l trace.Letter) Outcome { return Outcome{Letter: l} }

// Bot is the ⊥ outcome.
var Bot = Outcome{Bottom: true}

// Equal reports outcome equality.
func (o Outcome) Equal(other Outcome) bool {
	if o.Bottom != other.Bottom {
		return false
	}
	if o.Bottom {
		return true
	}
	return o.Letter.Equal(other.Letter)
}

// entry holds every outcome ever observed for one trace. outcomes is an
// append-only vector (so a uniform pick is O(1) — §9's "compact counter
// plus pre-computed vector"); counts tracks the distinct-outcome set size
// needed by the all-seen probability formula (§4.2).
type entry struct {
	trace       trace.Trace
	outcomes    []Outcome
	counts      map[string]int
	distinct    map[string]Outcome
	unreachable bool
}

func newEntry() *entry {
	return &entry{counts: map[string]int{}, distinct: map[string]Outcome{}}
}

func outcomeKey(o Outcome) string {
	if o.Bottom {
		return "\x00bottom"
	}
	return o.Letter.String()
}

// Cache is the trace→outcome-multiset store. The zero value is usable.
// Not safe for concurrent use — the learner is single-threaded (§5).
type Cache struct {
	entries map[string]*entry
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: map[string]*entry{}}
}

func (c *Cache) ensure() {
	if c.entries == nil {
		c.entries = map[string]*entry{}
	}
}

func (c *Cache) get(t trace.Trace) (*entry, bool) {
	if c.entries == nil {
		return nil, false
	}
	e, ok := c.entries[t.String()]
	return e, ok
}

// RecordOutcome appends o to the multiset cached for t. Panics if t was
// already marked unreachable — the cache is only ever additional evidence,
// it never contradicts an earlier ⊥ mark.
func (c *Cache) RecordOutcome(t trace.Trace, o Outcome) {
	c.ensure()
	key := t.String()
	e, ok := c.entries[key]
	if !ok {
		e = newEntry()
		e.trace = t
		c.entries[key] = e
	}
	if e.unreachable {
		panic("cache: cannot record an outcome for a trace already marked unreachable: " + key)
	}
	e.outcomes = append(e.outcomes, o)
	key2 := outcomeKey(o)
	e.counts[key2]++
	e.distinct[key2] = o
}

// RecordUnreachable marks t (and, implicitly, every extension of t) as
// unreachable. It is a no-op if t is already marked.
func (c *Cache) RecordUnreachable(t trace.Trace) {
	c.ensure()
	key := t.String()
	e, ok := c.entries[key]
	if !ok {
		e = newEntry()
		e.trace = t
		c.entries[key] = e
	}
	e.unreachable = true
	e.outcomes = nil
}

// IsUnreachable reports whether t, or any prefix of t, has been marked
// unreachable — "every extension of an unreachable prefix is itself
// unreachable" (§3).
func (c *Cache) IsUnreachable(t trace.Trace) bool {
	for _, p := range t.Prefixes() {
		if e, ok := c.get(p); ok && e.unreachable {
			return true
		}
	}
	return false
}

// Sample returns a uniformly random previously-observed outcome for t. ok
// is false if t has never been observed (or is empty/unreachable).
func (c *Cache) Sample(rnd *rand.Rand, t trace.Trace) (Outcome, bool) {
	e, ok := c.get(t)
	if !ok || e.unreachable || len(e.outcomes) == 0 {
		return Outcome{}, false
	}
	return e.outcomes[rnd.Intn(len(e.outcomes))], true
}

// Counts returns (n, k): the total number of observations of t, and the
// number of distinct outcomes among them — the inputs to the all-seen
// probability formula (§4.2).
func (c *Cache) Counts(t trace.Trace) (n, k int) {
	e, ok := c.get(t)
	if !ok {
		return 0, 0
	}
	return len(e.outcomes), len(e.counts)
}

// LongestCachedPrefix returns the longest prefix of t for which an outcome
// has already been cached (reachable, i.e. not ⊥), and the remaining
// suffix. This is the "prefix split" of §4.2: driving the machine to the
// cached prefix's end via recorded evidence, then only executing the
// remainder live.
func (c *Cache) LongestCachedPrefix(t trace.Trace) (prefix, remainder trace.Trace) {
	prefixes := t.Prefixes()
	best := 0
	for i := len(prefixes) - 1; i >= 0; i-- {
		p := prefixes[i]
		if e, ok := c.get(p); ok && !e.unreachable && len(e.outcomes) > 0 {
			best = i
			break
		}
		if len(p) == 0 {
			best = 0
		}
	}
	return prefixes[best], t[best:]
}

// DistinctOutcomes returns every distinct outcome observed for t, sorted for
// deterministic iteration — the set absorbed into an observation table
// cell's output set (§4.3's "absorb the entire cache multiset").
func (c *Cache) DistinctOutcomes(t trace.Trace) []Outcome {
	e, ok := c.get(t)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(e.distinct))
	for k := range e.distinct {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Outcome, len(keys))
	for i, k := range keys {
		out[i] = e.distinct[k]
	}
	return out
}

// UnreachableTraces returns every trace explicitly marked unreachable via
// RecordUnreachable, sorted for deterministic iteration. Unlike
// IsUnreachable, this does not include traces that are merely extensions of
// a marked prefix — it is the witness set H★'s pruning walks (§4.4).
func (c *Cache) UnreachableTraces() []trace.Trace {
	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if e.unreachable {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]trace.Trace, len(keys))
	for i, k := range keys {
		out[i] = c.entries[k].trace
	}
	return out
}

// Size reports the number of distinct traces the cache has an entry for —
// used to populate the Metrics record's cache-size field (§6).
func (c *Cache) Size() int { return len(c.entries) }
