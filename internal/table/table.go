// Package table implements the observation table of §3/§4.3: prefixes S and
// suffixes E over the extended alphabet, a two-layer cell (observed output
// set × completeness flag), the refresh/closed/consistent/
// quiescence-reducible maintenance rules, the stabilization fixed point,
// and — living in this package per spec.md's explicit placement — the
// three hypothesis generators (H⁻, H⁺, H★).
package table

import (
	"context"
	"sort"

	"github.com/ioltslearn/ioltslearn/internal/obslog"
	"github.com/ioltslearn/ioltslearn/internal/oracle"
	"github.com/ioltslearn/ioltslearn/internal/trace"
	"golang.org/x/exp/slices"
)

// Config carries the two table-level booleans of §6 that shape hypothesis
// generation and the stabilization loop; the oracle's own confidence
// thresholds live in oracle.Config instead.
type Config struct {
	// EnforceQuiescenceReduced gates the δ-reducibility fixed-point (§4.3).
	// If false, that check and its associated E-extension is skipped.
	EnforceQuiescenceReduced bool
	// EnforceQuiescenceSelfLoops, if true, makes quiescence self-loops
	// explicit transitions in generated hypotheses rather than leaving
	// them implicit in the table.
	EnforceQuiescenceSelfLoops bool
}

// Cell is one observation-table cell: the output set observed at (s, e),
// and whether that set is believed complete.
type Cell struct {
	Outputs  OutputSet
	Complete bool
}

func (c *Cell) clone() *Cell {
	if c == nil {
		return nil
	}
	return &Cell{Outputs: c.Outputs.Clone(), Complete: c.Complete}
}

// Table is the observation table. Not safe for concurrent use (§5).
type Table struct {
	S []trace.Trace
	E []trace.Trace

	alphabetInputs  []trace.Letter
	alphabetOutputs []trace.Letter
	alphabet        []trace.Letter // Σᵢ ∪ Σₒ ∪ {δ}, sorted

	cells map[string]*Cell

	oracle *oracle.Oracle
	cfg    Config
	logger *obslog.Logger

	rowKeyCache     map[string]string
	rowPlusKeyCache map[string]string
}

// New constructs a table seeded with S = E = {ε}, per §4.3's initial state.
func New(inputs, outputs []trace.Letter, o *oracle.Oracle, cfg Config, logger *obslog.Logger) *Table {
	if logger == nil {
		logger = obslog.Noop()
	}
	ins := append([]trace.Letter(nil), inputs...)
	outs := append([]trace.Letter(nil), outputs...)
	sort.Slice(ins, func(i, j int) bool { return trace.CompareLetters(ins[i], ins[j]) < 0 })
	sort.Slice(outs, func(i, j int) bool { return trace.CompareLetters(outs[i], outs[j]) < 0 })

	alphabet := make([]trace.Letter, 0, len(ins)+len(outs)+1)
	alphabet = append(alphabet, ins...)
	alphabet = append(alphabet, outs...)
	alphabet = append(alphabet, trace.Delta)

	return &Table{
		S:               []trace.Trace{trace.Empty},
		E:               []trace.Trace{trace.Empty},
		alphabetInputs:  ins,
		alphabetOutputs: outs,
		alphabet:        alphabet,
		cells:           map[string]*Cell{},
		oracle:          o,
		cfg:             cfg,
		logger:          logger,
	}
}

// InputAlphabet and OutputAlphabet return copies of the table's input and
// output letters, for callers (e.g. the learner's start-up self-check) that
// need the alphabet without reaching into table internals.
func (t *Table) InputAlphabet() []trace.Letter {
	return append([]trace.Letter(nil), t.alphabetInputs...)
}

func (t *Table) OutputAlphabet() []trace.Letter {
	return append([]trace.Letter(nil), t.alphabetOutputs...)
}

// Domain returns S ∪ S·A, the set CEX resolution's longest-prefix strategy
// (§4.6 step 5a) checks a counterexample's prefixes against.
func (t *Table) Domain() []trace.Trace {
	return append(append([]trace.Trace(nil), t.S...), t.sDotA()...)
}

// AddSuffix adds e to E if not already present, keeping E sorted, and
// reports whether anything changed.
func (t *Table) AddSuffix(e trace.Trace) bool { return t.addSuffix(e) }

// AddPrefix adds s to S if not already present, keeping S sorted, and
// reports whether anything changed.
func (t *Table) AddPrefix(s trace.Trace) bool {
	for _, existing := range t.S {
		if existing.Equal(s) {
			return false
		}
	}
	t.S = append(t.S, s)
	sortTraces(t.S)
	return true
}

// Reset implements §4.7's table reset: S and E collapse back to {ε} and
// every cell is discarded. The sampling-oracle cache is untouched — it
// lives in the oracle, not the table, so there is nothing here to
// preserve explicitly.
func (t *Table) Reset() {
	t.S = []trace.Trace{trace.Empty}
	t.E = []trace.Trace{trace.Empty}
	t.cells = map[string]*Cell{}
	t.rowKeyCache = nil
	t.rowPlusKeyCache = nil
}

func cellKey(s, e trace.Trace) string { return s.String() + "\x1f" + e.String() }

// Cell returns the cell at (s, e), or nil if it has never been touched.
func (t *Table) Cell(s, e trace.Trace) *Cell {
	return t.cells[cellKey(s, e)]
}

func (t *Table) ensureCell(s, e trace.Trace) *Cell {
	k := cellKey(s, e)
	c, ok := t.cells[k]
	if !ok {
		c = &Cell{}
		t.cells[k] = c
	}
	return c
}

// Valid implements the table-dependent half of the validity predicate (§3),
// on top of trace.StructurallyValid's table-independent rule, following
// _prefix_is_defined's three cases (valid_input/valid_output/
// valid_quiescence in the original implementation):
//
//   - an output may continue a trace only if that exact output was already
//     observed in the cell immediately preceding it;
//   - a quiescence letter may continue a trace only if δ was already
//     observed in that same preceding cell (and never right after another
//     quiescence letter — ruled out structurally already);
//   - an input may continue a trace if the previous letter was an output
//     or quiescence, OR — critically — if δ was already observed in the
//     preceding cell even though the previous letter was itself an input:
//     a state reached by an input that then goes quiescent may be probed
//     with a further input (this is what lets a second ?a follow a first
//     ?a once the state in between is known to idle).
func (t *Table) Valid(tr trace.Trace) bool {
	if !tr.StructurallyValid() {
		return false
	}
	for j, cur := range tr {
		if j == 0 {
			if cur.Kind == trace.Output {
				return false
			}
			continue
		}
		prev := tr[j-1]
		c := t.Cell(tr[:j], trace.Empty)
		quiescenceObserved := c != nil && c.Outputs.Contains(trace.Delta)

		switch cur.Kind {
		case trace.Output:
			if c == nil || !c.Outputs.Contains(cur) {
				return false
			}
		case trace.Quiescence:
			if !quiescenceObserved {
				return false
			}
		case trace.Input:
			if prev.Kind == trace.Input && !quiescenceObserved {
				return false
			}
		}
	}
	return true
}

// sDotA returns every s·a, for s ∈ S and a ∈ alphabet, that is not itself
// already in S — the "extended S" domain refresh operates over.
func (t *Table) sDotA() []trace.Trace {
	inS := make(map[string]bool, len(t.S))
	for _, s := range t.S {
		inS[s.String()] = true
	}
	var out []trace.Trace
	seen := map[string]bool{}
	for _, s := range t.S {
		for _, a := range t.alphabet {
			cand := s.Append(a)
			key := cand.String()
			if inS[key] || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, cand)
		}
	}
	slices.SortFunc(out, func(a, b trace.Trace) int { return trace.Compare(a, b) })
	return out
}

// Refresh implements §4.3's refresh(): for every (s, e) over (S ∪ S·A) × E
// with s·e valid, populate or update the cell.
func (t *Table) Refresh(ctx context.Context) error {
	t.rowKeyCache = nil
	t.rowPlusKeyCache = nil

	sSet := append(append([]trace.Trace(nil), t.S...), t.sDotA()...)

	for _, s := range sSet {
		for _, e := range t.E {
			se := trace.Concat(s, e)
			if !t.Valid(se) {
				continue
			}
			c := t.ensureCell(s, e)
			if c.Complete {
				continue
			}

			if last, ok := se.Last(); ok && last.IsQuiescence() {
				c.Outputs = OutputSet{trace.Delta}
				c.Complete = true
				continue
			}

			if lastS, ok := s.Last(); ok && lastS.IsQuiescence() {
				longestPrefix := s.DropLast()
				prefixCell := t.Cell(longestPrefix, trace.Empty)
				if prefixCell != nil && prefixCell.Outputs.Contains(trace.Delta) && prefixCell.Complete {
					src := t.Cell(longestPrefix, e)
					if src != nil {
						c.Outputs = src.Outputs.Clone()
						if src.Complete {
							c.Complete = true
						}
						continue
					}
				}
			}

			out, ok, err := t.oracle.Query(ctx, se, false)
			if err != nil {
				return err
			}
			if !ok {
				// se is unreachable (⊥): leave the cell empty/incomplete,
				// mirroring "if output is None: continue".
				continue
			}
			_ = out

			for _, o := range t.oracle.Cache().DistinctOutcomes(se) {
				c.Outputs = c.Outputs.Add(o.Letter)
			}
			complete, err := t.oracle.CompletenessQuery(ctx, se, c.Outputs.SeenSet())
			if err != nil {
				return err
			}
			c.Complete = complete
		}
	}
	return nil
}

func (t *Table) rowKey(s trace.Trace) string {
	if t.rowKeyCache == nil {
		t.rowKeyCache = map[string]string{}
	}
	key := s.String()
	if k, ok := t.rowKeyCache[key]; ok {
		return k
	}
	var b []byte
	for _, e := range t.E {
		c := t.Cell(s, e)
		b = append(b, e.String()...)
		b = append(b, '=')
		if c != nil {
			b = append(b, c.Outputs.String()...)
		}
		b = append(b, '|')
	}
	k := string(b)
	t.rowKeyCache[key] = k
	return k
}

func (t *Table) rowPlusKey(s trace.Trace) string {
	if t.rowPlusKeyCache == nil {
		t.rowPlusKeyCache = map[string]string{}
	}
	key := s.String()
	if k, ok := t.rowPlusKeyCache[key]; ok {
		return k
	}
	var b []byte
	for _, e := range t.E {
		c := t.Cell(s, e)
		b = append(b, e.String()...)
		b = append(b, '=')
		if c != nil {
			b = append(b, c.Outputs.String()...)
			if c.Complete {
				b = append(b, 'C')
			}
		}
		b = append(b, '|')
	}
	k := string(b)
	t.rowPlusKeyCache[key] = k
	return k
}

// RowEqual reports row(s1) == row(s2): equal output sets at every e ∈ E.
func (t *Table) RowEqual(s1, s2 trace.Trace) bool { return t.rowKey(s1) == t.rowKey(s2) }

// RowPlusEqual reports row⁺(s1) == row⁺(s2): equal output sets AND equal
// completeness flags at every e ∈ E.
func (t *Table) RowPlusEqual(s1, s2 trace.Trace) bool { return t.rowPlusKey(s1) == t.rowPlusKey(s2) }

// findRowEqual returns the first s ∈ S with RowEqual(s, candidate), if any.
func (t *Table) findRowEqual(candidate trace.Trace) (trace.Trace, bool) {
	for _, s := range t.S {
		if t.RowEqual(s, candidate) {
			return s, true
		}
	}
	return nil, false
}
