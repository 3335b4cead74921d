package table

import (
	"context"
	"math/rand"
	"testing"

	"github.com/ioltslearn/ioltslearn/internal/iolts"
	"github.com/ioltslearn/ioltslearn/internal/oracle"
	"github.com/ioltslearn/ioltslearn/internal/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildCoin is Scenario A (spec.md §8): q0 →?flip→ q1, q1 →!heads/!tails→ q0,
// q0 quiescent.
func buildCoin() *iolts.Automaton {
	a := iolts.NewAutomaton()
	q0 := a.AddState()
	q1 := a.AddState()
	a.AddInput(q0, "flip", q1)
	a.AddOutput(q1, "heads", q0)
	a.AddOutput(q1, "tails", q0)
	a.AddQuiescence(q0, q0)
	return a
}

// buildQuiescenceOnly is Scenario B: Σᵢ={?a}, Σₒ={!x}, q0 →?a→ q1, q1 →!x→
// q0; q0 is quiescent, q1 is not.
func buildQuiescenceOnly() *iolts.Automaton {
	a := iolts.NewAutomaton()
	q0 := a.AddState()
	q1 := a.AddState()
	a.AddInput(q0, "a", q1)
	a.AddOutput(q1, "x", q0)
	a.AddQuiescence(q0, q0)
	return a
}

func newTestTable(t *testing.T, automaton *iolts.Automaton, seed int64) (*Table, *iolts.Machine) {
	m := iolts.NewMachine(automaton, &iolts.MachineConfig{Rand: rand.New(rand.NewSource(seed))})
	o := oracle.New(m, oracle.Config{QueryThreshold: 0.9, CompletenessThreshold: 0.9, MaxRetries: 5000}, nil, rand.New(rand.NewSource(seed+1)), nil)
	tbl := New(m.InputAlphabet(), m.OutputAlphabet(), o, Config{EnforceQuiescenceReduced: true}, nil)
	return tbl, m
}

func TestStabilizeCoinProducesClosedConsistentTable(t *testing.T) {
	tbl, _ := newTestTable(t, buildCoin(), 1)
	err := tbl.Stabilize(context.Background(), 100)
	require.NoError(t, err)

	closed, _ := tbl.Closed()
	assert.True(t, closed)
	consistent, _ := tbl.Consistent()
	assert.True(t, consistent)
}

func TestGenerateHMinusCoinHasTwoStates(t *testing.T) {
	tbl, _ := newTestTable(t, buildCoin(), 2)
	require.NoError(t, tbl.Stabilize(context.Background(), 100))

	hMinus := tbl.GenerateHMinus()
	assert.Len(t, hMinus.States, 2)

	q0 := hMinus.State(hMinus.Initial)
	assert.Contains(t, q0.Inputs, "flip")
}

func TestGenerateHPlusHasChaosWhenIncomplete(t *testing.T) {
	tbl, _ := newTestTable(t, buildCoin(), 3)
	// A single refresh, without full stabilization, leaves most cells
	// incomplete — every such state should route unobserved continuations
	// to the chaos sinks rather than omitting the transition.
	require.NoError(t, tbl.Refresh(context.Background()))

	hPlus := tbl.GenerateHPlus(true)
	assert.GreaterOrEqual(t, len(hPlus.States), 1)
}

func TestGenerateHStarWiresOracleCache(t *testing.T) {
	tbl, _ := newTestTable(t, buildCoin(), 4)
	require.NoError(t, tbl.Stabilize(context.Background(), 100))

	// No additional witnesses recorded: H★ must be no larger than H⁺.
	hPlus := tbl.GenerateHPlus(false)
	hStar := tbl.GenerateHStar()
	assert.LessOrEqual(t, len(hStar.States), len(hPlus.States))
}

// pruneUnreachableWitnessStates is table's grounding for H★'s pruning step
// (§4.4): only a state a cached-unreachable trace actually walks to, via
// the automaton's own transitions, may be removed.
func TestPruneUnreachableWitnessStatesRemovesLandedState(t *testing.T) {
	a := iolts.NewAutomaton()
	q0 := a.AddState()
	q1 := a.AddState()
	q2 := a.AddState()
	a.AddInput(q0, "a", q1)
	a.AddOutput(q1, "x", q2)
	a.AddQuiescence(q2, q2)
	a.AddQuiescence(q0, q0)

	witness := trace.Trace{trace.NewInput("a"), trace.NewOutput("x")}
	pruneUnreachableWitnessStates(a, []trace.Trace{witness})

	assert.Len(t, a.States, 2)
	_, ok := a.Walk(witness)
	assert.False(t, ok, "the pruned state's transition should no longer exist")
}

// A state landed on by a witness trace, but which still has a transition
// to a different state, makes observable progress and must survive even
// though a cached-unreachable trace led to it.
func TestPruneUnreachableWitnessStatesKeepsWitnessedProgressState(t *testing.T) {
	a := iolts.NewAutomaton()
	q0 := a.AddState()
	q1 := a.AddState()
	q2 := a.AddState()
	a.AddInput(q0, "a", q1)
	a.AddOutput(q1, "x", q2)
	a.AddQuiescence(q2, q2)
	a.AddInput(q1, "b", q2) // q1 still progresses on ?b, so it is not no-progress

	witness := trace.Trace{trace.NewInput("a")} // lands on q1
	pruneUnreachableWitnessStates(a, []trace.Trace{witness})

	assert.Len(t, a.States, 3)
}

// A non-initial state that only self-loops, but was never landed on by any
// cached-unreachable trace, must survive — the defect this replaces
// (pruneNoProgressStates) deleted such states unconditionally.
func TestPruneUnreachableWitnessStatesKeepsUnwitnessedSelfLoop(t *testing.T) {
	a := iolts.NewAutomaton()
	q0 := a.AddState()
	q1 := a.AddState()
	a.AddInput(q0, "a", q1)
	a.AddQuiescence(q1, q1)

	pruneUnreachableWitnessStates(a, nil)

	assert.Len(t, a.States, 2)
	landed, ok := a.Walk(trace.Trace{trace.NewInput("a")})
	assert.True(t, ok)
	assert.NotEqual(t, a.Initial, landed)
}

// The initial state is never pruned, and a witness whose walk runs off the
// end of the automaton's known transitions (no edge for some letter) is
// simply skipped rather than landing on — and wrongly removing — whatever
// state the walk stalled at.
func TestPruneUnreachableWitnessStatesSkipsInitialAndPartialWalks(t *testing.T) {
	a := iolts.NewAutomaton()
	q0 := a.AddState()
	a.AddQuiescence(q0, q0)

	pruneUnreachableWitnessStates(a, []trace.Trace{
		trace.Empty,
		{trace.NewInput("missing")},
	})

	assert.Len(t, a.States, 1)
}

func TestValidRejectsUnobservedOutputContinuation(t *testing.T) {
	tbl, _ := newTestTable(t, buildCoin(), 5)
	require.NoError(t, tbl.Refresh(context.Background()))

	// Before ?flip has ever been taken, !heads cannot be a valid standalone
	// continuation of ε.
	assert.False(t, tbl.Valid(trace.Trace{trace.NewOutput("heads")}))
	assert.True(t, tbl.Valid(trace.Trace{trace.NewInput("flip")}))
}

func TestResetCollapsesSAndE(t *testing.T) {
	tbl, _ := newTestTable(t, buildCoin(), 7)
	require.NoError(t, tbl.Stabilize(context.Background(), 100))
	require.Greater(t, len(tbl.S), 1)

	tbl.Reset()
	assert.Equal(t, []trace.Trace{trace.Empty}, tbl.S)
	assert.Equal(t, []trace.Trace{trace.Empty}, tbl.E)
	assert.Nil(t, tbl.Cell(trace.Empty, trace.Empty))
}

func TestAddSuffixAndAddPrefixDedup(t *testing.T) {
	tbl, _ := newTestTable(t, buildCoin(), 8)
	changed := tbl.AddSuffix(trace.Trace{trace.NewInput("flip")})
	assert.True(t, changed)
	changed = tbl.AddSuffix(trace.Trace{trace.NewInput("flip")})
	assert.False(t, changed)

	changed = tbl.AddPrefix(trace.Trace{trace.NewInput("flip")})
	assert.True(t, changed)
	changed = tbl.AddPrefix(trace.Trace{trace.NewInput("flip")})
	assert.False(t, changed)
}

func TestQuiescenceOnlyInitialState(t *testing.T) {
	tbl, _ := newTestTable(t, buildQuiescenceOnly(), 6)
	require.NoError(t, tbl.Stabilize(context.Background(), 100))

	c := tbl.Cell(trace.Empty, trace.Empty)
	require.NotNil(t, c)
	assert.True(t, c.Outputs.Contains(trace.Delta))
	assert.True(t, c.Complete)
}
