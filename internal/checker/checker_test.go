package checker

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

func TestFuncCheckerAdaptsPlainFunctions(t *testing.T) {
	want := trace.Trace{trace.NewInput("flip")}
	fc := FuncChecker{
		SafetyFunc: func(ctx context.Context, h *iolts.Automaton) (trace.Trace, error) {
			return want, nil
		},
	}
	got, err := fc.FindSafetyCex(context.Background(), iolts.NewAutomaton())
	require.NoError(t, err)
	assert.True(t, got.Equal(want))

	got, err = fc.FindLivenessCex(context.Background(), iolts.NewAutomaton())
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, fc.CheckSpec(context.Background(), nil, nil, nil))
}

func TestParseVerdictTrue(t *testing.T) {
	cex, err := parseVerdict([]byte("true\n"))
	require.NoError(t, err)
	assert.Nil(t, cex)
}

func TestParseVerdictFalseWithTrace(t *testing.T) {
	cex, err := parseVerdict([]byte("false\n?flip\n!heads\nQUIESCENCE\n"))
	require.NoError(t, err)
	require.Len(t, cex, 3)
	assert.Equal(t, trace.NewInput("flip"), cex[0])
	assert.Equal(t, trace.NewOutput("heads"), cex[1])
	assert.True(t, cex[2].IsQuiescence())
}

func TestParseVerdictUnrecognized(t *testing.T) {
	_, err := parseVerdict([]byte("maybe\n"))
	assert.Error(t, err)
}

func TestRenderModelIncludesTransitions(t *testing.T) {
	a := iolts.NewAutomaton()
	q0 := a.AddState()
	q1 := a.AddState()
	a.AddInput(q0, "flip", q1)
	a.AddOutput(q1, "heads", q0)
	a.AddQuiescence(q0, q0)

	out := renderModel(a)
	assert.Contains(t, out, "?flip")
	assert.Contains(t, out, "!heads")
	assert.Contains(t, out, "QUIESCENCE")
}

func TestUniversalAutomatonSelfLoopsEveryLetter(t *testing.T) {
	u := universalAutomaton([]trace.Letter{trace.NewInput("a")}, []trace.Letter{trace.NewOutput("x")})
	require.Len(t, u.States, 1)
	s := u.State(u.Initial)
	assert.Equal(t, []iolts.StateID{0}, s.Inputs["a"])
	assert.Equal(t, []iolts.StateID{0}, s.Outputs["x"])
	assert.Equal(t, []iolts.StateID{0}, s.Quiescence)
}

func buildCoinAutomaton() *iolts.Automaton {
	a := iolts.NewAutomaton()
	q0 := a.AddState()
	q1 := a.AddState()
	a.AddInput(q0, "flip", q1)
	a.AddOutput(q1, "heads", q0)
	a.AddOutput(q1, "tails", q0)
	a.AddQuiescence(q0, q0)
	return a
}

func TestReplayConfirmsGenuineTrace(t *testing.T) {
	m := iolts.NewMachine(buildCoinAutomaton(), &iolts.MachineConfig{Rand: rand.New(rand.NewSource(1))})
	o := oracle.New(m, oracle.Config{QueryThreshold: 0.9, CompletenessThreshold: 0.9}, nil, rand.New(rand.NewSource(2)), nil)

	ok, err := replay(context.Background(), o, trace.Trace{trace.NewInput("flip")})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReplayRejectsUnobservableTrace(t *testing.T) {
	m := iolts.NewMachine(buildCoinAutomaton(), &iolts.MachineConfig{Rand: rand.New(rand.NewSource(1))})
	o := oracle.New(m, oracle.Config{QueryThreshold: 0.9, CompletenessThreshold: 0.9}, nil, rand.New(rand.NewSource(2)), nil)

	ok, err := replay(context.Background(), o, trace.Trace{trace.NewOutput("heads")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckSpecNoPropertiesIsNoop(t *testing.T) {
	c := NewFileChecker(Config{Command: "/does/not/exist"})
	m := iolts.NewMachine(buildCoinAutomaton(), nil)
	o := oracle.New(m, oracle.Config{QueryThreshold: 0.9, CompletenessThreshold: 0.9}, nil, nil, nil)
	err := c.CheckSpec(context.Background(), o, m.InputAlphabet(), m.OutputAlphabet())
	assert.NoError(t, err)
}
