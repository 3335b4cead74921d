package iolts

import (
	"context"
	"math/rand"
	"testing"

	"github.com/ioltslearn/ioltslearn/internal/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildCoin constructs the Scenario A automaton from spec.md §8: a single
// input ?flip, toggling between q0 and q1, with q1 non-deterministically
// emitting !heads or !tails back to q0.
func buildCoin() *Automaton {
	a := NewAutomaton()
	q0 := a.AddState()
	q1 := a.AddState()
	a.AddInput(q0, "flip", q1)
	a.AddOutput(q1, "heads", q0)
	a.AddOutput(q1, "tails", q0)
	a.AddQuiescence(q0, q0)
	return a
}

func TestMachineCoinDeterministicStep(t *testing.T) {
	m := NewMachine(buildCoin(), &MachineConfig{Rand: rand.New(rand.NewSource(42))})
	ctx := context.Background()

	require.NoError(t, m.Reset(ctx))
	ok, err := m.Step(ctx, trace.NewInput("flip"))
	require.NoError(t, err)
	assert.True(t, ok)

	out, err := m.Listen(ctx)
	require.NoError(t, err)
	assert.True(t, out.Kind == trace.Output)
	assert.Contains(t, []string{"heads", "tails"}, out.Symbol)
}

func TestMachineRejectsUnknownInput(t *testing.T) {
	m := NewMachine(buildCoin(), nil)
	ctx := context.Background()
	require.NoError(t, m.Reset(ctx))

	ok, err := m.Step(ctx, trace.NewInput("nonexistent"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMachineQuiescenceAtInitialState(t *testing.T) {
	m := NewMachine(buildCoin(), nil)
	ctx := context.Background()
	require.NoError(t, m.Reset(ctx))

	out, err := m.Listen(ctx)
	require.NoError(t, err)
	assert.True(t, out.IsQuiescence())
}

func TestAutomatonRemoveDisconnected(t *testing.T) {
	a := NewAutomaton()
	q0 := a.AddState()
	q1 := a.AddState()
	orphan := a.AddState()
	a.AddInput(q0, "a", q1)
	a.AddOutput(q1, "x", q0)
	_ = orphan

	a.RemoveDisconnected()
	assert.Len(t, a.States, 2)
}
