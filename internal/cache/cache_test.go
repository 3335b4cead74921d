package cache

import (
	"math/rand"
	"testing"

	"github.com/ioltslearn/ioltslearn/internal/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndSample(t *testing.T) {
	c := New()
	tr := trace.Empty.Append(trace.NewInput("flip"))

	_, ok := c.Sample(rand.New(rand.NewSource(1)), tr)
	assert.False(t, ok)

	c.RecordOutcome(tr, Output(trace.NewOutput("heads")))
	c.RecordOutcome(tr, Output(trace.NewOutput("tails")))
	c.RecordOutcome(tr, Output(trace.NewOutput("heads")))

	n, k := c.Counts(tr)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, k)

	out, ok := c.Sample(rand.New(rand.NewSource(7)), tr)
	require.True(t, ok)
	assert.Contains(t, []string{"heads", "tails"}, out.Letter.Symbol)
}

func TestUnreachablePropagatesToExtensions(t *testing.T) {
	c := New()
	prefix := trace.Empty.Append(trace.NewInput("a"))
	ext := prefix.Append(trace.NewOutput("x")).Append(trace.NewInput("b"))

	assert.False(t, c.IsUnreachable(ext))
	c.RecordUnreachable(prefix)
	assert.True(t, c.IsUnreachable(prefix))
	assert.True(t, c.IsUnreachable(ext))
}

func TestRecordOutcomeAfterUnreachablePanics(t *testing.T) {
	c := New()
	tr := trace.Empty.Append(trace.NewInput("a"))
	c.RecordUnreachable(tr)

	assert.Panics(t, func() {
		c.RecordOutcome(tr, Output(trace.NewOutput("x")))
	})
}

func TestLongestCachedPrefix(t *testing.T) {
	c := New()
	a := trace.Empty.Append(trace.NewInput("a"))
	ab := a.Append(trace.NewOutput("x"))
	abc := ab.Append(trace.NewInput("c"))

	c.RecordOutcome(trace.Empty, Output(trace.Delta))
	c.RecordOutcome(a, Output(trace.NewOutput("x")))

	prefix, remainder := c.LongestCachedPrefix(abc)
	assert.True(t, prefix.Equal(a))
	assert.True(t, remainder.Equal(abc[len(a):]))
}

func TestLongestCachedPrefixFallsBackToEmpty(t *testing.T) {
	c := New()
	tr := trace.Empty.Append(trace.NewInput("a")).Append(trace.NewOutput("x"))

	prefix, remainder := c.LongestCachedPrefix(tr)
	assert.Equal(t, 0, len(prefix))
	assert.True(t, remainder.Equal(tr))
}

func TestDistinctOutcomesSorted(t *testing.T) {
	c := New()
	tr := trace.Empty.Append(trace.NewInput("a"))
	c.RecordOutcome(tr, Output(trace.NewOutput("y")))
	c.RecordOutcome(tr, Output(trace.NewOutput("x")))
	c.RecordOutcome(tr, Output(trace.NewOutput("y")))

	out := c.DistinctOutcomes(tr)
	require.Len(t, out, 2)
	assert.Equal(t, "x", out[0].Letter.Symbol)
	assert.Equal(t, "y", out[1].Letter.Symbol)
}

func TestUnreachableTraces(t *testing.T) {
	c := New()
	a := trace.Empty.Append(trace.NewInput("a"))
	b := trace.Empty.Append(trace.NewInput("b"))
	c.RecordOutcome(a, Output(trace.NewOutput("x")))
	c.RecordUnreachable(b)

	got := c.UnreachableTraces()
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(b))
}

func TestSize(t *testing.T) {
	c := New()
	assert.Equal(t, 0, c.Size())
	c.RecordOutcome(trace.Empty, Output(trace.Delta))
	assert.Equal(t, 1, c.Size())
}
