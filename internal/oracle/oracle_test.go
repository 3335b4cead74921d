package oracle

import (
	"context"
	"math/rand"
	"testing"

	"github.com/ioltslearn/ioltslearn/internal/iolts"
	"github.com/ioltslearn/ioltslearn/internal/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// coinSUL is a hand-rolled SUL test double, independent of iolts.Machine,
// so the oracle's tests exercise the SUL interface boundary directly: a
// single ?flip input toggles between two states, and the second state
// non-deterministically emits !heads or !tails.
type coinSUL struct {
	rnd   *rand.Rand
	state int
}

func newCoinSUL(seed int64) *coinSUL { return &coinSUL{rnd: rand.New(rand.NewSource(seed))} }

func (s *coinSUL) Reset(ctx context.Context) error { s.state = 0; return nil }

func (s *coinSUL) Step(ctx context.Context, l trace.Letter) (bool, error) {
	if s.state == 0 && l.Kind == trace.Input && l.Symbol == "flip" {
		s.state = 1
		return true, nil
	}
	return false, nil
}

func (s *coinSUL) Listen(ctx context.Context) (trace.Letter, error) {
	if s.state != 1 {
		return trace.Delta, nil
	}
	s.state = 0
	if s.rnd.Intn(2) == 0 {
		return trace.NewOutput("heads"), nil
	}
	return trace.NewOutput("tails"), nil
}

func (s *coinSUL) InputAlphabet() []trace.Letter  { return []trace.Letter{trace.NewInput("flip")} }
func (s *coinSUL) OutputAlphabet() []trace.Letter {
	return []trace.Letter{trace.NewOutput("heads"), trace.NewOutput("tails")}
}

var _ iolts.SUL = (*coinSUL)(nil)

func testConfig() Config {
	return Config{QueryThreshold: 0.99, CompletenessThreshold: 0.99, MaxRetries: 2000}
}

func TestQueryReturnsObservedOutput(t *testing.T) {
	o := New(newCoinSUL(1), testConfig(), nil, rand.New(rand.NewSource(2)), nil)
	w := trace.Empty.Append(trace.NewInput("flip"))

	out, ok, err := o.Query(context.Background(), w, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, []string{"heads", "tails"}, out.Symbol)
}

func TestQueryUnknownInputDeclaredUnreachable(t *testing.T) {
	o := New(newCoinSUL(3), testConfig(), nil, nil, nil)
	w := trace.Empty.Append(trace.NewInput("nonexistent"))

	_, ok, err := o.Query(context.Background(), w, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, o.Cache().IsUnreachable(w))
}

func TestQueryUsesCacheWhenRequested(t *testing.T) {
	o := New(newCoinSUL(4), testConfig(), nil, rand.New(rand.NewSource(5)), nil)
	w := trace.Empty.Append(trace.NewInput("flip"))

	_, ok, err := o.Query(context.Background(), w, false)
	require.NoError(t, err)
	require.True(t, ok)

	n, _ := o.Cache().Counts(w)
	require.Greater(t, n, 0)

	out, ok, err := o.Query(context.Background(), w, true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, []string{"heads", "tails"}, out.Symbol)
}

func TestCompletenessQueryEventuallyTrue(t *testing.T) {
	o := New(newCoinSUL(6), testConfig(), nil, nil, nil)
	w := trace.Empty.Append(trace.NewInput("flip"))

	complete, err := o.CompletenessQuery(context.Background(), w, map[string]bool{"!heads": true, "!tails": true})
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Greater(t, o.CompletenessInteractions(), 0)
}

func TestCompletenessQueryFalseOnNovelOutput(t *testing.T) {
	o := New(newCoinSUL(7), testConfig(), nil, nil, nil)
	w := trace.Empty.Append(trace.NewInput("flip"))

	complete, err := o.CompletenessQuery(context.Background(), w, map[string]bool{"!heads": true})
	require.NoError(t, err)
	assert.False(t, complete)
}

func TestAllSeenProbabilityMonotonic(t *testing.T) {
	o := New(newCoinSUL(8), testConfig(), nil, nil, nil)
	w := trace.Empty.Append(trace.NewInput("flip"))
	assert.Equal(t, float64(0), o.AllSeenProbability(w))

	for i := 0; i < 5; i++ {
		_, _, err := o.Query(context.Background(), w, false)
		require.NoError(t, err)
	}
	assert.Greater(t, o.AllSeenProbability(w), float64(0))
}
