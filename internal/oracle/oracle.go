// Package oracle implements the sampling oracle of §4.2: a pacing,
// caching wrapper around an iolts.SUL that answers query and
// completeness_query, backed by the output-multiset cache and a
// catrate.Limiter protecting the black box from being hammered by retries.
package oracle

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/ioltslearn/ioltslearn/internal/cache"
	"github.com/ioltslearn/ioltslearn/internal/iolts"
	"github.com/ioltslearn/ioltslearn/internal/obslog"
	"github.com/ioltslearn/ioltslearn/internal/trace"
	catrate "github.com/joeycumines/go-catrate"
)

// Config holds the oracle's two confidence parameters (§4.2). Both must lie
// in (0,1); New panics otherwise, following microbatch.BatcherConfig's
// validate-on-construction idiom.
type Config struct {
	// QueryThreshold (q) is the confidence required, at a divergence point,
	// before a trace is declared unreachable.
	QueryThreshold float64
	// CompletenessThreshold (c) is the confidence required before a traces's
	// observed output set is declared complete.
	CompletenessThreshold float64
	// MaxRetries bounds the retry loops inside Query and CompletenessQuery.
	// Defaults to 10000 if zero; exists purely as a non-termination
	// backstop, not a tuning knob a caller is expected to reach for.
	MaxRetries int
}

func (c Config) validate() {
	if c.QueryThreshold <= 0 || c.QueryThreshold >= 1 {
		panic(fmt.Sprintf("oracle: QueryThreshold must be in (0,1), got %v", c.QueryThreshold))
	}
	if c.CompletenessThreshold <= 0 || c.CompletenessThreshold >= 1 {
		panic(fmt.Sprintf("oracle: CompletenessThreshold must be in (0,1), got %v", c.CompletenessThreshold))
	}
}

func (c Config) maxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return 10000
}

// Oracle wraps a SUL with caching, pacing and the two higher-level queries
// of §4.2. Not safe for concurrent use (§5: the learner is single-threaded).
type Oracle struct {
	sul     iolts.SUL
	cache   *cache.Cache
	limiter *catrate.Limiter
	rnd     *rand.Rand
	cfg     Config
	logger  *obslog.Logger

	learningInteractions     int
	completenessInteractions int
}

// New constructs an Oracle. limiter may be nil (no pacing); rnd may be nil
// (a fixed-seed default is used); logger may be nil (obslog.Noop is used).
func New(sul iolts.SUL, cfg Config, limiter *catrate.Limiter, rnd *rand.Rand, logger *obslog.Logger) *Oracle {
	cfg.validate()
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	if logger == nil {
		logger = obslog.Noop()
	}
	return &Oracle{
		sul:     sul,
		cache:   cache.New(),
		limiter: limiter,
		rnd:     rnd,
		cfg:     cfg,
		logger:  logger,
	}
}

// Cache exposes the underlying cache, e.g. for metrics reporting or a
// table reset that wants to keep accumulated evidence.
func (o *Oracle) Cache() *cache.Cache { return o.cache }

// LearningInteractions and CompletenessInteractions report the two
// interaction-counter buckets required by §6, split by where the
// interaction originated.
func (o *Oracle) LearningInteractions() int    { return o.learningInteractions }
func (o *Oracle) CompletenessInteractions() int { return o.completenessInteractions }

// AllSeenProbability computes P_all-seen(w) = 1 − (1 − 1/(k+1))^n from the
// cache's (n, k) counts for w (§4.2).
func (o *Oracle) AllSeenProbability(w trace.Trace) float64 {
	n, k := o.cache.Counts(w)
	if n == 0 {
		return 0
	}
	return 1 - math.Pow(1-1/float64(k+1), float64(n))
}

// pace blocks, respecting ctx, until the limiter allows another interaction
// in the given category. A nil limiter never blocks.
func (o *Oracle) pace(ctx context.Context, category string) error {
	if o.limiter == nil {
		return nil
	}
	for {
		next, ok := o.limiter.Allow(category)
		if ok {
			return nil
		}
		d := time.Until(next)
		if d <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
}

// execResult is the outcome of one attempt at the trace execution
// primitive (§4.2).
type execResult struct {
	ok    bool        // full success
	final trace.Letter // valid iff ok
}

// execute runs the trace execution primitive for w once: reset, then drive
// each letter, then one final listen() whose result is the query's output.
// Divergence (an input rejected, or an output/δ mismatch) is reported via
// the returned error being nil but ok=false, with the cache already updated
// at the divergence point.
//
// This folds the prefix split of §4.2 into the ordinary walk rather than
// giving it a separate code path: there is no primitive for "jump" a SUL
// to the state a cached prefix reaches, only step/listen, so driving the
// cached prefix still costs one real interaction per letter either way.
// What the split buys is skipping statistical re-validation of the
// prefix's outcome, which this walk already does — divergence is only
// ever evaluated against w's own letters, never against stale cache state.
func (o *Oracle) execute(ctx context.Context, w trace.Trace, bucket *int) (execResult, error) {
	if err := o.pace(ctx, w.String()); err != nil {
		return execResult{}, err
	}
	*bucket++

	if err := o.sul.Reset(ctx); err != nil {
		return execResult{}, err
	}

	for i, l := range w {
		prefix := w[:i]
		switch l.Kind {
		case trace.Input:
			ok, err := o.sul.Step(ctx, l)
			if err != nil {
				return execResult{}, err
			}
			if !ok {
				// An input's acceptance is a per-state deterministic fact
				// (§3: inputs is a set-valued map, but "enabled or not" at
				// a given state doesn't vary across resets), so a single
				// rejection settles it: this exact trace never occurs.
				o.cache.RecordUnreachable(w[:i+1])
				return execResult{}, nil
			}
		case trace.Output, trace.Quiescence:
			observed, err := o.sul.Listen(ctx)
			if err != nil {
				return execResult{}, err
			}
			o.cache.RecordOutcome(prefix, cache.Output(observed))
			if !observed.Equal(l) {
				return execResult{}, nil
			}
		}
	}

	final, err := o.sul.Listen(ctx)
	if err != nil {
		return execResult{}, err
	}
	o.cache.RecordOutcome(w, cache.Output(final))
	return execResult{ok: true, final: final}, nil
}

// Query implements query(w, use_cache) (§4.2): it executes the trace,
// possibly retrying past a divergence until the all-seen probability at
// the divergence point crosses QueryThreshold, at which point w is
// declared unreachable (⊥, ok=false).
func (o *Oracle) Query(ctx context.Context, w trace.Trace, useCache bool) (trace.Letter, bool, error) {
	if useCache {
		if o.cache.IsUnreachable(w) {
			return trace.Letter{}, false, nil
		}
		if out, ok := o.cache.Sample(o.rnd, w); ok {
			return out.Letter, true, nil
		}
	} else if o.cache.IsUnreachable(w) {
		return trace.Letter{}, false, nil
	}

	for attempt := 0; attempt < o.cfg.maxRetries(); attempt++ {
		res, err := o.execute(ctx, w, &o.learningInteractions)
		if err != nil {
			return trace.Letter{}, false, err
		}
		if res.ok {
			return res.final, true, nil
		}
		if o.cache.IsUnreachable(w) {
			return trace.Letter{}, false, nil
		}

		divergePrefix := o.longestObservedPrefix(w)
		if o.AllSeenProbability(divergePrefix) >= o.cfg.QueryThreshold {
			o.cache.RecordUnreachable(w)
			o.logger.Debug().Stringer("trace", w).Log("oracle: declared unreachable")
			return trace.Letter{}, false, nil
		}
	}
	return trace.Letter{}, false, fmt.Errorf("oracle: exceeded max retries resolving %s", w)
}

// longestObservedPrefix returns the longest prefix of w that already has a
// cache entry — used after a divergence to locate the point whose all-seen
// probability gates the retry-vs-declare-unreachable decision.
func (o *Oracle) longestObservedPrefix(w trace.Trace) trace.Trace {
	prefixes := w.Prefixes()
	for i := len(prefixes) - 1; i >= 0; i-- {
		if n, _ := o.cache.Counts(prefixes[i]); n > 0 {
			return prefixes[i]
		}
	}
	return trace.Empty
}

// CompletenessQuery implements completeness_query(w, S) (§4.2): repeatedly
// (non-cached) queries w, failing fast if a novel output outside S
// appears, succeeding once P_all-seen(w) crosses CompletenessThreshold.
// Interactions are counted in the separate completeness bucket.
func (o *Oracle) CompletenessQuery(ctx context.Context, w trace.Trace, seen map[string]bool) (bool, error) {
	for attempt := 0; attempt < o.cfg.maxRetries(); attempt++ {
		out, ok, err := o.queryLive(ctx, w)
		if err != nil {
			return false, err
		}
		if !ok {
			// w is unreachable: vacuously complete (no output can ever occur).
			return true, nil
		}
		if !seen[out.String()] {
			return false, nil
		}
		if o.AllSeenProbability(w) >= o.cfg.CompletenessThreshold {
			return true, nil
		}
	}
	return false, fmt.Errorf("oracle: exceeded max retries in completeness query for %s", w)
}

// queryLive runs the execution primitive for w once, bypassing the cache
// short-circuit but still recording into it, counting the interaction
// against the completeness bucket. It folds in the same divergence-retry
// logic as Query, but keeps the interaction counts separate per §4.2's
// requirement that learning and completeness cost be reported separately.
func (o *Oracle) queryLive(ctx context.Context, w trace.Trace) (trace.Letter, bool, error) {
	if o.cache.IsUnreachable(w) {
		return trace.Letter{}, false, nil
	}
	for attempt := 0; attempt < o.cfg.maxRetries(); attempt++ {
		res, err := o.execute(ctx, w, &o.completenessInteractions)
		if err != nil {
			return trace.Letter{}, false, err
		}
		if res.ok {
			return res.final, true, nil
		}
		if o.cache.IsUnreachable(w) {
			return trace.Letter{}, false, nil
		}
		divergePrefix := o.longestObservedPrefix(w)
		if o.AllSeenProbability(divergePrefix) >= o.cfg.QueryThreshold {
			o.cache.RecordUnreachable(w)
			return trace.Letter{}, false, nil
		}
	}
	return trace.Letter{}, false, fmt.Errorf("oracle: exceeded max retries resolving %s", w)
}
