package learner

import (
	"context"
	"errors"
	"time"

	"github.com/ioltslearn/ioltslearn/internal/checker"
	"github.com/ioltslearn/ioltslearn/internal/iolts"
	"github.com/ioltslearn/ioltslearn/internal/metrics"
	"github.com/ioltslearn/ioltslearn/internal/oracle"
	"github.com/ioltslearn/ioltslearn/internal/table"
	"github.com/ioltslearn/ioltslearn/internal/trace"
)

// Result is §6's learner output: the three bracketing automata plus the
// metrics record.
type Result struct {
	HMinus, HPlus, HStar *iolts.Automaton
	Metrics              metrics.Metrics
}

// Run executes the learning driver of §4.6 to a fixed point: repeatedly
// stabilizing tbl, generating H⁻/H⁺/H★, querying chk for counterexamples,
// and resolving them into tbl, until a round produces no counterexamples
// at all, or a hard cap or unresolvable stall aborts the run.
//
// o is the same oracle tbl was built with; it is passed through separately
// because Run also uses it for the §4.5 start-up self-check and for
// metrics' interaction counters.
func Run(ctx context.Context, tbl *table.Table, o *oracle.Oracle, chk checker.Checker, opts ...Option) (*Result, error) {
	cfg := resolveOptions(opts)
	m := &metrics.Metrics{}
	state := RoundIdle

	if err := chk.CheckSpec(ctx, o, tbl.InputAlphabet(), tbl.OutputAlphabet()); err != nil {
		return nil, &SpecViolatesPropertyError{Cause: err}
	}

	applied := map[string]bool{}
	var lastCex []trace.Trace

	for round := 0; ; round++ {
		if round >= cfg.maxLearningRounds {
			capErr := &RoundCapExceededError{
				Kind:    "learning_rounds",
				Limit:   cfg.maxLearningRounds,
				S:       append([]trace.Trace(nil), tbl.S...),
				E:       append([]trace.Trace(nil), tbl.E...),
				LastCex: lastCex,
			}
			if cfg.postmortemPath != "" {
				capErr.writePostmortem(cfg.postmortemPath)
			}
			return nil, capErr
		}
		m.RecordRound()

		state = RoundStabilizing
		cfg.logger.Debug().Int("round", round).Stringer("state", traceableState{state}).Log("learner: round starting")
		start := time.Now()
		err := tbl.Stabilize(ctx, cfg.maxStabilizeRounds)
		m.RecordStabilize(time.Since(start))
		if err != nil {
			if errors.Is(err, table.ErrStabilizeExceeded) {
				if resetOrFail := handleStall(tbl, cfg, m, applied); resetOrFail != nil {
					return nil, resetOrFail
				}
				continue
			}
			return nil, err
		}

		state = RoundGenerating
		cfg.logger.Debug().Stringer("state", traceableState{state}).Log("learner: generating hypotheses")
		start = time.Now()
		hMinus := tbl.GenerateHMinus()
		hPlus := tbl.GenerateHPlus(true)
		hStar := tbl.GenerateHStar()
		m.RecordGenerate(time.Since(start))
		m.SetHypothesisSizes(len(hMinus.States), len(hPlus.States), len(hStar.States))
		m.SetTableSizes(len(tbl.S), len(tbl.E), o.Cache().Size())
		m.SetInteractionCounts(o.LearningInteractions(), o.CompletenessInteractions())

		state = RoundChecking
		cfg.logger.Debug().Stringer("state", traceableState{state}).Log("learner: querying model checker")
		start = time.Now()
		cexList, err := collectCex(ctx, chk, hMinus, hPlus, hStar, cfg)
		m.RecordCheck(time.Since(start))
		if err != nil {
			return nil, err
		}
		lastCex = cexList

		if len(cexList) == 0 {
			state = RoundDone
			cfg.logger.Info().Int("round", round).Log("learner: reached fixed point")
			return &Result{HMinus: hMinus, HPlus: hPlus, HStar: hStar, Metrics: *m}, nil
		}

		state = RoundResolving
		cfg.logger.Debug().Stringer("state", traceableState{state}).Log("learner: resolving counterexamples")
		start = time.Now()
		anyChanged := false
		for _, cex := range cexList {
			if resolveCex(tbl, cex, applied) {
				anyChanged = true
			}
		}
		m.RecordResolve(time.Since(start))

		if !anyChanged {
			if cfg.enableReset {
				cfg.logger.Info().Log("learner: counterexample resolution stalled — resetting table")
				tbl.Reset()
				applied = map[string]bool{}
				m.RecordReset()
				continue
			}
			return nil, &CexResolutionStallError{Cex: cexList[0]}
		}
	}
}

// handleStall implements §7's stall recovery policy: reset if enabled,
// returning nil to tell the caller to continue the outer loop; otherwise
// return the fatal StallError.
func handleStall(tbl *table.Table, cfg *learnerOptions, m *metrics.Metrics, applied map[string]bool) error {
	if !cfg.enableReset {
		return &StallError{}
	}
	cfg.logger.Info().Log("learner: table stabilization stalled — resetting")
	tbl.Reset()
	for k := range applied {
		delete(applied, k)
	}
	m.RecordReset()
	return nil
}

// collectCex implements §4.6 step 3: safety CEX on H★, falling back to H⁺
// if the checker errors out on H★ (§7's "model-checker failure on H★" —
// downgraded, not fatal); liveness CEX on H⁻ and H★.
func collectCex(ctx context.Context, chk checker.Checker, hMinus, hPlus, hStar *iolts.Automaton, cfg *learnerOptions) ([]trace.Trace, error) {
	var out []trace.Trace

	safetyCex, err := chk.FindSafetyCex(ctx, hStar)
	if err != nil {
		cfg.logger.Debug().Log("learner: H* safety check failed, falling back to H+")
		safetyCex, err = chk.FindSafetyCex(ctx, hPlus)
		if err != nil {
			return nil, err
		}
	}
	if safetyCex != nil {
		out = append(out, safetyCex)
	}

	for _, h := range []*iolts.Automaton{hMinus, hStar} {
		cex, err := chk.FindLivenessCex(ctx, h)
		if err != nil {
			return nil, err
		}
		if cex != nil {
			out = append(out, cex)
		}
	}
	return out, nil
}

// resolveCex implements §4.6 step 5's three-case resolution order, each
// guarded by the same per-trace applied cache (a simplification of the
// per-case dedup cache spec.md describes: since all three cases act on the
// same counterexample, treating "this exact trace was already resolved"
// as the dedup key is equivalent in effect and simpler to maintain).
func resolveCex(tbl *table.Table, cex trace.Trace, applied map[string]bool) bool {
	key := cex.String()
	if applied[key] {
		return false
	}
	applied[key] = true

	if addLongestPrefixSuffix(tbl, cex) {
		return true
	}
	if addAllSuffixes(tbl, cex) {
		return true
	}
	return addAllPrefixes(tbl, cex)
}

// addLongestPrefixSuffix implements §4.6 step 5a: find the longest prefix
// of cex already present in S ∪ S·A (i.e. not contradicted — the table
// already has a row for it), and add the remaining suffix to E.
func addLongestPrefixSuffix(tbl *table.Table, cex trace.Trace) bool {
	domain := tbl.Domain()
	inDomain := make(map[string]bool, len(domain))
	for _, d := range domain {
		inDomain[d.String()] = true
	}

	prefixes := cex.Prefixes() // shortest first, includes cex itself
	var longest trace.Trace
	for i := len(prefixes) - 2; i >= 0; i-- {
		if inDomain[prefixes[i].String()] {
			longest = prefixes[i]
			break
		}
	}
	suffix := cex[len(longest):]
	if len(suffix) == 0 {
		return false
	}
	return tbl.AddSuffix(suffix)
}

// addAllSuffixes implements §4.6 step 5b.
func addAllSuffixes(tbl *table.Table, cex trace.Trace) bool {
	changed := false
	for _, suf := range cex.Suffixes() {
		if tbl.AddSuffix(suf) {
			changed = true
		}
	}
	return changed
}

// addAllPrefixes implements §4.6 step 5c.
func addAllPrefixes(tbl *table.Table, cex trace.Trace) bool {
	changed := false
	for _, pre := range cex.Prefixes() {
		if tbl.AddPrefix(pre) {
			changed = true
		}
	}
	return changed
}

// traceableState adapts RoundState to fmt.Stringer for logiface's Stringer
// field helper.
type traceableState struct{ s RoundState }

func (t traceableState) String() string { return t.s.String() }
