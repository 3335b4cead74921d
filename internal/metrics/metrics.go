// Package metrics implements the learner output's metrics record (§6): per-
// round counters, hypothesis state counts, table/cache sizes, the two
// interaction-counter buckets, and wall-clock splits. Modeled on
// eventloop.Metrics's grouped-struct-with-Record-methods shape, but without
// any locking — §5 guarantees the learner is single-threaded, so the
// teacher's sync.RWMutex/atomics would be unjustified ceremony here.
package metrics

import "time"

// HypothesisSizes holds the state count of each of the three bracketing
// automata, snapshotted once per round.
type HypothesisSizes struct {
	HMinus int
	HPlus  int
	HStar  int
}

// TableSizes holds |S|, |E| and the sampling-oracle cache's entry count,
// snapshotted once per round.
type TableSizes struct {
	S     int
	E     int
	Cache int
}

// Durations accumulates wall-clock time spent in each phase of the round
// state machine (§4.6), across the whole run.
type Durations struct {
	Stabilize time.Duration
	Generate  time.Duration
	Check     time.Duration
	Resolve   time.Duration
}

// Metrics is §6's learner-output metrics record.
type Metrics struct {
	Rounds int
	Resets int

	LearningInteractions     int
	CompletenessInteractions int

	Hypotheses HypothesisSizes
	Table      TableSizes
	Durations  Durations
}

// RecordRound increments the round counter. Called once per iteration of
// the driver's outer loop (§4.6 step 6).
func (m *Metrics) RecordRound() { m.Rounds++ }

// RecordReset increments the reset counter (§4.7).
func (m *Metrics) RecordReset() { m.Resets++ }

// RecordStabilize adds d to the cumulative time spent in the Stabilize
// phase (§4.6 step 1).
func (m *Metrics) RecordStabilize(d time.Duration) { m.Durations.Stabilize += d }

// RecordGenerate adds d to the cumulative time spent generating H⁻/H⁺/H★
// (§4.6 step 2).
func (m *Metrics) RecordGenerate(d time.Duration) { m.Durations.Generate += d }

// RecordCheck adds d to the cumulative time spent querying the
// model-checker oracle (§4.6 step 3).
func (m *Metrics) RecordCheck(d time.Duration) { m.Durations.Check += d }

// RecordResolve adds d to the cumulative time spent resolving
// counterexamples (§4.6 step 5).
func (m *Metrics) RecordResolve(d time.Duration) { m.Durations.Resolve += d }

// SetHypothesisSizes overwrites the most recent hypothesis state counts.
func (m *Metrics) SetHypothesisSizes(hMinus, hPlus, hStar int) {
	m.Hypotheses = HypothesisSizes{HMinus: hMinus, HPlus: hPlus, HStar: hStar}
}

// SetTableSizes overwrites the most recent |S|, |E| and cache-size counts.
func (m *Metrics) SetTableSizes(sSize, eSize, cacheSize int) {
	m.Table = TableSizes{S: sSize, E: eSize, Cache: cacheSize}
}

// SetInteractionCounts overwrites the two interaction-counter buckets from
// the oracle's running totals.
func (m *Metrics) SetInteractionCounts(learning, completeness int) {
	m.LearningInteractions = learning
	m.CompletenessInteractions = completeness
}
