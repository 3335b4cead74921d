// Package learner implements the learning driver of §4.6: the round state
// machine that interleaves table stabilization, hypothesis generation, and
// model-checker-driven counterexample resolution, plus the table-reset
// recovery path of §4.7. Shaped on the teacher's eventloop package (its
// driver-loop/state/options/errors split), re-targeted at this round
// machine instead of an event loop.
package learner

import (
	"fmt"

	"github.com/google/renameio/v2"
	"github.com/ioltslearn/ioltslearn/internal/trace"
)

// StallError reports §7's "inconsistency unresolvable by adding to E":
// Consistent (or QuiescenceReducible) keeps finding the same violation
// after it has already been added to E.
type StallError struct {
	Violation trace.Trace
}

func (e *StallError) Error() string {
	return fmt.Sprintf("learner: stalled — table remains inconsistent at %s after extending E", e.Violation)
}

// CexResolutionStallError reports §7's "no case adds new rows/cols": all
// three resolution strategies (longest-prefix, all-suffixes, all-prefixes)
// were tried against a counterexample and none extended S or E.
type CexResolutionStallError struct {
	Cex trace.Trace
}

func (e *CexResolutionStallError) Error() string {
	return fmt.Sprintf("learner: counterexample %s could not be resolved — no new rows or columns added", e.Cex)
}

// SpecViolatesPropertyError reports §7's fatal start-up error: a configured
// safety or liveness property fails against the specification itself,
// before learning begins.
type SpecViolatesPropertyError struct {
	Cause error
}

func (e *SpecViolatesPropertyError) Error() string {
	return fmt.Sprintf("learner: specification violates a configured property: %s", e.Cause)
}

func (e *SpecViolatesPropertyError) Unwrap() error { return e.Cause }

// UnreachableTraceError documents §7's transient "unreachable trace"
// condition for structured logging. It is never returned from Run — the
// condition is handled by caching ⊥ and continuing — but gives callers
// inspecting log output a concrete type to match against with errors.As
// if they choose to log it as an error value.
type UnreachableTraceError struct {
	Trace trace.Trace
}

func (e *UnreachableTraceError) Error() string {
	return fmt.Sprintf("learner: trace %s declared unreachable", e.Trace)
}

// RoundCapExceededError reports §7's fatal round-cap error: the outer
// learning loop exceeded R_MAX. (A single Stabilize call exceeding K_MAX is
// reported as a StallError instead.) It carries a post-mortem snapshot of S, E and the last
// counterexample list, and — if PostmortemPath is set — writes that
// snapshot to disk atomically via renameio before returning, so a caller
// can inspect the state that led to the abort.
type RoundCapExceededError struct {
	Kind  string // always "learning_rounds"
	Limit int
	S, E  []trace.Trace
	LastCex []trace.Trace

	// PostmortemPath, if non-empty, is where the snapshot was (or failed to
	// be) written.
	PostmortemPath string
	// PostmortemErr holds any error encountered writing the postmortem file;
	// it does not replace the original cap-exceeded error, since the
	// postmortem is best-effort diagnostics, not the failure itself.
	PostmortemErr error
}

func (e *RoundCapExceededError) Error() string {
	msg := fmt.Sprintf("learner: %s exceeded cap of %d (|S|=%d, |E|=%d)", e.Kind, e.Limit, len(e.S), len(e.E))
	if e.PostmortemPath != "" {
		msg += fmt.Sprintf(", postmortem written to %s", e.PostmortemPath)
	}
	return msg
}

// writePostmortem atomically writes a text snapshot of the error's S, E and
// LastCex to path via renameio.WriteFile, so a partially-written file is
// never observable.
func (e *RoundCapExceededError) writePostmortem(path string) {
	e.PostmortemPath = path

	var buf []byte
	buf = append(buf, fmt.Sprintf("kind: %s\nlimit: %d\n\nS (%d):\n", e.Kind, e.Limit, len(e.S))...)
	for _, s := range e.S {
		buf = append(buf, s.String()+"\n"...)
	}
	buf = append(buf, fmt.Sprintf("\nE (%d):\n", len(e.E))...)
	for _, s := range e.E {
		buf = append(buf, s.String()+"\n"...)
	}
	buf = append(buf, fmt.Sprintf("\nlast counterexamples (%d):\n", len(e.LastCex))...)
	for _, c := range e.LastCex {
		buf = append(buf, c.String()+"\n"...)
	}

	e.PostmortemErr = renameio.WriteFile(path, buf, 0o644)
}
