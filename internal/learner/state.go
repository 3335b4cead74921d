package learner

// RoundState names the current phase of the round state machine (§4.6).
// Unlike the teacher's LoopState (an atomic.Uint64 guarding a genuinely
// concurrent loop), this is a plain int: §5 guarantees the driver is
// single-threaded, so there is nothing to synchronize.
type RoundState int

const (
	// RoundIdle is the state before Run's first round, and after it returns.
	RoundIdle RoundState = iota
	// RoundStabilizing is step 1: running the table's stabilization loop.
	RoundStabilizing
	// RoundGenerating is step 2: building H⁻, H⁺, H★ from the stabilized table.
	RoundGenerating
	// RoundChecking is step 3: querying the model-checker oracle.
	RoundChecking
	// RoundResolving is step 5: applying counterexamples to S/E, or resetting.
	RoundResolving
	// RoundDone is the terminal state: all CEX lists were empty.
	RoundDone
)

// String renders the state for logging.
func (s RoundState) String() string {
	switch s {
	case RoundIdle:
		return "idle"
	case RoundStabilizing:
		return "stabilizing"
	case RoundGenerating:
		return "generating"
	case RoundChecking:
		return "checking"
	case RoundResolving:
		return "resolving"
	case RoundDone:
		return "done"
	default:
		return "unknown"
	}
}
