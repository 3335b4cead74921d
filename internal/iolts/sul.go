// Package iolts defines the external contract the learner consumes from a
// "system under learning" (SUL): an Input/Output Labeled Transition System
// that is reset, stepped with inputs, and listened to for spontaneous
// outputs or quiescence (§4.1). It also supplies one concrete, in-memory
// implementation (Machine) used by tests and the cmd/ioltslearn demo, and
// the arena type both a Machine and the learner's hypotheses are built
// from.
package iolts

import (
	"context"

	"github.com/ioltslearn/ioltslearn/internal/trace"
)

// SUL is the interface consumed by the sampling oracle (§4.1). The learner
// treats every implementation as non-deterministic: replaying the same
// trace after Reset may produce different outputs, though the contract
// guarantees the set of possible outcomes is finite and every one of them
// eventually appears with probability 1 under i.i.d. resampling.
type SUL interface {
	// Reset brings the process back to its initial state.
	Reset(ctx context.Context) error
	// Step fires an input letter, reporting whether it was accepted.
	// l.Kind must be trace.Input.
	Step(ctx context.Context, l trace.Letter) (accepted bool, err error)
	// Listen returns the next spontaneous output, or trace.Delta if none
	// occurs before an implementation-defined timeout.
	Listen(ctx context.Context) (trace.Letter, error)
	// InputAlphabet returns the input letters the SUL accepts.
	InputAlphabet() []trace.Letter
	// OutputAlphabet returns the output letters the SUL may emit.
	OutputAlphabet() []trace.Letter
}
