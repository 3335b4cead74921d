// Package obslog is a thin facade over logiface+stumpy, in the spirit of
// eventloop/logging.go's package-level logging configuration but built on
// the real structured-logging stack instead of a hand-rolled interface: the
// oracle, table and learner packages all take a *obslog.Logger and log
// through it rather than each wiring logiface directly.
package obslog

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the concrete logger type threaded through the learner's
// components.
type Logger = logiface.Logger[*stumpy.Event]

// PrintLevel mirrors config's print_level knob (§6): 0 silences everything
// above errors, 3 is the most verbose.
type PrintLevel int

const (
	PrintLevelQuiet PrintLevel = 0
	PrintLevelInfo  PrintLevel = 1
	PrintLevelDebug PrintLevel = 2
	PrintLevelTrace PrintLevel = 3
)

// Level maps a PrintLevel to the corresponding logiface.Level.
func (p PrintLevel) Level() logiface.Level {
	switch {
	case p <= PrintLevelQuiet:
		return logiface.LevelError
	case p == PrintLevelInfo:
		return logiface.LevelInformational
	case p == PrintLevelDebug:
		return logiface.LevelDebug
	default:
		return logiface.LevelTrace
	}
}

// New constructs a Logger writing newline-delimited JSON to w at the given
// print level. A nil w defaults to os.Stderr.
func New(w io.Writer, level PrintLevel) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return logiface.New[*stumpy.Event](
		logiface.WithLevel[*stumpy.Event](level.Level()),
		stumpy.WithStumpy(stumpy.WithWriter(w)),
	)
}

// Noop returns a Logger that discards everything — the default for tests
// and callers that don't care about observability.
func Noop() *Logger {
	return logiface.New[*stumpy.Event](logiface.WithLevel[*stumpy.Event](logiface.LevelDisabled))
}
