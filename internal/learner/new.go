package learner

import (
	"context"
	"math/rand"

	catrate "github.com/joeycumines/go-catrate"

	"github.com/ioltslearn/ioltslearn/internal/checker"
	"github.com/ioltslearn/ioltslearn/internal/config"
	"github.com/ioltslearn/ioltslearn/internal/iolts"
	"github.com/ioltslearn/ioltslearn/internal/obslog"
	"github.com/ioltslearn/ioltslearn/internal/oracle"
	"github.com/ioltslearn/ioltslearn/internal/table"
)

// Learner bundles the oracle and observation table a single Learn call
// operates on, so callers don't have to hand-wire the oracle/table pairing
// themselves — mirroring go-eventloop's New(...) constructor returning a
// ready-to-Run loop rather than exposing its internal scheduler directly.
type Learner struct {
	tbl *table.Table
	o   *oracle.Oracle
	chk checker.Checker
}

// New builds a Learner from a configuration record and a system under
// learning: the sampling oracle (paced by limiter, which may be nil) and
// the observation table are constructed internally from cfg's thresholds
// and the sul's declared alphabets.
func New(sul iolts.SUL, chk checker.Checker, cfg config.Config, logger *obslog.Logger, limiter *catrate.Limiter) *Learner {
	if logger == nil {
		logger = obslog.Noop()
	}
	o := oracle.New(sul, oracle.Config{
		QueryThreshold:        cfg.QueryThreshold,
		CompletenessThreshold: cfg.CompletenessThreshold,
	}, limiter, rand.New(rand.NewSource(1)), logger)

	tbl := table.New(sul.InputAlphabet(), sul.OutputAlphabet(), o, table.Config{
		EnforceQuiescenceReduced:   cfg.EnforceQuiescenceReduced,
		EnforceQuiescenceSelfLoops: cfg.EnforceQuiescenceSelfLoops,
	}, logger)

	return &Learner{tbl: tbl, o: o, chk: chk}
}

// Learn runs the round state machine of §4.6 to a fixed point or a fatal
// error, delegating to Run with the Learner's own oracle and table.
func (l *Learner) Learn(ctx context.Context, opts ...Option) (*Result, error) {
	return Run(ctx, l.tbl, l.o, l.chk, opts...)
}

// Table exposes the underlying observation table, e.g. for a caller that
// wants to dump S/E/cells after a failed run.
func (l *Learner) Table() *table.Table { return l.tbl }

// Oracle exposes the underlying sampling oracle, e.g. for reporting its
// cache size or interaction counts independent of a Result.
func (l *Learner) Oracle() *oracle.Oracle { return l.o }
