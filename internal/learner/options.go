package learner

import (
	"github.com/ioltslearn/ioltslearn/internal/obslog"
)

// learnerOptions holds Run's optional configuration, following the
// teacher's loopOptions/LoopOption split (eventloop/options.go).
type learnerOptions struct {
	logger             *obslog.Logger
	maxLearningRounds  int
	maxStabilizeRounds int
	enableReset        bool
	postmortemPath     string
}

// Option configures a Run invocation.
type Option interface {
	apply(*learnerOptions)
}

type optionFunc func(*learnerOptions)

func (f optionFunc) apply(o *learnerOptions) { f(o) }

// WithLogger sets the structured logger used for round-by-round progress.
// Defaults to obslog.Noop() if not given.
func WithLogger(logger *obslog.Logger) Option {
	return optionFunc(func(o *learnerOptions) { o.logger = logger })
}

// WithRoundCaps overrides R_MAX and K_MAX (§4.6). Zero values keep the
// package defaults (400 and 200 respectively).
func WithRoundCaps(maxLearningRounds, maxStabilizeRounds int) Option {
	return optionFunc(func(o *learnerOptions) {
		if maxLearningRounds > 0 {
			o.maxLearningRounds = maxLearningRounds
		}
		if maxStabilizeRounds > 0 {
			o.maxStabilizeRounds = maxStabilizeRounds
		}
	})
}

// WithReset mirrors config.Config.EnableReset: whether a stall falls back
// to a §4.7 table reset rather than aborting.
func WithReset(enabled bool) Option {
	return optionFunc(func(o *learnerOptions) { o.enableReset = enabled })
}

// WithPostmortemPath sets where a RoundCapExceededError's diagnostic
// snapshot is written. Empty (the default) disables the write.
func WithPostmortemPath(path string) Option {
	return optionFunc(func(o *learnerOptions) { o.postmortemPath = path })
}

const (
	defaultMaxLearningRounds  = 400 // R_MAX, §4.6
	defaultMaxStabilizeRounds = 200 // K_MAX, §4.6
)

func resolveOptions(opts []Option) *learnerOptions {
	cfg := &learnerOptions{
		maxLearningRounds:  defaultMaxLearningRounds,
		maxStabilizeRounds: defaultMaxStabilizeRounds,
		enableReset:        true,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = obslog.Noop()
	}
	return cfg
}
