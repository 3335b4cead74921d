// Package config implements the configuration record of §6: the six
// learner-tunable options, loaded from a TOML file, validated eagerly on
// construction following the teacher's doc-default/panic idiom (e.g.
// microbatch.BatcherConfig).
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// PrintLevel is the verbosity knob of §6, mirroring obslog.PrintLevel's
// 0..3 range — kept as a distinct type here so config stays independent of
// the logging package it ultimately configures.
type PrintLevel int

const (
	PrintLevelQuiet PrintLevel = iota
	PrintLevelInfo
	PrintLevelDebug
	PrintLevelTrace
)

// Config is §6's configuration record.
type Config struct {
	// QueryThreshold is the confidence, in (0,1), required before declaring
	// a trace unreachable.
	QueryThreshold float64 `toml:"query_threshold"`
	// CompletenessThreshold is the confidence, in (0,1), required before
	// declaring a cell's output set complete.
	CompletenessThreshold float64 `toml:"completeness_threshold"`
	// EnforceQuiescenceReduced gates the δ-reducibility fixed-point.
	EnforceQuiescenceReduced bool `toml:"enforce_quiescence_reduced"`
	// EnforceQuiescenceSelfLoops makes quiescence self-loops explicit in
	// generated hypotheses.
	EnforceQuiescenceSelfLoops bool `toml:"enforce_quiescence_self_loops"`
	// EnableReset permits §4.7 table resets instead of aborting on stalls.
	EnableReset bool `toml:"enable_reset"`
	// PrintLevel is the verbosity of §6, 0..3.
	PrintLevel PrintLevel `toml:"print_level"`
}

// Default returns a Config with conservative, commonly-useful values: high
// confidence thresholds, every quiescence check enabled, resets permitted,
// informational logging.
func Default() Config {
	return Config{
		QueryThreshold:             0.99,
		CompletenessThreshold:      0.99,
		EnforceQuiescenceReduced:   true,
		EnforceQuiescenceSelfLoops: true,
		EnableReset:                true,
		PrintLevel:                 PrintLevelInfo,
	}
}

// Validate reports the first violated constraint of §6, or nil if the
// config is well-formed.
func (c Config) Validate() error {
	if c.QueryThreshold <= 0 || c.QueryThreshold >= 1 {
		return fmt.Errorf("config: query_threshold must be in (0,1), got %v", c.QueryThreshold)
	}
	if c.CompletenessThreshold <= 0 || c.CompletenessThreshold >= 1 {
		return fmt.Errorf("config: completeness_threshold must be in (0,1), got %v", c.CompletenessThreshold)
	}
	if c.PrintLevel < PrintLevelQuiet || c.PrintLevel > PrintLevelTrace {
		return fmt.Errorf("config: print_level must be in [0,3], got %d", c.PrintLevel)
	}
	return nil
}

// Load reads and validates a Config from a TOML file at path. Fields absent
// from the file keep Default's values, following the nil-config-means-
// defaults convention of the teacher's BatcherConfig.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: %s has unrecognized keys: %v", path, undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad is Load, panicking on error — for use in cmd/ioltslearn's main
// where a misconfigured run should fail immediately at start-up.
func MustLoad(path string) Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
