// Command ioltslearn runs the approximate IOLTS learner against a small,
// built-in demo system under learning and prints the resulting H⁻/H⁺/H★
// automata plus the run's metrics.
//
// Run with: go run ./cmd/ioltslearn -config ioltslearn.toml
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ioltslearn/ioltslearn/internal/checker"
	"github.com/ioltslearn/ioltslearn/internal/config"
	"github.com/ioltslearn/ioltslearn/internal/dotfmt"
	"github.com/ioltslearn/ioltslearn/internal/iolts"
	"github.com/ioltslearn/ioltslearn/internal/learner"
	"github.com/ioltslearn/ioltslearn/internal/obslog"
)

func main() {
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintf(os.Stderr, "ioltslearn: maxprocs: %v\n", err)
	}

	configPath := flag.String("config", "", "path to a TOML configuration file (defaults applied if empty)")
	dumpTable := flag.Bool("dump-table", false, "spew-dump the final observation table after the run, whether it succeeded or failed")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		cfg = config.MustLoad(*configPath)
	}

	logger := obslog.New(os.Stderr, obslog.PrintLevel(cfg.PrintLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sul := iolts.NewMachine(coinAutomaton(), &iolts.MachineConfig{Rand: rand.New(rand.NewSource(1))})

	l := learner.New(sul, checker.FuncChecker{}, cfg, logger, nil)

	res, err := l.Learn(ctx, learner.WithLogger(logger), learner.WithReset(cfg.EnableReset))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ioltslearn: learning failed: %v\n", err)
		if *dumpTable {
			spew.Fdump(os.Stderr, l.Table())
		}
		os.Exit(1)
	}

	fmt.Println(dotfmt.Write("HMinus", res.HMinus))
	fmt.Println(dotfmt.Write("HPlus", res.HPlus))
	fmt.Println(dotfmt.Write("HStar", res.HStar))
	fmt.Printf("rounds=%d resets=%d |S|=%d |E|=%d cache=%d\n",
		res.Metrics.Rounds, res.Metrics.Resets, res.Metrics.Table.S, res.Metrics.Table.E, res.Metrics.Table.Cache)

	if *dumpTable {
		spew.Fdump(os.Stderr, l.Table())
	}
}

// coinAutomaton is the built-in demo system: Scenario A of the learner's
// test suite — a single ?flip input leading to a non-deterministic choice
// between !heads and !tails, with the idle state quiescent.
func coinAutomaton() *iolts.Automaton {
	a := iolts.NewAutomaton()
	q0 := a.AddState()
	q1 := a.AddState()
	a.AddInput(q0, "flip", q1)
	a.AddOutput(q1, "heads", q0)
	a.AddOutput(q1, "tails", q0)
	a.AddQuiescence(q0, q0)
	return a
}
