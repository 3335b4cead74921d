// Package checker defines the model-checker oracle's external contract of
// §4.5: given a hypothesis automaton and a configured set of safety/liveness
// formulae (opaque file paths — this package never parses them), return a
// counterexample trace, if any. The actual μ-calculus / branching-time
// solving happens outside the process; FileChecker shells out to it.
package checker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ioltslearn/ioltslearn/internal/iolts"
	"github.com/ioltslearn/ioltslearn/internal/oracle"
	"github.com/ioltslearn/ioltslearn/internal/trace"
)

// Checker is the model-checker oracle's contract (§4.5). FindSafetyCex and
// FindLivenessCex return a nil trace when no violation is found.
type Checker interface {
	FindSafetyCex(ctx context.Context, h *iolts.Automaton) (trace.Trace, error)
	FindLivenessCex(ctx context.Context, h *iolts.Automaton) (trace.Trace, error)

	// CheckSpec runs every configured formula against the specification
	// itself via the sampling oracle, per §4.5's start-up self-check. A
	// non-nil error here is a fatal user-configuration error (§7).
	CheckSpec(ctx context.Context, o *oracle.Oracle, inputs, outputs []trace.Letter) error
}

// Property is one configured formula: a name for logging/error reporting,
// and the external file path the learner passes through opaquely (§6).
type Property struct {
	Name string
	Path string
}

// FuncChecker adapts two plain functions to the Checker interface, following
// the teacher's small-interface-plus-func-adapter idiom (e.g.
// eventloop.EventListenerFunc) — used by tests and by callers that already
// have an in-process model checker and don't need FileChecker's subprocess
// plumbing.
type FuncChecker struct {
	SafetyFunc    func(ctx context.Context, h *iolts.Automaton) (trace.Trace, error)
	LivenessFunc  func(ctx context.Context, h *iolts.Automaton) (trace.Trace, error)
	CheckSpecFunc func(ctx context.Context, o *oracle.Oracle, inputs, outputs []trace.Letter) error
}

func (f FuncChecker) FindSafetyCex(ctx context.Context, h *iolts.Automaton) (trace.Trace, error) {
	if f.SafetyFunc == nil {
		return nil, nil
	}
	return f.SafetyFunc(ctx, h)
}

func (f FuncChecker) FindLivenessCex(ctx context.Context, h *iolts.Automaton) (trace.Trace, error) {
	if f.LivenessFunc == nil {
		return nil, nil
	}
	return f.LivenessFunc(ctx, h)
}

func (f FuncChecker) CheckSpec(ctx context.Context, o *oracle.Oracle, inputs, outputs []trace.Letter) error {
	if f.CheckSpecFunc == nil {
		return nil
	}
	return f.CheckSpecFunc(ctx, o, inputs, outputs)
}

var _ Checker = FuncChecker{}

// Config configures FileChecker's external solver invocation.
type Config struct {
	// Command is the external model-checker binary (e.g. a wrapped mCRL2
	// toolchain invocation). It is run once per formula as:
	//   Command <model-file> <formula-file>
	// and is expected to print either the literal line "true", or "false"
	// followed by a counterexample trace, one letter per line, using the
	// `?`/`!`/`QUIESCENCE` convention of §6.
	Command string
	// WorkDir is where the per-call model file is written. Defaults to
	// os.TempDir() if empty.
	WorkDir string
}

// FileChecker implements Checker by converting the hypothesis to an
// external process-algebra text form and invoking an external solver
// binary per formula, one subprocess call at a time (§4.5's formulae are
// evaluated independently; the first violation found is returned).
type FileChecker struct {
	cfg                Config
	safetyProperties   []Property
	livenessProperties []Property
}

// NewFileChecker constructs a FileChecker. cfg.Command must name an
// executable reachable via exec.LookPath or an absolute path.
func NewFileChecker(cfg Config) *FileChecker {
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &FileChecker{cfg: cfg}
}

// AddSafetyProperty registers a safety formula file (§6: the learner never
// reads its contents, only its path).
func (c *FileChecker) AddSafetyProperty(p Property) { c.safetyProperties = append(c.safetyProperties, p) }

// AddLivenessProperty registers a liveness formula file.
func (c *FileChecker) AddLivenessProperty(p Property) {
	c.livenessProperties = append(c.livenessProperties, p)
}

func (c *FileChecker) FindSafetyCex(ctx context.Context, h *iolts.Automaton) (trace.Trace, error) {
	return c.findCex(ctx, h, c.safetyProperties)
}

func (c *FileChecker) FindLivenessCex(ctx context.Context, h *iolts.Automaton) (trace.Trace, error) {
	return c.findCex(ctx, h, c.livenessProperties)
}

func (c *FileChecker) findCex(ctx context.Context, h *iolts.Automaton, props []Property) (trace.Trace, error) {
	if len(props) == 0 {
		return nil, nil
	}
	modelFile, cleanup, err := c.writeModel(h)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	for _, p := range props {
		cex, err := c.run(ctx, modelFile, p)
		if err != nil {
			return nil, fmt.Errorf("checker: property %q: %w", p.Name, err)
		}
		if cex != nil {
			return cex, nil
		}
	}
	return nil, nil
}

func (c *FileChecker) run(ctx context.Context, modelFile string, p Property) (trace.Trace, error) {
	cmd := exec.CommandContext(ctx, c.cfg.Command, modelFile, p.Path)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", c.cfg.Command, err)
	}
	return parseVerdict(out)
}

// parseVerdict reads the external solver's output: "true" on its own line
// means no violation; "false" followed by one letter per line (the §6
// `?`/`!`/QUIESCENCE convention) means a counterexample follows.
func parseVerdict(out []byte) (trace.Trace, error) {
	sc := bufio.NewScanner(strings.NewReader(string(out)))
	if !sc.Scan() {
		return nil, fmt.Errorf("checker: empty solver output")
	}
	switch strings.TrimSpace(sc.Text()) {
	case "true":
		return nil, nil
	case "false":
		var tr trace.Trace
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			tr = append(tr, parseLetter(line))
		}
		return tr, nil
	default:
		return nil, fmt.Errorf("checker: unrecognized solver verdict %q", sc.Text())
	}
}

func parseLetter(s string) trace.Letter {
	switch {
	case s == "QUIESCENCE":
		return trace.Delta
	case strings.HasPrefix(s, "?"):
		return trace.NewInput(strings.TrimPrefix(s, "?"))
	case strings.HasPrefix(s, "!"):
		return trace.NewOutput(strings.TrimPrefix(s, "!"))
	default:
		return trace.NewOutput(s)
	}
}

// CheckSpec implements §4.5's start-up self-check: every configured formula
// is evaluated against the "universal" automaton — a single state with a
// self-loop on every input, output and δ, representing total ignorance of
// the real system's behavior — and any counterexample the solver reports is
// replayed against the real SUL through o, letter by letter. A CEX that
// replays successfully the whole way through is a genuine violation
// observed on the real system, not an artifact of the universal
// automaton's over-approximation, and is therefore a fatal configuration
// error.
func (c *FileChecker) CheckSpec(ctx context.Context, o *oracle.Oracle, inputs, outputs []trace.Letter) error {
	universe := universalAutomaton(inputs, outputs)

	check := func(props []Property, kind string) error {
		for _, p := range props {
			cex, err := c.findCex(ctx, universe, []Property{p})
			if err != nil {
				return err
			}
			if cex == nil {
				continue
			}
			reproduced, err := replay(ctx, o, cex)
			if err != nil {
				return err
			}
			if reproduced {
				return fmt.Errorf("checker: %s property %q violated by the specification itself (trace %s)", kind, p.Name, cex)
			}
		}
		return nil
	}

	if err := check(c.safetyProperties, "safety"); err != nil {
		return err
	}
	return check(c.livenessProperties, "liveness")
}

// replay drives cex through o letter by letter, confirming every letter is
// actually reachable on the real system.
func replay(ctx context.Context, o *oracle.Oracle, cex trace.Trace) (bool, error) {
	for i, l := range cex {
		if l.Kind == trace.Input {
			continue
		}
		prefix := cex[:i]
		out, ok, err := o.Query(ctx, prefix, true)
		if err != nil {
			return false, err
		}
		if !ok || !out.Equal(l) {
			return false, nil
		}
	}
	return true, nil
}

func universalAutomaton(inputs, outputs []trace.Letter) *iolts.Automaton {
	a := iolts.NewAutomaton()
	s := a.AddState()
	for _, l := range inputs {
		a.AddInput(s, l.Symbol, s)
	}
	for _, l := range outputs {
		a.AddOutput(s, l.Symbol, s)
	}
	a.AddQuiescence(s, s)
	return a
}

func (c *FileChecker) writeModel(h *iolts.Automaton) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp(c.cfg.WorkDir, "ioltslearn-model-*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("checker: creating model file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(renderModel(h)); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("checker: writing model file: %w", err)
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

// renderModel writes h in the §6 DOT-like convention the external solver is
// expected to understand: one line per transition, `?`/`!` prefixes for
// input/output, the QUIESCENCE token for δ.
func renderModel(h *iolts.Automaton) string {
	var b strings.Builder
	fmt.Fprintf(&b, "initial %d\n", h.Initial)
	for _, s := range h.States {
		for sym, dests := range s.Inputs {
			for _, d := range dests {
				fmt.Fprintf(&b, "%d ?%s %d\n", s.ID, sym, d)
			}
		}
		for sym, dests := range s.Outputs {
			for _, d := range dests {
				fmt.Fprintf(&b, "%d !%s %d\n", s.ID, sym, d)
			}
		}
		for _, d := range s.Quiescence {
			fmt.Fprintf(&b, "%d QUIESCENCE %d\n", s.ID, d)
		}
	}
	return b.String()
}

var _ Checker = (*FileChecker)(nil)
