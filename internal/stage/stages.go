package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkgate/internal/shell"
)

// Command holds the shell invocations behind one stage. Run is the check
// itself; CI and Fix are optional variants.
type Command struct {
	// Run is the check invocation. Its exit code decides the stage.
	Run string
	// CI replaces Run when the pipeline runs in CI mode.
	CI string
	// Fix replaces Run when fixing is requested. Its exit code decides the
	// stage; Run is then only re-invoked to collect error detail on failure.
	Fix string
	// Timeout bounds each invocation. Zero means no per-stage bound.
	Timeout time.Duration
}

// builtins fixes the user-facing identity of each stage. Commands and
// timeouts come from configuration; everything else is intrinsic.
var builtins = map[Name]struct {
	description string
	okMessage   string
	extract     Extractor
}{
	Install:   {"install project dependencies", "dependencies installed", ExtractNpmErrors},
	Build:     {"compile the project", "build succeeded", ExtractPathDiagnostics},
	Lint:      {"run the linter", "no lint errors", ExtractLintDiagnostics},
	Typecheck: {"check static types", "no type errors", ExtractTypeScriptErrors},
	Test:      {"run the test suite", "all tests passed", ExtractTestFailures},
	Docs:      {"verify generated docs", "docs are up to date", ExtractPathDiagnostics},
}

// Describe returns the builtin description for a stage name, or "" for an
// unknown name.
func Describe(name Name) string {
	return builtins[name].description
}

// New builds the named builtin stage around cmd.
func New(name Name, cmd Command) (Stage, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown stage %q (valid: %s)", name, validNames())
	}
	if cmd.Run == "" {
		return nil, fmt.Errorf("stage %s: empty command", name)
	}
	return &cmdStage{
		name:        name,
		description: b.description,
		okMessage:   b.okMessage,
		extract:     b.extract,
		cmd:         cmd,
	}, nil
}

type cmdStage struct {
	name        Name
	description string
	okMessage   string
	extract     Extractor
	cmd         Command
}

func (s *cmdStage) Name() Name          { return s.name }
func (s *cmdStage) Description() string { return s.description }

func (s *cmdStage) Run(ctx context.Context, env *Context) (Result, error) {
	command := s.cmd.Run
	if env.CI && s.cmd.CI != "" {
		command = s.cmd.CI
	}

	if env.Fix && s.cmd.Fix != "" {
		return s.runFix(ctx, env, command)
	}

	out, timedOut, err := s.exec(ctx, env, command)
	if err != nil {
		return Result{}, err
	}
	if timedOut {
		return s.timeoutResult(command), nil
	}

	res := Result{Success: out.ExitCode == 0}
	if env.Benchmark {
		res.Output = capture(out)
	}
	if res.Success {
		res.Message = s.okMessage
		return res, nil
	}
	res.Message = fmt.Sprintf("%s exited with code %d", command, out.ExitCode)
	res.Errors = ExtractErrors(s.extract, out.Combined())
	return res, nil
}

// runFix runs the fix invocation, whose exit code decides the stage. Fixers
// report little per-violation detail, so on failure the plain check command
// runs once more only to collect error lines; it applies no fixes.
func (s *cmdStage) runFix(ctx context.Context, env *Context, command string) (Result, error) {
	fixOut, timedOut, err := s.exec(ctx, env, s.cmd.Fix)
	if err != nil {
		return Result{}, err
	}
	if timedOut {
		return s.timeoutResult(s.cmd.Fix), nil
	}

	if fixOut.ExitCode == 0 {
		res := Result{Success: true, Message: s.okMessage}
		if env.Benchmark {
			res.Output = capture(fixOut)
		}
		return res, nil
	}

	checkOut, timedOut, err := s.exec(ctx, env, command)
	if err != nil {
		return Result{}, err
	}
	if timedOut {
		return s.timeoutResult(command), nil
	}

	res := Result{
		Success: false,
		Message: fmt.Sprintf("%s exited with code %d", s.cmd.Fix, fixOut.ExitCode),
	}
	if env.Benchmark {
		res.Output = capture(checkOut)
	}
	source := checkOut.Combined()
	if strings.TrimSpace(source) == "" {
		source = fixOut.Combined()
	}
	res.Errors = ExtractErrors(s.extract, source)
	return res, nil
}

func capture(out shell.Output) *CapturedOutput {
	return &CapturedOutput{
		Stdout:   shell.Cap(out.Stdout),
		Stderr:   shell.Cap(out.Stderr),
		ExitCode: out.ExitCode,
	}
}

// exec runs one command under the stage timeout. A timeout hit is reported as
// timedOut rather than an error so it counts as a normal failed check; the
// error return is reserved for spawn failures, the output ceiling, and
// cancellation of the whole run.
func (s *cmdStage) exec(ctx context.Context, env *Context, command string) (shell.Output, bool, error) {
	runCtx := ctx
	if s.cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cmd.Timeout)
		defer cancel()
	}
	out, err := env.Runner.Run(runCtx, env.Root, command)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return out, true, nil
		}
		return out, false, err
	}
	return out, false, nil
}

func (s *cmdStage) timeoutResult(command string) Result {
	return Result{
		Success: false,
		Message: fmt.Sprintf("%s timed out after %s", command, s.cmd.Timeout),
	}
}
