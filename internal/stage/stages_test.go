package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"checkgate/internal/shell"
)

type mockCall struct {
	dir     string
	command string
}

type mockResult struct {
	out shell.Output
	err error
}

type mockRunner struct {
	calls   []mockCall
	results []mockResult
	callIdx int
}

func (m *mockRunner) Run(_ context.Context, dir, command string) (shell.Output, error) {
	m.calls = append(m.calls, mockCall{dir: dir, command: command})
	if m.callIdx >= len(m.results) {
		return shell.Output{}, nil
	}
	res := m.results[m.callIdx]
	m.callIdx++
	return res.out, res.err
}

func mustNew(t *testing.T, name Name, cmd Command) Stage {
	t.Helper()
	s, err := New(name, cmd)
	if err != nil {
		t.Fatalf("New(%s) failed: %v", name, err)
	}
	return s
}

func TestStageRunSuccess(t *testing.T) {
	runner := &mockRunner{results: []mockResult{{out: shell.Output{Stdout: "ok"}}}}
	s := mustNew(t, Build, Command{Run: "npm run build"})

	res, err := s.Run(context.Background(), &Context{Root: "/work", Runner: runner})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.Success {
		t.Errorf("Success = false, want true; message %q", res.Message)
	}
	if res.Message != "build succeeded" {
		t.Errorf("Message = %q, want %q", res.Message, "build succeeded")
	}
	if len(runner.calls) != 1 || runner.calls[0].command != "npm run build" || runner.calls[0].dir != "/work" {
		t.Errorf("unexpected calls: %+v", runner.calls)
	}
}

func TestStageRunFailureExtractsErrors(t *testing.T) {
	tscOut := "src/app.ts(12,5): error TS2345: Argument of type 'string' is not assignable.\n" +
		"src/util.ts(3,1): error TS6133: 'fs' is declared but its value is never read.\n"
	runner := &mockRunner{results: []mockResult{
		{out: shell.Output{Stdout: tscOut, ExitCode: 2}},
	}}
	s := mustNew(t, Typecheck, Command{Run: "npx tsc --noEmit"})

	res, err := s.Run(context.Background(), &Context{Runner: runner})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if want := "npx tsc --noEmit exited with code 2"; res.Message != want {
		t.Errorf("Message = %q, want %q", res.Message, want)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("Errors = %v, want 2 entries", res.Errors)
	}
	if !strings.Contains(res.Errors[0], "TS2345") {
		t.Errorf("first error %q does not name the diagnostic", res.Errors[0])
	}
}

func TestStageRunFixCleanIsSinglePass(t *testing.T) {
	runner := &mockRunner{results: []mockResult{
		{out: shell.Output{ExitCode: 0}},
	}}
	s := mustNew(t, Lint, Command{Run: "npm run lint", Fix: "npm run lint -- --fix"})

	res, err := s.Run(context.Background(), &Context{Fix: true, Runner: runner})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.Success {
		t.Errorf("Success = false after clean fix pass; message %q", res.Message)
	}
	if len(runner.calls) != 1 || runner.calls[0].command != "npm run lint -- --fix" {
		t.Errorf("unexpected calls: %+v", runner.calls)
	}
}

func TestStageRunFixFailureRerunsCheckForDetails(t *testing.T) {
	// The fixer exits non-zero without per-violation detail; the plain check
	// runs once more only to collect error lines.
	stylish := "src/app.ts\n  12:5  error  'x' is assigned a value but never used  no-unused-vars\n"
	runner := &mockRunner{results: []mockResult{
		{out: shell.Output{ExitCode: 1}},
		{out: shell.Output{Stdout: stylish, ExitCode: 1}},
	}}
	s := mustNew(t, Lint, Command{Run: "npm run lint", Fix: "npm run lint -- --fix"})

	res, err := s.Run(context.Background(), &Context{Fix: true, Runner: runner})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if want := "npm run lint -- --fix exited with code 1"; res.Message != want {
		t.Errorf("Message = %q, want %q", res.Message, want)
	}
	if len(runner.calls) != 2 || runner.calls[1].command != "npm run lint" {
		t.Fatalf("calls = %+v, want fix then plain check", runner.calls)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "no-unused-vars") {
		t.Errorf("Errors = %v, want the check pass diagnostic", res.Errors)
	}
}

func TestStageRunFixFailureFallsBackToFixOutput(t *testing.T) {
	runner := &mockRunner{results: []mockResult{
		{out: shell.Output{Stderr: "eslint crashed while fixing", ExitCode: 2}},
		{out: shell.Output{ExitCode: 0}},
	}}
	s := mustNew(t, Lint, Command{Run: "npm run lint", Fix: "npm run lint -- --fix"})

	res, err := s.Run(context.Background(), &Context{Fix: true, Runner: runner})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Success {
		t.Fatal("fix pass failed; stage must fail even when the re-run is clean")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "eslint crashed") {
		t.Errorf("Errors = %v, want fallback from the fix pass output", res.Errors)
	}
}

func TestStageRunFixSkippedWithoutFlag(t *testing.T) {
	runner := &mockRunner{results: []mockResult{{out: shell.Output{ExitCode: 0}}}}
	s := mustNew(t, Lint, Command{Run: "npm run lint", Fix: "npm run lint -- --fix"})

	if _, err := s.Run(context.Background(), &Context{Runner: runner}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(runner.calls) != 1 || runner.calls[0].command != "npm run lint" {
		t.Errorf("unexpected calls: %+v", runner.calls)
	}
}

func TestStageRunCIVariant(t *testing.T) {
	runner := &mockRunner{results: []mockResult{{out: shell.Output{ExitCode: 0}}}}
	s := mustNew(t, Install, Command{Run: "npm install", CI: "npm ci"})

	if _, err := s.Run(context.Background(), &Context{CI: true, Runner: runner}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if runner.calls[0].command != "npm ci" {
		t.Errorf("command = %q, want %q", runner.calls[0].command, "npm ci")
	}
}

func TestStageRunBenchmarkCapturesOutput(t *testing.T) {
	runner := &mockRunner{results: []mockResult{
		{out: shell.Output{Stdout: "built in 2.3s", Stderr: "warning: chunk size", ExitCode: 0}},
	}}
	s := mustNew(t, Build, Command{Run: "npm run build"})

	res, err := s.Run(context.Background(), &Context{Benchmark: true, Runner: runner})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Output == nil {
		t.Fatal("Output = nil in benchmark mode")
	}
	if res.Output.Stdout != "built in 2.3s" || res.Output.Stderr != "warning: chunk size" {
		t.Errorf("captured output mismatch: %+v", res.Output)
	}

	// Outside benchmark mode nothing is captured.
	runner = &mockRunner{results: []mockResult{{out: shell.Output{Stdout: "x"}}}}
	s = mustNew(t, Build, Command{Run: "npm run build"})
	res, err = s.Run(context.Background(), &Context{Runner: runner})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Output != nil {
		t.Error("Output captured without benchmark mode")
	}
}

func TestStageRunToolBroken(t *testing.T) {
	spawnErr := errors.New("start \"npm run build\": executable file not found")
	runner := &mockRunner{results: []mockResult{{err: spawnErr}}}
	s := mustNew(t, Build, Command{Run: "npm run build"})

	_, err := s.Run(context.Background(), &Context{Runner: runner})
	if !errors.Is(err, spawnErr) {
		t.Fatalf("err = %v, want the spawn error", err)
	}
}

func TestStageRunTimeoutIsFailure(t *testing.T) {
	runner := &mockRunner{results: []mockResult{
		{err: fmt.Errorf("run: %w", context.DeadlineExceeded)},
	}}
	s := mustNew(t, Test, Command{Run: "npm test", Timeout: 3 * time.Minute})

	res, err := s.Run(context.Background(), &Context{Runner: runner})
	if err != nil {
		t.Fatalf("timeout should be a normal failure, got error: %v", err)
	}
	if res.Success {
		t.Error("Success = true after timeout")
	}
	if !strings.Contains(res.Message, "timed out after 3m0s") {
		t.Errorf("Message = %q, want timeout notice", res.Message)
	}
}

func TestStageRunParentCancelIsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := &mockRunner{results: []mockResult{
		{err: fmt.Errorf("run: %w", context.Canceled)},
	}}
	s := mustNew(t, Test, Command{Run: "npm test", Timeout: time.Minute})

	if _, err := s.Run(ctx, &Context{Runner: runner}); err == nil {
		t.Fatal("expected error when the whole run is cancelled")
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New("deploy", Command{Run: "true"}); err == nil {
		t.Error("New accepted unknown stage name")
	}
	if _, err := New(Build, Command{}); err == nil {
		t.Error("New accepted empty command")
	}
}
