// Package stage defines the verification stages and the contract they run
// under. Stages are self-contained: each one knows how to invoke its tool,
// decide pass/fail, and pull readable diagnostics out of the output.
package stage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"checkgate/internal/shell"
)

// Name identifies a verification stage.
type Name string

const (
	Install   Name = "install"
	Build     Name = "build"
	Lint      Name = "lint"
	Typecheck Name = "typecheck"
	Test      Name = "test"
	Docs      Name = "docs"
)

// canonicalOrder fixes the sequence stages run in. Selection can drop stages
// but never reorders them.
var canonicalOrder = []Name{Install, Build, Lint, Typecheck, Test, Docs}

// CanonicalOrder returns every stage name in execution order.
func CanonicalOrder() []Name {
	out := make([]Name, len(canonicalOrder))
	copy(out, canonicalOrder)
	return out
}

// ParseName resolves a user-supplied stage name.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range canonicalOrder {
		if n == known {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q (valid: %s)", s, validNames())
}

// Normalize resolves a selection to canonical order, dropping duplicates. An
// empty selection means every stage.
func Normalize(selection []Name) []Name {
	if len(selection) == 0 {
		return CanonicalOrder()
	}
	want := make(map[Name]bool, len(selection))
	for _, n := range selection {
		want[n] = true
	}
	out := make([]Name, 0, len(want))
	for _, n := range canonicalOrder {
		if want[n] {
			out = append(out, n)
		}
	}
	return out
}

func validNames() string {
	parts := make([]string, len(canonicalOrder))
	for i, n := range canonicalOrder {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

// Context carries the run environment every stage sees.
type Context struct {
	// Root is the project directory commands run in.
	Root string
	// CI selects reproducible command variants where a stage has one.
	CI bool
	// Fix lets stages rewrite files before checking.
	Fix bool
	// Benchmark attaches capped command output to results.
	Benchmark bool

	Runner shell.Runner
}

// Result is the outcome of one stage run. Success false means the tool ran and
// found problems; infrastructure failures travel on the error return of Run.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// Errors holds extracted diagnostics, at most MaxErrors of them.
	Errors []string `json:"errors,omitempty"`
	// Output is only populated in benchmark mode.
	Output *CapturedOutput `json:"output,omitempty"`
}

// CapturedOutput is a capped snapshot of what the stage's command produced.
type CapturedOutput struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// ExecutionResult pairs a stage with its outcome and wall time.
type ExecutionResult struct {
	Name     Name          `json:"name"`
	Result   Result        `json:"result"`
	Duration time.Duration `json:"duration"`
}

// Stage is one verification step. Run returns a Result when the underlying
// tool could be observed to completion, whatever its verdict; it returns an
// error only when the tool itself broke (could not spawn, drowned the output
// ceiling, or the whole run was cancelled).
type Stage interface {
	Name() Name
	Description() string
	Run(ctx context.Context, env *Context) (Result, error)
}
