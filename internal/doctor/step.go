// Package doctor diagnoses project health problems that the verification
// pipeline does not cover, like code nothing references anymore. Steps can
// report findings or, in fix mode, rewrite the project to remove them.
package doctor

import (
	"context"
	"fmt"
	"time"

	"checkgate/internal/shell"
)

// Context carries the environment every doctor step sees.
type Context struct {
	// Root is the project directory commands run in.
	Root string
	// Fix lets steps modify the project instead of only reporting.
	Fix bool

	Runner shell.Runner
}

// Issue is one finding: a symbol, file or dependency nothing uses.
type Issue struct {
	File        string `json:"file,omitempty"`
	Line        int    `json:"line,omitempty"`
	Col         int    `json:"col,omitempty"`
	Description string `json:"description"`
	// Fixed marks that a fix run rewrote the project to remove the finding.
	Fixed bool `json:"fixed,omitempty"`
}

// Location renders the file position in the usual file:line:col form.
func (i Issue) Location() string {
	if i.File == "" {
		return ""
	}
	if i.Line == 0 {
		return i.File
	}
	return fmt.Sprintf("%s:%d:%d", i.File, i.Line, i.Col)
}

// StepResult is the outcome of one doctor step.
type StepResult struct {
	Step     string        `json:"step"`
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Issues   []Issue       `json:"issues,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Step diagnoses one aspect of project health.
type Step interface {
	Name() string
	Description() string
	Run(ctx context.Context, env *Context) (StepResult, error)
}

// RunAll executes every step and collects the results. Unlike verification,
// doctor does not stop at a failed step; only a broken tool or cancellation
// aborts the sweep.
func RunAll(ctx context.Context, env *Context, steps []Step) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("doctor cancelled: %w", err)
		}
		start := time.Now()
		res, err := s.Run(ctx, env)
		if err != nil {
			return results, fmt.Errorf("doctor step %s: %w", s.Name(), err)
		}
		res.Step = s.Name()
		res.Duration = time.Since(start)
		results = append(results, res)
	}
	return results, nil
}

// Healthy reports whether every step came back clean.
func Healthy(results []StepResult) bool {
	for _, res := range results {
		if !res.Success {
			return false
		}
	}
	return true
}
