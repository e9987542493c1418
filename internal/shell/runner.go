package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxOutput is the combined stdout+stderr ceiling for one invocation.
const DefaultMaxOutput = 10 << 20 // 10 MB

// ErrOutputLimit reports that a command produced more combined output than the
// runner is willing to hold. The invocation is unrecoverable: output past the
// ceiling is discarded and the child is killed.
var ErrOutputLimit = errors.New("command output exceeded limit")

// Output holds the captured result of one command invocation. A non-zero
// ExitCode is a normal outcome, not an error.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout and stderr joined with a newline, skipping empty
// streams.
func (o Output) Combined() string {
	if o.Stdout == "" {
		return o.Stderr
	}
	if o.Stderr == "" {
		return o.Stdout
	}
	return o.Stdout + "\n" + o.Stderr
}

// Runner abstracts command execution for testability.
type Runner interface {
	Run(ctx context.Context, dir string, command string) (Output, error)
}

// ExecRunner implements Runner by shelling out through sh -c. The error return
// is reserved for invocations that could not be observed to completion: spawn
// failure, the output ceiling, or context cancellation. A command that runs and
// exits non-zero is a normal Output.
type ExecRunner struct {
	// MaxOutput overrides the combined output ceiling. Zero means DefaultMaxOutput.
	MaxOutput int64
}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (Output, error) {
	limit := e.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Output{ExitCode: -1}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Output{ExitCode: -1}, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Output{ExitCode: -1}, fmt.Errorf("start %q: %w", command, err)
	}

	// Both streams drain concurrently against one shared byte budget so the
	// ceiling applies to their combined size.
	var budget atomic.Int64
	budget.Store(limit)

	var outBuf, errBuf []byte
	var g errgroup.Group
	g.Go(func() error {
		b, err := drain(stdout, &budget)
		outBuf = b
		return err
	})
	g.Go(func() error {
		b, err := drain(stderr, &budget)
		errBuf = b
		return err
	})

	readErr := g.Wait()
	if readErr != nil {
		_ = cmd.Process.Kill()
	}
	waitErr := cmd.Wait()

	out := Output{Stdout: string(outBuf), Stderr: string(errBuf), ExitCode: -1}

	if readErr != nil {
		return out, fmt.Errorf("run %q: %w", command, readErr)
	}
	if ctx.Err() != nil {
		// The child was killed by context cancellation; surface the cause so
		// callers can tell a per-command timeout from a parent abort.
		return out, fmt.Errorf("run %q: %w", command, ctx.Err())
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		return out, fmt.Errorf("wait %q: %w", command, waitErr)
	}

	out.ExitCode = 0
	return out, nil
}

// drain reads r to completion, charging every chunk against the shared budget.
func drain(r io.Reader, budget *atomic.Int64) ([]byte, error) {
	var buf []byte
	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if budget.Add(int64(-n)) < 0 {
				return buf, ErrOutputLimit
			}
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			// The pipe closes when the process exits; any terminal read error
			// just means the stream is finished.
			return buf, nil
		}
	}
}
