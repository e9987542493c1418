package report

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"checkgate/internal/pipeline"
	"checkgate/internal/stage"
)

// Interactive renders colorized progress for a human watching the run.
type Interactive struct {
	w     io.Writer
	total int
	count int
}

// NewInteractive returns a human-facing reporter writing to w.
func NewInteractive(w io.Writer) *Interactive {
	return &Interactive{w: w}
}

func (r *Interactive) PipelineStart(total int) {
	r.total = total
	r.count = 0
	color.New(color.Bold).Fprintf(r.w, "Verifying (%d stages)\n\n", total)
}

func (r *Interactive) StageStart(name stage.Name) {
	r.count++
	fmt.Fprintf(r.w, "[%d/%d] %s\n", r.count, r.total, name)
}

func (r *Interactive) StageResult(res stage.ExecutionResult) {
	if res.Result.Success {
		color.New(color.FgGreen).Fprintf(r.w, "  ✓ %s", res.Result.Message)
		fmt.Fprintf(r.w, " (%s)\n", formatDuration(res.Duration))
		return
	}
	color.New(color.FgRed).Fprintf(r.w, "  ✗ %s", res.Result.Message)
	fmt.Fprintf(r.w, " (%s)\n", formatDuration(res.Duration))
	for _, line := range res.Result.Errors {
		fmt.Fprintf(r.w, "    %s\n", line)
	}
}

func (r *Interactive) PipelineResult(res pipeline.Result) {
	fmt.Fprintln(r.w)
	if res.Success {
		color.New(color.FgGreen, color.Bold).Fprint(r.w, "PASS")
		fmt.Fprintf(r.w, "  %d stages in %s\n", len(res.Stages), formatDuration(res.Duration))
		return
	}
	color.New(color.FgRed, color.Bold).Fprint(r.w, "FAIL")
	fmt.Fprintf(r.w, "  %s failed after %s\n", res.FailedStage, formatDuration(res.Duration))
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
