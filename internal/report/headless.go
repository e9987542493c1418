// Package report renders pipeline progress. Two renderers exist: one for
// humans sitting at a terminal and one byte-stable protocol for supervising
// processes.
package report

import (
	"fmt"
	"io"

	"checkgate/internal/pipeline"
	"checkgate/internal/stage"
)

// Headless emits the machine-readable protocol. Every line is stable: no
// color, no timing, no decoration, so a supervisor can parse the stream with
// plain prefix matches. Extracted error lines are forwarded verbatim between a
// stage's FAIL line and the next protocol line.
type Headless struct {
	w io.Writer
}

// NewHeadless returns a protocol reporter writing to w.
func NewHeadless(w io.Writer) *Headless {
	return &Headless{w: w}
}

func (r *Headless) PipelineStart(int) {
	fmt.Fprintln(r.w, "VERIFICATION:START")
}

func (r *Headless) StageStart(name stage.Name) {
	fmt.Fprintf(r.w, "STAGE:%s:START\n", name)
}

func (r *Headless) StageResult(res stage.ExecutionResult) {
	if res.Result.Success {
		fmt.Fprintf(r.w, "STAGE:%s:PASS\n", res.Name)
		return
	}
	fmt.Fprintf(r.w, "STAGE:%s:FAIL\n", res.Name)
	for _, line := range res.Result.Errors {
		fmt.Fprintln(r.w, line)
	}
}

func (r *Headless) PipelineResult(res pipeline.Result) {
	if res.Success {
		fmt.Fprintln(r.w, "VERIFICATION:PASS")
		return
	}
	fmt.Fprintln(r.w, "VERIFICATION:FAIL")
}
