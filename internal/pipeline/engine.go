// Package pipeline runs verification stages in order and stops at the first
// failure. It distinguishes a stage that found problems (a normal failed run)
// from a stage whose tool broke (an aborted run).
package pipeline

import (
	"context"
	"fmt"
	"time"

	"checkgate/internal/stage"
)

// Reporter observes pipeline progress. The engine is sequential, so
// implementations never see concurrent calls.
type Reporter interface {
	PipelineStart(total int)
	StageStart(name stage.Name)
	StageResult(res stage.ExecutionResult)
	PipelineResult(res Result)
}

// NopReporter ignores every event.
type NopReporter struct{}

func (NopReporter) PipelineStart(int)                 {}
func (NopReporter) StageStart(stage.Name)             {}
func (NopReporter) StageResult(stage.ExecutionResult) {}
func (NopReporter) PipelineResult(Result)             {}

// Result is the outcome of one verification run. Stages holds results for the
// stages that actually ran: on failure that is every stage up to and including
// the one that failed, never anything after it.
type Result struct {
	Success     bool                    `json:"success"`
	FailedStage stage.Name              `json:"failed_stage,omitempty"`
	Stages      []stage.ExecutionResult `json:"stages"`
	Duration    time.Duration           `json:"duration"`
}

// Engine executes stages sequentially.
type Engine struct {
	reporter Reporter
}

// New returns an engine reporting to r. A nil r silences progress.
func New(r Reporter) *Engine {
	if r == nil {
		r = NopReporter{}
	}
	return &Engine{reporter: r}
}

// Run executes stages in the given order, stopping at the first failed stage.
// The error return is reserved for aborted runs: a broken tool or a cancelled
// context. In that case the returned Result covers the stages that completed
// before the abort and no completion event is emitted.
func (e *Engine) Run(ctx context.Context, env *stage.Context, stages []stage.Stage) (Result, error) {
	start := time.Now()
	res := Result{Success: true}
	e.reporter.PipelineStart(len(stages))

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("verification cancelled: %w", err)
		}

		e.reporter.StageStart(s.Name())
		stageStart := time.Now()
		sr, err := s.Run(ctx, env)
		if err != nil {
			return res, fmt.Errorf("stage %s: %w", s.Name(), err)
		}

		er := stage.ExecutionResult{Name: s.Name(), Result: sr, Duration: time.Since(stageStart)}
		res.Stages = append(res.Stages, er)
		e.reporter.StageResult(er)

		if !sr.Success {
			res.Success = false
			res.FailedStage = s.Name()
			break
		}
	}

	res.Duration = time.Since(start)
	e.reporter.PipelineResult(res)
	return res, nil
}
