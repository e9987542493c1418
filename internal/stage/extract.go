package stage

import (
	"regexp"
	"strings"

	"checkgate/internal/shell"
)

// MaxErrors bounds how many extracted diagnostics a result carries.
const MaxErrors = 10

// fallbackErrorBytes bounds the raw-output prefix used when no extractor
// recognizes anything in a failed stage's output.
const fallbackErrorBytes = 500

// Extractor pulls human-meaningful error lines out of raw tool output.
type Extractor func(output string) []string

var (
	// tsc: src/app.ts(12,5): error TS2345: Argument of type ...
	tscErrorRe = regexp.MustCompile(`^.+\(\d+,\d+\):\s+error\s+TS\d+:\s+.+$`)

	// unix/gcc style: src/app.ts:12:5: something (eslint --format unix, etc.)
	unixDiagRe = regexp.MustCompile(`^\S+:\d+:\d+[: ].+$`)

	// eslint stylish file header: a bare path ending in a source extension
	stylishFileRe = regexp.MustCompile(`^\S+\.(?:ts|tsx|js|jsx|mjs|cjs|mts|cts|vue|svelte)$`)

	// eslint stylish rule line:   12:5  error  message  rule-id
	stylishDiagRe = regexp.MustCompile(`^\s+(\d+):(\d+)\s+(error|warning)\s+(.+)$`)

	// npm <=9 prints "npm ERR! ...", npm >=10 prints "npm error ..."
	npmErrRe = regexp.MustCompile(`^npm (?:ERR!|error) `)
)

// ExtractErrors applies ex to output, caps the result at MaxErrors, and falls
// back to a bounded prefix of the raw output when nothing matched, so a failed
// stage always carries something actionable.
func ExtractErrors(ex Extractor, output string) []string {
	var errs []string
	if ex != nil {
		errs = ex(output)
	}
	if len(errs) > MaxErrors {
		errs = errs[:MaxErrors]
	}
	if len(errs) == 0 {
		if text := strings.TrimSpace(output); text != "" {
			errs = []string{shell.CapTo(text, fallbackErrorBytes)}
		}
	}
	return errs
}

// ExtractTypeScriptErrors keeps tsc error lines verbatim. tsc prints
// "file(line,col): error TS…" without --pretty and "file:line:col - error TS…"
// with it; the second shape is plain path:line:col.
func ExtractTypeScriptErrors(output string) []string {
	var errs []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if tscErrorRe.MatchString(line) || unixDiagRe.MatchString(line) {
			errs = append(errs, line)
		}
	}
	return errs
}

// ExtractLintDiagnostics understands both eslint's stylish layout (file header
// followed by indented rule lines) and plain path:line:col diagnostics.
// Warnings are dropped; only errors fail the stage.
func ExtractLintDiagnostics(output string) []string {
	var errs []string
	var file string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if stylishFileRe.MatchString(line) {
			file = line
			continue
		}
		if m := stylishDiagRe.FindStringSubmatch(line); m != nil && file != "" {
			if m[3] == "error" {
				errs = append(errs, file+":"+m[1]+":"+m[2]+" "+m[4])
			}
			continue
		}
		if flat := strings.TrimSpace(line); unixDiagRe.MatchString(flat) {
			errs = append(errs, flat)
		}
	}
	return errs
}

// ExtractPathDiagnostics keeps generic path:line:col diagnostic lines. This is
// the extractor for tools without a more specific output shape.
func ExtractPathDiagnostics(output string) []string {
	var errs []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if unixDiagRe.MatchString(line) {
			errs = append(errs, line)
		}
	}
	return errs
}

// testFailMarkers are the bullets vitest and jest put in front of failing
// tests and suites.
var testFailMarkers = []string{"✗", "✕", "×", "FAIL ", "● "}

// ExtractTestFailures keeps lines naming failed tests or suites.
func ExtractTestFailures(output string) []string {
	var errs []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		for _, marker := range testFailMarkers {
			if strings.HasPrefix(line, marker) {
				errs = append(errs, line)
				break
			}
		}
	}
	return errs
}

// ExtractNpmErrors keeps npm's error-prefixed lines.
func ExtractNpmErrors(output string) []string {
	var errs []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if npmErrRe.MatchString(line) {
			errs = append(errs, line)
		}
	}
	return errs
}
