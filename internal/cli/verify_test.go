package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"checkgate/internal/history"
	"checkgate/internal/pipeline"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkgate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// allPassConfig runs every stage as a no-op shell command.
func allPassConfig(root string) string {
	return fmt.Sprintf(`project:
  root: %s
stages:
  install: {command: "true"}
  build: {command: "true"}
  lint: {command: "true"}
  typecheck: {command: "true"}
  test: {command: "true"}
  docs: {command: "true"}
history:
  disabled: true
`, root)
}

func TestRunVerifyAllStagesPass(t *testing.T) {
	cfgPath := writeConfig(t, allPassConfig(t.TempDir()))

	var out, errOut bytes.Buffer
	code := runVerify(&out, &errOut, verifyOptions{configPath: cfgPath, headless: true})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "VERIFICATION:PASS") {
		t.Errorf("missing VERIFICATION:PASS:\n%s", out.String())
	}
	for _, name := range []string{"install", "build", "lint", "typecheck", "test", "docs"} {
		if !strings.Contains(out.String(), "STAGE:"+name+":PASS") {
			t.Errorf("missing pass line for %s:\n%s", name, out.String())
		}
	}
}

func TestRunVerifyStopsAtFirstFailure(t *testing.T) {
	root := t.TempDir()
	cfgPath := writeConfig(t, fmt.Sprintf(`project:
  root: %s
stages:
  install: {command: "true"}
  build: {command: "false"}
  lint: {command: "true"}
  typecheck: {command: "true"}
  test: {command: "touch marker"}
  docs: {command: "true"}
history:
  disabled: true
`, root))

	var out, errOut bytes.Buffer
	code := runVerify(&out, &errOut, verifyOptions{configPath: cfgPath, headless: true})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1; stderr: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "STAGE:build:FAIL") {
		t.Errorf("missing build failure:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "VERIFICATION:FAIL") {
		t.Errorf("missing VERIFICATION:FAIL:\n%s", out.String())
	}
	if strings.Contains(out.String(), "STAGE:lint") {
		t.Errorf("lint ran after build failed:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(root, "marker")); !os.IsNotExist(err) {
		t.Error("test stage ran after build failed")
	}
}

func TestRunVerifySelectionRunsInPipelineOrder(t *testing.T) {
	cfgPath := writeConfig(t, allPassConfig(t.TempDir()))

	var out, errOut bytes.Buffer
	code := runVerify(&out, &errOut, verifyOptions{
		configPath: cfgPath,
		headless:   true,
		stages:     []string{"test", "lint"},
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut.String())
	}
	s := out.String()
	if strings.Contains(s, "STAGE:install") {
		t.Errorf("install ran but was not selected:\n%s", s)
	}
	lint := strings.Index(s, "STAGE:lint:START")
	test := strings.Index(s, "STAGE:test:START")
	if lint == -1 || test == -1 || lint > test {
		t.Errorf("selection not in pipeline order:\n%s", s)
	}
}

func TestRunVerifyUnknownStage(t *testing.T) {
	cfgPath := writeConfig(t, allPassConfig(t.TempDir()))

	var out, errOut bytes.Buffer
	code := runVerify(&out, &errOut, verifyOptions{
		configPath: cfgPath,
		stages:     []string{"bogus"},
	})
	if code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
	if !strings.Contains(errOut.String(), "unknown stage") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestRunVerifyBrokenToolExitsThree(t *testing.T) {
	cfgPath := writeConfig(t, allPassConfig("/no/such/checkgate-root"))

	var out, errOut bytes.Buffer
	code := runVerify(&out, &errOut, verifyOptions{configPath: cfgPath, headless: true})
	if code != 3 {
		t.Fatalf("exit code = %d, want 3; stderr: %s", code, errOut.String())
	}
	if !strings.Contains(errOut.String(), "Error:") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestRunVerifyWritesResultJSON(t *testing.T) {
	cfgPath := writeConfig(t, allPassConfig(t.TempDir()))
	outPath := filepath.Join(t.TempDir(), "result.json")

	var out, errOut bytes.Buffer
	code := runVerify(&out, &errOut, verifyOptions{
		configPath: cfgPath,
		headless:   true,
		outPath:    outPath,
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut.String())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read result file: %v", err)
	}
	var res pipeline.Result
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !res.Success || len(res.Stages) != 6 {
		t.Errorf("result = success %v with %d stages", res.Success, len(res.Stages))
	}
}

func TestRunVerifyRecordsHistory(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	cfgPath := writeConfig(t, fmt.Sprintf(`project:
  root: %s
stages:
  install: {command: "true"}
  build: {command: "true"}
  lint: {command: "true"}
  typecheck: {command: "true"}
  test: {command: "true"}
  docs: {command: "true"}
history:
  path: %s
`, root, dbPath))

	var out, errOut bytes.Buffer
	code := runVerify(&out, &errOut, verifyOptions{configPath: cfgPath, headless: true})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut.String())
	}

	d, err := history.Open(dbPath)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer d.Close()
	runs, err := d.RecentRuns(10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if !runs[0].Success || runs[0].Root != root {
		t.Errorf("recorded run = %+v", runs[0])
	}
}
