package execute

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"cxterm/internal/extract"
	"cxterm/internal/plan"
	"cxterm/internal/safety"
)

func buildPlan(texts ...string) *plan.Plan {
	cmds := make([]extract.Command, len(texts))
	for i, t := range texts {
		cmds[i] = extract.Command{Text: t, Source: "bash"}
	}
	return plan.Build(cmds)
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
}

func TestRunSuccess(t *testing.T) {
	requireShell(t)
	var out bytes.Buffer
	report, err := New(&out, nil).Run(buildPlan("echo hello", "echo world"), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.Success() {
		t.Fatalf("expected success, failed step %d", report.FailedStep)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if got := report.Results[0].Outcome.Stdout; got != "hello\n" {
		t.Errorf("step 1 stdout = %q", got)
	}
	if !strings.Contains(out.String(), "hello") || !strings.Contains(out.String(), "world") {
		t.Errorf("transcript missing command output: %q", out.String())
	}
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	requireShell(t)
	marker := filepath.Join(t.TempDir(), "after-failure")

	var out bytes.Buffer
	p := buildPlan(
		"echo before",
		"exit 3",
		fmt.Sprintf("touch %s", marker),
	)
	report, err := New(&out, nil).Run(p, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.FailedStep != 2 {
		t.Errorf("FailedStep = %d, want 2", report.FailedStep)
	}
	if report.Success() {
		t.Error("report should not be successful")
	}
	if len(report.Results) != 2 {
		t.Errorf("expected 2 results (third step never attempted), got %d", len(report.Results))
	}
	if report.Results[1].Outcome.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", report.Results[1].Outcome.ExitCode)
	}
	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Error("step after the failure ran; abort-on-failure violated")
	}
}

func TestRunNeverExecutesBlockedSteps(t *testing.T) {
	requireShell(t)
	marker := filepath.Join(t.TempDir(), "blocked-ran")

	// Hand-build a plan whose step is Blocked but whose command would leave
	// evidence if spawned: the executor must skip it no matter how the step
	// was produced upstream.
	p := &plan.Plan{Steps: []plan.Step{
		{Number: 1, Command: "echo ok", Tier: safety.Safe},
		{Number: 2, Command: fmt.Sprintf("touch %s", marker), Tier: safety.Blocked},
		{Number: 3, Command: "echo done", Tier: safety.Safe},
	}}

	var out bytes.Buffer
	report, err := New(&out, nil).Run(p, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Fatal("blocked step spawned a process")
	}
	if !report.Results[1].Skipped {
		t.Error("blocked step not reported as skipped")
	}
	if !report.Success() {
		t.Errorf("skipped blocked step should not fail the plan, failed step %d", report.FailedStep)
	}
	if !strings.Contains(out.String(), "[SKIP]") {
		t.Errorf("transcript missing skip notice: %q", out.String())
	}
}

func TestRunDryRunSpawnsNothing(t *testing.T) {
	requireShell(t)
	marker := filepath.Join(t.TempDir(), "dry-ran")

	var out bytes.Buffer
	p := buildPlan(fmt.Sprintf("touch %s", marker), "echo hello")
	report, err := New(&out, nil).Run(p, true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Fatal("dry-run spawned a process")
	}
	if !report.DryRun || !report.Success() {
		t.Error("dry-run report should be successful and flagged as dry")
	}
	if !strings.Contains(out.String(), "touch") || !strings.Contains(out.String(), "echo hello") {
		t.Errorf("dry-run transcript missing commands: %q", out.String())
	}
	if !strings.Contains(out.String(), "No commands were executed") {
		t.Errorf("dry-run transcript missing footer: %q", out.String())
	}
}

func TestRunFailureSurfacesStderr(t *testing.T) {
	requireShell(t)
	var out bytes.Buffer
	report, err := New(&out, nil).Run(buildPlan("echo oops >&2; exit 1"), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.FailedStep != 1 {
		t.Fatalf("FailedStep = %d, want 1", report.FailedStep)
	}
	outcome := report.Results[0].Outcome
	if got := outcome.PrimaryOutput(); !strings.Contains(got, "oops") {
		t.Errorf("primary output = %q, want stderr content", got)
	}
	if !strings.Contains(out.String(), "oops") {
		t.Errorf("failure diagnostics missing from transcript: %q", out.String())
	}
}

func TestPrimaryOutputPrefersStdout(t *testing.T) {
	o := &Outcome{Stdout: "standard\n", Stderr: "error\n"}
	if o.PrimaryOutput() != "standard\n" {
		t.Error("expected stdout as primary output")
	}
	o = &Outcome{Stdout: "  \n", Stderr: "error\n"}
	if o.PrimaryOutput() != "error\n" {
		t.Error("expected stderr when stdout is blank")
	}
}

func TestRunEmptyPlan(t *testing.T) {
	var out bytes.Buffer
	report, err := New(&out, nil).Run(&plan.Plan{}, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.Success() || len(report.Results) != 0 {
		t.Error("empty plan should succeed with no results")
	}
}
