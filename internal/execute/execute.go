// Package execute runs plan steps strictly in order.
//
// Steps execute sequentially because later steps may depend on earlier
// steps' filesystem effects, and abort-on-failure needs each outcome before
// deciding whether to continue. There is no per-command timeout: a hung
// child process blocks the plan until the parent is signalled. That is a
// known, deliberate limitation.
package execute

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"cxterm/internal/plan"
	"cxterm/internal/safety"
	"cxterm/internal/ui"
)

// Outcome captures one spawned command's result.
type Outcome struct {
	Stdout   string
	Stderr   string
	Success  bool
	ExitCode int

	// Exited is false when the process was killed by a signal, in which
	// case ExitCode is meaningless.
	Exited bool
}

// PrimaryOutput is the step's visible output: stdout when it has content,
// otherwise stderr. Failure diagnostics surface this way without separate
// plumbing.
func (o *Outcome) PrimaryOutput() string {
	if strings.TrimSpace(o.Stdout) != "" {
		return o.Stdout
	}
	return o.Stderr
}

// StepResult pairs a plan step with what happened to it.
type StepResult struct {
	Step    plan.Step
	Outcome *Outcome

	// Skipped is true for blocked steps, which never spawn a process.
	Skipped bool
}

// Report is the overall result of one plan run.
type Report struct {
	Results []StepResult
	DryRun  bool

	// FailedStep is the 1-based ordinal of the aborting step, 0 if none.
	FailedStep int
}

// Success reports whether every non-blocked step ran and succeeded.
func (r *Report) Success() bool {
	return r.FailedStep == 0
}

// Executor runs plans against the local shell.
type Executor struct {
	out    io.Writer
	styles ui.Styles
	logger *zap.Logger
}

// New creates an executor writing its transcript to out.
func New(out io.Writer, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{out: out, styles: ui.DefaultStyles(), logger: logger}
}

// Run executes the plan's steps in order.
//
// Blocked steps are re-checked and skipped here regardless of how the plan
// arrived, so no upstream bug can cause one to spawn. In dry-run mode the
// executor prints what would run and spawns nothing. In real mode the first
// failing step halts the plan; prior results are kept and reported.
func (e *Executor) Run(p *plan.Plan, dryRun bool) (*Report, error) {
	report := &Report{DryRun: dryRun}

	if dryRun {
		fmt.Fprintln(e.out, "\nDry-run mode - showing what would execute:")
		for _, step := range p.Steps {
			if step.Tier == safety.Blocked {
				fmt.Fprintf(e.out, "  %s %s %s\n",
					e.styles.Danger.Render("[SKIP]"), step.Command, e.styles.Dim.Render("(blocked)"))
				report.Results = append(report.Results, StepResult{Step: step, Skipped: true})
				continue
			}
			fmt.Fprintf(e.out, "  %s %s\n", e.styles.Dim.Render("$"), step.Command)
			report.Results = append(report.Results, StepResult{Step: step})
		}
		fmt.Fprintln(e.out, "\nNo commands were executed.")
		return report, nil
	}

	for _, step := range p.Steps {
		if step.Tier == safety.Blocked {
			e.logger.Warn("skipping blocked step",
				zap.Int("step", step.Number), zap.String("command", step.Command))
			fmt.Fprintf(e.out, "%s %s %s\n",
				e.styles.Danger.Render("[SKIP]"), step.Command, e.styles.Dim.Render("(blocked)"))
			report.Results = append(report.Results, StepResult{Step: step, Skipped: true})
			continue
		}

		fmt.Fprintf(e.out, "%s %s\n", e.styles.Dim.Render("$"), step.Command)
		e.logger.Debug("executing step",
			zap.Int("step", step.Number), zap.String("command", step.Command))

		outcome, err := runShell(step.Command)
		if err != nil {
			return report, fmt.Errorf("spawning step %d: %w", step.Number, err)
		}
		report.Results = append(report.Results, StepResult{Step: step, Outcome: outcome})

		if outcome.Success {
			if out := outcome.PrimaryOutput(); strings.TrimSpace(out) != "" {
				fmt.Fprint(e.out, out)
				if !strings.HasSuffix(out, "\n") {
					fmt.Fprintln(e.out)
				}
			}
			continue
		}

		// Abort on first failure; what already ran stays reported.
		report.FailedStep = step.Number
		fmt.Fprintln(e.out, e.styles.Danger.Render("Command failed"))
		if out := outcome.PrimaryOutput(); strings.TrimSpace(out) != "" {
			fmt.Fprint(e.out, out)
			if !strings.HasSuffix(out, "\n") {
				fmt.Fprintln(e.out)
			}
		}
		fmt.Fprintln(e.out, e.styles.Warn.Render("Stopping execution due to error"))
		e.logger.Info("plan aborted",
			zap.Int("failed_step", step.Number), zap.Int("exit_code", outcome.ExitCode))
		return report, nil
	}

	if !report.DryRun && report.Success() {
		fmt.Fprintln(e.out, e.styles.Success.Render("Plan executed successfully"))
	}
	return report, nil
}

// runShell spawns a command under sh -c and captures its streams.
func runShell(command string) (*Outcome, error) {
	cmd := exec.Command("sh", "-c", command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	outcome := &Outcome{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		outcome.Success = true
		outcome.Exited = true
		return outcome, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		outcome.Exited = exitErr.ProcessState.Exited()
		if outcome.Exited {
			outcome.ExitCode = exitErr.ProcessState.ExitCode()
		}
		return outcome, nil
	}

	// The process never started (sh missing, fork failure, ...).
	return nil, err
}
