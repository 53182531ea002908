// Package agent drives one ask round trip: query a backend, extract
// commands from the response, build a plan, and either auto-execute it or
// put it through interactive confirmation before the executor runs it.
package agent

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"cxterm/internal/backend"
	"cxterm/internal/confirm"
	"cxterm/internal/execute"
	"cxterm/internal/extract"
	"cxterm/internal/history"
	"cxterm/internal/plan"
	"cxterm/internal/ui"
)

// Querier is the backend surface the agent consumes.
type Querier interface {
	Query(ctx context.Context, query string) (string, error)
}

// Options select among the agent's entry points. They carry no pipeline
// logic of their own.
type Options struct {
	// NoExecute shows suggestions instead of executing anything.
	NoExecute bool

	// AutoConfirm skips the confirmation prompt; blocked steps are still
	// skipped by the executor.
	AutoConfirm bool

	// Format selects suggestion output: text, json, or commands.
	Format string
}

// Agent wires the command pipeline to a backend and the terminal.
type Agent struct {
	backend Querier
	hist    *history.Store
	styles  ui.Styles
	logger  *zap.Logger

	in  io.Reader
	out io.Writer
}

// New creates an agent. The history store may be nil to disable recording.
func New(b Querier, hist *history.Store, in io.Reader, out io.Writer, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		backend: b,
		hist:    hist,
		styles:  ui.DefaultStyles(),
		logger:  logger,
		in:      in,
		out:     out,
	}
}

// Ask runs one full round trip for the query.
func (a *Agent) Ask(ctx context.Context, query string, opts Options) error {
	response, err := a.backend.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("querying backend: %w", err)
	}
	return a.HandleResponse(query, response, opts)
}

// HandleResponse processes backend response text through the pipeline.
func (a *Agent) HandleResponse(query, response string, opts Options) error {
	// A backend-unavailable sentinel is informational; it never reaches
	// extraction.
	if env, ok := backend.ParseEnvelope(response); ok && env.Unavailable() {
		fmt.Fprintln(a.out, a.styles.Warn.Render(env.Message))
		if env.Hint != "" {
			fmt.Fprintf(a.out, "\n%s %s\n", a.styles.Dim.Render("Hint:"), env.Hint)
		}
		return nil
	}

	extraction := extract.Extract(response)

	if opts.NoExecute {
		a.showSuggestion(response, extraction, opts.Format)
		return nil
	}

	if len(extraction.Commands) == 0 {
		// Valid empty result: fall through to showing the text response.
		a.printResponse(response)
		return nil
	}

	p := plan.Build(extraction.Commands)
	a.logger.Debug("plan built",
		zap.Int("steps", len(p.Steps)),
		zap.Bool("requires_confirmation", p.RequiresConfirmation()))

	// Single low-risk commands bypass the controller entirely; multi-step
	// plans always show the plan, with Enter accepted when confirmation is
	// not mandatory.
	if (p.RequiresConfirmation() || len(p.Steps) > 1) && !opts.AutoConfirm {
		decision, err := confirm.New(a.in, a.out).Prompt(p)
		if err != nil {
			return err
		}
		if decision == confirm.Cancel {
			fmt.Fprintln(a.out, a.styles.Dim.Render("Cancelled"))
			a.record(query, response, p, nil)
			return nil
		}
		return a.runPlan(query, response, p, decision == confirm.DryRun)
	}

	return a.runPlan(query, response, p, false)
}

// runPlan executes (or dry-runs) the plan and records the outcome.
func (a *Agent) runPlan(query, response string, p *plan.Plan, dryRun bool) error {
	report, err := execute.New(a.out, a.logger).Run(p, dryRun)
	if err != nil {
		return err
	}
	a.record(query, response, p, report)
	return nil
}

// showSuggestion prints the response without executing (suggestion mode).
func (a *Agent) showSuggestion(response string, extraction extract.Result, format string) {
	switch format {
	case "json":
		fmt.Fprintln(a.out, response)
	case "commands":
		for _, cmd := range extraction.Commands {
			fmt.Fprintln(a.out, cmd.Text)
		}
	default:
		a.printResponse(response)
	}
}

// printResponse renders the AI text, unwrapping the envelope when present.
func (a *Agent) printResponse(response string) {
	text := response
	if env, ok := backend.ParseEnvelope(response); ok && env.Response != "" {
		text = env.Response
	}
	fmt.Fprint(a.out, ui.RenderMarkdown(text))
}

// record persists the round trip when history is enabled. A nil report
// means nothing ran.
func (a *Agent) record(query, response string, p *plan.Plan, report *execute.Report) {
	if a.hist == nil {
		return
	}

	source := ""
	if env, ok := backend.ParseEnvelope(response); ok {
		source = env.Source
	}

	entry := &history.Entry{
		Query:        query,
		Source:       source,
		CommandCount: len(p.Steps),
		Executed:     report != nil && !report.DryRun,
		Succeeded:    report != nil && !report.DryRun && report.Success(),
	}

	results := map[int]execute.StepResult{}
	if report != nil && !report.DryRun {
		for _, r := range report.Results {
			results[r.Step.Number] = r
		}
	}

	for _, step := range p.Steps {
		rec := history.CommandRecord{
			Position: step.Number,
			Command:  step.Command,
			Tier:     step.Tier.String(),
		}
		if r, ok := results[step.Number]; ok && !r.Skipped && r.Outcome != nil {
			rec.Executed = true
			if r.Outcome.Exited {
				code := r.Outcome.ExitCode
				rec.ExitCode = &code
			}
		}
		entry.Commands = append(entry.Commands, rec)
	}

	if err := a.hist.Record(entry); err != nil {
		a.logger.Warn("failed to record history", zap.Error(err))
	}
}
