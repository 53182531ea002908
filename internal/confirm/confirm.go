// Package confirm drives the interactive confirmation protocol for a plan.
package confirm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"cxterm/internal/plan"
	"cxterm/internal/ui"
)

// Decision is the user's choice for a rendered plan.
type Decision int

const (
	Execute Decision = iota
	DryRun
	Cancel
)

// String returns the display name of the decision.
func (d Decision) String() string {
	switch d {
	case Execute:
		return "execute"
	case DryRun:
		return "dry-run"
	case Cancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ErrInputClosed reports that the confirmation input stream ended before a
// recognized decision arrived. It is fatal: the invocation terminates
// without executing anything further.
var ErrInputClosed = errors.New("confirmation input closed")

// Controller renders a plan and collects one decision.
type Controller struct {
	in     *bufio.Reader
	out    io.Writer
	styles ui.Styles
}

// New creates a controller reading decisions from in and writing prompts to
// out.
func New(in io.Reader, out io.Writer) *Controller {
	return &Controller{
		in:     bufio.NewReader(in),
		out:    out,
		styles: ui.DefaultStyles(),
	}
}

// Prompt displays the plan and collects a decision.
//
// Plans with blocked steps are cancelled outright, without prompting:
// execution is already impossible for at least one step. Otherwise the
// prompt loops until a recognized token arrives; plain Enter is accepted as
// Execute only when the plan does not require confirmation. The loop is
// bounded only by the input stream closing, which returns ErrInputClosed.
func (c *Controller) Prompt(p *plan.Plan) (Decision, error) {
	fmt.Fprint(c.out, c.styles.RenderPlan(p))

	if p.HasBlocked() {
		fmt.Fprintln(c.out, c.styles.Danger.Render("Cannot execute: plan contains blocked commands"))
		return Cancel, nil
	}

	mandatory := p.RequiresConfirmation()

	for {
		if mandatory {
			fmt.Fprintf(c.out, "%s [E]xecute  [D]ry-run  [C]ancel > ", c.styles.Accent.Render(">"))
		} else {
			fmt.Fprintf(c.out, "%s [E]xecute  [D]ry-run  [C]ancel (or Enter to execute) > ", c.styles.Accent.Render(">"))
		}

		line, err := c.in.ReadString('\n')
		if err != nil && line == "" {
			return Cancel, fmt.Errorf("reading confirmation: %w", ErrInputClosed)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "e", "execute":
			return Execute, nil
		case "d", "dry", "dry-run":
			return DryRun, nil
		case "c", "cancel", "q", "quit":
			return Cancel, nil
		case "":
			if !mandatory {
				return Execute, nil
			}
			fmt.Fprintln(c.out, c.styles.Warn.Render("Please type 'e' to execute or 'c' to cancel"))
		default:
			fmt.Fprintln(c.out, c.styles.Dim.Render("Unknown option. Use E/D/C"))
		}

		// A final line without a trailing newline was consumed above; the
		// next read would spin on io.EOF otherwise.
		if err != nil {
			return Cancel, fmt.Errorf("reading confirmation: %w", ErrInputClosed)
		}
	}
}
