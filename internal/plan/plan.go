// Package plan assembles extracted commands into an ordered, tier-annotated
// execution plan.
package plan

import (
	"strings"

	"cxterm/internal/extract"
	"cxterm/internal/safety"
)

// Step is a single command in a plan. Numbers are a contiguous 1..N
// sequence matching extraction order.
type Step struct {
	Number      int
	Command     string
	Description string
	Tier        safety.Tier

	// Sudo is true when the command requests privileged execution. It is a
	// plain prefix test, independent of the assigned tier.
	Sudo bool
}

// Plan is an ordered sequence of steps derived from one extraction pass.
// Aggregate risk flags are computed from the steps on demand and are never
// stored or mutated separately.
type Plan struct {
	Steps []Step
}

// Build assigns ordinals, tiers, and elevation flags to the extracted
// commands, preserving their order.
func Build(commands []extract.Command) *Plan {
	steps := make([]Step, 0, len(commands))
	for i, cmd := range commands {
		steps = append(steps, Step{
			Number:      i + 1,
			Command:     cmd.Text,
			Description: cmd.Description,
			Tier:        safety.Classify(cmd.Text),
			Sudo:        isSudo(cmd.Text),
		})
	}
	return &Plan{Steps: steps}
}

// HasDangerous reports whether any step is Dangerous.
func (p *Plan) HasDangerous() bool {
	for _, s := range p.Steps {
		if s.Tier == safety.Dangerous {
			return true
		}
	}
	return false
}

// HasBlocked reports whether any step is Blocked.
func (p *Plan) HasBlocked() bool {
	for _, s := range p.Steps {
		if s.Tier == safety.Blocked {
			return true
		}
	}
	return false
}

// SudoCount returns the number of elevation-flagged steps.
func (p *Plan) SudoCount() int {
	n := 0
	for _, s := range p.Steps {
		if s.Sudo {
			n++
		}
	}
	return n
}

// RequiresSudo reports whether any step requests privileged execution.
func (p *Plan) RequiresSudo() bool {
	return p.SudoCount() > 0
}

// RequiresConfirmation is the decision predicate for the interactive path:
// confirmation is mandatory iff the plan carries dangerous, blocked, or
// privileged steps. Anything else is eligible for the auto-execute fast
// path.
func (p *Plan) RequiresConfirmation() bool {
	return p.HasDangerous() || p.HasBlocked() || p.RequiresSudo()
}

func isSudo(command string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(command)), "sudo ")
}
