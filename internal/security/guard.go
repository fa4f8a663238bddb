// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Confirmation guard for destructive workspace operations

package security

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Guard choices
const (
	ChoiceThis  = "Delete this one"
	ChoiceAll   = "Delete all remaining"
	ChoiceSkip  = "Skip"
	ChoiceAbort = "Abort"
)

// AskFunc matches survey.AskOne so tests can script answers
type AskFunc func(p survey.Prompt, response any, opts ...survey.AskOpt) error

// Guard asks before removing workspace content
type Guard struct {
	autoYes    bool // --yes flag
	approveAll bool // user chose "all" during this run
	ask        AskFunc
}

// NewGuard creates a guard. With autoYes every deletion is approved.
func NewGuard(autoYes bool) *Guard {
	return &Guard{autoYes: autoYes, ask: survey.AskOne}
}

// WithAsk replaces the prompt implementation
func (g *Guard) WithAsk(ask AskFunc) *Guard {
	g.ask = ask
	return g
}

// Confirm asks whether target may be deleted.
// Returns (approved, abort) where abort means stop processing further targets.
func (g *Guard) Confirm(target string) (approved bool, abort bool, err error) {
	if g.autoYes || g.approveAll {
		return true, false, nil
	}

	choice := ""
	prompt := &survey.Select{
		Message: fmt.Sprintf("Delete %s? This cannot be undone.", target),
		Options: []string{ChoiceThis, ChoiceAll, ChoiceSkip, ChoiceAbort},
		Default: ChoiceSkip,
	}
	if err := g.ask(prompt, &choice); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, true, nil
		}
		return false, true, fmt.Errorf("confirmation failed (use --yes in non-interactive shells): %w", err)
	}

	switch choice {
	case ChoiceThis:
		return true, false, nil
	case ChoiceAll:
		g.approveAll = true
		return true, false, nil
	case ChoiceAbort:
		return false, true, nil
	}
	return false, false, nil
}
