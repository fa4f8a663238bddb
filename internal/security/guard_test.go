// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Tests for the deletion guard

package security

import (
	"errors"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// scripted answers prompts in order
func scripted(t *testing.T, answers ...string) (AskFunc, *int) {
	calls := 0
	return func(p survey.Prompt, response any, _ ...survey.AskOpt) error {
		if calls >= len(answers) {
			t.Fatalf("unexpected prompt #%d", calls+1)
		}
		*(response.(*string)) = answers[calls]
		calls++
		return nil
	}, &calls
}

func TestGuardAutoYes(t *testing.T) {
	ask, calls := scripted(t)
	g := NewGuard(true).WithAsk(ask)

	ok, abort, err := g.Confirm("source/app")
	if !ok || abort || err != nil {
		t.Errorf("Confirm() = %v, %v, %v", ok, abort, err)
	}
	if *calls != 0 {
		t.Error("--yes must not prompt")
	}
}

func TestGuardChoices(t *testing.T) {
	tests := []struct {
		answer    string
		wantOK    bool
		wantAbort bool
	}{
		{ChoiceThis, true, false},
		{ChoiceSkip, false, false},
		{ChoiceAbort, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			ask, _ := scripted(t, tt.answer)
			ok, abort, err := NewGuard(false).WithAsk(ask).Confirm("source/app")
			if err != nil || ok != tt.wantOK || abort != tt.wantAbort {
				t.Errorf("Confirm() = %v, %v, %v", ok, abort, err)
			}
		})
	}
}

func TestGuardApproveAll(t *testing.T) {
	ask, calls := scripted(t, ChoiceAll)
	g := NewGuard(false).WithAsk(ask)

	for i := 0; i < 3; i++ {
		if ok, _, _ := g.Confirm("source/app"); !ok {
			t.Fatalf("target %d should be approved", i)
		}
	}
	if *calls != 1 {
		t.Errorf("expected a single prompt, got %d", *calls)
	}
}

func TestGuardPromptErrors(t *testing.T) {
	interrupted := NewGuard(false).WithAsk(func(survey.Prompt, any, ...survey.AskOpt) error {
		return terminal.InterruptErr
	})
	if ok, abort, err := interrupted.Confirm("x"); ok || !abort || err != nil {
		t.Errorf("interrupt: %v, %v, %v", ok, abort, err)
	}

	broken := NewGuard(false).WithAsk(func(survey.Prompt, any, ...survey.AskOpt) error {
		return errors.New("not a terminal")
	})
	if ok, abort, err := broken.Confirm("x"); ok || !abort || err == nil {
		t.Errorf("no tty: %v, %v, %v", ok, abort, err)
	}
}
