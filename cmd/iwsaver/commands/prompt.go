package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/jmylchreest/iwsaver/internal/scraper"
)

// errPromptAborted is returned when the operator interrupts a prompt.
var errPromptAborted = errors.New("prompt aborted")

// terminalPrompter asks the operator on the terminal.
type terminalPrompter struct{}

func (terminalPrompter) SelectStory(existing []string) (string, error) {
	if len(existing) > 0 {
		sel := promptui.SelectWithAdd{
			Label:    "Select a story",
			Items:    existing,
			AddLabel: "New story",
		}
		idx, name, err := sel.Run()
		if err != nil {
			return "", promptError(err)
		}
		if idx >= 0 {
			return existing[idx], nil
		}
		return strings.TrimSpace(name), nil
	}

	p := promptui.Prompt{
		Label:    "Story name",
		Validate: notBlank,
	}
	name, err := p.Run()
	if err != nil {
		return "", promptError(err)
	}
	return strings.TrimSpace(name), nil
}

func (terminalPrompter) Confirm(message string) error {
	p := promptui.Prompt{Label: message + " (press Enter)"}
	if _, err := p.Run(); err != nil {
		return promptError(err)
	}
	return nil
}

func (terminalPrompter) Continue() (scraper.Decision, error) {
	p := promptui.Prompt{
		Label:    "Continue to the next page? [y/n/q]",
		Default:  "y",
		Validate: oneOfAnswers,
	}
	answer, err := p.Run()
	if err != nil {
		return scraper.DecisionQuit, promptError(err)
	}
	return parseDecision(answer), nil
}

// parseDecision maps a y/n/q answer. Anything unrecognised waits.
func parseDecision(answer string) scraper.Decision {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "":
		return scraper.DecisionContinue
	case "q", "quit":
		return scraper.DecisionQuit
	default:
		return scraper.DecisionWait
	}
}

func oneOfAnswers(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "y", "yes", "n", "no", "q", "quit":
		return nil
	}
	return fmt.Errorf("answer y, n or q")
}

func notBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("name cannot be empty")
	}
	return nil
}

func promptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return errPromptAborted
	}
	return fmt.Errorf("prompt: %w", err)
}
