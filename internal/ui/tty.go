package ui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// TTYPrompter uses a Bubble Tea list picker for menus and promptui for text.
type TTYPrompter struct {
	in  *os.File
	out io.Writer
}

// NewPrompter picks the interactive prompter when in is a terminal and the
// line prompter otherwise.
func NewPrompter(in *os.File, out io.Writer) Prompter {
	if term.IsTerminal(int(in.Fd())) {
		return &TTYPrompter{in: in, out: out}
	}
	return NewLinePrompter(in, out)
}

func (p *TTYPrompter) Select(menu Menu) (int, error) {
	return runPicker(menu, p.in, p.out)
}

func (p *TTYPrompter) Input(label, def string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:   label + " (b = back)",
		Default: def,
		Stdin:   p.in,
		Validate: func(s string) error {
			if isBack(s) || validate == nil {
				return nil
			}
			if s == "" {
				s = def
			}
			return validate(s)
		},
	}
	answer, err := prompt.Run()
	if err != nil {
		return "", mapPromptErr(err)
	}
	if isBack(answer) {
		return "", ErrBack
	}
	if answer == "" {
		answer = def
	}
	return answer, nil
}

func (p *TTYPrompter) Confirm(question string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     question,
		IsConfirm: true,
		Stdin:     p.in,
	}
	_, err := prompt.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	default:
		return false, mapPromptErr(err)
	}
}

func mapPromptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return ErrAborted
	}
	return fmt.Errorf("prompt: %w", err)
}
