package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LinePrompter reads numbered answers from a plain line stream. It is used
// when stdin is not a terminal, and in tests.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter creates a LinePrompter.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) Select(menu Menu) (int, error) {
	for {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, StyleChain.Render(menu.Title))
		for i, item := range menu.Items {
			line := fmt.Sprintf("  %d) %s", i+1, item.Label)
			if item.SubLabel != "" {
				line += "  " + Meta(item.SubLabel)
			}
			fmt.Fprintln(p.out, line)
		}
		hint := "number, b = back"
		if menu.EmptyLabel != "" {
			hint += ", Enter = " + menu.EmptyLabel
		}
		fmt.Fprintf(p.out, "%s > ", Meta("["+hint+"]"))

		answer, err := p.readLine()
		if err != nil {
			return 0, err
		}
		switch {
		case isBack(answer):
			return 0, ErrBack
		case answer == "" && menu.EmptyLabel != "":
			return EmptyChoice, nil
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(menu.Items) {
			return n - 1, nil
		}
		fmt.Fprintln(p.out, Err(fmt.Sprintf("invalid choice %q", answer)))
	}
}

func (p *LinePrompter) Input(label, def string, validate func(string) error) (string, error) {
	for {
		if def != "" {
			fmt.Fprintf(p.out, "%s %s: ", label, Meta("["+def+"]"))
		} else {
			fmt.Fprintf(p.out, "%s: ", label)
		}
		answer, err := p.readLine()
		if err != nil {
			return "", err
		}
		if isBack(answer) {
			return "", ErrBack
		}
		if answer == "" {
			answer = def
		}
		if validate != nil {
			if err := validate(answer); err != nil {
				fmt.Fprintln(p.out, Err(err.Error()))
				continue
			}
		}
		return answer, nil
	}
}

func (p *LinePrompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", StyleWarning.Render(question))
	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	if isBack(answer) {
		return false, ErrBack
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// readLine returns the next trimmed line. A final line without a newline is
// still returned; EOF with nothing read is ErrAborted.
func (p *LinePrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
