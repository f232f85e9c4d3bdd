package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner shows progress while a slow external call runs.
type Spinner struct {
	s   *spinner.Spinner
	out io.Writer
}

// NewSpinner creates a spinner writing to out.
func NewSpinner(msg string, out io.Writer) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = "  " + msg
	s.HideCursor = false
	return &Spinner{s: s, out: out}
}

// Start begins the animation.
func (s *Spinner) Start() { s.s.Start() }

// Stop halts the animation and clears its line.
func (s *Spinner) Stop() { s.s.Stop() }

// StopWithMsg halts the spinner and prints a final message.
func (s *Spinner) StopWithMsg(msg string) {
	s.Stop()
	fmt.Fprintln(s.out, msg)
}
