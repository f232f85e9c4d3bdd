package ui

import "errors"

// Prompt outcomes that are not answers.
var (
	// ErrBack means the operator asked to return to the previous menu.
	ErrBack = errors.New("back")
	// ErrAborted means input ended (EOF or interrupt).
	ErrAborted = errors.New("input aborted")
)

// EmptyChoice is returned by Select when the operator picks the menu's
// empty-input entry.
const EmptyChoice = -1

// Item is one selectable menu entry.
type Item struct {
	Label    string
	SubLabel string // shown dimmed
}

// Menu is a list to choose from. When EmptyLabel is set, submitting an empty
// answer (or picking the extra row) selects it.
type Menu struct {
	Title      string
	Items      []Item
	EmptyLabel string
}

// Prompter collects operator input. Every method returns ErrBack when the
// operator answers "b" or "back".
type Prompter interface {
	// Select returns the chosen item index or EmptyChoice.
	Select(menu Menu) (int, error)
	// Input asks for a line of text. An empty answer yields def. validate
	// failures re-prompt.
	Input(label, def string, validate func(string) error) (string, error)
	// Confirm asks a yes/no question; anything but y/yes is no.
	Confirm(question string) (bool, error)
}

func isBack(s string) bool {
	return s == "b" || s == "back"
}
