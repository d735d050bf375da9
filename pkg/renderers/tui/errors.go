package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrRoundsExhausted is returned when the form is still invalid after the
	// configured number of prompt rounds.
	ErrRoundsExhausted = errors.New("tui: form still invalid after retries")
	// ErrUnfixable is returned when only derived fields fail validation, so
	// no prompt can repair the form.
	ErrUnfixable = errors.New("tui: derived fields are invalid")
)
