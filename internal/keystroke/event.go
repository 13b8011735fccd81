// Package keystroke records a human's real key cadence during a manual login
// and reproduces it against a browser page.
//
// Capture stores the effective character of each press (the recorder sees
// "A", not shift+a), so replay never needs to rebuild chords: modifier presses
// are kept in the recording for fidelity and skipped when replayed.
package keystroke

import (
	"strings"
	"time"
)

// Symbol is the textual identity of a key press: either a literal character
// or a named key in the form "Key.<name>".
type Symbol string

const namedPrefix = "Key."

// Control keys.
const (
	KeyEnter     Symbol = "Key.enter"
	KeyReturn    Symbol = "Key.return"
	KeyTab       Symbol = "Key.tab"
	KeyBackspace Symbol = "Key.backspace"
	KeyDelete    Symbol = "Key.delete"
	KeySpace     Symbol = "Key.space"
	KeyLeft      Symbol = "Key.left"
	KeyRight     Symbol = "Key.right"
	KeyUp        Symbol = "Key.up"
	KeyDown      Symbol = "Key.down"
	KeyHome      Symbol = "Key.home"
	KeyEnd       Symbol = "Key.end"
)

// Modifier keys.
const (
	KeyShift  Symbol = "Key.shift"
	KeyShiftR Symbol = "Key.shift_r"
	KeyCtrl   Symbol = "Key.ctrl"
	KeyCtrlR  Symbol = "Key.ctrl_r"
	KeyAlt    Symbol = "Key.alt"
	KeyAltR   Symbol = "Key.alt_r"
	KeyCmd    Symbol = "Key.cmd"
	KeyCmdR   Symbol = "Key.cmd_r"
)

// Named reports whether s is a named key rather than a literal.
func (s Symbol) Named() bool {
	return len(s) > len(namedPrefix) && strings.HasPrefix(string(s), namedPrefix)
}

// KeyEvent is a single timed key press. Delay is measured from the previous
// event of the same sequence; for the first event it is measured from the
// start of the recording.
type KeyEvent struct {
	Key   Symbol
	Delay time.Duration
}
