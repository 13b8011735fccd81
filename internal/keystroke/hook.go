package keystroke

import (
	"fmt"

	hook "github.com/robotn/gohook"
)

// KeySource is a system-wide keyboard listener.
type KeySource interface {
	// Start installs the global hook and returns its event stream.
	Start() (<-chan hook.Event, error)
	// Stop removes the hook. It must be safe to call after a failed Start.
	Stop() error
}

// GlobalHook is the production KeySource backed by libuiohook.
type GlobalHook struct {
	started bool
}

// Start installs the hook.
func (g *GlobalHook) Start() (events <-chan hook.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("keystroke: global hook failed to start: %v", r)
		}
	}()
	ch := hook.Start()
	if ch == nil {
		return nil, fmt.Errorf("keystroke: global hook returned no event stream")
	}
	g.started = true
	return ch, nil
}

// Stop removes the hook. gohook panics when ending a hook twice, which is
// surfaced as an error instead.
func (g *GlobalHook) Stop() (err error) {
	if !g.started {
		return nil
	}
	g.started = false
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("keystroke: global hook failed to stop: %v", r)
		}
	}()
	hook.End()
	return nil
}

// translate turns a raw hook event into the symbol it records, if any.
//
// libuiohook reports each press twice: a "pressed" event (hook.KeyHold) that
// carries the key code, and for printable keys a "typed" event (hook.KeyDown)
// that carries the effective character after modifiers. Named keys come from
// the pressed event; literals come from the typed event.
func translate(ev hook.Event) (Symbol, bool) {
	switch ev.Kind {
	case hook.KeyHold:
		return symbolForKeycode(ev.Keycode)
	case hook.KeyDown:
		if !isLiteral(ev.Keychar) {
			return "", false
		}
		return Symbol(string(ev.Keychar)), true
	}
	return "", false
}

// charUndefined is libuiohook's CHAR_UNDEFINED.
const charUndefined = 0xFFFF

// isLiteral excludes control characters and space, which are recorded from
// their pressed events as named keys.
func isLiteral(r rune) bool {
	if r == charUndefined || r == ' ' {
		return false
	}
	return r > 0x1F && r != 0x7F
}
