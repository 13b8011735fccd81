package keystroke

import (
	"github.com/chromedp/chromedp/kb"
	hook "github.com/robotn/gohook"
)

// ActionKind classifies what replaying a symbol does.
type ActionKind int

const (
	// ActionNone is a modifier press; nothing is sent.
	ActionNone ActionKind = iota
	// ActionKey sends a named control key.
	ActionKey
	// ActionLiteral types the symbol text verbatim.
	ActionLiteral
)

// Action is the replay equivalent of a recorded symbol.
type Action struct {
	Kind ActionKind
	Keys string
}

// Skip reports whether the action sends nothing.
func (a Action) Skip() bool { return a.Kind == ActionNone }

var controlKeys = map[Symbol]string{
	KeyEnter:     kb.Enter,
	KeyReturn:    kb.Enter,
	KeyTab:       kb.Tab,
	KeyBackspace: kb.Backspace,
	KeyDelete:    kb.Delete,
	KeySpace:     " ",
	KeyLeft:      kb.ArrowLeft,
	KeyRight:     kb.ArrowRight,
	KeyUp:        kb.ArrowUp,
	KeyDown:      kb.ArrowDown,
	KeyHome:      kb.Home,
	KeyEnd:       kb.End,
}

var modifierKeys = map[Symbol]struct{}{
	KeyShift: {}, KeyShiftR: {},
	KeyCtrl: {}, KeyCtrlR: {},
	KeyAlt: {}, KeyAltR: {},
	KeyCmd: {}, KeyCmdR: {},
}

// Resolve maps a recorded symbol to its replay action. It is a pure function.
// Unknown named keys (function keys, escape...) are typed as literals, matching
// the behavior for any symbol outside the control and modifier tables.
func Resolve(s Symbol) Action {
	if keys, ok := controlKeys[s]; ok {
		return Action{Kind: ActionKey, Keys: keys}
	}
	if _, ok := modifierKeys[s]; ok {
		return Action{Kind: ActionNone}
	}
	return Action{Kind: ActionLiteral, Keys: string(s)}
}

// hookNames maps gohook key names to the symbols their presses record.
// gohook names the backspace key "delete", after its macOS label.
var hookNames = map[string]Symbol{
	"enter":     KeyEnter,
	"num_enter": KeyEnter,
	"tab":       KeyTab,
	"delete":    KeyBackspace,
	"space":     KeySpace,
	"up":        KeyUp,
	"left":      KeyLeft,
	"right":     KeyRight,
	"down":      KeyDown,
	"shift":     KeyShift,
	"rshift":    KeyShiftR,
	"ctrl":      KeyCtrl,
	"alt":       KeyAlt,
	"ralt":      KeyAltR,
	"cmd":       KeyCmd,
	"rcmd":      KeyCmdR,
}

// libuiohook VC_* codes for keys the gohook table leaves out.
const (
	vcDelete   uint16 = 0x0E53
	vcHome     uint16 = 0x0E47
	vcEnd      uint16 = 0x0E4F
	vcControlR uint16 = 0x0E1D
)

var nativeKeys = buildNativeKeys()

func buildNativeKeys() map[uint16]Symbol {
	keys := map[uint16]Symbol{
		vcDelete:   KeyDelete,
		vcHome:     KeyHome,
		vcEnd:      KeyEnd,
		vcControlR: KeyCtrlR,
	}
	for name, sym := range hookNames {
		if code, ok := hook.Keycode[name]; ok {
			keys[code] = sym
		}
	}
	return keys
}

// symbolForKeycode returns the named symbol of a native key code, if it has one.
func symbolForKeycode(code uint16) (Symbol, bool) {
	s, ok := nativeKeys[code]
	return s, ok
}
