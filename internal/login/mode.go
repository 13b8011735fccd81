package login

import (
	"errors"
	"fmt"
	"strings"
)

// Mode names a login strategy.
type Mode string

const (
	ModeManual    Mode = "manual"
	ModeRecorded  Mode = "recorded"
	ModeSynthetic Mode = "synthetic"
)

// ErrUnknownMode is returned for a mode outside the closed set.
var ErrUnknownMode = errors.New("unknown login mode")

// Older configuration files used these names.
var modeAliases = map[string]Mode{
	"recorded_keystrokes": ModeRecorded,
	"automated_sendkeys":  ModeSynthetic,
}

// ParseMode normalizes a configured mode name.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch m := Mode(name); m {
	case ModeManual, ModeRecorded, ModeSynthetic:
		return m, nil
	}
	if m, ok := modeAliases[name]; ok {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Manual reports whether the mode leaves the form to a human.
func (m Mode) Manual() bool {
	return m == ModeManual
}
