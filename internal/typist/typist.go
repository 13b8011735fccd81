// Package typist types text with per-character delays drawn from
// character-class ranges, and drives the portal's login form through a fixed
// keyboard choreography without any recorded sample.
package typist

import (
	"context"
	"math/rand"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/xkilldash9x/dpsauth/internal/config"
	"github.com/xkilldash9x/dpsauth/internal/timing"
)

// Target is the page surface the typist sends keys to.
type Target interface {
	// SendKeys types into the currently focused element.
	SendKeys(ctx context.Context, keys string) error
	// FocusBody clicks the document body.
	FocusBody(ctx context.Context) error
}

// Class is the delay class of a character.
type Class int

const (
	ClassOther Class = iota
	ClassUppercase
	ClassDigit
	ClassSpace
)

func (c Class) String() string {
	switch c {
	case ClassUppercase:
		return "uppercase"
	case ClassDigit:
		return "digit"
	case ClassSpace:
		return "space"
	default:
		return "other"
	}
}

// Classify returns the delay class of r.
func Classify(r rune) Class {
	switch {
	case unicode.IsUpper(r):
		return ClassUppercase
	case unicode.IsDigit(r):
		return ClassDigit
	case r == ' ':
		return ClassSpace
	default:
		return ClassOther
	}
}

// Typist produces human-like cadence. It is not safe for concurrent use; the
// authentication flow has a single control thread.
type Typist struct {
	cfg     config.TypistConfig
	sleeper timing.Sleeper
	rng     *rand.Rand
	logger  *zap.Logger
}

// New creates a Typist. rng must not be shared with other goroutines.
func New(cfg config.TypistConfig, sleeper timing.Sleeper, rng *rand.Rand, logger *zap.Logger) *Typist {
	return &Typist{
		cfg:     cfg,
		sleeper: sleeper,
		rng:     rng,
		logger:  logger.Named("typist"),
	}
}

// Range returns the configured delay range of a class. Space is a fixed delay,
// reported as a degenerate range.
func (t *Typist) Range(c Class) timing.Range {
	switch c {
	case ClassUppercase:
		return t.cfg.Uppercase
	case ClassDigit:
		return t.cfg.Digit
	case ClassSpace:
		return timing.Range{Min: t.cfg.Space, Max: t.cfg.Space}
	default:
		return t.cfg.Other
	}
}

// delayFor draws the post-injection delay of r.
func (t *Typist) delayFor(r rune) time.Duration {
	return t.Range(Classify(r)).Draw(t.rng)
}

// TypeHumanLike injects text one character at a time, sleeping a class
// dependent delay after each. A failed injection is logged and typing goes on.
func (t *Typist) TypeHumanLike(ctx context.Context, target Target, text string) error {
	for i, r := range []rune(text) {
		if err := target.SendKeys(ctx, string(r)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.logger.Debug("Dropped keystroke.", zap.Int("index", i), zap.Error(err))
		}
		if err := t.sleeper.Sleep(ctx, t.delayFor(r)); err != nil {
			return err
		}
	}
	return nil
}
