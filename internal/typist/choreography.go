package typist

import (
	"context"

	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dpsauth/internal/config"
	"github.com/xkilldash9x/dpsauth/internal/timing"
)

type field int

const (
	noField field = iota
	firstName
	lastName
	dateOfBirth
	lastFourSSN
)

// step is one hop of the login form choreography: either a navigational key
// press followed by a pause, or a field typed with TypeHumanLike.
type step struct {
	key   string
	pause timing.Range
	field field
}

// settlePause is the wait after focusing the body, before the first hop.
var settlePause = timing.Seconds(0.3, 0.8)

// loginSteps encodes the tab order of the portal's landing page. Positions are
// ordinal: an inserted or removed focusable element on the page shifts every
// later hop onto the wrong control.
var loginSteps = []step{
	{key: kb.Tab, pause: timing.Seconds(0.4, 0.7)},   // language selector
	{key: kb.Enter, pause: timing.Seconds(0.3, 0.6)}, // choose English
	{key: kb.Tab, pause: timing.Seconds(0.3, 0.6)},
	{key: kb.Tab, pause: timing.Seconds(0.15, 0.35)},
	{key: kb.Tab, pause: timing.Seconds(0.3, 0.55)},
	{key: kb.Tab, pause: timing.Seconds(0.5, 0.8)}, // first name field
	{field: firstName},
	{key: kb.Tab, pause: timing.Seconds(0.08, 0.18)},
	{field: lastName},
	{key: kb.Tab, pause: timing.Seconds(0.18, 0.35)},
	{field: dateOfBirth},
	{key: kb.Tab, pause: timing.Seconds(0.15, 0.3)},
	{field: lastFourSSN},
	{key: kb.Tab, pause: timing.Seconds(0.15, 0.3)},  // log on button
	{key: kb.Enter, pause: timing.Seconds(0.25, 0.4)}, // submit
}

// NavigationHops is the number of navigational key presses in the login choreography.
var NavigationHops = func() int {
	n := 0
	for _, s := range loginSteps {
		if s.field == noField {
			n++
		}
	}
	return n
}()

func (f field) value(p config.ProfileConfig) string {
	switch f {
	case firstName:
		return p.FirstName
	case lastName:
		return p.LastName
	case dateOfBirth:
		return p.DateOfBirth
	case lastFourSSN:
		return p.LastFourSSN
	}
	return ""
}

// FillLoginForm drives the landing page from the language selector to the
// submit button, typing each profile field on the way.
func (t *Typist) FillLoginForm(ctx context.Context, target Target, profile config.ProfileConfig) error {
	if err := target.FocusBody(ctx); err != nil {
		t.logger.Debug("Could not focus page body.", zap.Error(err))
	}
	if err := t.sleeper.Sleep(ctx, settlePause.Draw(t.rng)); err != nil {
		return err
	}

	for i, s := range loginSteps {
		if s.field != noField {
			if err := t.TypeHumanLike(ctx, target, s.field.value(profile)); err != nil {
				return err
			}
			continue
		}
		if err := target.SendKeys(ctx, s.key); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.logger.Debug("Navigation key failed.", zap.Int("hop", i), zap.Error(err))
		}
		if err := t.sleeper.Sleep(ctx, s.pause.Draw(t.rng)); err != nil {
			return err
		}
	}
	t.logger.Info("Login form submitted.")
	return nil
}
