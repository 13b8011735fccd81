package keystroke

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/dpsauth/internal/timing"
)

// Target is the page surface the replayer types into.
type Target interface {
	// SendKeys types into the currently focused element.
	SendKeys(ctx context.Context, keys string) error
	// SendKeysToBody types into the document body.
	SendKeysToBody(ctx context.Context, keys string) error
	// FocusBody clicks the page body so typing lands on the document.
	FocusBody(ctx context.Context) error
}

// Replayer drives a Target with the cadence of a recorded sequence.
type Replayer struct {
	logger  *zap.Logger
	sleeper timing.Sleeper
	speed   float64
}

// NewReplayer creates a Replayer. speed divides every recorded delay;
// values <= 0 are treated as 1.
func NewReplayer(logger *zap.Logger, sleeper timing.Sleeper, speed float64) *Replayer {
	if speed <= 0 {
		speed = 1
	}
	return &Replayer{
		logger:  logger.Named("replayer"),
		sleeper: sleeper,
		speed:   speed,
	}
}

// effectiveDelay clamps d at zero and applies the speed factor.
func (r *Replayer) effectiveDelay(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(float64(d) / r.speed)
}

// Replay processes events strictly in order. Individual injection failures
// are swallowed; only context cancellation stops the replay early.
func (r *Replayer) Replay(ctx context.Context, target Target, events []KeyEvent) error {
	if err := target.FocusBody(ctx); err != nil {
		r.logger.Debug("Could not focus page body before replay.", zap.Error(err))
	}

	sent, skipped, dropped := 0, 0, 0
	for i, e := range events {
		if err := r.sleeper.Sleep(ctx, r.effectiveDelay(e.Delay)); err != nil {
			return err
		}

		action := Resolve(e.Key)
		if action.Skip() {
			skipped++
			continue
		}

		if err := target.SendKeys(ctx, action.Keys); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if bodyErr := target.SendKeysToBody(ctx, action.Keys); bodyErr != nil {
				dropped++
				r.logger.Debug("Dropped keystroke.", zap.Int("index", i), zap.Error(bodyErr))
				continue
			}
		}
		sent++
	}

	r.logger.Info("Replay finished.",
		zap.Int("events", len(events)),
		zap.Int("sent", sent),
		zap.Int("skipped_modifiers", skipped),
		zap.Int("dropped", dropped),
	)
	return nil
}
