// Package harvest watches a login session's traffic for the portal's own
// eligibility request and lifts the Authorization header it carries.
package harvest

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/dpsauth/internal/browser"
	"github.com/xkilldash9x/dpsauth/internal/config"
	"github.com/xkilldash9x/dpsauth/internal/store"
	"github.com/xkilldash9x/dpsauth/internal/timing"
)

// AuthorizationHeader names the header the credential is read from.
const AuthorizationHeader = "Authorization"

// TrafficSource is the part of a browser session the harvester reads and
// nudges.
type TrafficSource interface {
	FindRequest(url string) (browser.RequestDescriptor, bool)
	// ClickButton clicks the button at an ordinal position; -1 is the last.
	ClickButton(ctx context.Context, index int) error
}

// AuthenticationTimeoutError reports that no credential appeared within the
// attempt budget.
type AuthenticationTimeoutError struct {
	Attempts int
	Manual   bool
}

func (e *AuthenticationTimeoutError) Error() string {
	mode := "automated"
	if e.Manual {
		mode = "manual"
	}
	return fmt.Sprintf("no credential observed after %d %s poll attempts", e.Attempts, mode)
}

// Harvester polls for the credential with a bounded budget.
type Harvester struct {
	cfg     config.HarvestConfig
	url     string
	sleeper timing.Sleeper
	rng     *rand.Rand
	logger  *zap.Logger
}

// New creates a Harvester watching for requests to eligibilityURL.
func New(cfg config.HarvestConfig, eligibilityURL string, sleeper timing.Sleeper, rng *rand.Rand, logger *zap.Logger) *Harvester {
	return &Harvester{
		cfg:     cfg,
		url:     eligibilityURL,
		sleeper: sleeper,
		rng:     rng,
		logger:  logger.Named("harvester"),
	}
}

func (h *Harvester) budget(manual bool) (int, time.Duration) {
	if manual {
		return h.cfg.ManualAttempts, h.cfg.ManualInterval
	}
	return h.cfg.AutomatedAttempts, h.cfg.AutomatedInterval
}

// poll checks the traffic log once.
func (h *Harvester) poll(src TrafficSource) (store.Credential, bool) {
	req, ok := src.FindRequest(h.url)
	if !ok {
		return store.Credential{}, false
	}
	token, ok := req.Header(AuthorizationHeader)
	if !ok || token == "" {
		h.logger.Debug("Eligibility request seen without an Authorization header.", zap.String("request_id", req.ID))
		return store.Credential{}, false
	}
	return store.Credential{Token: token}, true
}

// Harvest polls src until the eligibility request shows up. Every poll is
// preceded by one interval so the page has time to answer whatever was last
// submitted. In automated mode every miss except the last is followed by the
// corrective click pair: the first button dismisses the portal's dialog and
// the last one resubmits. Session lifecycle stays with the caller.
func (h *Harvester) Harvest(ctx context.Context, src TrafficSource, manual bool) (store.Credential, error) {
	attempts, interval := h.budget(manual)
	log := h.logger.With(zap.Bool("manual", manual), zap.Int("budget", attempts))

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := h.sleeper.Sleep(ctx, interval); err != nil {
			return store.Credential{}, err
		}
		if cred, ok := h.poll(src); ok {
			log.Info("Credential captured.", zap.Int("attempt", attempt))
			return cred, nil
		}
		log.Debug("Eligibility request not seen yet.", zap.Int("attempt", attempt))

		if !manual && attempt < attempts {
			if err := h.resubmit(ctx, src, attempt); err != nil {
				return store.Credential{}, err
			}
		}
	}

	log.Warn("Credential harvest exhausted its budget.")
	return store.Credential{}, &AuthenticationTimeoutError{Attempts: attempts, Manual: manual}
}

// resubmit issues the corrective click pair. Click failures are logged; only
// cancellation aborts.
func (h *Harvester) resubmit(ctx context.Context, src TrafficSource, attempt int) error {
	for _, index := range []int{0, -1} {
		if err := h.sleeper.Sleep(ctx, h.cfg.ClickPause.Draw(h.rng)); err != nil {
			return err
		}
		if err := src.ClickButton(ctx, index); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			h.logger.Debug("Corrective click failed.", zap.Int("attempt", attempt), zap.Int("button", index), zap.Error(err))
		}
	}
	return nil
}
