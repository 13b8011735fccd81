package cmd

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dpsauth/internal/auth"
	"github.com/xkilldash9x/dpsauth/internal/browser"
	"github.com/xkilldash9x/dpsauth/internal/config"
	"github.com/xkilldash9x/dpsauth/internal/harvest"
	"github.com/xkilldash9x/dpsauth/internal/keystroke"
	"github.com/xkilldash9x/dpsauth/internal/login"
	"github.com/xkilldash9x/dpsauth/internal/store"
	"github.com/xkilldash9x/dpsauth/internal/timing"
)

// Deps are the process-level seams of the commands.
type Deps struct {
	NewOpener    func(cfg config.BrowserConfig, logger *zap.Logger) auth.Opener
	NewKeySource func() keystroke.KeySource
	Sleeper      timing.Sleeper
}

// DefaultDeps wires Chrome, the global keyboard hook and real sleeps.
func DefaultDeps() Deps {
	return Deps{
		NewOpener: func(cfg config.BrowserConfig, logger *zap.Logger) auth.Opener {
			return auth.ChromeOpener{Controller: browser.NewController(cfg, logger)}
		},
		NewKeySource: func() keystroke.KeySource { return &keystroke.GlobalHook{} },
		Sleeper:      timing.ContextSleeper{},
	}
}

func expandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", path, err)
	}
	return expanded, nil
}

func (a *app) opener() auth.Opener {
	return a.deps.NewOpener(a.cfg.Browser, a.logger)
}

func (a *app) tokenStore() (*store.FileStore, error) {
	return store.NewFileStore(a.cfg.Auth.TokenFile, a.logger)
}

func (a *app) harvester(rng *rand.Rand) *harvest.Harvester {
	return harvest.New(a.cfg.Harvest, a.cfg.Portal.EligibilityURL, a.deps.Sleeper, rng, a.logger)
}

// newAuthenticator assembles the authenticator for the configured mode.
func (a *app) newAuthenticator(prompt io.Writer) (*auth.Authenticator, *store.FileStore, error) {
	mode, err := login.ParseMode(a.cfg.Auth.Mode)
	if err != nil {
		return nil, nil, err
	}
	keystrokeFile, err := expandPath(a.cfg.Auth.KeystrokeFile)
	if err != nil {
		return nil, nil, err
	}

	// One RNG for the single control flow.
	rng := timing.NewRand(a.cfg.Typist.Seed)
	strategy, err := login.Select(mode, login.Deps{
		Logger:        a.logger,
		Sleeper:       a.deps.Sleeper,
		Rand:          rng,
		Typist:        a.cfg.Typist,
		KeystrokeFile: keystrokeFile,
		ReplaySpeed:   a.cfg.Keystroke.ReplaySpeed,
		Prompt:        prompt,
	})
	if err != nil {
		return nil, nil, err
	}

	tokens, err := a.tokenStore()
	if err != nil {
		return nil, nil, err
	}

	authenticator, err := auth.New(auth.Options{
		Portal:         a.cfg.Portal,
		Profile:        a.cfg.Profile,
		ReauthOnExpiry: a.cfg.Auth.ReauthOnExpiry,
		Opener:         a.opener(),
		Strategy:       strategy,
		Harvester:      a.harvester(rng),
		Store:          tokens,
		Logger:         a.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return authenticator, tokens, nil
}
