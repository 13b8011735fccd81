// Package auth composes the browser, login strategy, harvester and token
// store into the credential lifecycle the booking workflow consumes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/dpsauth/internal/config"
	"github.com/xkilldash9x/dpsauth/internal/harvest"
	"github.com/xkilldash9x/dpsauth/internal/login"
	"github.com/xkilldash9x/dpsauth/internal/observability"
	"github.com/xkilldash9x/dpsauth/internal/store"
)

// Session is a live browser session as the authenticator uses it.
type Session interface {
	login.Page
	harvest.TrafficSource
	ID() string
	Close() error
}

// Opener launches a browser session at a URL.
type Opener interface {
	Open(ctx context.Context, url string) (Session, error)
}

// Harvester extracts the credential from a session's traffic.
type Harvester interface {
	Harvest(ctx context.Context, src harvest.TrafficSource, manual bool) (store.Credential, error)
}

// TokenStore persists the credential.
type TokenStore interface {
	Load() (store.Credential, bool)
	Save(store.Credential) error
}

// State is the authenticator's position in its two-state lifecycle.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Options configures an Authenticator.
type Options struct {
	Portal  config.PortalConfig
	Profile config.ProfileConfig
	// ReauthOnExpiry refreshes a stored JWT whose exp claim has passed
	// instead of waiting for the portal to reject it.
	ReauthOnExpiry bool

	Opener    Opener
	Strategy  login.Strategy
	Harvester Harvester
	Store     TokenStore
	Logger    *zap.Logger
}

// Authenticator owns the current credential. It is safe for concurrent use;
// authentication attempts are serialized.
type Authenticator struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	cred  store.Credential
	state State
}

// New creates an Authenticator and loads any stored credential. It never
// launches a browser; the first Headers call does when nothing was stored.
func New(opts Options) (*Authenticator, error) {
	if opts.Opener == nil || opts.Strategy == nil || opts.Harvester == nil || opts.Store == nil {
		return nil, errors.New("authenticator requires an opener, strategy, harvester and store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Authenticator{
		opts:   opts,
		logger: logger.Named("authenticator"),
		now:    time.Now,
	}
	if cred, ok := opts.Store.Load(); ok {
		a.cred = cred
		a.state = Authenticated
		fields := []zap.Field{zap.String("mode", string(opts.Strategy.Mode()))}
		if exp, ok := cred.ExpiresAt(); ok {
			fields = append(fields, zap.Time("expires_at", exp))
		}
		a.logger.Info("Loaded stored credential.", fields...)
	}
	return a, nil
}

// State returns the current lifecycle state.
func (a *Authenticator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Credential returns the current credential, if any.
func (a *Authenticator) Credential() (store.Credential, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cred, a.state == Authenticated
}

// Authenticate runs one full login attempt. On failure the previous state
// and credential are kept.
func (a *Authenticator) Authenticate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticate(ctx)
}

func (a *Authenticator) authenticate(ctx context.Context) error {
	strategy := a.opts.Strategy
	log := a.logger.With(zap.String("mode", string(strategy.Mode())))

	if p, ok := strategy.(login.Preparer); ok {
		if err := p.Prepare(); err != nil {
			return err
		}
	}

	log.Info("Starting authentication.", zap.String("url", a.opts.Portal.LoginURL))
	sess, err := a.opts.Opener.Open(ctx, a.opts.Portal.LoginURL)
	if err != nil {
		return fmt.Errorf("failed to open browser session: %w", err)
	}
	// The session is closed exactly once whatever happens below. Teardown
	// failures are reported but never replace err.
	defer func() {
		observability.ResourceReleaseWarning(log, "browser_session", sess.Close())
	}()
	log = log.With(zap.String("session_id", sess.ID()))

	if err := strategy.Drive(ctx, sess, a.opts.Profile); err != nil {
		return fmt.Errorf("login strategy %s failed: %w", strategy.Mode(), err)
	}

	cred, err := a.opts.Harvester.Harvest(ctx, sess, strategy.Mode().Manual())
	if err != nil {
		return fmt.Errorf("failed to harvest credential: %w", err)
	}
	if err := a.opts.Store.Save(cred); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	a.cred = cred
	a.state = Authenticated
	log.Info("Authentication succeeded.")
	return nil
}

// needsAuth reports whether Headers must authenticate first.
func (a *Authenticator) needsAuth(forceReauth bool) bool {
	if forceReauth || a.state != Authenticated {
		return true
	}
	if a.opts.ReauthOnExpiry && a.cred.ExpiredAt(a.now()) {
		a.logger.Info("Stored credential has expired; re-authenticating.")
		return true
	}
	return false
}

// Headers returns the browser-mimicking header set carrying the current
// token, authenticating first when forced or when no credential is held.
func (a *Authenticator) Headers(ctx context.Context, forceReauth bool) (http.Header, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.needsAuth(forceReauth) {
		if err := a.authenticate(ctx); err != nil {
			return nil, err
		}
	}
	return BuildHeaders(a.opts.Portal, a.cred), nil
}

// RequestFunc issues one API call with the given headers.
type RequestFunc func(ctx context.Context, headers http.Header) (*http.Response, error)

// Do calls fn with the current headers. A non-200 response is taken as a
// rejected credential: its body is drained and closed, and fn is called once
// more with freshly authenticated headers.
func (a *Authenticator) Do(ctx context.Context, fn RequestFunc) (*http.Response, error) {
	headers, err := a.Headers(ctx, false)
	if err != nil {
		return nil, err
	}
	resp, err := fn(ctx, headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	a.logger.Info("Portal rejected the credential; re-authenticating.", zap.Int("status", resp.StatusCode))
	discard(resp)
	headers, err = a.Headers(ctx, true)
	if err != nil {
		return nil, err
	}
	return fn(ctx, headers)
}
