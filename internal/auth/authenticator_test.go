package auth_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/dpsauth/internal/auth"
	"github.com/xkilldash9x/dpsauth/internal/config"
	"github.com/xkilldash9x/dpsauth/internal/harvest"
	"github.com/xkilldash9x/dpsauth/internal/login"
	"github.com/xkilldash9x/dpsauth/internal/mocks"
	"github.com/xkilldash9x/dpsauth/internal/store"
)

type fixture struct {
	opener    *mocks.MockOpener
	session   *mocks.MockSession
	strategy  *mocks.MockStrategy
	harvester *mocks.MockHarvester
	store     *mocks.MockTokenStore
	cfg       *config.Config
	logs      *observer.ObservedLogs
}

func newFixture(mode login.Mode) *fixture {
	f := &fixture{
		opener:    new(mocks.MockOpener),
		session:   new(mocks.MockSession),
		strategy:  new(mocks.MockStrategy),
		harvester: new(mocks.MockHarvester),
		store:     new(mocks.MockTokenStore),
		cfg:       config.NewDefaultConfig(),
	}
	f.strategy.On("Mode").Return(mode)
	f.session.On("ID").Return("session-1").Maybe()
	return f
}

func (f *fixture) options() auth.Options {
	core, logs := observer.New(zapcore.DebugLevel)
	f.logs = logs
	return auth.Options{
		Portal:    f.cfg.Portal,
		Profile:   f.cfg.Profile,
		Opener:    f.opener,
		Strategy:  f.strategy,
		Harvester: f.harvester,
		Store:     f.store,
		Logger:    zap.New(core),
	}
}

func (f *fixture) newAuthenticator(t *testing.T) *auth.Authenticator {
	t.Helper()
	a, err := auth.New(f.options())
	require.NoError(t, err)
	return a
}

// expectAttempt wires one successful authentication attempt.
func (f *fixture) expectAttempt(token string, manual bool) {
	f.opener.On("Open", mock.Anything, f.cfg.Portal.LoginURL).Return(f.session, nil).Once()
	f.strategy.On("Drive", mock.Anything, f.session, f.cfg.Profile).Return(nil).Once()
	f.harvester.On("Harvest", mock.Anything, f.session, manual).Return(store.Credential{Token: token}, nil).Once()
	f.store.On("Save", store.Credential{Token: token}).Return(nil).Once()
	f.session.On("Close").Return(nil).Once()
}

func TestNew_LoadsStoredCredential(t *testing.T) {
	f := newFixture(login.ModeManual)
	f.store.On("Load").Return(store.Credential{Token: "stored"}, true)

	a := f.newAuthenticator(t)
	assert.Equal(t, auth.Authenticated, a.State())

	h, err := a.Headers(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "stored", h.Get("Authorization"))
	f.opener.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := auth.New(auth.Options{})
	assert.Error(t, err)
}

func TestHeaders_UnauthenticatedTriggersOneAttempt(t *testing.T) {
	f := newFixture(login.ModeManual)
	f.store.On("Load").Return(store.Credential{}, false)
	f.expectAttempt("fresh", true)

	a := f.newAuthenticator(t)
	assert.Equal(t, auth.Unauthenticated, a.State())

	h, err := a.Headers(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "fresh", h.Get("Authorization"))

	// Second call is served from memory.
	_, err = a.Headers(context.Background(), false)
	require.NoError(t, err)

	f.opener.AssertNumberOfCalls(t, "Open", 1)
	f.harvester.AssertNumberOfCalls(t, "Harvest", 1)
	f.session.AssertNumberOfCalls(t, "Close", 1)
	assert.Equal(t, auth.Authenticated, a.State())
}

func TestHeaders_ForceAlwaysAuthenticates(t *testing.T) {
	f := newFixture(login.ModeSynthetic)
	f.store.On("Load").Return(store.Credential{Token: "stored"}, true)
	f.expectAttempt("first", false)
	f.expectAttempt("second", false)

	a := f.newAuthenticator(t)

	h, err := a.Headers(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "first", h.Get("Authorization"))

	h, err = a.Headers(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "second", h.Get("Authorization"))

	f.opener.AssertNumberOfCalls(t, "Open", 2)
	f.session.AssertNumberOfCalls(t, "Close", 2)
}

func TestAuthenticate_HarvestFailureClosesSession(t *testing.T) {
	f := newFixture(login.ModeRecorded)
	f.store.On("Load").Return(store.Credential{Token: "old"}, true)
	f.opener.On("Open", mock.Anything, mock.Anything).Return(f.session, nil)
	f.strategy.On("Drive", mock.Anything, f.session, mock.Anything).Return(nil)
	timeout := &harvest.AuthenticationTimeoutError{Attempts: 5}
	f.harvester.On("Harvest", mock.Anything, f.session, false).Return(store.Credential{}, timeout)
	f.session.On("Close").Return(errors.New("browser already gone")).Once()

	a := f.newAuthenticator(t)
	err := a.Authenticate(context.Background())

	var got *harvest.AuthenticationTimeoutError
	require.ErrorAs(t, err, &got, "close failure must not mask the harvest error")
	f.session.AssertNumberOfCalls(t, "Close", 1)
	f.store.AssertNotCalled(t, "Save", mock.Anything)

	// The previous credential survives a failed attempt.
	cred, ok := a.Credential()
	assert.True(t, ok)
	assert.Equal(t, "old", cred.Token)

	warnings := f.logs.FilterField(zap.String("warning", "resource_release")).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
}

func TestAuthenticate_StrategyFailureClosesSession(t *testing.T) {
	f := newFixture(login.ModeSynthetic)
	f.store.On("Load").Return(store.Credential{}, false)
	f.opener.On("Open", mock.Anything, mock.Anything).Return(f.session, nil)
	f.strategy.On("Drive", mock.Anything, f.session, mock.Anything).Return(context.DeadlineExceeded)
	f.session.On("Close").Return(nil).Once()

	a := f.newAuthenticator(t)
	_, err := a.Headers(context.Background(), false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, auth.Unauthenticated, a.State())
	f.harvester.AssertNotCalled(t, "Harvest", mock.Anything, mock.Anything, mock.Anything)
	f.session.AssertNumberOfCalls(t, "Close", 1)
}

func TestAuthenticate_OpenFailure(t *testing.T) {
	f := newFixture(login.ModeManual)
	f.store.On("Load").Return(store.Credential{}, false)
	f.opener.On("Open", mock.Anything, mock.Anything).Return(nil, errors.New("chrome not found"))

	a := f.newAuthenticator(t)
	err := a.Authenticate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome not found")
	f.strategy.AssertNotCalled(t, "Drive", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthenticate_SaveFailureStaysUnauthenticated(t *testing.T) {
	f := newFixture(login.ModeManual)
	f.store.On("Load").Return(store.Credential{}, false)
	f.opener.On("Open", mock.Anything, mock.Anything).Return(f.session, nil)
	f.strategy.On("Drive", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.harvester.On("Harvest", mock.Anything, mock.Anything, true).Return(store.Credential{Token: "t"}, nil)
	f.store.On("Save", mock.Anything).Return(errors.New("disk full"))
	f.session.On("Close").Return(nil)

	a := f.newAuthenticator(t)
	require.Error(t, a.Authenticate(context.Background()))
	assert.Equal(t, auth.Unauthenticated, a.State())
}

func TestAuthenticate_MissingRecordingBeforeBrowser(t *testing.T) {
	d := login.Deps{KeystrokeFile: filepath.Join(t.TempDir(), "absent.json")}
	strategy, err := login.Select(login.ModeRecorded, d)
	require.NoError(t, err)

	f := newFixture(login.ModeRecorded)
	f.store.On("Load").Return(store.Credential{}, false)
	opts := f.options()
	opts.Strategy = strategy
	a, err := auth.New(opts)
	require.NoError(t, err)

	var missing *login.MissingRecordingError
	require.ErrorAs(t, a.Authenticate(context.Background()), &missing)
	f.opener.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}

func expiringToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestHeaders_ReauthOnExpiry(t *testing.T) {
	expired := expiringToken(t, time.Now().Add(-time.Hour))

	t.Run("Disabled", func(t *testing.T) {
		f := newFixture(login.ModeManual)
		f.store.On("Load").Return(store.Credential{Token: expired}, true)
		a := f.newAuthenticator(t)
		h, err := a.Headers(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, expired, h.Get("Authorization"))
		f.opener.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
	})

	t.Run("Enabled", func(t *testing.T) {
		f := newFixture(login.ModeManual)
		f.store.On("Load").Return(store.Credential{Token: expired}, true)
		f.expectAttempt("renewed", true)
		opts := f.options()
		opts.ReauthOnExpiry = true
		a, err := auth.New(opts)
		require.NoError(t, err)

		h, err := a.Headers(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, "renewed", h.Get("Authorization"))
	})
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader("body"))}
}

func TestDo_RetriesOnceWithFreshCredential(t *testing.T) {
	f := newFixture(login.ModeManual)
	f.store.On("Load").Return(store.Credential{Token: "stale"}, true)
	f.expectAttempt("fresh", true)
	a := f.newAuthenticator(t)

	var seen []string
	resp, err := a.Do(context.Background(), func(ctx context.Context, h http.Header) (*http.Response, error) {
		seen = append(seen, h.Get("Authorization"))
		if h.Get("Authorization") == "stale" {
			return response(http.StatusUnauthorized), nil
		}
		return response(http.StatusOK), nil
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"stale", "fresh"}, seen)
}

func TestDo_NoRetryOnSuccessOrTransportError(t *testing.T) {
	f := newFixture(login.ModeManual)
	f.store.On("Load").Return(store.Credential{Token: "good"}, true)
	a := f.newAuthenticator(t)

	calls := 0
	_, err := a.Do(context.Background(), func(ctx context.Context, h http.Header) (*http.Response, error) {
		calls++
		return response(http.StatusOK), nil
	})
	require.NoError(t, err)

	_, err = a.Do(context.Background(), func(ctx context.Context, h http.Header) (*http.Response, error) {
		calls++
		return nil, errors.New("connection reset")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	f.opener.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}

func TestBuildHeaders(t *testing.T) {
	portal := config.NewDefaultConfig().Portal
	h := auth.BuildHeaders(portal, store.Credential{Token: "Bearer x"})

	assert.Equal(t, "Bearer x", h.Get("Authorization"))
	assert.Equal(t, "https://public.txdpsscheduler.com", h.Get("Origin"))
	assert.Equal(t, "https://public.txdpsscheduler.com/", h.Get("Referer"))
	assert.Equal(t, "application/json;charset=UTF-8", h.Get("Content-Type"))
	assert.Equal(t, config.DefaultUserAgent, h.Get("User-Agent"))
	assert.Equal(t, []string{"?0"}, h["sec-ch-ua-mobile"], "browser casing is preserved")
	assert.Equal(t, []string{"1"}, h["DNT"])
	assert.Len(t, h, 15)
}
