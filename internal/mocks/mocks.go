// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/dpsauth/internal/auth"
	"github.com/xkilldash9x/dpsauth/internal/browser"
	"github.com/xkilldash9x/dpsauth/internal/config"
	"github.com/xkilldash9x/dpsauth/internal/harvest"
	"github.com/xkilldash9x/dpsauth/internal/login"
	"github.com/xkilldash9x/dpsauth/internal/store"
)

// -- Browser Session Mock --

// MockSession mocks auth.Session.
type MockSession struct {
	mock.Mock
}

var _ auth.Session = (*MockSession)(nil)

func (m *MockSession) ID() string {
	return m.Called().String(0)
}

func (m *MockSession) SendKeys(ctx context.Context, keys string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *MockSession) SendKeysToBody(ctx context.Context, keys string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *MockSession) FocusBody(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSession) ClickButton(ctx context.Context, index int) error {
	return m.Called(ctx, index).Error(0)
}

func (m *MockSession) FindRequest(url string) (browser.RequestDescriptor, bool) {
	args := m.Called(url)
	if args.Get(0) == nil {
		return browser.RequestDescriptor{}, args.Bool(1)
	}
	return args.Get(0).(browser.RequestDescriptor), args.Bool(1)
}

func (m *MockSession) Close() error {
	return m.Called().Error(0)
}

// -- Opener Mock --

// MockOpener mocks auth.Opener.
type MockOpener struct {
	mock.Mock
}

func (m *MockOpener) Open(ctx context.Context, url string) (auth.Session, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(auth.Session), args.Error(1)
}

// -- Strategy Mock --

// MockStrategy mocks login.Strategy.
type MockStrategy struct {
	mock.Mock
}

func (m *MockStrategy) Mode() login.Mode {
	return m.Called().Get(0).(login.Mode)
}

func (m *MockStrategy) Drive(ctx context.Context, page login.Page, profile config.ProfileConfig) error {
	return m.Called(ctx, page, profile).Error(0)
}

// -- Harvester Mock --

// MockHarvester mocks auth.Harvester.
type MockHarvester struct {
	mock.Mock
}

func (m *MockHarvester) Harvest(ctx context.Context, src harvest.TrafficSource, manual bool) (store.Credential, error) {
	args := m.Called(ctx, src, manual)
	return args.Get(0).(store.Credential), args.Error(1)
}

// -- Token Store Mock --

// MockTokenStore mocks auth.TokenStore.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Load() (store.Credential, bool) {
	args := m.Called()
	return args.Get(0).(store.Credential), args.Bool(1)
}

func (m *MockTokenStore) Save(c store.Credential) error {
	return m.Called(c).Error(0)
}

// -- Sleeper --

// RecordingSleeper implements timing.Sleeper by recording the requested
// durations instead of waiting.
type RecordingSleeper struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.durations = append(s.durations, d)
	s.mu.Unlock()
	return ctx.Err()
}

// Durations returns a copy of every recorded sleep.
func (s *RecordingSleeper) Durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.durations))
	copy(out, s.durations)
	return out
}

// Total returns the sum of every recorded sleep.
func (s *RecordingSleeper) Total() time.Duration {
	var total time.Duration
	for _, d := range s.Durations() {
		total += d
	}
	return total
}
