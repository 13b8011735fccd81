package keystroke

import (
	"context"
	"errors"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
)

// recordingSleeper records requested durations instead of sleeping.
type recordingSleeper struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.durations = append(s.durations, d)
	s.mu.Unlock()
	return ctx.Err()
}

// mockTarget records every key sent and can be told to fail.
type mockTarget struct {
	mu         sync.Mutex
	focused    []string
	body       []string
	focusCalls int

	failFocused func(keys string) bool
	failBody    func(keys string) bool
	focusErr    error
}

func (m *mockTarget) SendKeys(ctx context.Context, keys string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFocused != nil && m.failFocused(keys) {
		return errors.New("no focused element")
	}
	m.focused = append(m.focused, keys)
	return nil
}

func (m *mockTarget) SendKeysToBody(ctx context.Context, keys string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failBody != nil && m.failBody(keys) {
		return errors.New("body detached")
	}
	m.body = append(m.body, keys)
	return nil
}

func (m *mockTarget) FocusBody(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focusCalls++
	return m.focusErr
}

// fakeSource is a KeySource fed by the test.
type fakeSource struct {
	mu       sync.Mutex
	ch       chan hook.Event
	startErr error
	stopErr  error
	starts   int
	stops    int
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan hook.Event)}
}

func (f *fakeSource) Start() (<-chan hook.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.ch, nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.stopErr
}

func (f *fakeSource) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

// stepClock advances by step on every reading.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.t
	c.t = c.t.Add(c.step)
	return current
}

func pressed(code uint16) hook.Event { return hook.Event{Kind: hook.KeyHold, Keycode: code} }
func typed(r rune) hook.Event        { return hook.Event{Kind: hook.KeyDown, Keychar: r} }
