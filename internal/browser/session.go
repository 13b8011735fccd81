package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned by page actions after Close.
var ErrSessionClosed = errors.New("browser session is closed")

// Session is one Chrome process with a single instrumented tab.
type Session struct {
	id            string
	ctx           context.Context
	cancel        context.CancelFunc
	allocCancel   context.CancelFunc
	logger        *zap.Logger
	traffic       *TrafficLog
	actionTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// ID returns the session id used in logs.
func (s *Session) ID() string {
	return s.id
}

// Requests returns a snapshot of the traffic log in issue order.
func (s *Session) Requests() []RequestDescriptor {
	return s.traffic.Requests()
}

// FindRequest returns the latest request to url, matched exactly.
func (s *Session) FindRequest(url string) (RequestDescriptor, bool) {
	return s.traffic.FindRequest(url)
}

// run executes actions against the tab, bounded by the action timeout and
// by the caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	runCtx, cancel := context.WithTimeout(s.ctx, s.actionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// SendKeys types keys into document.activeElement.
func (s *Session) SendKeys(ctx context.Context, keys string) error {
	return s.run(ctx, chromedp.SendKeys("document.activeElement", keys, chromedp.ByJSPath))
}

// SendKeysToBody types keys into the document body.
func (s *Session) SendKeysToBody(ctx context.Context, keys string) error {
	return s.run(ctx, chromedp.SendKeys("body", keys, chromedp.ByQuery))
}

// FocusBody clicks the document body.
func (s *Session) FocusBody(ctx context.Context) error {
	return s.run(ctx, chromedp.Click("body", chromedp.ByQuery))
}

func (s *Session) buttons(ctx context.Context) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, chromedp.Nodes("button", &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	return nodes, err
}

// ButtonCount returns the number of button elements on the page.
func (s *Session) ButtonCount(ctx context.Context) (int, error) {
	nodes, err := s.buttons(ctx)
	return len(nodes), err
}

// ClickButton clicks the button at ordinal position index in document order.
// A negative index counts from the end, so -1 is the last button.
func (s *Session) ClickButton(ctx context.Context, index int) error {
	nodes, err := s.buttons(ctx)
	if err != nil {
		return fmt.Errorf("failed to query buttons: %w", err)
	}
	i := index
	if i < 0 {
		i += len(nodes)
	}
	if i < 0 || i >= len(nodes) {
		return fmt.Errorf("button index %d out of range (%d buttons)", index, len(nodes))
	}
	return s.run(ctx, chromedp.MouseClickNode(nodes[i]))
}

func (s *Session) isClosed() bool {
	return s.closed.Load()
}

// Close terminates the tab and the browser process. It is idempotent; every
// call after the first returns the first call's result.
func (s *Session) Close() error {
	s.closeOnce.Do(s.doClose)
	return s.closeErr
}

func (s *Session) doClose() {
	s.closed.Store(true)
	if s.ctx != nil {
		// Cancel asks the browser to shut down gracefully and waits for it.
		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("failed to close browser: %w", err)
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.logger.Debug("Browser session closed.", zap.Int("requests_seen", s.traffic.Len()))
}
