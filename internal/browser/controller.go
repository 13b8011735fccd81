// Package browser launches Chrome for the login flow and records the traffic
// the portal emits. It never interprets that traffic.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dpsauth/internal/config"
)

const defaultActionTimeout = 5 * time.Second

// Controller opens browser sessions.
type Controller struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

// NewController creates a Controller.
func NewController(cfg config.BrowserConfig, logger *zap.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		logger: logger.Named("browser"),
	}
}

// Open launches a fresh Chrome process with an instrumented tab and navigates
// it to url. On failure the partially opened session is torn down before
// returning.
func (c *Controller) Open(ctx context.Context, url string) (*Session, error) {
	id := uuid.New().String()
	log := c.logger.With(zap.String("session_id", id))

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, AllocatorOptions(c.cfg)...)
	sugar := log.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	actionTimeout := c.cfg.ActionTimeout
	if actionTimeout <= 0 {
		actionTimeout = defaultActionTimeout
	}
	s := &Session{
		id:            id,
		ctx:           tabCtx,
		cancel:        tabCancel,
		allocCancel:   allocCancel,
		logger:        log,
		traffic:       NewTrafficLog(),
		actionTimeout: actionTimeout,
	}

	// Listen before the first navigation so the very first requests are seen.
	chromedp.ListenTarget(tabCtx, s.traffic.HandleEvent)

	// The first Run starts the browser and binds it to tabCtx. It must not run
	// under a timeout, or the browser dies when the timeout fires.
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		s.abandon()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	navTimeout := c.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 90 * time.Second
	}
	navCtx, cancelNav := context.WithTimeout(tabCtx, navTimeout)
	defer cancelNav()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		s.abandon()
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	log.Info("Browser session opened.", zap.String("url", url))
	return s, nil
}

// abandon closes a session that never reached the caller.
func (s *Session) abandon() {
	if err := s.Close(); err != nil {
		s.logger.Debug("Error while abandoning session.", zap.Error(err))
	}
}
