package keystroke

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/dpsauth/internal/observability"
)

var (
	// ErrListenerBusy is returned when another recording already holds the global hook.
	ErrListenerBusy = errors.New("keystroke: a recording is already in progress")
	// ErrListenerClosed is returned when the hook stream ends before the stop condition.
	ErrListenerClosed = errors.New("keystroke: listener stream closed unexpectedly")
)

// listenerMu guards the process-wide global hook.
var listenerMu sync.Mutex

// StopFunc blocks until recording should end. Its context is cancelled if
// the listener fails.
type StopFunc func(ctx context.Context) error

// Recorder captures system-wide key presses as a timed event sequence.
type Recorder struct {
	source KeySource
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder reading from source.
func NewRecorder(source KeySource, logger *zap.Logger) *Recorder {
	return &Recorder{
		source: source,
		logger: logger.Named("recorder"),
		now:    time.Now,
	}
}

// Record listens until stop returns. The hook is removed on every exit path,
// including a panic inside stop. Events captured before a stop error are
// returned alongside it.
func (r *Recorder) Record(ctx context.Context, stop StopFunc) ([]KeyEvent, error) {
	if !listenerMu.TryLock() {
		return nil, ErrListenerBusy
	}
	defer listenerMu.Unlock()

	stream, err := r.source.Start()
	if err != nil {
		observability.ResourceReleaseWarning(r.logger, "keyboard_hook", r.source.Stop())
		return nil, fmt.Errorf("keystroke: failed to start listener: %w", err)
	}

	pumpCtx, cancelPump := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(pumpCtx)

	p := &pump{stream: stream, now: r.now, last: r.now(), drain: make(chan struct{})}
	g.Go(func() error {
		return p.run(gctx)
	})

	// The pump drains what the hook already buffered before the hook is
	// removed, since ending the hook discards its queue.
	var once sync.Once
	var pumpErr error
	release := func() {
		once.Do(func() {
			close(p.drain)
			pumpErr = g.Wait()
			cancelPump()
			observability.ResourceReleaseWarning(r.logger, "keyboard_hook", r.source.Stop())
		})
	}
	defer release()

	r.logger.Info("Recording keystrokes.")
	stopErr := stop(gctx)
	release()

	events := p.events
	if pumpErr != nil {
		return events, pumpErr
	}
	if stopErr != nil {
		return events, fmt.Errorf("keystroke: stop condition failed: %w", stopErr)
	}
	r.logger.Info("Recording stopped.", zap.Int("events", len(events)))
	return events, nil
}

// pump turns the hook stream into KeyEvents.
type pump struct {
	stream <-chan hook.Event
	now    func() time.Time
	last   time.Time
	drain  chan struct{}
	events []KeyEvent
}

// run appends one KeyEvent per recorded press until ctx ends, or until drain
// is closed and the buffered events are consumed.
func (p *pump) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.drain:
			for {
				select {
				case ev, ok := <-p.stream:
					if !ok {
						return nil
					}
					p.record(ev)
				default:
					return nil
				}
			}
		case ev, ok := <-p.stream:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrListenerClosed
			}
			p.record(ev)
		}
	}
}

// record times a press by the hook's own timestamp, so delivery batching does
// not distort the cadence. Events without one fall back to the clock.
func (p *pump) record(ev hook.Event) {
	sym, ok := translate(ev)
	if !ok {
		return
	}
	at := ev.When
	if at.IsZero() {
		at = p.now()
	}
	delay := at.Sub(p.last)
	if delay < 0 {
		delay = 0
	}
	p.events = append(p.events, KeyEvent{Key: sym, Delay: delay})
	if at.After(p.last) {
		p.last = at
	}
}
