// Package login drives the portal's landing page into submitting the login
// form, either by leaving it to a human, replaying a recorded keystroke
// session, or typing synthetically.
package login

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"

	"go.uber.org/zap"

	"github.com/xkilldash9x/dpsauth/internal/config"
	"github.com/xkilldash9x/dpsauth/internal/keystroke"
	"github.com/xkilldash9x/dpsauth/internal/timing"
	"github.com/xkilldash9x/dpsauth/internal/typist"
)

// Page is the input surface of a browser session.
type Page interface {
	keystroke.Target
}

// Strategy submits the login form on an open page.
type Strategy interface {
	Mode() Mode
	// Drive returns once input is complete. It does not wait for the portal
	// to respond.
	Drive(ctx context.Context, page Page, profile config.ProfileConfig) error
}

// Preparer is implemented by strategies whose preconditions can be checked
// before a browser is launched.
type Preparer interface {
	Prepare() error
}

// MissingRecordingError means the recorded mode has no keystroke file to
// replay. It is not retried; the operator has to record one.
type MissingRecordingError struct {
	Path string
}

func (e *MissingRecordingError) Error() string {
	return fmt.Sprintf("keystroke recording %s not found; record one with 'dpsauth record' first", e.Path)
}

// Deps carries what the strategies need. Unused fields may be left zero.
type Deps struct {
	Logger        *zap.Logger
	Sleeper       timing.Sleeper
	Rand          *rand.Rand
	Typist        config.TypistConfig
	KeystrokeFile string
	ReplaySpeed   float64
	// Prompt receives operator instructions in manual mode.
	Prompt io.Writer
}

// Select returns the strategy for mode.
func Select(mode Mode, deps Deps) (Strategy, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sleeper := deps.Sleeper
	if sleeper == nil {
		sleeper = timing.ContextSleeper{}
	}
	rng := deps.Rand
	if rng == nil {
		rng = timing.NewRand(deps.Typist.Seed)
	}

	switch mode {
	case ModeManual:
		return &Manual{prompt: deps.Prompt, logger: logger.Named("login.manual")}, nil
	case ModeRecorded:
		return &Recorded{
			path:     deps.KeystrokeFile,
			replayer: keystroke.NewReplayer(logger, sleeper, deps.ReplaySpeed),
			logger:   logger.Named("login.recorded"),
		}, nil
	case ModeSynthetic:
		return &Synthetic{typist: typist.New(deps.Typist, sleeper, rng, logger)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// Manual leaves the form to the operator and issues no input.
type Manual struct {
	prompt io.Writer
	logger *zap.Logger
}

func (m *Manual) Mode() Mode { return ModeManual }

func (m *Manual) Drive(ctx context.Context, _ Page, _ config.ProfileConfig) error {
	if m.prompt != nil {
		fmt.Fprintln(m.prompt, "Please complete the login process manually in the opened browser window.")
		fmt.Fprintln(m.prompt, "After you have logged in, the program will continue automatically.")
	}
	m.logger.Info("Waiting for the operator to log in.")
	return ctx.Err()
}

// Recorded replays a keystroke file captured with the recorder.
type Recorded struct {
	path     string
	replayer *keystroke.Replayer
	logger   *zap.Logger
	events   []keystroke.KeyEvent
	loaded   bool
}

func (r *Recorded) Mode() Mode { return ModeRecorded }

// Prepare loads the recording, failing with *MissingRecordingError when the
// file does not exist.
func (r *Recorded) Prepare() error {
	if r.loaded {
		return nil
	}
	if r.path == "" {
		return &MissingRecordingError{Path: r.path}
	}
	events, err := keystroke.LoadRecording(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &MissingRecordingError{Path: r.path}
		}
		return fmt.Errorf("failed to load keystroke recording: %w", err)
	}
	r.events = events
	r.loaded = true
	return nil
}

func (r *Recorded) Drive(ctx context.Context, page Page, _ config.ProfileConfig) error {
	if err := r.Prepare(); err != nil {
		return err
	}
	r.logger.Info("Replaying recorded keystrokes.", zap.String("path", r.path), zap.Int("events", len(r.events)))
	return r.replayer.Replay(ctx, page, r.events)
}

// Synthetic types the profile through the fixed tab order of the form.
type Synthetic struct {
	typist *typist.Typist
}

func (s *Synthetic) Mode() Mode { return ModeSynthetic }

func (s *Synthetic) Drive(ctx context.Context, page Page, profile config.ProfileConfig) error {
	return s.typist.FillLoginForm(ctx, page, profile)
}
