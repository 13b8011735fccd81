package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/dpsauth/internal/keystroke"
	"github.com/xkilldash9x/dpsauth/internal/login"
	"github.com/xkilldash9x/dpsauth/internal/observability"
)

// replaySettle keeps the window open briefly after the last keystroke.
const replaySettle = time.Second

func newReplayCmd(a *app) *cobra.Command {
	var saveFile string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a keystroke recording against the portal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if saveFile == "" {
				saveFile = a.cfg.Auth.KeystrokeFile
			}
			return a.runReplay(cmd, saveFile)
		},
	}
	cmd.Flags().StringVar(&saveFile, "save-file", "", "path of the recording to replay (default auth.keystroke_file)")
	return cmd
}

func (a *app) runReplay(cmd *cobra.Command, saveFile string) error {
	ctx := cmd.Context()
	path, err := expandPath(saveFile)
	if err != nil {
		return err
	}

	// Check the recording before launching a browser.
	events, err := keystroke.LoadRecording(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &login.MissingRecordingError{Path: path}
		}
		return err
	}

	sess, err := a.opener().Open(ctx, a.cfg.Portal.LoginURL)
	if err != nil {
		return fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		observability.ResourceReleaseWarning(a.logger, "browser_session", sess.Close())
	}()

	replayer := keystroke.NewReplayer(a.logger, a.deps.Sleeper, a.cfg.Keystroke.ReplaySpeed)
	if err := replayer.Replay(ctx, sess, events); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d key events from %s\n", len(events), path)
	return a.deps.Sleeper.Sleep(ctx, replaySettle)
}
