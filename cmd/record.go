package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dpsauth/internal/harvest"
	"github.com/xkilldash9x/dpsauth/internal/keystroke"
	"github.com/xkilldash9x/dpsauth/internal/observability"
	"github.com/xkilldash9x/dpsauth/internal/store"
	"github.com/xkilldash9x/dpsauth/internal/timing"
)

func newRecordCmd(a *app) *cobra.Command {
	var saveFile string
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record keystroke timing while you log in by hand",
		Long: `Opens the portal in Chrome and records every key you press system-wide
until the portal issues its Eligibility request. The recording can then drive
the "recorded" login mode.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if saveFile == "" {
				saveFile = a.cfg.Auth.KeystrokeFile
			}
			return a.runRecord(cmd, saveFile)
		},
	}
	cmd.Flags().StringVar(&saveFile, "save-file", "", "path to write the recording to (default auth.keystroke_file)")
	return cmd
}

func (a *app) runRecord(cmd *cobra.Command, saveFile string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	path, err := expandPath(saveFile)
	if err != nil {
		return err
	}

	sess, err := a.opener().Open(ctx, a.cfg.Portal.LoginURL)
	if err != nil {
		return fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		observability.ResourceReleaseWarning(a.logger, "browser_session", sess.Close())
	}()
	if err := sess.FocusBody(ctx); err != nil {
		a.logger.Debug("Could not focus page body.", zap.Error(err))
	}

	fmt.Fprintln(out, "Recording keystrokes for DPS login in the opened browser window.")
	fmt.Fprintln(out, "Recording stops automatically when the Eligibility API request is detected.")

	h := a.harvester(timing.NewRand(a.cfg.Typist.Seed))
	var captured *store.Credential
	stop := func(ctx context.Context) error {
		cred, err := h.Harvest(ctx, sess, true)
		var timeout *harvest.AuthenticationTimeoutError
		switch {
		case err == nil:
			captured = &cred
			fmt.Fprintln(out, "Detected Eligibility API request. Stopping recording...")
		case errors.As(err, &timeout):
			fmt.Fprintln(out, "Timed out waiting for the Eligibility request. Stopping recording anyway...")
		default:
			return err
		}
		return nil
	}

	events, err := keystroke.NewRecorder(a.deps.NewKeySource(), a.logger).Record(ctx, stop)
	if err != nil {
		return fmt.Errorf("recording failed: %w", err)
	}
	if err := keystroke.SaveRecording(path, events); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %d key events to %s\n", len(events), path)

	// The recorded login is a real one; keep its credential.
	if captured != nil {
		tokens, err := a.tokenStore()
		if err == nil {
			err = tokens.Save(*captured)
		}
		if err != nil {
			a.logger.Warn("Could not store the credential captured while recording.", zap.Error(err))
		}
	}
	return nil
}
