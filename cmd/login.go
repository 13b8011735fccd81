package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Run the configured login flow and store a fresh credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			authenticator, tokens, err := a.newAuthenticator(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := authenticator.Authenticate(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Authenticated. Credential saved to %s\n", tokens.Path())
			return err
		},
	}
}
