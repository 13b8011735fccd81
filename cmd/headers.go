package cmd

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newHeadersCmd(a *app) *cobra.Command {
	var reauth bool
	cmd := &cobra.Command{
		Use:   "headers",
		Short: "Print the API request headers as JSON, logging in first if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Prompts go to stderr so stdout stays valid JSON.
			authenticator, _, err := a.newAuthenticator(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			headers, err := authenticator.Headers(cmd.Context(), reauth)
			if err != nil {
				return err
			}

			// Map keys are emitted sorted.
			flat := make(map[string]string, len(headers))
			for name, values := range headers {
				if len(values) > 0 {
					flat[name] = values[0]
				}
			}

			out, err := json.MarshalIndent(flat, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode headers: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().BoolVar(&reauth, "reauth", false, "force a fresh login even if a credential is stored")
	return cmd
}
