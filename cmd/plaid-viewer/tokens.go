package main

import (
	"fmt"

	"github.com/Veraticus/plaid-viewer/internal/cli"
	"github.com/Veraticus/plaid-viewer/internal/plaid"
	"github.com/spf13/cobra"
)

func linkTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link-token",
		Short: "Create a Plaid Link token",
		Long: `Create a link token for initializing Plaid Link. The token is printed on
stdout; status goes to stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, _, err := newConnector(cfg)
			if err != nil {
				return err
			}

			result := conn.CreateLinkToken(cmd.Context())
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatStatus(result.OK(), result.Display()))
			if !result.OK() {
				return result.Err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Value)
			return nil
		},
	}
}

func sandboxTokenCmd() *cobra.Command {
	var institution string

	cmd := &cobra.Command{
		Use:   "sandbox-token",
		Short: "Create a sandbox public token without Plaid Link",
		Long: `Create a public token for a sandbox test institution, standing in for
the token Plaid Link would hand the browser. Sandbox only.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newPlaidClient(cfg)
			if err != nil {
				return err
			}

			token, err := client.CreateSandboxPublicToken(cmd.Context(), institution)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError("Error: "+err.Error()))
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&institution, "institution", plaid.DefaultSandboxInstitution, "sandbox institution ID")

	return cmd
}
