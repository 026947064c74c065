package main

import (
	"context"

	"github.com/Veraticus/plaid-viewer/internal/connector"
	"github.com/Veraticus/plaid-viewer/internal/plaid"
	"github.com/Veraticus/plaid-viewer/internal/tui"
	"github.com/Veraticus/plaid-viewer/internal/tui/themes"
	"github.com/spf13/cobra"
)

func tuiCmd() *cobra.Command {
	var (
		theme       string
		institution string
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse transactions in the terminal",
		Long: `Open a terminal interface with the same operations as the browser page:
request a link token, paste a public token to connect, and refresh the
transaction table. In the sandbox, 's' creates a test public token.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			conn, client, err := newConnector(cfg)
			if err != nil {
				return err
			}

			window, err := cfg.DateWindow()
			if err != nil {
				return err
			}

			opts := []tui.Option{
				tui.WithWindow(window),
				tui.WithTheme(themes.ByName(theme)),
			}
			if cfg.Plaid.Environment == plaid.EnvironmentSandbox {
				opts = append(opts, tui.WithSandboxToken(func(ctx context.Context) (string, error) {
					return client.CreateSandboxPublicToken(ctx, institution)
				}))
			}

			return tui.Run(cmd.Context(), conn, connector.NewSession(), opts...)
		},
	}

	cmd.Flags().StringVar(&theme, "theme", "default", "color theme (default, catppuccin-mocha)")
	cmd.Flags().StringVar(&institution, "institution", plaid.DefaultSandboxInstitution, "sandbox institution for test tokens")

	return cmd
}
