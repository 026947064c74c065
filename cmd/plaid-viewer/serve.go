package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/plaid-viewer/internal/certs"
	"github.com/Veraticus/plaid-viewer/internal/cli"
	"github.com/Veraticus/plaid-viewer/internal/plaid"
	"github.com/Veraticus/plaid-viewer/internal/session"
	"github.com/Veraticus/plaid-viewer/internal/web"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		useTLS    bool
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser interface",
		Long: `Serve a page that opens Plaid Link, connects the linked account, and lists
its transactions. Each browser gets its own session; nothing about the
connection outlives the process.

HTTPS with a self-signed localhost certificate is used in production or
when --tls is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			conn, _, err := newConnector(cfg)
			if err != nil {
				return err
			}

			window, err := cfg.DateWindow()
			if err != nil {
				return err
			}

			opts := []web.Option{
				web.WithWindow(window),
				web.WithEnvironment(cfg.Plaid.Environment),
				web.WithLogger(slog.Default().With("component", "web")),
			}

			if !noHistory {
				store, err := initStorage(ctx, cfg)
				if err != nil {
					return err
				}
				defer closeStorage(store)
				opts = append(opts, web.WithHistory(store))
			}

			if useTLS || cfg.Plaid.Environment == plaid.EnvironmentProduction {
				manager := certs.NewFileManager(cfg.Server.CertDir)
				tlsConfig, err := manager.TLSConfig()
				if err != nil {
					return fmt.Errorf("failed to prepare TLS certificate: %w", err)
				}
				certFile, _ := manager.Paths()
				slog.Info("Serving HTTPS with a self-signed certificate", "cert", certFile)
				opts = append(opts, web.WithTLS(tlsConfig))
			}

			srv, err := web.NewServer(cfg.Server.Addr, conn, session.NewStore(cfg.Server.SessionTTL), opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Plaid Viewer"))
			fmt.Fprintln(out, cli.FormatInfo("Open "+srv.URL()+" ("+cfg.Plaid.Environment+", "+window.String()+")"))

			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	cmd.Flags().BoolVar(&useTLS, "tls", false, "serve HTTPS with a self-signed certificate")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not save fetched transactions")

	return cmd
}
