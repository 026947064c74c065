package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/plaid-viewer/internal/common"
	"github.com/Veraticus/plaid-viewer/internal/config"
	"github.com/Veraticus/plaid-viewer/internal/connector"
	"github.com/Veraticus/plaid-viewer/internal/plaid"
	"github.com/Veraticus/plaid-viewer/internal/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/viper"
)

const missingCredentialsMessage = "Plaid credentials are not configured (keys are at https://dashboard.plaid.com/developers/keys)"

// loadConfig resolves the configuration read by initConfig.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// newPlaidClient builds the Plaid client, failing early when credentials are missing.
func newPlaidClient(cfg *config.Config) (*plaid.Client, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, common.NewUserError(missingCredentialsMessage, err)
	}
	client, err := plaid.NewClient(cfg.PlaidClientConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Plaid client: %w", err)
	}
	return client, nil
}

// newConnector wires a connector over the configured Plaid client.
func newConnector(cfg *config.Config) (*connector.Connector, *plaid.Client, error) {
	client, err := newPlaidClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	conn := connector.New(client,
		connector.WithLogger(slog.Default().With("component", "connector")),
		connector.WithUserPrefix(cfg.Plaid.UserPrefix))
	return conn, client, nil
}

// initStorage opens the transaction history and applies migrations.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history at %s: %w", cfg.Storage.Path, err)
	}
	return store, nil
}

func closeStorage(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Warn("Failed to close history", "error", err)
	}
}

// pageProgress renders a progress bar for a paginated fetch. The bar is
// created on the first page, once the total is known.
type pageProgress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
}

func newPageProgress(w io.Writer) *pageProgress {
	return &pageProgress{writer: w}
}

func (p *pageProgress) observe(_, received, total int) {
	if total == 0 {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Fetching transactions...[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				if _, err := fmt.Fprintln(p.writer); err != nil {
					slog.Warn("Failed to write newline after progress bar", "error", err)
				}
			}),
		)
	}
	if err := p.bar.Add(received); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// finish clears an unfinished bar, e.g. after a failed page.
func (p *pageProgress) finish() {
	if p.bar != nil && !p.bar.IsFinished() {
		if err := p.bar.Exit(); err != nil {
			slog.Warn("Failed to close progress bar", "error", err)
		}
	}
}
