package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/plaid-viewer/internal/cli"
	"github.com/Veraticus/plaid-viewer/internal/config"
	"github.com/Veraticus/plaid-viewer/internal/connector"
	"github.com/Veraticus/plaid-viewer/internal/model"
	"github.com/Veraticus/plaid-viewer/internal/plaid"
	"github.com/spf13/cobra"
)

// unknownItemID labels history saved from a bare access token.
const unknownItemID = "unknown"

// windowFlags override the configured date window.
type windowFlags struct {
	end  string
	days int
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.end, "end", "", "last day of the window, YYYY-MM-DD (default from window.end_date)")
	cmd.Flags().IntVar(&f.days, "days", 0, "window length in days (default from window.days)")
}

func (f *windowFlags) resolve(cfg *config.Config) (model.DateWindow, error) {
	if f.end != "" {
		cfg.Window.EndDate = f.end
	}
	if f.days != 0 {
		cfg.Window.Days = f.days
	}
	return cfg.DateWindow()
}

func transactionsCmd() *cobra.Command {
	var (
		publicToken string
		accessToken string
		itemID      string
		format      string
		save        bool
		window      windowFlags
	)

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Connect an account and print its transactions",
		Long: `Exchange a public token (or use an existing access token), then fetch
every transaction in the date window and print it as a table, CSV, or JSON.

Without --public-token or --access-token the public token is read from
stdin. Progress and status go to stderr.`,
		Example: `  plaid-viewer transactions --public-token "$(plaid-viewer sandbox-token)"
  plaid-viewer transactions --access-token access-sandbox-... --format csv --save`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()

			outputFormat, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}
			if publicToken != "" && accessToken != "" {
				return errors.New("use either --public-token or --access-token, not both")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dateWindow, err := window.resolve(cfg)
			if err != nil {
				return err
			}
			conn, _, err := newConnector(cfg)
			if err != nil {
				return err
			}

			sess := connector.NewSession()
			switch {
			case accessToken != "":
				sess.Connect(accessToken, itemID, time.Now())
			default:
				if publicToken == "" {
					if cfg.Plaid.Environment == plaid.EnvironmentSandbox {
						fmt.Fprintln(errOut, cli.FormatInfo("Tip: plaid-viewer sandbox-token prints a test public token"))
					}
					publicToken, err = cli.NewLineReader(cmd.InOrStdin()).Prompt(ctx, errOut, "Public token: ")
					if err != nil {
						return err
					}
				}

				result := conn.ExchangeToken(ctx, sess, publicToken)
				fmt.Fprintln(errOut, cli.FormatStatus(result.OK(), result.Display()))
				if !result.OK() {
					return result.Err
				}
			}

			handler := cli.NewInterruptHandler(errOut)
			fetchCtx := handler.HandleInterrupts(ctx, "Transaction fetch")
			defer handler.Stop()

			progress := newPageProgress(errOut)
			var fetched []model.Transaction
			result := conn.FetchTransactions(fetchCtx, sess, dateWindow,
				connector.WithPageObserver(progress.observe),
				connector.WithTransactions(func(txns []model.Transaction) { fetched = txns }))
			progress.finish()

			if handler.WasInterrupted() {
				return fmt.Errorf("transaction fetch interrupted: %w", fetchCtx.Err())
			}
			fmt.Fprintln(errOut, cli.FormatStatus(result.OK(), result.Display()))
			if !result.OK() {
				return result.Err
			}

			if err := cli.RenderTable(out, result.Value, outputFormat); err != nil {
				return fmt.Errorf("failed to write transactions: %w", err)
			}

			if save {
				path, err := saveFetch(cmd, cfg, sess.ItemID(), dateWindow, fetched)
				if err != nil {
					return err
				}
				fmt.Fprintln(errOut, cli.FormatSuccess(fmt.Sprintf("Saved %d transactions to %s", len(fetched), path)))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&publicToken, "public-token", "", "public token from Plaid Link")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "existing access token (skips the exchange)")
	cmd.Flags().StringVar(&itemID, "item-id", "", "item ID recorded with --access-token and --save")
	cmd.Flags().StringVarP(&format, "format", "f", string(cli.FormatTable), "output format (table, csv, json)")
	cmd.Flags().BoolVar(&save, "save", false, "save the transactions to the local history")
	window.register(cmd)

	return cmd
}

// saveFetch stores a fetch in the history and returns the database path.
func saveFetch(cmd *cobra.Command, cfg *config.Config, itemID string, window model.DateWindow, txns []model.Transaction) (string, error) {
	ctx := cmd.Context()

	if itemID == "" {
		itemID = unknownItemID
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer closeStorage(store)

	if err := store.SaveTransactions(ctx, itemID, txns); err != nil {
		return "", fmt.Errorf("failed to save transactions: %w", err)
	}
	if err := store.RecordFetch(ctx, itemID, window, len(txns), time.Now()); err != nil {
		return "", fmt.Errorf("failed to record fetch: %w", err)
	}

	slog.Debug("Saved fetch", "item_id", itemID, "count", len(txns), "window", window.String())
	return store.Path(), nil
}
