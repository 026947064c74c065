package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Veraticus/plaid-viewer/internal/cli"
	"github.com/Veraticus/plaid-viewer/internal/model"
	"github.com/Veraticus/plaid-viewer/internal/storage"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var (
		format  string
		fetches bool
		limit   int
		window  windowFlags
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show saved transactions",
		Long: `Show transactions saved by earlier fetches (serve, or transactions --save)
without contacting Plaid. --fetches lists the fetches themselves.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if fetches {
				list, err := store.ListFetches(ctx, limit)
				if err != nil {
					return err
				}
				return renderFetches(cmd.OutOrStdout(), list)
			}

			outputFormat, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}
			dateWindow, err := window.resolve(cfg)
			if err != nil {
				return err
			}

			txns, err := store.GetTransactions(ctx, dateWindow)
			if err != nil {
				return err
			}
			return cli.RenderTable(cmd.OutOrStdout(), model.NewTable(txns), outputFormat)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(cli.FormatTable), "output format (table, csv, json)")
	cmd.Flags().BoolVar(&fetches, "fetches", false, "list recorded fetches instead of transactions")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum fetches to list")
	window.register(cmd)

	return cmd
}

func renderFetches(w io.Writer, fetches []storage.Fetch) error {
	if len(fetches) == 0 {
		_, err := fmt.Fprintln(w, "No fetches recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FETCHED\tITEM\tWINDOW\tCOUNT")
	for _, f := range fetches {
		fmt.Fprintf(tw, "%s\t%s\t%s..%s\t%d\n",
			f.FetchedAt.Local().Format("2006-01-02 15:04"), f.ItemID, f.WindowStart, f.WindowEnd, f.Count)
	}
	return tw.Flush()
}
