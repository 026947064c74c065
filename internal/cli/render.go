package cli

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/plaid-viewer/internal/model"
)

// Format selects how a transaction table is written.
type Format string

// Output formats.
const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat converts a flag value into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: %q (want table, csv, or json)", ErrUnknownFormat, s)
	}
}

// RenderTable writes t to w in the given format.
func RenderTable(w io.Writer, t model.Table, format Format) error {
	switch format {
	case FormatTable, "":
		return renderText(w, t)
	case FormatCSV:
		return renderCSV(w, t)
	case FormatJSON:
		return renderJSON(w, t)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func renderText(w io.Writer, t model.Table) error {
	if t.Empty() {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("No transactions found."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	headers := make([]string, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		headers = append(headers, HeaderStyle.Render(strings.ToUpper(c)))
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, row := range t.Values() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s\n", SubtleStyle.Render(Summary(t)))
	return err
}

// Summary describes a table in one line, e.g. "3 transactions, net 42.50".
func Summary(t model.Table) string {
	noun := "transactions"
	if t.Len() == 1 {
		noun = "transaction"
	}
	return fmt.Sprintf("%d %s, net %s", t.Len(), noun, t.Net().StringFixed(2))
}

func renderCSV(w io.Writer, t model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Values()); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

type jsonTable struct {
	Columns []string               `json:"columns"`
	Rows    []model.TransactionRow `json:"rows"`
	Count   int                    `json:"count"`
}

func renderJSON(w io.Writer, t model.Table) error {
	rows := t.Rows
	if rows == nil {
		rows = []model.TransactionRow{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonTable{Columns: t.Columns(), Rows: rows, Count: len(rows)})
}
