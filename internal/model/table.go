package model

import "github.com/shopspring/decimal"

// Column names of a transaction table, in display order.
const (
	ColumnDate     = "date"
	ColumnName     = "name"
	ColumnAmount   = "amount"
	ColumnCategory = "category"
)

// Columns returns the fixed column set of a transaction table.
func Columns() []string {
	return []string{ColumnDate, ColumnName, ColumnAmount, ColumnCategory}
}

// Table is an ordered set of transaction rows.
type Table struct {
	Rows []TransactionRow
}

// NewTable builds a table from provider transactions, preserving order.
func NewTable(transactions []Transaction) Table {
	rows := make([]TransactionRow, 0, len(transactions))
	for _, t := range transactions {
		rows = append(rows, t.Row())
	}
	return Table{Rows: rows}
}

// Columns returns the table's column names.
func (t Table) Columns() []string {
	return Columns()
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Values returns every row as cells in column order.
func (t Table) Values() [][]string {
	values := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		values = append(values, r.Values())
	}
	return values
}

// Net sums the row amounts. Positive means more money went out than came in.
func (t Table) Net() decimal.Decimal {
	total := decimal.Zero
	for _, r := range t.Rows {
		total = total.Add(r.Amount)
	}
	return total
}

// OutsideWindow counts rows dated outside w. Rows with malformed dates count
// as outside.
func (t Table) OutsideWindow(w DateWindow) int {
	n := 0
	for _, r := range t.Rows {
		if !w.Contains(r.ParsedDate()) {
			n++
		}
	}
	return n
}
