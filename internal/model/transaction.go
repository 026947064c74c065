// Package model defines the domain types shared across plaid-viewer.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single transaction as returned by the provider.
// Only the fields the application displays or stores are carried.
type Transaction struct {
	ID           string
	AccountID    string
	Date         string // YYYY-MM-DD, verbatim from the provider
	Name         string
	MerchantName string
	Currency     string
	Category     []string
	Amount       float64 // Provider sign convention: positive is money out
	Pending      bool
}

// TransactionPage is one page of a paginated transactions query.
type TransactionPage struct {
	Transactions []Transaction
	Total        int
}

// Row selects the display columns of a transaction.
func (t Transaction) Row() TransactionRow {
	category := make([]string, len(t.Category))
	copy(category, t.Category)

	return TransactionRow{
		Date:     t.Date,
		Name:     t.Name,
		Amount:   decimal.NewFromFloat(t.Amount),
		Category: category,
	}
}

// TransactionRow is the four-column view of a transaction.
type TransactionRow struct {
	Date     string          `json:"date"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Category []string        `json:"category"`
}

// Values returns the row's cells in column order.
func (r TransactionRow) Values() []string {
	return []string{
		r.Date,
		r.Name,
		r.Amount.StringFixed(2),
		strings.Join(r.Category, " > "),
	}
}

// ParsedDate parses the row date. The zero time is returned for malformed dates.
func (r TransactionRow) ParsedDate() time.Time {
	d, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return time.Time{}
	}
	return d
}
