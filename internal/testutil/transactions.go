package testutil

import (
	"fmt"

	"github.com/Veraticus/plaid-viewer/internal/model"
)

// TransactionBuilder builds provider transactions with predictable values.
type TransactionBuilder struct {
	date     string
	account  string
	category []string
	txns     []model.Transaction
}

// NewTransactionBuilder starts a builder dated 2024-04-01 on account "acc-1".
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		date:     "2024-04-01",
		account:  "acc-1",
		category: []string{"Shops"},
	}
}

// OnDate sets the date of transactions added afterwards.
func (b *TransactionBuilder) OnDate(date string) *TransactionBuilder {
	b.date = date
	return b
}

// InCategory sets the category path of transactions added afterwards.
func (b *TransactionBuilder) InCategory(path ...string) *TransactionBuilder {
	b.category = path
	return b
}

// Add appends n generated transactions named "Merchant <i>" with amount i+0.25.
func (b *TransactionBuilder) Add(n int) *TransactionBuilder {
	for range n {
		i := len(b.txns)
		b.With(fmt.Sprintf("Merchant %d", i), float64(i)+0.25)
	}
	return b
}

// With appends a single transaction with the given name and amount.
func (b *TransactionBuilder) With(name string, amount float64) *TransactionBuilder {
	category := make([]string, len(b.category))
	copy(category, b.category)

	b.txns = append(b.txns, model.Transaction{
		ID:        fmt.Sprintf("tx-%03d", len(b.txns)),
		AccountID: b.account,
		Date:      b.date,
		Name:      name,
		Currency:  "USD",
		Category:  category,
		Amount:    amount,
	})
	return b
}

// Build returns the accumulated transactions.
func (b *TransactionBuilder) Build() []model.Transaction {
	out := make([]model.Transaction, len(b.txns))
	copy(out, b.txns)
	return out
}
