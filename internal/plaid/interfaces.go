package plaid

import (
	"context"

	"github.com/Veraticus/plaid-viewer/internal/model"
)

// Provider defines the contract for the external financial-data provider.
// This interface allows for easy mocking in tests.
type Provider interface {
	// CreateLinkToken returns an opaque token used to initialize the Link widget.
	CreateLinkToken(ctx context.Context, userID string) (string, error)
	// ExchangePublicToken trades a Link public token for a long-lived access token.
	ExchangePublicToken(ctx context.Context, publicToken string) (Item, error)
	// GetTransactionsPage returns one page of transactions starting at offset.
	GetTransactionsPage(ctx context.Context, accessToken string, window model.DateWindow, offset int) (model.TransactionPage, error)
}

// Item is the result of a public token exchange.
type Item struct {
	AccessToken string
	ItemID      string
}
