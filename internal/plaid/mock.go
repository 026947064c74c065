package plaid

import (
	"context"
	"sync"

	"github.com/Veraticus/plaid-viewer/internal/model"
)

// MockClient is a mock implementation of Provider for testing.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	CreateLinkTokenFn     func(ctx context.Context, userID string) (string, error)
	ExchangePublicTokenFn func(ctx context.Context, publicToken string) (Item, error)
	GetTransactionsPageFn func(ctx context.Context, accessToken string, window model.DateWindow, offset int) (model.TransactionPage, error)

	// Call tracking
	CreateLinkTokenCalls     []string
	ExchangePublicTokenCalls []string
	GetTransactionsPageCalls []GetTransactionsPageCall

	mu sync.Mutex
}

// GetTransactionsPageCall records the parameters of a GetTransactionsPage call.
type GetTransactionsPageCall struct {
	Window      model.DateWindow
	AccessToken string
	Offset      int
}

// NewMockClient creates a new mock Plaid client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// CreateLinkToken implements Provider.CreateLinkToken.
func (m *MockClient) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	m.CreateLinkTokenCalls = append(m.CreateLinkTokenCalls, userID)
	m.mu.Unlock()

	if m.CreateLinkTokenFn != nil {
		return m.CreateLinkTokenFn(ctx, userID)
	}
	return "link-sandbox-mock", nil
}

// ExchangePublicToken implements Provider.ExchangePublicToken.
func (m *MockClient) ExchangePublicToken(ctx context.Context, publicToken string) (Item, error) {
	m.mu.Lock()
	m.ExchangePublicTokenCalls = append(m.ExchangePublicTokenCalls, publicToken)
	m.mu.Unlock()

	if m.ExchangePublicTokenFn != nil {
		return m.ExchangePublicTokenFn(ctx, publicToken)
	}
	return Item{AccessToken: "access-sandbox-mock", ItemID: "item-mock"}, nil
}

// GetTransactionsPage implements Provider.GetTransactionsPage.
func (m *MockClient) GetTransactionsPage(ctx context.Context, accessToken string, window model.DateWindow, offset int) (model.TransactionPage, error) {
	m.mu.Lock()
	m.GetTransactionsPageCalls = append(m.GetTransactionsPageCalls, GetTransactionsPageCall{
		AccessToken: accessToken,
		Window:      window,
		Offset:      offset,
	})
	m.mu.Unlock()

	if m.GetTransactionsPageFn != nil {
		return m.GetTransactionsPageFn(ctx, accessToken, window, offset)
	}

	// Default behavior: no transactions
	return model.TransactionPage{}, nil
}

// PageCalls returns the number of GetTransactionsPage calls made so far.
func (m *MockClient) PageCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GetTransactionsPageCalls)
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateLinkTokenCalls = nil
	m.ExchangePublicTokenCalls = nil
	m.GetTransactionsPageCalls = nil
}

// PagedTransactions returns a GetTransactionsPageFn serving the given
// transactions in pages of pageSize, reporting len(all) as the total.
func PagedTransactions(all []model.Transaction, pageSize int) func(context.Context, string, model.DateWindow, int) (model.TransactionPage, error) {
	return func(_ context.Context, _ string, _ model.DateWindow, offset int) (model.TransactionPage, error) {
		end := offset + pageSize
		if end > len(all) {
			end = len(all)
		}
		if offset > end {
			offset = end
		}
		page := make([]model.Transaction, end-offset)
		copy(page, all[offset:end])
		return model.TransactionPage{Transactions: page, Total: len(all)}, nil
	}
}

// Ensure MockClient implements Provider interface.
var _ Provider = (*MockClient)(nil)
