package connector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Veraticus/plaid-viewer/internal/common"
	"github.com/Veraticus/plaid-viewer/internal/model"
	"github.com/Veraticus/plaid-viewer/internal/plaid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

func newTestConnector(provider plaid.Provider) *Connector {
	return New(provider,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func makeTransactions(n int) []model.Transaction {
	txs := make([]model.Transaction, n)
	for i := range txs {
		txs[i] = model.Transaction{
			ID:           fmt.Sprintf("tx-%03d", i),
			AccountID:    "acc-1",
			Date:         "2024-04-01",
			Name:         fmt.Sprintf("Merchant %d", i),
			MerchantName: "ignored",
			Currency:     "USD",
			Category:     []string{"Shops"},
			Amount:       float64(i) + 0.25,
		}
	}
	return txs
}

func connectedSession() *Session {
	s := NewSession()
	s.Connect("access-sandbox-xyz", "item-1", fixedNow)
	return s
}

func TestConnector_CreateLinkToken(t *testing.T) {
	mock := plaid.NewMockClient()
	mock.CreateLinkTokenFn = func(_ context.Context, _ string) (string, error) {
		return "link-sandbox-123", nil
	}
	c := newTestConnector(mock)

	first := c.CreateLinkToken(context.Background())
	second := c.CreateLinkToken(context.Background())

	require.True(t, first.OK())
	assert.Equal(t, "link-sandbox-123", first.Value)
	assert.Equal(t, MessageLinkTokenCreated, first.Display())

	// Same clock reading, yet user IDs differ.
	require.Len(t, mock.CreateLinkTokenCalls, 2)
	assert.NotEqual(t, mock.CreateLinkTokenCalls[0], mock.CreateLinkTokenCalls[1])
	assert.Contains(t, mock.CreateLinkTokenCalls[0], fmt.Sprintf("user-%d-", fixedNow.UnixNano()))
	assert.True(t, second.OK())
}

func TestConnector_CreateLinkToken_UserPrefix(t *testing.T) {
	mock := plaid.NewMockClient()
	c := New(mock, WithUserPrefix("viewer"))

	c.CreateLinkToken(context.Background())
	require.Len(t, mock.CreateLinkTokenCalls, 1)
	assert.Regexp(t, `^viewer-\d+-[0-9a-f]{8}$`, mock.CreateLinkTokenCalls[0])
}

func TestConnector_CreateLinkToken_ProviderError(t *testing.T) {
	mock := plaid.NewMockClient()
	mock.CreateLinkTokenFn = func(_ context.Context, _ string) (string, error) {
		return "", &plaid.ProviderError{Code: "INVALID_API_KEYS", Message: "invalid client_id or secret provided"}
	}
	c := newTestConnector(mock)

	result := c.CreateLinkToken(context.Background())
	assert.False(t, result.OK())
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Empty(t, result.Value)
	assert.Equal(t, "Error: plaid API error: INVALID_API_KEYS - invalid client_id or secret provided", result.Display())
	assert.True(t, result.Is(common.ErrProviderCall))
}

func TestConnector_ExchangeToken(t *testing.T) {
	mock := plaid.NewMockClient()
	mock.ExchangePublicTokenFn = func(_ context.Context, publicToken string) (plaid.Item, error) {
		assert.Equal(t, "public-sandbox-abc", publicToken)
		return plaid.Item{AccessToken: "access-sandbox-xyz", ItemID: "item-1"}, nil
	}
	c := newTestConnector(mock)
	session := NewSession()

	result := c.ExchangeToken(context.Background(), session, "public-sandbox-abc")

	require.True(t, result.OK())
	assert.Equal(t, "Successfully connected account!", result.Display())
	assert.Equal(t, "item-1", result.Value)
	assert.Equal(t, "access-sandbox-xyz", session.AccessToken())
	assert.Equal(t, "item-1", session.ItemID())
	assert.Equal(t, fixedNow, session.ConnectedAt())
	assert.True(t, session.Connected())
}

func TestConnector_ExchangeToken_FailureKeepsPreviousToken(t *testing.T) {
	mock := plaid.NewMockClient()
	mock.ExchangePublicTokenFn = func(_ context.Context, _ string) (plaid.Item, error) {
		return plaid.Item{}, &plaid.ProviderError{Code: "INVALID_PUBLIC_TOKEN", Message: "expired"}
	}
	c := newTestConnector(mock)
	session := connectedSession()

	result := c.ExchangeToken(context.Background(), session, "public-expired")

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, "Error: plaid API error: INVALID_PUBLIC_TOKEN - expired", result.Display())
	assert.Equal(t, "access-sandbox-xyz", session.AccessToken())
}

func TestConnector_ExchangeToken_InvalidInput(t *testing.T) {
	tests := []struct {
		session     *Session
		name        string
		publicToken string
	}{
		{name: "empty token", session: NewSession(), publicToken: ""},
		{name: "whitespace token", session: NewSession(), publicToken: "   "},
		{name: "nil session", session: nil, publicToken: "public-sandbox-abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := plaid.NewMockClient()
			c := newTestConnector(mock)

			result := c.ExchangeToken(context.Background(), tt.session, tt.publicToken)
			assert.Equal(t, OutcomeFailed, result.Outcome)
			assert.True(t, result.Is(common.ErrInvalidInput))
			assert.Contains(t, result.Display(), "Error: ")
			assert.Empty(t, mock.ExchangePublicTokenCalls)
		})
	}
}

func TestConnector_ExchangeToken_TrimsPublicToken(t *testing.T) {
	mock := plaid.NewMockClient()
	c := newTestConnector(mock)
	session := NewSession()

	result := c.ExchangeToken(context.Background(), session, "  public-sandbox-abc\n")

	require.True(t, result.OK())
	assert.Equal(t, []string{"public-sandbox-abc"}, mock.ExchangePublicTokenCalls)
	assert.Equal(t, "access-sandbox-mock", session.AccessToken())
}

func TestConnector_ExchangeToken_EmptyAccessToken(t *testing.T) {
	mock := plaid.NewMockClient()
	mock.ExchangePublicTokenFn = func(_ context.Context, _ string) (plaid.Item, error) {
		return plaid.Item{ItemID: "item-1"}, nil
	}
	c := newTestConnector(mock)
	session := NewSession()

	result := c.ExchangeToken(context.Background(), session, "public-sandbox-abc")
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.False(t, session.Connected())
}

func TestConnector_FetchTransactions_NotConnected(t *testing.T) {
	mock := plaid.NewMockClient()
	c := newTestConnector(mock)

	// Link tokens do not connect a session.
	c.CreateLinkToken(context.Background())
	c.CreateLinkToken(context.Background())

	for _, session := range []*Session{NewSession(), nil} {
		result := c.FetchTransactions(context.Background(), session, model.DefaultDateWindow())

		assert.Equal(t, OutcomeNotConnected, result.Outcome)
		assert.Equal(t, "Please connect an account first", result.Display())
		assert.True(t, result.Value.Empty())
		assert.True(t, result.Is(common.ErrNotConnected))
	}
	assert.Equal(t, 0, mock.PageCalls())
}

func TestConnector_FetchTransactions_Pagination(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		pageSize  int
		wantCalls int
	}{
		{name: "no transactions", total: 0, pageSize: 100, wantCalls: 1},
		{name: "single partial page", total: 7, pageSize: 100, wantCalls: 1},
		{name: "exact pages", total: 10, pageSize: 5, wantCalls: 2},
		{name: "trailing partial page", total: 11, pageSize: 5, wantCalls: 3},
		{name: "one per page", total: 4, pageSize: 1, wantCalls: 4},
		{name: "provider maximum", total: 1234, pageSize: 500, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			all := makeTransactions(tt.total)
			mock := plaid.NewMockClient()
			mock.GetTransactionsPageFn = plaid.PagedTransactions(all, tt.pageSize)
			c := newTestConnector(mock)

			result := c.FetchTransactions(context.Background(), connectedSession(), model.DefaultDateWindow())

			require.True(t, result.OK(), result.Display())
			assert.Equal(t, MessageTransactionsRetrieved, result.Display())
			assert.Equal(t, tt.wantCalls, mock.PageCalls())
			assert.Equal(t, tt.total, result.Value.Len())

			for i, call := range mock.GetTransactionsPageCalls {
				assert.Equal(t, i*tt.pageSize, call.Offset)
				assert.Equal(t, "access-sandbox-xyz", call.AccessToken)
				assert.Equal(t, model.DefaultDateWindow(), call.Window)
			}
			for i, row := range result.Value.Rows {
				assert.Equal(t, all[i].Name, row.Name)
			}
		})
	}
}

func TestConnector_FetchTransactions_UnevenPages(t *testing.T) {
	// The provider may return fewer rows than requested; the next offset
	// is always the number already retrieved.
	sizes := []int{3, 1, 2}
	all := makeTransactions(6)
	mock := plaid.NewMockClient()
	call := 0
	mock.GetTransactionsPageFn = func(_ context.Context, _ string, _ model.DateWindow, offset int) (model.TransactionPage, error) {
		size := sizes[call]
		call++
		return model.TransactionPage{Transactions: all[offset : offset+size], Total: len(all)}, nil
	}
	c := newTestConnector(mock)

	result := c.FetchTransactions(context.Background(), connectedSession(), model.DefaultDateWindow())

	require.True(t, result.OK())
	assert.Equal(t, 6, result.Value.Len())
	offsets := make([]int, 0, len(mock.GetTransactionsPageCalls))
	for _, p := range mock.GetTransactionsPageCalls {
		offsets = append(offsets, p.Offset)
	}
	assert.Equal(t, []int{0, 3, 4}, offsets)
}

func TestConnector_FetchTransactions_Columns(t *testing.T) {
	mock := plaid.NewMockClient()
	mock.GetTransactionsPageFn = plaid.PagedTransactions(makeTransactions(3), 2)
	c := newTestConnector(mock)

	result := c.FetchTransactions(context.Background(), connectedSession(), model.DefaultDateWindow())

	require.True(t, result.OK())
	assert.Equal(t, []string{"date", "name", "amount", "category"}, result.Value.Columns())
	assert.Equal(t, []string{"2024-04-01", "Merchant 1", "1.25", "Shops"}, result.Value.Rows[1].Values())
}

func TestConnector_FetchTransactions_ErrorDiscardsPartialPages(t *testing.T) {
	all := makeTransactions(10)
	mock := plaid.NewMockClient()
	pages := plaid.PagedTransactions(all, 5)
	mock.GetTransactionsPageFn = func(ctx context.Context, token string, w model.DateWindow, offset int) (model.TransactionPage, error) {
		if offset > 0 {
			return model.TransactionPage{}, &plaid.ProviderError{Code: "INTERNAL_SERVER_ERROR", Message: "boom"}
		}
		return pages(ctx, token, w, offset)
	}
	c := newTestConnector(mock)

	result := c.FetchTransactions(context.Background(), connectedSession(), model.DefaultDateWindow())

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.True(t, result.Value.Empty())
	assert.NotNil(t, result.Value.Rows)
	assert.Equal(t, "Error: plaid API error: INTERNAL_SERVER_ERROR - boom", result.Display())
	assert.Equal(t, 2, mock.PageCalls())
}

func TestConnector_FetchTransactions_StalledPagination(t *testing.T) {
	mock := plaid.NewMockClient()
	mock.GetTransactionsPageFn = func(_ context.Context, _ string, _ model.DateWindow, offset int) (model.TransactionPage, error) {
		if offset == 0 {
			return model.TransactionPage{Transactions: makeTransactions(2), Total: 5}, nil
		}
		return model.TransactionPage{Total: 5}, nil
	}
	c := newTestConnector(mock)

	result := c.FetchTransactions(context.Background(), connectedSession(), model.DefaultDateWindow())

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.True(t, result.Is(ErrIncompletePage))
	assert.True(t, result.Is(common.ErrProviderCall))
	assert.True(t, result.Value.Empty())
	assert.Equal(t, 2, mock.PageCalls())
}

func TestConnector_FetchTransactions_InvalidWindow(t *testing.T) {
	mock := plaid.NewMockClient()
	c := newTestConnector(mock)
	w := model.DefaultDateWindow()

	result := c.FetchTransactions(context.Background(), connectedSession(), model.DateWindow{Start: w.End, End: w.Start})

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.True(t, result.Is(common.ErrInvalidInput))
	assert.Equal(t, 0, mock.PageCalls())
}

func TestConnector_FetchTransactions_PageObserver(t *testing.T) {
	mock := plaid.NewMockClient()
	mock.GetTransactionsPageFn = plaid.PagedTransactions(makeTransactions(5), 2)
	c := newTestConnector(mock)

	type progress struct{ offset, received, total int }
	var seen []progress
	result := c.FetchTransactions(context.Background(), connectedSession(), model.DefaultDateWindow(),
		WithPageObserver(func(offset, received, total int) {
			seen = append(seen, progress{offset, received, total})
		}))

	require.True(t, result.OK())
	assert.Equal(t, []progress{{0, 2, 5}, {2, 2, 5}, {4, 1, 5}}, seen)
}

func TestConnector_FetchTransactions_WithTransactions(t *testing.T) {
	all := makeTransactions(3)
	mock := plaid.NewMockClient()
	mock.GetTransactionsPageFn = plaid.PagedTransactions(all, 2)
	c := newTestConnector(mock)

	var got []model.Transaction
	result := c.FetchTransactions(context.Background(), connectedSession(), model.DefaultDateWindow(),
		WithTransactions(func(txs []model.Transaction) { got = txs }))

	require.True(t, result.OK())
	assert.Equal(t, all, got)

	got = nil
	mock.GetTransactionsPageFn = func(context.Context, string, model.DateWindow, int) (model.TransactionPage, error) {
		return model.TransactionPage{}, common.ErrProviderCall
	}
	result = c.FetchTransactions(context.Background(), connectedSession(), model.DefaultDateWindow(),
		WithTransactions(func(txs []model.Transaction) { got = txs }))

	assert.False(t, result.OK())
	assert.Nil(t, got)
}

func TestConnector_FetchTransactions_OutsideWindow(t *testing.T) {
	all := makeTransactions(3)
	all[2].Date = "2023-12-31"
	mock := plaid.NewMockClient()
	mock.GetTransactionsPageFn = plaid.PagedTransactions(all, 10)

	var logs bytes.Buffer
	c := New(mock, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	result := c.FetchTransactions(context.Background(), connectedSession(), model.DefaultDateWindow())

	require.True(t, result.OK())
	require.Equal(t, 3, result.Value.Len())
	assert.Equal(t, "2023-12-31", result.Value.Rows[2].Date)
	assert.Contains(t, logs.String(), "outside the requested window")
	assert.Contains(t, logs.String(), "count=1")
}

func TestConnector_FetchTransactions_ContextCanceled(t *testing.T) {
	mock := plaid.NewMockClient()
	mock.GetTransactionsPageFn = func(ctx context.Context, _ string, _ model.DateWindow, _ int) (model.TransactionPage, error) {
		return model.TransactionPage{}, fmt.Errorf("%w: %w", common.ErrProviderCall, ctx.Err())
	}
	c := newTestConnector(mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := c.FetchTransactions(ctx, connectedSession(), model.DefaultDateWindow())
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.True(t, errors.Is(result.Err, context.Canceled))
}

func TestConnector_Scenario(t *testing.T) {
	mock := plaid.NewMockClient()
	mock.ExchangePublicTokenFn = func(_ context.Context, _ string) (plaid.Item, error) {
		return plaid.Item{AccessToken: "access-sandbox-xyz", ItemID: "item-1"}, nil
	}
	mock.GetTransactionsPageFn = plaid.PagedTransactions(makeTransactions(3), 100)
	c := newTestConnector(mock)
	session := NewSession()

	before := c.FetchTransactions(context.Background(), session, model.DefaultDateWindow())
	assert.Equal(t, OutcomeNotConnected, before.Outcome)

	link := c.CreateLinkToken(context.Background())
	require.True(t, link.OK())

	exchange := c.ExchangeToken(context.Background(), session, "public-sandbox-abc")
	require.True(t, exchange.OK())

	after := c.FetchTransactions(context.Background(), session, model.DefaultDateWindow())
	require.True(t, after.OK())
	assert.Equal(t, 3, after.Value.Len())

	disconnect := c.Disconnect(session)
	assert.True(t, disconnect.OK())
	assert.False(t, session.Connected())

	again := c.FetchTransactions(context.Background(), session, model.DefaultDateWindow())
	assert.Equal(t, OutcomeNotConnected, again.Outcome)
	assert.Equal(t, 1, mock.PageCalls())
}
