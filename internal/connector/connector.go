// Package connector mediates all interaction with the financial-data provider.
//
// A Connector is stateless; the only mutable state, the access token, lives in
// a Session that callers pass into each operation. Every operation returns a
// Result and never a bare error, so user interfaces can always render something.
package connector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/plaid-viewer/internal/common"
	"github.com/Veraticus/plaid-viewer/internal/model"
	"github.com/Veraticus/plaid-viewer/internal/plaid"
	"github.com/google/uuid"
)

// ErrIncompletePage is returned when the provider stops returning transactions
// before the reported total has been retrieved.
var ErrIncompletePage = errors.New("provider returned an empty page before reaching the reported total")

// DefaultUserPrefix prefixes generated client user IDs.
const DefaultUserPrefix = "user"

// Connector exposes the link, exchange, and fetch operations.
type Connector struct {
	provider   plaid.Provider
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
	userPrefix string
}

// Option configures a Connector.
type Option func(*Connector)

// WithLogger sets the connector's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the time source used for user IDs and connection timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Connector) {
		if now != nil {
			c.now = now
		}
	}
}

// WithUserPrefix sets the prefix of generated client user IDs.
func WithUserPrefix(prefix string) Option {
	return func(c *Connector) {
		if prefix != "" {
			c.userPrefix = prefix
		}
	}
}

// New creates a connector over the given provider.
func New(provider plaid.Provider, opts ...Option) *Connector {
	c := &Connector{
		provider:   provider,
		logger:     slog.Default().With("component", "connector"),
		now:        time.Now,
		newID:      uuid.NewString,
		userPrefix: DefaultUserPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateLinkToken obtains a link token for the client-side widget.
// Each call uses a fresh client user ID.
func (c *Connector) CreateLinkToken(ctx context.Context) Result[string] {
	userID := c.clientUserID()

	token, err := c.provider.CreateLinkToken(ctx, userID)
	if err != nil {
		c.logger.Warn("Failed to create link token", "user_id", userID, "error", err)
		return failure[string](err)
	}

	c.logger.Info("Created link token", "user_id", userID)
	return success(token, MessageLinkTokenCreated)
}

// ExchangeToken trades a public token for an access token and stores it in
// the session. Surrounding whitespace is trimmed before the token is sent. On failure the session is left unchanged, including any token
// it already held. The result value is the linked item's ID.
func (c *Connector) ExchangeToken(ctx context.Context, session *Session, publicToken string) Result[string] {
	if session == nil {
		return failure[string](fmt.Errorf("%w: session is required", common.ErrInvalidInput))
	}
	publicToken = strings.TrimSpace(publicToken)
	if publicToken == "" {
		return failure[string](fmt.Errorf("%w: public token is required", common.ErrInvalidInput))
	}

	item, err := c.provider.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		c.logger.Warn("Failed to exchange public token",
			"error", err,
			"kept_previous_token", session.Connected())
		return failure[string](err)
	}
	if item.AccessToken == "" {
		return failure[string](fmt.Errorf("%w: provider returned an empty access token", common.ErrProviderCall))
	}

	session.Connect(item.AccessToken, item.ItemID, c.now())

	c.logger.Info("Connected account", "item_id", item.ItemID)
	return success(item.ItemID, MessageConnected)
}

// PageObserver is notified after each page of a transactions fetch.
type PageObserver func(offset, received, total int)

type fetchOptions struct {
	observer PageObserver
	onDone   func([]model.Transaction)
}

// FetchOption configures a single FetchTransactions call.
type FetchOption func(*fetchOptions)

// WithPageObserver reports pagination progress to fn.
func WithPageObserver(fn PageObserver) FetchOption {
	return func(o *fetchOptions) {
		o.observer = fn
	}
}

// WithTransactions hands fn the full provider records after a successful
// fetch, for callers that need more than the display columns.
func WithTransactions(fn func([]model.Transaction)) FetchOption {
	return func(o *fetchOptions) {
		o.onDone = fn
	}
}

// FetchTransactions retrieves every transaction in the window, following the
// provider's offset pagination until total_transactions rows are accumulated.
//
// Without an access token it returns the not-connected outcome and makes no
// provider call. A failure on any page discards the pages already fetched.
func (c *Connector) FetchTransactions(ctx context.Context, session *Session, window model.DateWindow, opts ...FetchOption) Result[model.Table] {
	if session == nil || !session.Connected() {
		return Result[model.Table]{
			Value:   model.Table{Rows: []model.TransactionRow{}},
			Outcome: OutcomeNotConnected,
			Message: MessageNotConnected,
			Err:     common.ErrNotConnected,
		}
	}

	if err := window.Validate(); err != nil {
		return emptyFailure(fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}

	var options fetchOptions
	for _, opt := range opts {
		opt(&options)
	}

	accessToken := session.AccessToken()
	start := c.now()

	var all []model.Transaction
	pages := 0
	for {
		offset := len(all)
		page, err := c.provider.GetTransactionsPage(ctx, accessToken, window, offset)
		if err != nil {
			c.logger.Warn("Transaction fetch failed",
				"offset", offset,
				"pages", pages,
				"discarded", len(all),
				"error", err)
			return emptyFailure(err)
		}
		pages++

		all = append(all, page.Transactions...)
		if options.observer != nil {
			options.observer(offset, len(page.Transactions), page.Total)
		}

		if len(all) >= page.Total {
			break
		}
		if len(page.Transactions) == 0 {
			err := fmt.Errorf("%w: %w (offset %d, total %d)", common.ErrProviderCall, ErrIncompletePage, offset, page.Total)
			c.logger.Warn("Transaction fetch stalled", "offset", offset, "total", page.Total)
			return emptyFailure(err)
		}
	}

	c.logger.Info("Fetched transactions",
		"count", len(all),
		"pages", pages,
		"window", window.String(),
		"duration", c.now().Sub(start))

	table := model.NewTable(all)
	if outside := table.OutsideWindow(window); outside > 0 {
		c.logger.Warn("Provider returned transactions outside the requested window",
			"count", outside,
			"window", window.String())
	}

	if options.onDone != nil {
		options.onDone(all)
	}

	return success(table, MessageTransactionsRetrieved)
}

// Disconnect drops the session's access token.
func (c *Connector) Disconnect(session *Session) Result[struct{}] {
	if session != nil && session.Connected() {
		c.logger.Info("Disconnected account", "item_id", session.ItemID())
		session.Disconnect()
	}
	return success(struct{}{}, MessageDisconnected)
}

func (c *Connector) clientUserID() string {
	suffix := strings.ReplaceAll(c.newID(), "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%s-%d-%s", c.userPrefix, c.now().UnixNano(), suffix)
}

func emptyFailure(err error) Result[model.Table] {
	r := failure[model.Table](err)
	r.Value = model.Table{Rows: []model.TransactionRow{}}
	return r
}
