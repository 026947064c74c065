// Package plaid provides a client for interacting with the Plaid API.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Veraticus/plaid-viewer/internal/common"
	"github.com/Veraticus/plaid-viewer/internal/model"
	"github.com/plaid/plaid-go/v20/plaid"
)

// Supported Plaid environments.
const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"
)

// Page size limits for /transactions/get.
const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

// DefaultSandboxInstitution is Plaid's "First Platypus Bank" test institution.
const DefaultSandboxInstitution = "ins_109508"

// Config holds Plaid API configuration.
type Config struct {
	HTTPClient   *http.Client
	ClientID     string
	Secret       string
	Environment  string // sandbox or production
	BaseURL      string // overrides Environment when set
	ClientName   string
	Language     string
	RedirectURI  string
	CountryCodes []string
	Products     []string
	Retry        common.RetryOptions
	PageSize     int
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: plaid client ID is required", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: plaid secret is required", common.ErrMissingConfig)
	}
	if c.BaseURL != "" {
		return c.validatePageSize()
	}
	if c.Environment == "" {
		return fmt.Errorf("%w: plaid environment is required", common.ErrMissingConfig)
	}

	validEnvs := map[string]bool{
		EnvironmentSandbox:    true,
		EnvironmentProduction: true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("%w: invalid Plaid environment %q: must be sandbox or production", common.ErrInvalidConfig, c.Environment)
	}

	return c.validatePageSize()
}

func (c *Config) validatePageSize() error {
	if c.PageSize < 0 || c.PageSize > MaxPageSize {
		return fmt.Errorf("%w: page size must be between 1 and %d, got %d", common.ErrInvalidConfig, MaxPageSize, c.PageSize)
	}
	return nil
}

// Client implements Provider against the Plaid API.
type Client struct {
	client       *plaid.APIClient
	logger       *slog.Logger
	environment  string
	clientName   string
	language     string
	redirectURI  string
	countryCodes []plaid.CountryCode
	products     []plaid.Products
	retryOpts    common.RetryOptions
	pageSize     int32
}

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)
	if cfg.HTTPClient != nil {
		configuration.HTTPClient = cfg.HTTPClient
	}

	switch {
	case cfg.BaseURL != "":
		configuration.UseEnvironment(plaid.Environment(strings.TrimSuffix(cfg.BaseURL, "/")))
	case cfg.Environment == EnvironmentProduction:
		configuration.UseEnvironment(plaid.Production)
	default:
		configuration.UseEnvironment(plaid.Sandbox)
	}

	c := &Client{
		client:       plaid.NewAPIClient(configuration),
		logger:       slog.Default().With("component", "plaid"),
		environment:  cfg.Environment,
		clientName:   cfg.ClientName,
		language:     cfg.Language,
		redirectURI:  cfg.RedirectURI,
		countryCodes: []plaid.CountryCode{plaid.COUNTRYCODE_US},
		products:     []plaid.Products{plaid.PRODUCTS_TRANSACTIONS},
		retryOpts:    cfg.Retry,
		pageSize:     DefaultPageSize,
	}

	if c.clientName == "" {
		c.clientName = "Plaid Viewer"
	}
	if c.language == "" {
		c.language = "en"
	}
	if len(cfg.CountryCodes) > 0 {
		c.countryCodes = make([]plaid.CountryCode, 0, len(cfg.CountryCodes))
		for _, code := range cfg.CountryCodes {
			c.countryCodes = append(c.countryCodes, plaid.CountryCode(strings.ToUpper(code)))
		}
	}
	if len(cfg.Products) > 0 {
		c.products = make([]plaid.Products, 0, len(cfg.Products))
		for _, p := range cfg.Products {
			c.products = append(c.products, plaid.Products(strings.ToLower(p)))
		}
	}
	if cfg.PageSize > 0 {
		c.pageSize = int32(cfg.PageSize) //nolint:gosec // bounded by MaxPageSize
	}

	return c, nil
}

// CreateLinkToken creates a Link token for Plaid Link initialization.
func (c *Client) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("%w: client user ID is required", common.ErrInvalidInput)
	}

	user := plaid.LinkTokenCreateRequestUser{
		ClientUserId: userID,
	}

	request := plaid.NewLinkTokenCreateRequest(
		c.clientName,
		c.language,
		c.countryCodes,
		user,
	)
	request.SetProducts(c.products)

	// OAuth banks require a redirect URI registered in the Plaid dashboard
	if c.redirectURI != "" {
		request.SetRedirectUri(c.redirectURI)
	}

	var linkToken string
	err := common.WithRetry(ctx, func() error {
		resp, _, err := c.client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*request).Execute()
		if err != nil {
			return wrapError(err, "create link token")
		}
		linkToken = resp.GetLinkToken()
		return nil
	}, c.retryOpts)
	if err != nil {
		return "", err
	}

	c.logger.Debug("Created link token", "user_id", userID)
	return linkToken, nil
}

// ExchangePublicToken exchanges a public token from Link for an access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (Item, error) {
	if strings.TrimSpace(publicToken) == "" {
		return Item{}, fmt.Errorf("%w: public token is required", common.ErrInvalidInput)
	}

	request := plaid.NewItemPublicTokenExchangeRequest(publicToken)

	var item Item
	err := common.WithRetry(ctx, func() error {
		resp, _, err := c.client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*request).Execute()
		if err != nil {
			return wrapError(err, "exchange public token")
		}
		item = Item{
			AccessToken: resp.GetAccessToken(),
			ItemID:      resp.GetItemId(),
		}
		return nil
	}, c.retryOpts)
	if err != nil {
		return Item{}, err
	}

	c.logger.Info("Exchanged public token", "item_id", item.ItemID)
	return item, nil
}

// GetTransactionsPage fetches one page of transactions within the window.
func (c *Client) GetTransactionsPage(ctx context.Context, accessToken string, window model.DateWindow, offset int) (model.TransactionPage, error) {
	if ctx == nil {
		return model.TransactionPage{}, fmt.Errorf("%w: context cannot be nil", common.ErrInvalidInput)
	}
	if accessToken == "" {
		return model.TransactionPage{}, fmt.Errorf("%w: access token is required", common.ErrInvalidInput)
	}
	if offset < 0 {
		return model.TransactionPage{}, fmt.Errorf("%w: offset must be non-negative, got %d", common.ErrInvalidInput, offset)
	}
	if err := window.Validate(); err != nil {
		return model.TransactionPage{}, fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}

	request := plaid.NewTransactionsGetRequest(
		accessToken,
		window.StartDate(),
		window.EndDate(),
	)
	request.SetOptions(plaid.TransactionsGetRequestOptions{
		Count:  plaid.PtrInt32(c.pageSize),
		Offset: plaid.PtrInt32(int32(offset)), //nolint:gosec // offsets are bounded by total_transactions
	})

	var page model.TransactionPage
	err := common.WithRetry(ctx, func() error {
		resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
		if err != nil {
			if providerErr := extractPlaidError(err); providerErr != nil && providerErr.RateLimited() {
				c.logger.Warn("Rate limit hit", "error", providerErr.Message)
			}
			return wrapError(err, "fetch transactions")
		}

		plaidTransactions := resp.GetTransactions()
		transactions := make([]model.Transaction, 0, len(plaidTransactions))
		for _, pt := range plaidTransactions {
			transactions = append(transactions, mapPlaidTransaction(pt))
		}

		page = model.TransactionPage{
			Transactions: transactions,
			Total:        int(resp.GetTotalTransactions()),
		}
		return nil
	}, c.retryOpts)
	if err != nil {
		return model.TransactionPage{}, err
	}

	c.logger.Debug("Fetched transaction page",
		"count", len(page.Transactions),
		"offset", offset,
		"total", page.Total,
		"window", window.String())

	return page, nil
}

// CreateSandboxPublicToken creates a public token for a test institution
// without going through Link. Only available in the sandbox environment.
func (c *Client) CreateSandboxPublicToken(ctx context.Context, institutionID string) (string, error) {
	if c.environment == EnvironmentProduction {
		return "", fmt.Errorf("%w: sandbox public tokens are not available in production", common.ErrInvalidInput)
	}
	if institutionID == "" {
		institutionID = DefaultSandboxInstitution
	}

	request := plaid.NewSandboxPublicTokenCreateRequest(institutionID, c.products)

	var publicToken string
	err := common.WithRetry(ctx, func() error {
		resp, _, err := c.client.PlaidApi.SandboxPublicTokenCreate(ctx).SandboxPublicTokenCreateRequest(*request).Execute()
		if err != nil {
			return wrapError(err, "create sandbox public token")
		}
		publicToken = resp.GetPublicToken()
		return nil
	}, c.retryOpts)
	if err != nil {
		return "", err
	}

	c.logger.Info("Created sandbox public token", "institution_id", institutionID)
	return publicToken, nil
}

// mapPlaidTransaction converts a Plaid transaction to our internal model.
// Fields are copied verbatim.
func mapPlaidTransaction(pt plaid.Transaction) model.Transaction {
	return model.Transaction{
		ID:           pt.GetTransactionId(),
		AccountID:    pt.GetAccountId(),
		Date:         pt.GetDate(),
		Name:         pt.GetName(),
		MerchantName: pt.GetMerchantName(),
		Currency:     pt.GetIsoCurrencyCode(),
		Category:     pt.GetCategory(),
		Amount:       pt.GetAmount(),
		Pending:      pt.GetPending(),
	}
}

// Ensure Client implements Provider interface.
var _ Provider = (*Client)(nil)
