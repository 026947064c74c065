package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/plaid-viewer/internal/connector"
	"github.com/Veraticus/plaid-viewer/internal/model"
	"github.com/Veraticus/plaid-viewer/internal/plaid"
	"github.com/Veraticus/plaid-viewer/internal/session"
	"github.com/Veraticus/plaid-viewer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type testEnv struct {
	mock   *plaid.MockClient
	server *Server
	ts     *httptest.Server
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	mock := plaid.NewMockClient()
	conn := connector.New(mock, connector.WithLogger(discard))
	srv, err := NewServer("127.0.0.1:0", conn, session.NewStore(time.Hour), append([]Option{WithLogger(discard)}, opts...)...)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{mock: mock, server: srv, ts: ts}
}

// browser returns a client with its own cookie jar, i.e. its own session.
func (e *testEnv) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func do(t *testing.T, c *http.Client, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func TestNewServer_RequiresConnector(t *testing.T) {
	_, err := NewServer(":0", nil, nil)
	require.Error(t, err)
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, WithEnvironment("sandbox"))

	resp, err := env.browser(t).Get(env.ts.URL + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "https://cdn.plaid.com")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	page := string(body)
	for _, want := range []string{
		"https://cdn.plaid.com/link/v2/stable/link-initialize.js",
		"Get Link Token",
		"Connect Account",
		"Refresh Transactions",
		`id="link-status"`,
		`<input id="link-token" type="text" readonly`,
		`id="transactions-status"`,
		"<th>date</th><th>name</th><th>amount</th><th>category</th>",
		"2024-03-01..2024-04-10",
		"Not connected",
	} {
		assert.Contains(t, page, want)
	}

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
}

func TestIndex_UnknownPath(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.browser(t).Get(env.ts.URL + "/nope")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/static/app.js", "/static/style.css"} {
		resp, err := env.browser(t).Get(env.ts.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))
	}
}

func TestAppScript_ShowsLinkToken(t *testing.T) {
	script, err := StaticFS.ReadFile("static/app.js")
	require.NoError(t, err)
	assert.Contains(t, string(script), "$('link-token').value = data.link_token || '';")
}

func TestLinkToken(t *testing.T) {
	env := newTestEnv(t)

	resp, body := do(t, env.browser(t), http.MethodPost, env.ts.URL+"/api/link-token", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "ok", body["outcome"])
	assert.Equal(t, connector.MessageLinkTokenCreated, body["message"])
	assert.Equal(t, "link-sandbox-mock", body["link_token"])
}

func TestLinkToken_ProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mock.CreateLinkTokenFn = func(context.Context, string) (string, error) {
		return "", &plaid.ProviderError{Code: "INVALID_API_KEYS", Message: "invalid client_id or secret provided"}
	}

	resp, body := do(t, env.browser(t), http.MethodPost, env.ts.URL+"/api/link-token", "")

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "failed", body["outcome"])
	assert.Equal(t, "Error: plaid API error: INVALID_API_KEYS - invalid client_id or secret provided", body["message"])
	assert.NotContains(t, body, "link_token")
}

func TestLinkToken_WrongMethod(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.browser(t).Get(env.ts.URL + "/api/link-token")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestTransactions_NotConnected(t *testing.T) {
	env := newTestEnv(t)

	resp, body := do(t, env.browser(t), http.MethodGet, env.ts.URL+"/api/transactions", "")

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "not_connected", body["outcome"])
	assert.Equal(t, connector.MessageNotConnected, body["message"])
	assert.Equal(t, []any{"date", "name", "amount", "category"}, body["columns"])
	assert.Equal(t, []any{}, body["rows"])
	assert.Equal(t, 0, env.mock.PageCalls())
}

func TestExchangeAndFetch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	env := newTestEnv(t, WithHistory(db.Storage))
	env.mock.GetTransactionsPageFn = plaid.PagedTransactions(testutil.NewTransactionBuilder().Add(5).Build(), 2)
	browser := env.browser(t)

	resp, body := do(t, browser, http.MethodPost, env.ts.URL+"/api/exchange", `{"public_token":"public-sandbox-1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, connector.MessageConnected, body["message"])
	assert.Equal(t, "item-mock", body["item_id"])
	assert.Equal(t, []string{"public-sandbox-1"}, env.mock.ExchangePublicTokenCalls)

	resp, body = do(t, browser, http.MethodGet, env.ts.URL+"/api/transactions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, connector.MessageTransactionsRetrieved, body["message"])

	rows, ok := body["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 5)
	assert.Equal(t, map[string]any{
		"date":     "2024-04-01",
		"name":     "Merchant 1",
		"amount":   "1.25",
		"category": []any{"Shops"},
	}, rows[1])
	assert.Equal(t, 3, env.mock.PageCalls())

	for _, call := range env.mock.GetTransactionsPageCalls {
		assert.Equal(t, "access-sandbox-mock", call.AccessToken)
	}

	assert.Equal(t, 5, db.MustCount())
	fetches, err := db.Storage.ListFetches(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, fetches, 1)
	assert.Equal(t, "item-mock", fetches[0].ItemID)
	assert.Equal(t, 5, fetches[0].Count)
}

func TestTransactions_ProviderFailureDiscardsRows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	env := newTestEnv(t, WithHistory(db.Storage))
	all := testutil.NewTransactionBuilder().Add(4).Build()
	pages := plaid.PagedTransactions(all, 2)
	env.mock.GetTransactionsPageFn = func(ctx context.Context, token string, w model.DateWindow, offset int) (model.TransactionPage, error) {
		if offset > 0 {
			return model.TransactionPage{}, &plaid.ProviderError{Code: "ITEM_LOGIN_REQUIRED", Message: "login required"}
		}
		return pages(ctx, token, w, offset)
	}
	browser := env.browser(t)
	do(t, browser, http.MethodPost, env.ts.URL+"/api/exchange", `{"public_token":"public-sandbox-1"}`)

	resp, body := do(t, browser, http.MethodGet, env.ts.URL+"/api/transactions", "")

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Error: plaid API error: ITEM_LOGIN_REQUIRED - login required", body["message"])
	assert.Equal(t, []any{}, body["rows"])
	assert.Equal(t, 0, db.MustCount())
}

func TestExchange_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty token", body: `{"public_token":"  "}`},
		{name: "missing token", body: `{}`},
		{name: "malformed body", body: `{"public_token":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			resp, body := do(t, env.browser(t), http.MethodPost, env.ts.URL+"/api/exchange", tt.body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, false, body["ok"])
			assert.True(t, strings.HasPrefix(body["message"].(string), "Error: "))
			assert.Empty(t, env.mock.ExchangePublicTokenCalls)
		})
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	alice := env.browser(t)
	bob := env.browser(t)

	resp, _ := do(t, alice, http.MethodPost, env.ts.URL+"/api/exchange", `{"public_token":"public-alice"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, bob, http.MethodGet, env.ts.URL+"/api/transactions", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, connector.MessageNotConnected, body["message"])

	resp, _ = do(t, alice, http.MethodGet, env.ts.URL+"/api/transactions", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDisconnect(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)
	do(t, browser, http.MethodPost, env.ts.URL+"/api/exchange", `{"public_token":"public-sandbox-1"}`)

	require.Equal(t, 1, env.server.sessions.Len())

	resp, body := do(t, browser, http.MethodPost, env.ts.URL+"/api/disconnect", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, connector.MessageDisconnected, body["message"])
	assert.Zero(t, env.server.sessions.Len())

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)

	resp, _ = do(t, browser, http.MethodGet, env.ts.URL+"/api/transactions", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDisconnect_WithoutSession(t *testing.T) {
	env := newTestEnv(t)

	resp, body := do(t, env.browser(t), http.MethodPost, env.ts.URL+"/api/disconnect", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, connector.MessageDisconnected, body["message"])
	assert.Zero(t, env.server.sessions.Len())
}

func TestHealthz(t *testing.T) {
	conn := connector.New(plaid.NewMockClient(), connector.WithLogger(discard))
	srv, err := NewServer(":0", conn, nil, WithLogger(discard))
	require.NoError(t, err)
	srv.now = func() time.Time { return time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "2024-04-10T12:00:00Z", body["time"])
	assert.InDelta(t, 0, body["sessions"], 0)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err     error
		name    string
		outcome connector.Outcome
		want    int
	}{
		{name: "ok", outcome: connector.OutcomeOK, want: http.StatusOK},
		{name: "not connected", outcome: connector.OutcomeNotConnected, want: http.StatusConflict},
		{name: "invalid input", outcome: connector.OutcomeFailed, err: plaidInvalidInput(), want: http.StatusBadRequest},
		{name: "rate limited", outcome: connector.OutcomeFailed, err: &plaid.ProviderError{Code: "RATE_LIMIT_EXCEEDED"}, want: http.StatusTooManyRequests},
		{name: "provider failure", outcome: connector.OutcomeFailed, err: errors.New("boom"), want: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.outcome, tt.err))
		})
	}
}

func plaidInvalidInput() error {
	conn := connector.New(plaid.NewMockClient(), connector.WithLogger(discard))
	return conn.ExchangeToken(context.Background(), connector.NewSession(), "").Err
}

func TestSecureCookie(t *testing.T) {
	conn := connector.New(plaid.NewMockClient(), connector.WithLogger(discard))
	srv, err := NewServer(":8443", conn, nil, WithLogger(discard), WithTLS(&tls.Config{MinVersion: tls.VersionTLS12}))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, "https://localhost:8443", srv.URL())
}

func TestURL(t *testing.T) {
	conn := connector.New(plaid.NewMockClient(), connector.WithLogger(discard))
	tests := []struct {
		addr string
		want string
	}{
		{addr: ":8080", want: "http://localhost:8080"},
		{addr: "0.0.0.0:9000", want: "http://localhost:9000"},
		{addr: "127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{addr: "localhost", want: "http://localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			srv, err := NewServer(tt.addr, conn, nil, WithLogger(discard))
			require.NoError(t, err)
			assert.Equal(t, tt.want, srv.URL())
		})
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	conn := connector.New(plaid.NewMockClient(), connector.WithLogger(discard))
	srv, err := NewServer("127.0.0.1:0", conn, nil, WithLogger(discard))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRun_ListenError(t *testing.T) {
	conn := connector.New(plaid.NewMockClient(), connector.WithLogger(discard))
	srv, err := NewServer("256.0.0.1:bad", conn, nil, WithLogger(discard))
	require.NoError(t, err)

	err = srv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
