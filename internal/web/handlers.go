package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Veraticus/plaid-viewer/internal/common"
	"github.com/Veraticus/plaid-viewer/internal/connector"
	"github.com/Veraticus/plaid-viewer/internal/model"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 16 << 10

type indexPage struct {
	Title       string
	Environment string
	Window      string
	LinkStatus  string
	Columns     []string
}

type resultResponse struct {
	Outcome   connector.Outcome `json:"outcome"`
	Message   string            `json:"message"`
	LinkToken string            `json:"link_token,omitempty"`
	ItemID    string            `json:"item_id,omitempty"`
	OK        bool              `json:"ok"`
}

type transactionsResponse struct {
	resultResponse
	Columns []string               `json:"columns"`
	Rows    []model.TransactionRow `json:"rows"`
}

type exchangeRequest struct {
	PublicToken string `json:"public_token"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	status := "Not connected"
	if sess.Connected() {
		status = "Connected (item " + sess.ItemID() + ")"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.templates.ExecuteTemplate(w, "index.html", indexPage{
		Title:       "Plaid Viewer",
		Environment: s.environment,
		Window:      s.window.String(),
		LinkStatus:  status,
		Columns:     model.Columns(),
	})
	if err != nil {
		s.logger.Error("Failed to render index", "error", err)
	}
}

func (s *Server) handleLinkToken(w http.ResponseWriter, r *http.Request) {
	s.session(w, r)

	result := s.connector.CreateLinkToken(r.Context())
	resp := newResultResponse(result.Outcome, result.Message)
	resp.LinkToken = result.Value
	writeJSON(w, statusFor(result.Outcome, result.Err), resp)
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	var req exchangeRequest
	if err := decodeJSON(r, &req); err != nil {
		err = fmt.Errorf("%w: invalid request body: %w", common.ErrInvalidInput, err)
		writeJSON(w, http.StatusBadRequest, newResultResponse(connector.OutcomeFailed, "Error: "+err.Error()))
		return
	}

	result := s.connector.ExchangeToken(r.Context(), sess, req.PublicToken)
	resp := newResultResponse(result.Outcome, result.Message)
	resp.ItemID = result.Value
	writeJSON(w, statusFor(result.Outcome, result.Err), resp)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	itemID := sess.ItemID()

	var fetched []model.Transaction
	result := s.connector.FetchTransactions(r.Context(), sess, s.window,
		connector.WithTransactions(func(txns []model.Transaction) { fetched = txns }))

	if result.OK() && s.history != nil {
		s.saveHistory(r, itemID, fetched)
	}

	rows := result.Value.Rows
	if rows == nil {
		rows = []model.TransactionRow{}
	}
	writeJSON(w, statusFor(result.Outcome, result.Err), transactionsResponse{
		resultResponse: newResultResponse(result.Outcome, result.Message),
		Columns:        result.Value.Columns(),
		Rows:           rows,
	})
}

// saveHistory stores a fetch. Failures are logged and never reach the user;
// the fetch itself succeeded.
func (s *Server) saveHistory(r *http.Request, itemID string, txns []model.Transaction) {
	ctx := r.Context()
	if err := s.history.SaveTransactions(ctx, itemID, txns); err != nil {
		s.logger.Warn("Failed to save transaction history", "item_id", itemID, "error", err)
		return
	}
	if err := s.history.RecordFetch(ctx, itemID, s.window, len(txns), s.now()); err != nil {
		s.logger.Warn("Failed to record fetch", "item_id", itemID, "error", err)
	}
}

// handleDisconnect drops the token and the browser's session entirely; the
// next request starts a fresh one.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	result := s.connector.Disconnect(s.endSession(w, r))
	writeJSON(w, http.StatusOK, newResultResponse(result.Outcome, result.Message))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
		"time":     s.now().UTC().Format(time.RFC3339),
	})
}

func newResultResponse(outcome connector.Outcome, message string) resultResponse {
	return resultResponse{
		OK:      outcome == connector.OutcomeOK,
		Outcome: outcome,
		Message: message,
	}
}

// statusFor maps an operation outcome onto an HTTP status. The body always
// carries the user-facing message, so the page renders it regardless.
func statusFor(outcome connector.Outcome, err error) int {
	switch outcome {
	case connector.OutcomeOK:
		return http.StatusOK
	case connector.OutcomeNotConnected:
		return http.StatusConflict
	}

	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrProviderRateLimit):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
