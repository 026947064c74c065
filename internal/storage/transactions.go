package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/plaid-viewer/internal/model"
)

// SaveTransactions upserts transactions fetched for itemID, keyed by
// transaction id. Re-fetching a window overwrites earlier copies.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, itemID string, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(itemID, "itemID"); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	if len(transactions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			id, item_id, account_id, date, name, merchant_name,
			amount, currency, categories, pending, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			item_id = excluded.item_id,
			account_id = excluded.account_id,
			date = excluded.date,
			name = excluded.name,
			merchant_name = excluded.merchant_name,
			amount = excluded.amount,
			currency = excluded.currency,
			categories = excluded.categories,
			pending = excluded.pending,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range transactions {
		categories, err := json.Marshal(txn.Category)
		if err != nil {
			return fmt.Errorf("failed to marshal categories: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			txn.ID, itemID, txn.AccountID, txn.Date, txn.Name, txn.MerchantName,
			txn.Amount, txn.Currency, string(categories), txn.Pending,
		); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransactions returns stored transactions inside the window, newest
// first and alphabetically by name within a day.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, window model.DateWindow) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, date, name, merchant_name, amount, currency, categories, pending
		FROM transactions
		WHERE date >= ? AND date <= ?
		ORDER BY date DESC, name ASC
	`, window.StartDate(), window.EndDate())
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	transactions := []model.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

// CountTransactions returns the number of stored transactions.
func (s *SQLiteStorage) CountTransactions(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func scanTransaction(rows *sql.Rows) (model.Transaction, error) {
	var (
		txn          model.Transaction
		accountID    sql.NullString
		merchantName sql.NullString
		currency     sql.NullString
		categories   sql.NullString
	)

	if err := rows.Scan(&txn.ID, &accountID, &txn.Date, &txn.Name, &merchantName,
		&txn.Amount, &currency, &categories, &txn.Pending); err != nil {
		return model.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.AccountID = accountID.String
	txn.MerchantName = merchantName.String
	txn.Currency = currency.String
	if categories.Valid && categories.String != "" {
		if err := json.Unmarshal([]byte(categories.String), &txn.Category); err != nil {
			return model.Transaction{}, fmt.Errorf("failed to unmarshal categories for %s: %w", txn.ID, err)
		}
	}

	return txn, nil
}

// Fetch records one successful transactions fetch.
type Fetch struct {
	FetchedAt   time.Time
	ItemID      string
	WindowStart string
	WindowEnd   string
	ID          int64
	Count       int
}

// RecordFetch logs a completed fetch of count transactions for itemID.
func (s *SQLiteStorage) RecordFetch(ctx context.Context, itemID string, window model.DateWindow, count int, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(itemID, "itemID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetches (item_id, window_start, window_end, transaction_count, fetched_at)
		VALUES (?, ?, ?, ?, ?)
	`, itemID, window.StartDate(), window.EndDate(), count, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to record fetch: %w", err)
	}
	return nil
}

// ListFetches returns up to limit fetches, most recent first.
func (s *SQLiteStorage) ListFetches(ctx context.Context, limit int) ([]Fetch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, window_start, window_end, transaction_count, fetched_at
		FROM fetches
		ORDER BY fetched_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fetches []Fetch
	for rows.Next() {
		var f Fetch
		if err := rows.Scan(&f.ID, &f.ItemID, &f.WindowStart, &f.WindowEnd, &f.Count, &f.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fetch: %w", err)
		}
		fetches = append(fetches, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fetches: %w", err)
	}

	return fetches, nil
}
