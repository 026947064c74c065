// Package testutil provides shared fixtures for plaid-viewer tests: an
// in-memory history database and a fluent builder for provider transactions.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/plaid-viewer/internal/model"
	"github.com/Veraticus/plaid-viewer/internal/storage"
)

// TestDB wraps an in-memory history database bound to a test.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database, seeds it with the given
// transactions under item "item-test", and closes it when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.NewTransactionBuilder().Add(5).Build()...)
func SetupTestDB(t *testing.T, seed ...model.Transaction) *TestDB {
	t.Helper()

	store, err := storage.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	db := &TestDB{Storage: store, t: t}
	if len(seed) > 0 {
		db.MustSave("item-test", seed...)
	}
	return db
}

// MustSave stores transactions under itemID or fails the test.
func (db *TestDB) MustSave(itemID string, txns ...model.Transaction) {
	db.t.Helper()
	if err := db.Storage.SaveTransactions(context.Background(), itemID, txns); err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}
}

// MustCount returns the number of stored transactions or fails the test.
func (db *TestDB) MustCount() int {
	db.t.Helper()
	n, err := db.Storage.CountTransactions(context.Background())
	if err != nil {
		db.t.Fatalf("failed to count transactions: %v", err)
	}
	return n
}
