// Package storage persists purchases and claps behind one interface so the
// ledger and engagement counter stay backend-agnostic. Backends: in-memory
// (tests, ephemeral demos), sqlite (single-node default), postgres.
package storage

import (
	"context"
	"time"
)

// Purchase is one granted access. Records are append-only: never mutated,
// never deleted. UserAddress is stored lowercased.
type Purchase struct {
	ArticleID   string    `json:"articleId"`
	UserAddress string    `json:"userAddress"`
	TxHash      string    `json:"txHash"`
	Timestamp   time.Time `json:"timestamp"`
	Amount      string    `json:"amount"`
}

// Store is the persistence contract injected into the purchase ledger and
// the engagement counter. Implementations must make InsertPurchase
// idempotent on (userAddress, articleID, txHash) and IncrementClap an
// atomic capped increment; callers rely on those properties instead of
// wrapping their own locking around the store.
type Store interface {
	// InsertPurchase appends a purchase unless the same
	// (userAddress, articleID, txHash) triple already exists. The bool
	// reports whether a new row was written.
	InsertPurchase(ctx context.Context, p Purchase) (bool, error)

	// HasPurchase reports whether the user holds any purchase for the article.
	HasPurchase(ctx context.Context, userAddress, articleID string) (bool, error)

	// PurchasesFor returns the user's purchases in insertion order.
	PurchasesFor(ctx context.Context, userAddress string) ([]Purchase, error)

	// IncrementClap raises the user's clap count for an article by one,
	// unless the count has reached limit, in which case it is left
	// untouched. It returns the user's count and the article's summed
	// user-clap total after the call.
	IncrementClap(ctx context.Context, articleID, userAddress string, limit int) (userCount, articleTotal int, err error)

	// ClapTotal returns the article's summed user-clap total.
	ClapTotal(ctx context.Context, articleID string) (int, error)

	// UserClaps returns one user's clap count for an article.
	UserClaps(ctx context.Context, articleID, userAddress string) (int, error)

	// Close flushes and releases the backend.
	Close() error
}
