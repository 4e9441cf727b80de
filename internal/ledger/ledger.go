// Package ledger is the append-only record of granted access. It is the
// single authority on whether a user may see full content; the content
// handler consults it before serving, never the other way around.
package ledger

import (
	"context"
	"fmt"

	"github.com/inkpress/inkgate/internal/storage"
	"github.com/inkpress/inkgate/pkg/x402"
)

// Purchase re-exports the storage record type for callers.
type Purchase = storage.Purchase

// Ledger wraps a Store with address normalization and input validation.
// Idempotence on (user, article, txHash) lives in the store so it holds
// across processes sharing a backend.
type Ledger struct {
	store storage.Store
}

// New builds a ledger over the given store.
func New(store storage.Store) *Ledger {
	return &Ledger{store: store}
}

// Record appends a purchase. Recording the same (user, article, txHash)
// triple again is a no-op, so at-least-once confirmation delivery can never
// double-grant. Returns whether a new entry was written.
func (l *Ledger) Record(ctx context.Context, p Purchase) (bool, error) {
	if p.ArticleID == "" || p.UserAddress == "" || p.TxHash == "" {
		return false, fmt.Errorf("purchase requires articleId, userAddress and txHash")
	}
	p.UserAddress = x402.NormalizeAddress(p.UserAddress)
	return l.store.InsertPurchase(ctx, p)
}

// HasPurchased reports whether the user bought the article. Address
// comparison is case-insensitive.
func (l *Ledger) HasPurchased(ctx context.Context, userAddress, articleID string) (bool, error) {
	if userAddress == "" || articleID == "" {
		return false, nil
	}
	return l.store.HasPurchase(ctx, x402.NormalizeAddress(userAddress), articleID)
}

// PurchasesFor returns the user's purchases in insertion order.
func (l *Ledger) PurchasesFor(ctx context.Context, userAddress string) ([]Purchase, error) {
	return l.store.PurchasesFor(ctx, x402.NormalizeAddress(userAddress))
}
