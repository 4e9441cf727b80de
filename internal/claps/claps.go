// Package claps is the bounded per-user engagement counter.
package claps

import (
	"context"
	"fmt"

	"github.com/inkpress/inkgate/internal/storage"
	"github.com/inkpress/inkgate/pkg/x402"
)

// MaxPerUser is the clap ceiling per user per article.
const MaxPerUser = 50

// BaseFunc supplies an article's seeded clap count, added on top of
// recorded user increments.
type BaseFunc func(articleID string) int

// Counter tracks claps over a Store. The capped increment is atomic in the
// store, so concurrent claps from one user cannot overshoot the ceiling.
type Counter struct {
	store storage.Store
	base  BaseFunc
}

// New builds a counter. A nil base means no seeded counts.
func New(store storage.Store, base BaseFunc) *Counter {
	if base == nil {
		base = func(string) int { return 0 }
	}
	return &Counter{store: store, base: base}
}

// Increment adds one clap for the user and returns the article's new
// total (base + all user claps). Past the per-user ceiling it changes
// nothing and returns the unchanged total; throttling degrades silently
// rather than erroring.
func (c *Counter) Increment(ctx context.Context, articleID, userAddress string) (int, error) {
	if articleID == "" || userAddress == "" {
		return 0, fmt.Errorf("claps require articleId and userAddress")
	}
	user := x402.NormalizeAddress(userAddress)
	_, total, err := c.store.IncrementClap(ctx, articleID, user, MaxPerUser)
	if err != nil {
		return 0, err
	}
	return c.base(articleID) + total, nil
}

// Total returns base + recorded user claps for the article.
func (c *Counter) Total(ctx context.Context, articleID string) (int, error) {
	total, err := c.store.ClapTotal(ctx, articleID)
	if err != nil {
		return 0, err
	}
	return c.base(articleID) + total, nil
}

// UserClaps returns one user's clap count for the article.
func (c *Counter) UserClaps(ctx context.Context, articleID, userAddress string) (int, error) {
	return c.store.UserClaps(ctx, articleID, x402.NormalizeAddress(userAddress))
}
