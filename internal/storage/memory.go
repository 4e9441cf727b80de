package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps everything in process memory. State is lost on
// restart; use it for tests and throwaway demos.
type MemoryStore struct {
	mu        sync.Mutex
	purchases []Purchase
	seen      map[purchaseKey]struct{}
	claps     map[string]map[string]int // articleID -> userAddress -> count
}

type purchaseKey struct {
	user    string
	article string
	txHash  string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seen:  make(map[purchaseKey]struct{}),
		claps: make(map[string]map[string]int),
	}
}

func (s *MemoryStore) InsertPurchase(_ context.Context, p Purchase) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := purchaseKey{user: p.UserAddress, article: p.ArticleID, txHash: p.TxHash}
	if _, dup := s.seen[key]; dup {
		return false, nil
	}
	s.seen[key] = struct{}{}
	s.purchases = append(s.purchases, p)
	return true, nil
}

func (s *MemoryStore) HasPurchase(_ context.Context, userAddress, articleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.purchases {
		if p.UserAddress == userAddress && p.ArticleID == articleID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) PurchasesFor(_ context.Context, userAddress string) ([]Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Purchase
	for _, p := range s.purchases {
		if p.UserAddress == userAddress {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) IncrementClap(_ context.Context, articleID, userAddress string, limit int) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUser := s.claps[articleID]
	if byUser == nil {
		byUser = make(map[string]int)
		s.claps[articleID] = byUser
	}
	if byUser[userAddress] < limit {
		byUser[userAddress]++
	}
	return byUser[userAddress], s.totalLocked(articleID), nil
}

func (s *MemoryStore) ClapTotal(_ context.Context, articleID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalLocked(articleID), nil
}

func (s *MemoryStore) UserClaps(_ context.Context, articleID, userAddress string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claps[articleID][userAddress], nil
}

func (s *MemoryStore) totalLocked(articleID string) int {
	total := 0
	for _, n := range s.claps[articleID] {
		total += n
	}
	return total
}

func (s *MemoryStore) Close() error {
	return nil
}
