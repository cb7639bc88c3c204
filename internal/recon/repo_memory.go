package recon

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory reconciliation source for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	Unposted []Finding
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListUnreconciled(ctx context.Context, since time.Time, limit int) ([]Finding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Finding, 0)
	for _, f := range r.Unposted {
		if f.CreatedAt.Before(since) {
			continue
		}
		out = append(out, f)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
