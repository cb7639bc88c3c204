package recon

import (
	"context"
	"fmt"
	"time"
)

// Repository lists completed payment transactions with incomplete financial
// fan-out.
type Repository interface {
	ListUnreconciled(ctx context.Context, since time.Time, limit int) ([]Finding, error)
}

// Service detects transactions that committed without a posted ledger entry
// or an escrow record, so operators can retry the idempotent fan-out instead
// of discovering the gap at month-end close.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

const (
	defaultWindow = 7 * 24 * time.Hour
	defaultLimit  = 100
	maxLimit      = 500
)

// UnpostedTransactions sweeps the window for incomplete transactions. A zero
// window defaults to seven days.
func (s *Service) UnpostedTransactions(ctx context.Context, window time.Duration, limit int) (*Report, error) {
	now := s.clock().UTC()
	if window <= 0 {
		window = defaultWindow
	}
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	since := now.Add(-window)

	findings, err := s.repo.ListUnreconciled(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list unreconciled: %w", err)
	}
	return &Report{GeneratedAt: now, Since: since, Findings: findings}, nil
}
