package recon

import (
	"context"
	"testing"
	"time"
)

func TestUnpostedTransactionsWindowAndLimit(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	repo.Unposted = []Finding{
		{TransactionID: "old", CreatedAt: now.Add(-10 * 24 * time.Hour), MissingEntry: true},
		{TransactionID: "recent1", CreatedAt: now.Add(-2 * time.Hour), MissingEntry: true},
		{TransactionID: "recent2", CreatedAt: now.Add(-1 * time.Hour), MissingEscrow: true},
	}

	svc := NewService(repo)
	svc.clock = func() time.Time { return now }

	report, err := svc.UnpostedTransactions(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("UnpostedTransactions: %v", err)
	}
	if len(report.Findings) != 2 {
		t.Fatalf("got %d findings, want 2 (default window should exclude the old one)", len(report.Findings))
	}
	if report.Since != now.Add(-defaultWindow) {
		t.Fatalf("since = %v", report.Since)
	}

	report, err = svc.UnpostedTransactions(context.Background(), 24*time.Hour, 1)
	if err != nil {
		t.Fatalf("UnpostedTransactions: %v", err)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("got %d findings, want limit of 1", len(report.Findings))
	}
}
