package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound            = errors.New("wallet not found")
	ErrDepositDone         = errors.New("deposit already completed")
	ErrDepositRequired     = errors.New("deposit not completed")
	ErrPlanComplete        = errors.New("all daily payments completed")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidDaysCount    = errors.New("days covered must be positive")
	ErrInsufficientBalance = errors.New("refund exceeds wallet balance")
)

type Service struct {
	db        *sql.DB
	totalDays int
	clock     func() time.Time
}

func NewService(db *sql.DB, totalDays int) *Service {
	return &Service{db: db, totalDays: totalDays, clock: time.Now}
}

// GetOrCreate returns the rider's wallet, creating an empty one on first use.
func (s *Service) GetOrCreate(ctx context.Context, riderID string) (*Wallet, error) {
	w, err := getWalletByRider(ctx, s.db, riderID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	w, err = insertWallet(ctx, s.db, riderID, s.clock().UTC())
	if err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	return w, nil
}

// Get returns the rider's wallet or ErrNotFound.
func (s *Service) Get(ctx context.Context, riderID string) (*Wallet, error) {
	w, err := getWalletByRider(ctx, s.db, riderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// CheckDepositEligibility rejects a deposit attempt when one has already
// been recorded for the wallet.
func (s *Service) CheckDepositEligibility(w *Wallet) error {
	if w.DepositCompleted {
		return ErrDepositDone
	}
	return nil
}

// CheckDailyEligibility rejects a daily payment when the deposit is missing
// or the plan has no remaining days.
func (s *Service) CheckDailyEligibility(w *Wallet) error {
	if !w.DepositCompleted {
		return ErrDepositRequired
	}
	if w.DailyPaymentsCompleted || w.DailyPaymentsCount >= s.totalDays {
		return ErrPlanComplete
	}
	return nil
}

// LockForUpdate loads the rider's wallet under a row lock. It must run inside
// the transaction that records the payment so concurrent callbacks for the
// same rider serialize.
func (s *Service) LockForUpdate(ctx context.Context, tx *sql.Tx, riderID string) (*Wallet, error) {
	w, err := lockWalletByRider(ctx, tx, riderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	return w, nil
}

// ApplyPayment records a confirmed payment against a locked wallet and
// persists the new progress. Payment day 1 is the deposit; later days advance
// the daily counter by daysCovered. The returned events flag milestones the
// payment crossed.
func (s *Service) ApplyPayment(ctx context.Context, tx *sql.Tx, w *Wallet, paymentDay int, amountMinor int64, daysCovered int) (Events, error) {
	ev, err := applyProgress(w, paymentDay, amountMinor, daysCovered, s.totalDays, s.clock().UTC())
	if err != nil {
		return Events{}, err
	}
	if err := updateWalletProgress(ctx, tx, w); err != nil {
		return Events{}, fmt.Errorf("update wallet: %w", err)
	}
	return ev, nil
}

// ApplyRefund deducts a refunded amount from a locked wallet. This is the
// only path that decreases a balance.
func (s *Service) ApplyRefund(ctx context.Context, tx *sql.Tx, w *Wallet, amountMinor int64) error {
	if amountMinor <= 0 {
		return ErrInvalidAmount
	}
	if amountMinor > w.BalanceMinor {
		return ErrInsufficientBalance
	}
	w.BalanceMinor -= amountMinor
	w.UpdatedAt = s.clock().UTC()
	if err := updateWalletProgress(ctx, tx, w); err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	return nil
}

func applyProgress(w *Wallet, paymentDay int, amountMinor int64, daysCovered, totalDays int, now time.Time) (Events, error) {
	var ev Events
	if amountMinor <= 0 {
		return ev, ErrInvalidAmount
	}

	if paymentDay == 1 {
		if w.DepositCompleted {
			return ev, ErrDepositDone
		}
		w.TotalDepositedMinor += amountMinor
		w.DepositCompleted = true
		w.DepositCompletedAt = &now
		ev.DepositCompleted = true
	} else {
		if daysCovered <= 0 {
			return ev, ErrInvalidDaysCount
		}
		if !w.DepositCompleted {
			return ev, ErrDepositRequired
		}
		if w.DailyPaymentsCompleted {
			return ev, ErrPlanComplete
		}
		w.DailyPaymentsCount += daysCovered
		if w.DailyPaymentsCount >= totalDays {
			w.DailyPaymentsCount = totalDays
			w.DailyPaymentsCompleted = true
			w.DailyPaymentsCompletedAt = &now
			ev.PolicyCompleted = true
		}
	}

	w.BalanceMinor += amountMinor
	w.UpdatedAt = now
	return ev, nil
}
