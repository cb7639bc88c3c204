package wallet

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

func freshWallet() *Wallet {
	return &Wallet{ID: "w1", RiderID: "r1", CreatedAt: testNow, UpdatedAt: testNow}
}

func depositedWallet() *Wallet {
	ts := testNow
	w := freshWallet()
	w.BalanceMinor = 104800
	w.TotalDepositedMinor = 104800
	w.DepositCompleted = true
	w.DepositCompletedAt = &ts
	return w
}

func TestApplyProgressDeposit(t *testing.T) {
	w := freshWallet()
	ev, err := applyProgress(w, 1, 104800, 0, 30, testNow)
	if err != nil {
		t.Fatalf("applyProgress: %v", err)
	}
	if !ev.DepositCompleted || ev.PolicyCompleted {
		t.Fatalf("events = %+v, want deposit completed only", ev)
	}
	if !w.DepositCompleted || w.DepositCompletedAt == nil {
		t.Fatal("deposit flag not set")
	}
	if w.TotalDepositedMinor != 104800 || w.BalanceMinor != 104800 {
		t.Fatalf("deposited=%d balance=%d", w.TotalDepositedMinor, w.BalanceMinor)
	}
}

func TestApplyProgressSecondDepositRejected(t *testing.T) {
	w := depositedWallet()
	if _, err := applyProgress(w, 1, 104800, 0, 30, testNow); !errors.Is(err, ErrDepositDone) {
		t.Fatalf("err = %v, want ErrDepositDone", err)
	}
}

func TestApplyProgressDailyRequiresDeposit(t *testing.T) {
	w := freshWallet()
	if _, err := applyProgress(w, 2, 8700, 1, 30, testNow); !errors.Is(err, ErrDepositRequired) {
		t.Fatalf("err = %v, want ErrDepositRequired", err)
	}
}

func TestApplyProgressDailyAdvancesCounter(t *testing.T) {
	w := depositedWallet()
	ev, err := applyProgress(w, 2, 8700, 1, 30, testNow)
	if err != nil {
		t.Fatalf("applyProgress: %v", err)
	}
	if ev.DepositCompleted || ev.PolicyCompleted {
		t.Fatalf("events = %+v, want none", ev)
	}
	if w.DailyPaymentsCount != 1 {
		t.Fatalf("count = %d, want 1", w.DailyPaymentsCount)
	}
}

func TestApplyProgressMultiDayPaymentCompletesPlan(t *testing.T) {
	w := depositedWallet()
	w.DailyPaymentsCount = 27
	ev, err := applyProgress(w, 28, 26100, 3, 30, testNow)
	if err != nil {
		t.Fatalf("applyProgress: %v", err)
	}
	if !ev.PolicyCompleted {
		t.Fatal("expected plan completion event")
	}
	if w.DailyPaymentsCount != 30 || !w.DailyPaymentsCompleted || w.DailyPaymentsCompletedAt == nil {
		t.Fatalf("wallet not completed: count=%d", w.DailyPaymentsCount)
	}
}

func TestApplyProgressAfterCompletionRejected(t *testing.T) {
	w := depositedWallet()
	w.DailyPaymentsCount = 30
	w.DailyPaymentsCompleted = true
	if _, err := applyProgress(w, 31, 8700, 1, 30, testNow); !errors.Is(err, ErrPlanComplete) {
		t.Fatalf("err = %v, want ErrPlanComplete", err)
	}
}

func TestApplyProgressInvalidInputs(t *testing.T) {
	if _, err := applyProgress(freshWallet(), 1, 0, 0, 30, testNow); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	if _, err := applyProgress(depositedWallet(), 2, 8700, 0, 30, testNow); !errors.Is(err, ErrInvalidDaysCount) {
		t.Fatalf("err = %v, want ErrInvalidDaysCount", err)
	}
}

func TestCheckEligibility(t *testing.T) {
	s := &Service{totalDays: 30}

	if err := s.CheckDepositEligibility(freshWallet()); err != nil {
		t.Fatalf("fresh wallet deposit: %v", err)
	}
	if err := s.CheckDepositEligibility(depositedWallet()); !errors.Is(err, ErrDepositDone) {
		t.Fatalf("err = %v, want ErrDepositDone", err)
	}

	if err := s.CheckDailyEligibility(freshWallet()); !errors.Is(err, ErrDepositRequired) {
		t.Fatalf("err = %v, want ErrDepositRequired", err)
	}
	if err := s.CheckDailyEligibility(depositedWallet()); err != nil {
		t.Fatalf("deposited wallet daily: %v", err)
	}
	done := depositedWallet()
	done.DailyPaymentsCount = 30
	if err := s.CheckDailyEligibility(done); !errors.Is(err, ErrPlanComplete) {
		t.Fatalf("err = %v, want ErrPlanComplete", err)
	}
}
