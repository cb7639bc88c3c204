package plan

import (
	"errors"
	"testing"

	"bodacover-platform/internal/config"
)

func testPlan() Plan {
	return New(config.PlanConfig{
		DepositAmountMinor: 104800,
		DailyAmountMinor:   8700,
		DailyCount:         30,
		Day1PremiumMinor:   15000,
		DailyPremiumMinor:  7000,
	})
}

func TestDailyCharge_ClampsToRemaining(t *testing.T) {
	p := testPlan()

	amount, days, err := p.DailyCharge(7, 28)
	if err != nil {
		t.Fatalf("DailyCharge: %v", err)
	}
	if days != 2 {
		t.Fatalf("days covered = %d, want 2", days)
	}
	if amount != 2*8700 {
		t.Fatalf("amount = %d, want %d", amount, 2*8700)
	}
}

func TestDailyCharge_SingleDay(t *testing.T) {
	p := testPlan()

	amount, days, err := p.DailyCharge(1, 0)
	if err != nil {
		t.Fatalf("DailyCharge: %v", err)
	}
	if days != 1 || amount != 8700 {
		t.Fatalf("got %d days / %d minor", days, amount)
	}
}

func TestDailyCharge_Errors(t *testing.T) {
	p := testPlan()

	if _, _, err := p.DailyCharge(0, 0); !errors.Is(err, ErrInvalidDays) {
		t.Fatalf("err = %v, want ErrInvalidDays", err)
	}
	if _, _, err := p.DailyCharge(1, 30); !errors.Is(err, ErrPlanDone) {
		t.Fatalf("err = %v, want ErrPlanDone", err)
	}
}

func TestSplitForDay(t *testing.T) {
	p := testPlan()

	day1 := p.SplitForDay(1)
	if day1.PremiumMinor != 15000 || day1.FeeMinor != 104800-15000 {
		t.Fatalf("day1 split = %+v", day1)
	}

	day5 := p.SplitForDay(5)
	if day5.PremiumMinor != 7000 || day5.FeeMinor != 8700-7000 {
		t.Fatalf("day5 split = %+v", day5)
	}
}
