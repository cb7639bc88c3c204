package plan

import (
	"errors"

	"bodacover-platform/internal/config"
)

// Plan answers pricing questions for the fixed payment schedule:
// one deposit (plan day 1) followed by cfg.DailyCount daily payments
// (plan days 2..DailyCount+1).
//
// Contract:
// - All amounts are int64 minor units; no floats.
// - Pure calculation; no I/O, no provider calls.
// - Premium split per day is derived from config, never hard-coded.
type Plan struct {
	cfg config.PlanConfig
}

func New(cfg config.PlanConfig) Plan {
	return Plan{cfg: cfg}
}

var (
	ErrInvalidDays = errors.New("plan: days must be > 0")
	ErrPlanDone    = errors.New("plan: no remaining payment days")
)

// DepositAmount is the fixed first-payment amount.
func (p Plan) DepositAmount() int64 { return p.cfg.DepositAmountMinor }

// DailyCount is the number of daily payments after the deposit.
func (p Plan) DailyCount() int { return p.cfg.DailyCount }

// DailyCharge computes the amount to push for a daily-payment request and
// how many plan days it actually covers.
//
// requestedDays is clamped to the remaining days; paymentsMade is the number
// of daily payments already completed.
func (p Plan) DailyCharge(requestedDays, paymentsMade int) (amountMinor int64, daysCovered int, err error) {
	if requestedDays <= 0 {
		return 0, 0, ErrInvalidDays
	}
	remaining := p.cfg.DailyCount - paymentsMade
	if remaining <= 0 {
		return 0, 0, ErrPlanDone
	}
	if requestedDays > remaining {
		requestedDays = remaining
	}
	return p.cfg.DailyAmountMinor * int64(requestedDays), requestedDays, nil
}

// Split is the premium/fee decomposition of one payment day.
type Split struct {
	PremiumMinor int64
	FeeMinor     int64
}

// SplitForDay returns the premium/fee split of the payment that covers the
// given plan day. Day 1 is the deposit; every later day is a daily payment.
// The fee is whatever the payment leaves after the premium.
func (p Plan) SplitForDay(paymentDay int) Split {
	if paymentDay <= 1 {
		return Split{
			PremiumMinor: p.cfg.Day1PremiumMinor,
			FeeMinor:     p.cfg.DepositAmountMinor - p.cfg.Day1PremiumMinor,
		}
	}
	return Split{
		PremiumMinor: p.cfg.DailyPremiumMinor,
		FeeMinor:     p.cfg.DailyAmountMinor - p.cfg.DailyPremiumMinor,
	}
}
