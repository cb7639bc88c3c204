package wallet

import "time"

// Wallet tracks a rider's progress through the cover plan: one deposit
// followed by a fixed number of daily payments. Amounts are in minor units.
type Wallet struct {
	ID                       string
	RiderID                  string
	BalanceMinor             int64
	TotalDepositedMinor      int64
	DepositCompleted         bool
	DepositCompletedAt       *time.Time
	DailyPaymentsCount       int
	DailyPaymentsCompleted   bool
	DailyPaymentsCompletedAt *time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Events reports plan milestones crossed by a payment, in the same
// transaction that recorded it. The caller decides what they trigger.
type Events struct {
	DepositCompleted bool
	PolicyCompleted  bool
}
