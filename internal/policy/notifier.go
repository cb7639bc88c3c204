package policy

import (
	"context"
	"time"
)

// Triggers emitted when a rider crosses a plan milestone. An external
// policy-issuance system consumes them; nothing here waits on the outcome.
const (
	TriggerDepositCompleted = "DEPOSIT_COMPLETED"
	TriggerPlanCompleted    = "PLAN_COMPLETED"
)

// Event announces a policy trigger for one rider.
type Event struct {
	RiderID       string    `json:"rider_id"`
	Trigger       string    `json:"trigger"`
	TransactionID string    `json:"transaction_id"`
	PaymentDay    int       `json:"payment_day"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier delivers policy trigger events. Implementations must be safe for
// concurrent use; delivery failures are the caller's to log, not retry.
type Notifier interface {
	PolicyTriggered(ctx context.Context, ev Event) error
}
