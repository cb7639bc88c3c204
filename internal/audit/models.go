package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor and ip capture are best-effort; do not block payment flows on
//   audit failures.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated admin causing the event (if applicable).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress should capture the original client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers (optional, depending on the event type).
	RiderID          string `json:"rider_id,omitempty" db:"rider_id"`
	PaymentRequestID string `json:"payment_request_id,omitempty" db:"payment_request_id"`
	BatchID          string `json:"batch_id,omitempty" db:"batch_id"`
	SettlementID     string `json:"settlement_id,omitempty" db:"settlement_id"`
	EntryID          string `json:"entry_id,omitempty" db:"entry_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	// EventTypeSecurityAlert covers rejected callbacks: unknown correlation
	// ids, amount mismatches, phone mismatches.
	EventTypeSecurityAlert EventType = "security_alert"
	// EventTypeAdminAction covers batch/settlement approvals, processing,
	// and ledger reversals.
	EventTypeAdminAction EventType = "admin_action"
)
