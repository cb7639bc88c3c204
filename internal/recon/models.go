package recon

import "time"

// Finding is one completed payment transaction whose post-commit financial
// steps did not all land: a missing or unposted journal entry, or a missing
// escrow record. Each is retriable via the transaction's idempotency key.
type Finding struct {
	TransactionID string    `json:"transaction_id"`
	RiderID       string    `json:"rider_id"`
	AmountMinor   int64     `json:"amount_minor"`
	CreatedAt     time.Time `json:"created_at"`

	MissingEntry   bool `json:"missing_entry"`
	EntryNotPosted bool `json:"entry_not_posted"`
	MissingEscrow  bool `json:"missing_escrow"`
}

// Report is the result of one reconciliation sweep.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Since       time.Time `json:"since"`
	Findings    []Finding `json:"findings"`
}
