package settlement

import "time"

// Partner identifies the organization a settlement pays out to.
type Partner string

const (
	PartnerAggregator  Partner = "AGGREGATOR"
	PartnerUnderwriter Partner = "UNDERWRITER"
)

// SettlementType classifies what the payout covers.
type SettlementType string

const (
	TypeCommission SettlementType = "COMMISSION"
	TypeFees       SettlementType = "FEES"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// Settlement is one grouped payout of fees or commissions to a partner.
type Settlement struct {
	ID               string
	SettlementNumber string
	Partner          Partner
	Type             SettlementType
	TotalAmountMinor int64
	Status           Status
	ApprovedBy       string
	ApprovedAt       *time.Time
	BankReference    string
	LedgerEntryID    string
	CreatedAt        time.Time
	CompletedAt      *time.Time
	LineItems        []LineItem
}

// LineItem is one component of a settlement payout.
type LineItem struct {
	ID           string
	SettlementID string
	Description  string
	Reference    string
	AmountMinor  int64
}
