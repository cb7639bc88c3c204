package escrow

import "time"

// Type classifies how a premium is remitted: the day-1 deposit premium goes
// out in its own daily batch, later days accumulate into a monthly one.
type Type string

const (
	TypeDay1Immediate Type = "DAY_1_IMMEDIATE"
	TypeAccumulated   Type = "DAYS_2_31_ACCUMULATED"
)

type RecordStatus string

const (
	RecordPending   RecordStatus = "PENDING"
	RecordScheduled RecordStatus = "SCHEDULED"
	RecordRemitted  RecordStatus = "REMITTED"
	RecordRefunded  RecordStatus = "REFUNDED"
)

type BatchStatus string

const (
	BatchPending   BatchStatus = "PENDING"
	BatchApproved  BatchStatus = "APPROVED"
	BatchCompleted BatchStatus = "COMPLETED"
	BatchCancelled BatchStatus = "CANCELLED"
	BatchFailed    BatchStatus = "FAILED"
)

// Record holds one payment's premium in escrow until it is remitted to the
// underwriter or refunded. Keyed uniquely by the source transaction.
type Record struct {
	ID                  string
	RiderID             string
	TransactionID       string
	PaymentDay          int
	PremiumMinor        int64
	FeeMinor            int64
	Type                Type
	Status              RecordStatus
	BatchID             string
	RefundTransactionID string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Batch groups pending records of one type for a single remittance to the
// underwriter.
type Batch struct {
	ID                string
	BatchNumber       string
	Type              Type
	RecordCount       int
	TotalPremiumMinor int64
	Status            BatchStatus
	ApprovedBy        string
	ApprovedAt        *time.Time
	BankReference     string
	LedgerEntryID     string
	CreatedAt         time.Time
	CompletedAt       *time.Time
}
