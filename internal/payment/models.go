package payment

import "time"

// PaymentType is what the rider is paying for.
type PaymentType string

const (
	TypeDeposit PaymentType = "deposit"
	TypeDaily   PaymentType = "daily"
)

// RequestStatus is the lifecycle of one initiation attempt.
type RequestStatus string

const (
	StatusInitiated RequestStatus = "INITIATED"
	StatusSent      RequestStatus = "SENT"
	StatusCompleted RequestStatus = "COMPLETED"
	StatusFailed    RequestStatus = "FAILED"
	StatusCancelled RequestStatus = "CANCELLED"
	StatusTimeout   RequestStatus = "TIMEOUT"
)

// Request is one attempt to collect a payment from a rider. Exactly one
// exists per idempotency key.
type Request struct {
	ID             string
	RiderID        string
	Type           PaymentType
	AmountMinor    int64
	Phone          string
	IdempotencyKey string

	// PaymentDay is the first plan day this request pays for; DaysCovered
	// is how many consecutive days it covers (always 1 for deposits).
	PaymentDay  int
	DaysCovered int

	CheckoutID        string
	MerchantRequestID string

	Status        RequestStatus
	FailureReason string
	TransactionID string

	ExpiresAt       time.Time
	CallbackPayload string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TransactionType classifies committed financial records.
type TransactionType string

const (
	TxnDeposit TransactionType = "deposit"
	TxnDaily   TransactionType = "daily"
	TxnRefund  TransactionType = "refund"
)

// TransactionStatus applies to refunds, which settle asynchronously. Payment
// transactions are created COMPLETED.
type TransactionStatus string

const (
	TxnPending   TransactionStatus = "PENDING"
	TxnCompleted TransactionStatus = "COMPLETED"
	TxnFailed    TransactionStatus = "FAILED"
)

// Transaction is the committed financial record of a successful payment or a
// refund payout. Immutable once created, except for later provider
// correlation fields (receipt, conversation id) and refund status.
type Transaction struct {
	ID          string
	RiderID     string
	Type        TransactionType
	AmountMinor int64
	PaymentDay  int
	DaysCovered int

	Phone          string
	IdempotencyKey string
	ReceiptNumber  string
	// ConversationID correlates a refund payout with its async result.
	ConversationID string

	Status    TransactionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
