package ledger

import "time"

type NormalBalance string

const (
	NormalDebit  NormalBalance = "debit"
	NormalCredit NormalBalance = "credit"
)

type EntryStatus string

const (
	StatusDraft    EntryStatus = "DRAFT"
	StatusPosted   EntryStatus = "POSTED"
	StatusReversed EntryStatus = "REVERSED"
)

type EntryType string

const (
	TypePayment    EntryType = "payment"
	TypeRemittance EntryType = "remittance"
	TypeSettlement EntryType = "settlement"
	TypeRefund     EntryType = "refund"
	TypeReversal   EntryType = "reversal"
	TypeAdjustment EntryType = "adjustment"
)

// Account is a general-ledger account. BalanceMinor moves only when entries
// post, according to the account's normal balance side.
type Account struct {
	ID            string
	Code          string
	Name          string
	NormalBalance NormalBalance
	BalanceMinor  int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Entry is a journal entry. Debits and credits must balance before it can be
// created, and balances move only on posting.
type Entry struct {
	ID                  string
	EntryNumber         string
	Type                EntryType
	EntryDate           time.Time
	Memo                string
	TotalDebitMinor     int64
	TotalCreditMinor    int64
	Status              EntryStatus
	SourceTransactionID string
	ReversesEntryID     string
	ReversedByEntryID   string
	PostedAt            *time.Time
	CreatedAt           time.Time
	Lines               []Line
}

// Line is one side of a journal entry. Exactly one of DebitMinor or
// CreditMinor is positive.
type Line struct {
	ID          string
	EntryID     string
	AccountCode string
	DebitMinor  int64
	CreditMinor int64
	Memo        string
}
