package escrow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bodacover-platform/internal/ledger"
	"bodacover-platform/pkg/utils"
)

var (
	ErrInvalidAmount     = errors.New("premium and fee must be non-negative")
	ErrInvalidPaymentDay = errors.New("payment day must be positive")
	ErrBatchNotFound     = errors.New("remittance batch not found")
	ErrNotPending        = errors.New("batch is not pending approval")
	ErrNotApproved       = errors.New("batch is not approved")
	ErrInvalidRefund     = errors.New("days to refund must be positive")
)

// BatchResult reports what a batch-creation run produced. Batch is nil when
// nothing was pending.
type BatchResult struct {
	Batch             *Batch
	RecordCount       int
	TotalPremiumMinor int64
}

type Service struct {
	db     *sql.DB
	ledger *ledger.Service
	clock  func() time.Time
}

func NewService(db *sql.DB, ledgerSvc *ledger.Service) *Service {
	return &Service{db: db, ledger: ledgerSvc, clock: time.Now}
}

// CreateRecord puts one payment's premium into escrow. Idempotent on
// transactionID: a record that already exists is returned unchanged.
func (s *Service) CreateRecord(ctx context.Context, riderID, transactionID string, paymentDay int, premiumMinor, feeMinor int64) (*Record, error) {
	if premiumMinor < 0 || feeMinor < 0 || premiumMinor+feeMinor == 0 {
		return nil, ErrInvalidAmount
	}
	if paymentDay < 1 {
		return nil, ErrInvalidPaymentDay
	}
	now := s.clock().UTC()

	var record *Record
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		existing, err := findRecordByTransaction(ctx, tx, transactionID)
		if err == nil {
			record = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lookup record: %w", err)
		}

		r := &Record{
			ID:            uuid.NewString(),
			RiderID:       riderID,
			TransactionID: transactionID,
			PaymentDay:    paymentDay,
			PremiumMinor:  premiumMinor,
			FeeMinor:      feeMinor,
			Type:          TypeForDay(paymentDay),
			Status:        RecordPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := insertRecord(ctx, tx, r); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		record = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// CreateDay1Batch groups all pending day-1 premiums into a remittance batch.
func (s *Service) CreateDay1Batch(ctx context.Context) (*BatchResult, error) {
	return s.createBatch(ctx, TypeDay1Immediate)
}

// CreateMonthlyBulkBatch groups all pending accumulated premiums.
func (s *Service) CreateMonthlyBulkBatch(ctx context.Context) (*BatchResult, error) {
	return s.createBatch(ctx, TypeAccumulated)
}

func (s *Service) createBatch(ctx context.Context, t Type) (*BatchResult, error) {
	now := s.clock().UTC()

	result := &BatchResult{}
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		records, err := lockPendingByType(ctx, tx, t)
		if err != nil {
			return fmt.Errorf("claim pending records: %w", err)
		}
		if len(records) == 0 {
			return nil
		}

		prefix := batchPrefix(t)
		seq, err := utils.NextSequence(ctx, tx, prefix, now)
		if err != nil {
			return fmt.Errorf("batch sequence: %w", err)
		}

		var total int64
		ids := make([]string, 0, len(records))
		for _, r := range records {
			total += r.PremiumMinor
			ids = append(ids, r.ID)
		}
		b := &Batch{
			ID:                uuid.NewString(),
			BatchNumber:       fmt.Sprintf("%s-%s-%03d", prefix, now.Format("20060102"), seq),
			Type:              t,
			RecordCount:       len(records),
			TotalPremiumMinor: total,
			Status:            BatchPending,
			CreatedAt:         now,
		}
		if err := insertBatch(ctx, tx, b); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		if err := scheduleRecords(ctx, tx, ids, b.ID, now); err != nil {
			return fmt.Errorf("schedule records: %w", err)
		}
		result = &BatchResult{Batch: b, RecordCount: len(records), TotalPremiumMinor: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApproveBatch moves a pending batch to APPROVED. Approval is one way.
func (s *Service) ApproveBatch(ctx context.Context, batchID, approver string) (*Batch, error) {
	now := s.clock().UTC()

	var batch *Batch
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		b, err := lockBatch(ctx, tx, batchID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBatchNotFound
		}
		if err != nil {
			return fmt.Errorf("lock batch: %w", err)
		}
		if b.Status != BatchPending {
			return ErrNotPending
		}
		if err := setBatchApproved(ctx, tx, b.ID, approver, now); err != nil {
			return fmt.Errorf("approve batch: %w", err)
		}
		b.Status = BatchApproved
		b.ApprovedBy = approver
		b.ApprovedAt = &now
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// ProcessBatch completes an approved batch: it posts the remittance journal
// entry, stamps the bank reference, and flips every scheduled record to
// REMITTED, all in one transaction.
func (s *Service) ProcessBatch(ctx context.Context, batchID, bankReference string) (*Batch, error) {
	now := s.clock().UTC()

	var batch *Batch
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		b, err := lockBatch(ctx, tx, batchID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBatchNotFound
		}
		if err != nil {
			return fmt.Errorf("lock batch: %w", err)
		}
		if b.Status != BatchApproved {
			return ErrNotApproved
		}

		entry, err := s.ledger.CreateEntryInTx(ctx, tx, ledger.CreateEntryRequest{
			Type:     ledger.TypeRemittance,
			Memo:     fmt.Sprintf("remittance %s to underwriter", b.BatchNumber),
			AutoPost: true,
			Lines: []ledger.LineInput{
				{AccountCode: ledger.AccountPremiumPayable, DebitMinor: b.TotalPremiumMinor, Memo: b.BatchNumber},
				{AccountCode: ledger.AccountCashGateway, CreditMinor: b.TotalPremiumMinor, Memo: bankReference},
			},
		})
		if err != nil {
			return fmt.Errorf("post remittance entry: %w", err)
		}

		if err := remitBatchRecords(ctx, tx, b.ID, now); err != nil {
			return fmt.Errorf("remit records: %w", err)
		}
		if err := setBatchCompleted(ctx, tx, b.ID, bankReference, entry.ID, now); err != nil {
			return fmt.Errorf("complete batch: %w", err)
		}
		b.Status = BatchCompleted
		b.BankReference = bankReference
		b.LedgerEntryID = entry.ID
		b.CompletedAt = &now
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// MarkAsRefunded pulls up to daysToRefund of the rider's unremitted records
// out of escrow, most recent payment day first. Returns how many were
// refunded, which may be fewer than requested.
func (s *Service) MarkAsRefunded(ctx context.Context, riderID, refundTransactionID string, daysToRefund int) (int, error) {
	if daysToRefund < 1 {
		return 0, ErrInvalidRefund
	}
	now := s.clock().UTC()

	var refunded int
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		ids, err := lockRefundableByRider(ctx, tx, riderID, daysToRefund)
		if err != nil {
			return fmt.Errorf("claim refundable records: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := refundRecords(ctx, tx, ids, refundTransactionID, now); err != nil {
			return fmt.Errorf("refund records: %w", err)
		}
		refunded = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return refunded, nil
}

// GetBatch returns one batch by id.
func (s *Service) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	b, err := getBatchByID(ctx, s.db, batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// ListBatches returns recent batches, optionally filtered by status.
func (s *Service) ListBatches(ctx context.Context, status BatchStatus, limit int) ([]Batch, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return listBatches(ctx, s.db, status, limit)
}

// TypeForDay derives the escrow type from the payment day. Only the day-1
// deposit premium is remitted immediately.
func TypeForDay(paymentDay int) Type {
	if paymentDay == 1 {
		return TypeDay1Immediate
	}
	return TypeAccumulated
}

func batchPrefix(t Type) string {
	if t == TypeDay1Immediate {
		return "RBD"
	}
	return "RBM"
}
