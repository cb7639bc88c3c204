package escrow

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const recordColumns = `
id, rider_id, transaction_id, payment_day, premium_minor, fee_minor,
escrow_type, status, batch_id, refund_transaction_id, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		r               Record
		batchID, refund sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.RiderID, &r.TransactionID, &r.PaymentDay, &r.PremiumMinor, &r.FeeMinor,
		&r.Type, &r.Status, &batchID, &refund, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.BatchID = batchID.String
	r.RefundTransactionID = refund.String
	return &r, nil
}

func findRecordByTransaction(ctx context.Context, tx *sql.Tx, transactionID string) (*Record, error) {
	q := `SELECT ` + recordColumns + ` FROM escrow_records WHERE transaction_id = $1`
	return scanRecord(tx.QueryRowContext(ctx, q, transactionID))
}

func insertRecord(ctx context.Context, tx *sql.Tx, r *Record) error {
	const q = `
INSERT INTO escrow_records (
  id, rider_id, transaction_id, payment_day, premium_minor, fee_minor,
  escrow_type, status, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
`
	_, err := tx.ExecContext(ctx, q,
		r.ID, r.RiderID, r.TransactionID, r.PaymentDay, r.PremiumMinor, r.FeeMinor,
		r.Type, r.Status, r.CreatedAt,
	)
	return err
}

// lockPendingByType claims every PENDING record of a type for batch creation.
// The row locks hold until commit, so two concurrent batch runs cannot claim
// the same record.
func lockPendingByType(ctx context.Context, tx *sql.Tx, t Type) ([]Record, error) {
	q := `SELECT ` + recordColumns + ` FROM escrow_records WHERE status = $1 AND escrow_type = $2 ORDER BY created_at FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, RecordPending, t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r               Record
			batchID, refund sql.NullString
		)
		err := rows.Scan(
			&r.ID, &r.RiderID, &r.TransactionID, &r.PaymentDay, &r.PremiumMinor, &r.FeeMinor,
			&r.Type, &r.Status, &batchID, &refund, &r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		r.BatchID = batchID.String
		r.RefundTransactionID = refund.String
		records = append(records, r)
	}
	return records, rows.Err()
}

func scheduleRecords(ctx context.Context, tx *sql.Tx, ids []string, batchID string, now time.Time) error {
	const q = `
UPDATE escrow_records SET status = $1, batch_id = $2, updated_at = $3
WHERE id = ANY($4)
`
	_, err := tx.ExecContext(ctx, q, RecordScheduled, batchID, now, ids)
	return err
}

func remitBatchRecords(ctx context.Context, tx *sql.Tx, batchID string, now time.Time) error {
	const q = `
UPDATE escrow_records SET status = $1, updated_at = $2
WHERE batch_id = $3 AND status = $4
`
	_, err := tx.ExecContext(ctx, q, RecordRemitted, now, batchID, RecordScheduled)
	return err
}

// lockRefundableByRider claims up to limit of the rider's unremitted records,
// most recent payment day first.
func lockRefundableByRider(ctx context.Context, tx *sql.Tx, riderID string, limit int) ([]string, error) {
	const q = `
SELECT id FROM escrow_records
WHERE rider_id = $1 AND status IN ($2, $3)
ORDER BY payment_day DESC
LIMIT $4
FOR UPDATE
`
	rows, err := tx.QueryContext(ctx, q, riderID, RecordPending, RecordScheduled, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func refundRecords(ctx context.Context, tx *sql.Tx, ids []string, refundTransactionID string, now time.Time) error {
	const q = `
UPDATE escrow_records SET status = $1, refund_transaction_id = $2, updated_at = $3
WHERE id = ANY($4)
`
	_, err := tx.ExecContext(ctx, q, RecordRefunded, refundTransactionID, now, ids)
	return err
}

const batchColumns = `
id, batch_number, batch_type, record_count, total_premium_minor, status,
approved_by, approved_at, bank_reference, ledger_entry_id, created_at, completed_at
`

func scanBatch(row rowScanner) (*Batch, error) {
	var (
		b                        Batch
		approvedBy, bankRef, led sql.NullString
	)
	err := row.Scan(
		&b.ID, &b.BatchNumber, &b.Type, &b.RecordCount, &b.TotalPremiumMinor, &b.Status,
		&approvedBy, &b.ApprovedAt, &bankRef, &led, &b.CreatedAt, &b.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	b.ApprovedBy = approvedBy.String
	b.BankReference = bankRef.String
	b.LedgerEntryID = led.String
	return &b, nil
}

func insertBatch(ctx context.Context, tx *sql.Tx, b *Batch) error {
	const q = `
INSERT INTO remittance_batches (
  id, batch_number, batch_type, record_count, total_premium_minor, status, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := tx.ExecContext(ctx, q,
		b.ID, b.BatchNumber, b.Type, b.RecordCount, b.TotalPremiumMinor, b.Status, b.CreatedAt,
	)
	return err
}

func getBatchByID(ctx context.Context, db *sql.DB, id string) (*Batch, error) {
	q := `SELECT ` + batchColumns + ` FROM remittance_batches WHERE id = $1`
	return scanBatch(db.QueryRowContext(ctx, q, id))
}

func lockBatch(ctx context.Context, tx *sql.Tx, id string) (*Batch, error) {
	q := `SELECT ` + batchColumns + ` FROM remittance_batches WHERE id = $1 FOR UPDATE`
	return scanBatch(tx.QueryRowContext(ctx, q, id))
}

func setBatchApproved(ctx context.Context, tx *sql.Tx, id, approver string, now time.Time) error {
	const q = `UPDATE remittance_batches SET status = $2, approved_by = $3, approved_at = $4 WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, BatchApproved, approver, now)
	return err
}

func setBatchCompleted(ctx context.Context, tx *sql.Tx, id, bankReference, ledgerEntryID string, now time.Time) error {
	const q = `
UPDATE remittance_batches SET status = $2, bank_reference = $3, ledger_entry_id = $4, completed_at = $5
WHERE id = $1
`
	_, err := tx.ExecContext(ctx, q, id, BatchCompleted, bankReference, ledgerEntryID, now)
	return err
}

func listBatches(ctx context.Context, db *sql.DB, status BatchStatus, limit int) ([]Batch, error) {
	q := `SELECT ` + batchColumns + ` FROM remittance_batches`
	args := []any{}
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, status)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var (
			b                        Batch
			approvedBy, bankRef, led sql.NullString
		)
		err := rows.Scan(
			&b.ID, &b.BatchNumber, &b.Type, &b.RecordCount, &b.TotalPremiumMinor, &b.Status,
			&approvedBy, &b.ApprovedAt, &bankRef, &led, &b.CreatedAt, &b.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		b.ApprovedBy = approvedBy.String
		b.BankReference = bankRef.String
		b.LedgerEntryID = led.String
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
