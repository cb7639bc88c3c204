package payment

import (
	"context"
	"database/sql"
	"time"
)

const requestColumns = `
id, rider_id, payment_type, amount_minor, phone, idempotency_key,
payment_day, days_covered, checkout_id, merchant_request_id,
status, failure_reason, transaction_id, expires_at, callback_payload,
created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var (
		r                                 Request
		checkout, merchant, reason, txnID sql.NullString
		payload                           sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.RiderID, &r.Type, &r.AmountMinor, &r.Phone, &r.IdempotencyKey,
		&r.PaymentDay, &r.DaysCovered, &checkout, &merchant,
		&r.Status, &reason, &txnID, &r.ExpiresAt, &payload,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.CheckoutID = checkout.String
	r.MerchantRequestID = merchant.String
	r.FailureReason = reason.String
	r.TransactionID = txnID.String
	r.CallbackPayload = payload.String
	return &r, nil
}

func findRequestByKey(ctx context.Context, db *sql.DB, idempotencyKey string) (*Request, error) {
	q := `SELECT ` + requestColumns + ` FROM payment_requests WHERE idempotency_key = $1`
	return scanRequest(db.QueryRowContext(ctx, q, idempotencyKey))
}

func findRequestByID(ctx context.Context, db *sql.DB, id string) (*Request, error) {
	q := `SELECT ` + requestColumns + ` FROM payment_requests WHERE id = $1`
	return scanRequest(db.QueryRowContext(ctx, q, id))
}

func findRequestByCheckout(ctx context.Context, db *sql.DB, checkoutID string) (*Request, error) {
	q := `SELECT ` + requestColumns + ` FROM payment_requests WHERE checkout_id = $1`
	return scanRequest(db.QueryRowContext(ctx, q, checkoutID))
}

func lockRequest(ctx context.Context, tx *sql.Tx, id string) (*Request, error) {
	q := `SELECT ` + requestColumns + ` FROM payment_requests WHERE id = $1 FOR UPDATE`
	return scanRequest(tx.QueryRowContext(ctx, q, id))
}

func insertRequest(ctx context.Context, db *sql.DB, r *Request) error {
	const q = `
INSERT INTO payment_requests (
  id, rider_id, payment_type, amount_minor, phone, idempotency_key,
  payment_day, days_covered, status, expires_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
`
	_, err := db.ExecContext(ctx, q,
		r.ID, r.RiderID, r.Type, r.AmountMinor, r.Phone, r.IdempotencyKey,
		r.PaymentDay, r.DaysCovered, r.Status, r.ExpiresAt, r.CreatedAt,
	)
	return err
}

func setRequestSent(ctx context.Context, db *sql.DB, id, checkoutID, merchantRequestID string, now time.Time) error {
	const q = `
UPDATE payment_requests SET status = $2, checkout_id = $3, merchant_request_id = $4, updated_at = $5
WHERE id = $1
`
	_, err := db.ExecContext(ctx, q, id, StatusSent, checkoutID, merchantRequestID, now)
	return err
}

// setRequestFailed moves a request to a failure status. The status guard
// keeps a late failure delivery from overwriting a request another path
// already resolved; the return reports whether this call moved it.
func setRequestFailed(ctx context.Context, db *sql.DB, id string, status RequestStatus, reason, payload string, now time.Time) (bool, error) {
	const q = `
UPDATE payment_requests SET status = $2, failure_reason = $3, callback_payload = NULLIF($4, ''), updated_at = $5
WHERE id = $1 AND status IN ($6, $7, $8)
`
	res, err := db.ExecContext(ctx, q, id, status, reason, payload, now,
		StatusInitiated, StatusSent, StatusTimeout)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func setRequestCompleted(ctx context.Context, tx *sql.Tx, id, transactionID, payload string, now time.Time) error {
	const q = `
UPDATE payment_requests SET status = $2, transaction_id = $3, callback_payload = $4, updated_at = $5
WHERE id = $1
`
	_, err := tx.ExecContext(ctx, q, id, StatusCompleted, transactionID, payload, now)
	return err
}

// expireStale flips every SENT request past its expiry to TIMEOUT and
// returns how many moved.
func expireStale(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	const q = `
UPDATE payment_requests SET status = $1, updated_at = $2
WHERE status = $3 AND expires_at < $2
`
	res, err := db.ExecContext(ctx, q, StatusTimeout, now, StatusSent)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// listStaleSent returns SENT requests that have waited at least maxAge for a
// callback, oldest first.
func listStaleSent(ctx context.Context, db *sql.DB, cutoff time.Time, limit int) ([]Request, error) {
	q := `SELECT ` + requestColumns + ` FROM payment_requests
WHERE status = $1 AND updated_at < $2
ORDER BY updated_at
LIMIT $3`
	rows, err := db.QueryContext(ctx, q, StatusSent, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		var (
			r                                 Request
			checkout, merchant, reason, txnID sql.NullString
			payload                           sql.NullString
		)
		err := rows.Scan(
			&r.ID, &r.RiderID, &r.Type, &r.AmountMinor, &r.Phone, &r.IdempotencyKey,
			&r.PaymentDay, &r.DaysCovered, &checkout, &merchant,
			&r.Status, &reason, &txnID, &r.ExpiresAt, &payload,
			&r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		r.CheckoutID = checkout.String
		r.MerchantRequestID = merchant.String
		r.FailureReason = reason.String
		r.TransactionID = txnID.String
		r.CallbackPayload = payload.String
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

const transactionColumns = `
id, rider_id, txn_type, amount_minor, payment_day, days_covered,
phone, idempotency_key, receipt_number, conversation_id,
status, created_at, updated_at
`

func scanTransaction(row rowScanner) (*Transaction, error) {
	var (
		t             Transaction
		receipt, conv sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.RiderID, &t.Type, &t.AmountMinor, &t.PaymentDay, &t.DaysCovered,
		&t.Phone, &t.IdempotencyKey, &receipt, &conv,
		&t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.ReceiptNumber = receipt.String
	t.ConversationID = conv.String
	return &t, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t *Transaction) error {
	const q = `
INSERT INTO transactions (
  id, rider_id, txn_type, amount_minor, payment_day, days_covered,
  phone, idempotency_key, receipt_number, conversation_id, status, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11, $12, $12)
`
	_, err := tx.ExecContext(ctx, q,
		t.ID, t.RiderID, t.Type, t.AmountMinor, t.PaymentDay, t.DaysCovered,
		t.Phone, t.IdempotencyKey, t.ReceiptNumber, t.ConversationID, t.Status, t.CreatedAt,
	)
	return err
}

func getTransactionByID(ctx context.Context, db *sql.DB, id string) (*Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(db.QueryRowContext(ctx, q, id))
}

func lockTransactionByConversation(ctx context.Context, tx *sql.Tx, conversationID string) (*Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE conversation_id = $1 FOR UPDATE`
	return scanTransaction(tx.QueryRowContext(ctx, q, conversationID))
}

func setTransactionConversation(ctx context.Context, db *sql.DB, id, conversationID string, now time.Time) error {
	const q = `UPDATE transactions SET conversation_id = $2, updated_at = $3 WHERE id = $1`
	_, err := db.ExecContext(ctx, q, id, conversationID, now)
	return err
}

func setTransactionStatus(ctx context.Context, tx *sql.Tx, id string, status TransactionStatus, receipt string, now time.Time) error {
	const q = `
UPDATE transactions SET status = $2, receipt_number = COALESCE(NULLIF($3, ''), receipt_number), updated_at = $4
WHERE id = $1
`
	_, err := tx.ExecContext(ctx, q, id, status, receipt, now)
	return err
}
