package payment

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"bodacover-platform/internal/gateway"
)

var requestTestColumns = []string{
	"id", "rider_id", "payment_type", "amount_minor", "phone", "idempotency_key",
	"payment_day", "days_covered", "checkout_id", "merchant_request_id",
	"status", "failure_reason", "transaction_id", "expires_at", "callback_payload",
	"created_at", "updated_at",
}

func requestRow(status RequestStatus, transactionID string) *sqlmock.Rows {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(requestTestColumns).AddRow(
		"req-1", "rider-1", string(TypeDeposit), int64(104800), "254712345678", "idem-1",
		1, 1, "co-1", "mr-1",
		string(status), nil, transactionID, now.Add(5*time.Minute), nil,
		now, now,
	)
}

func TestProcessCallbackAfterCompletionReturnsOriginalTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM payment_requests WHERE checkout_id`).
		WithArgs("co-1").
		WillReturnRows(requestRow(StatusCompleted, "txn-1"))

	s := &Service{db: db}
	out, err := s.ProcessCallback(context.Background(), gateway.NormalizedResult{
		CheckoutID:  "co-1",
		Success:     true,
		AmountMinor: 104800,
		Phone:       "254712345678",
	})
	if err != nil {
		t.Fatalf("ProcessCallback: %v", err)
	}
	if out.Status != StatusCompleted || out.TransactionID != "txn-1" {
		t.Fatalf("outcome = %s/%s, want COMPLETED/txn-1", out.Status, out.TransactionID)
	}

	// No wallet lock, transaction insert, or status update may follow.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected statements: %v", err)
	}
}

func TestProcessCallbackFailureDoesNotOverrideConcurrentCompletion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// The request reads as SENT, but by the time the failure update runs a
	// concurrent success delivery has committed COMPLETED, so the guarded
	// update matches no row.
	mock.ExpectQuery(`SELECT (.+) FROM payment_requests WHERE checkout_id`).
		WithArgs("co-1").
		WillReturnRows(requestRow(StatusSent, ""))
	mock.ExpectExec(`UPDATE payment_requests SET status`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM payment_requests WHERE id =`).
		WillReturnRows(requestRow(StatusCompleted, "txn-1"))

	s := &Service{
		db:    db,
		clock: func() time.Time { return time.Date(2026, 4, 1, 10, 1, 0, 0, time.UTC) },
	}
	out, err := s.ProcessCallback(context.Background(), gateway.NormalizedResult{
		CheckoutID:        "co-1",
		Success:           false,
		ResultCode:        1,
		ResultDescription: "insufficient funds",
	})
	if err != nil {
		t.Fatalf("ProcessCallback: %v", err)
	}
	if out.Status != StatusCompleted || out.TransactionID != "txn-1" {
		t.Fatalf("outcome = %s/%s, want the committed COMPLETED outcome", out.Status, out.TransactionID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected statements: %v", err)
	}
}

func TestProcessCallbackFailureMarksSentRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM payment_requests WHERE checkout_id`).
		WithArgs("co-1").
		WillReturnRows(requestRow(StatusSent, ""))
	mock.ExpectExec(`UPDATE payment_requests SET status`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := &Service{
		db:    db,
		clock: func() time.Time { return time.Date(2026, 4, 1, 10, 1, 0, 0, time.UTC) },
	}
	out, err := s.ProcessCallback(context.Background(), gateway.NormalizedResult{
		CheckoutID:        "co-1",
		Success:           false,
		ResultCode:        1032,
		ResultDescription: "cancelled by user",
	})
	if err != nil {
		t.Fatalf("ProcessCallback: %v", err)
	}
	if out.Status != StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", out.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected statements: %v", err)
	}
}
