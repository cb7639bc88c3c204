package escrow

import (
	"context"
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// idsConverter lets the mock driver carry the []string bound to ANY($n).
type idsConverter struct{}

func (idsConverter) ConvertValue(v any) (driver.Value, error) {
	if ids, ok := v.([]string); ok {
		return strings.Join(ids, ","), nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

var recordTestColumns = []string{
	"id", "rider_id", "transaction_id", "payment_day", "premium_minor", "fee_minor",
	"escrow_type", "status", "batch_id", "refund_transaction_id", "created_at", "updated_at",
}

func TestCreateDay1BatchClaimsPendingRecordsOnce(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(idsConverter{}))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC)
	s := &Service{db: db, clock: func() time.Time { return now }}

	// First run: one pending day-1 record gets claimed, numbered, scheduled.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM escrow_records WHERE status`).
		WillReturnRows(sqlmock.NewRows(recordTestColumns).AddRow(
			"esc-1", "rider-1", "txn-1", 1, int64(15000), int64(89800),
			string(TypeDay1Immediate), string(RecordPending), nil, nil, now, now,
		))
	mock.ExpectQuery(`INSERT INTO daily_sequences`).
		WillReturnRows(sqlmock.NewRows([]string{"next_value"}).AddRow(int64(1)))
	mock.ExpectExec(`INSERT INTO remittance_batches`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE escrow_records SET status`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.CreateDay1Batch(context.Background())
	if err != nil {
		t.Fatalf("CreateDay1Batch: %v", err)
	}
	if res.Batch == nil {
		t.Fatal("expected a batch")
	}
	if res.Batch.BatchNumber != "RBD-20260401-001" {
		t.Fatalf("batch number = %s", res.Batch.BatchNumber)
	}
	if res.RecordCount != 1 || res.TotalPremiumMinor != 15000 {
		t.Fatalf("result = %d records / %d premium", res.RecordCount, res.TotalPremiumMinor)
	}

	// Second run: nothing pending anymore, so no batch and no inserts.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM escrow_records WHERE status`).
		WillReturnRows(sqlmock.NewRows(recordTestColumns))
	mock.ExpectCommit()

	res, err = s.CreateDay1Batch(context.Background())
	if err != nil {
		t.Fatalf("CreateDay1Batch (empty): %v", err)
	}
	if res.Batch != nil || res.RecordCount != 0 || res.TotalPremiumMinor != 0 {
		t.Fatalf("empty run result = %+v, want zero-value no-op", res)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected statements: %v", err)
	}
}
