package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var entryTestColumns = []string{
	"id", "entry_number", "entry_type", "entry_date", "memo",
	"total_debit_minor", "total_credit_minor", "status",
	"source_transaction_id", "reverses_entry_id", "reversed_by_entry_id",
	"posted_at", "created_at",
}

var lineTestColumns = []string{"id", "entry_id", "account_code", "debit_minor", "credit_minor", "memo"}

func draftEntryRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(entryTestColumns).AddRow(
		"je-1", "JE-20260401-00001", string(TypePayment), now, "daily premium",
		int64(8700), int64(8700), string(StatusDraft),
		"txn-1", nil, nil,
		nil, now,
	)
}

func accountRow(code string, normal NormalBalance, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "name", "normal_balance", "balance_minor", "created_at", "updated_at"}).
		AddRow("acct-"+code, code, "account "+code, string(normal), int64(0), now, now)
}

// A retried CreateEntry for a source transaction that already has a draft
// entry must post that draft when AutoPost is set, instead of handing the
// stuck draft back unchanged.
func TestCreateEntryRetryPostsExistingDraft(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM journal_entries WHERE source_transaction_id`).
		WillReturnRows(draftEntryRow(now))
	mock.ExpectQuery(`SELECT (.+) FROM journal_lines WHERE entry_id`).
		WillReturnRows(sqlmock.NewRows(lineTestColumns).
			AddRow("jl-1", "je-1", AccountCashGateway, int64(8700), int64(0), "").
			AddRow("jl-2", "je-1", AccountPremiumPayable, int64(0), int64(8700), ""))
	mock.ExpectQuery(`SELECT (.+) FROM journal_entries WHERE id (.+) FOR UPDATE`).
		WillReturnRows(draftEntryRow(now))
	mock.ExpectQuery(`SELECT (.+) FROM gl_accounts WHERE code`).
		WillReturnRows(accountRow(AccountCashGateway, NormalDebit, now))
	mock.ExpectExec(`UPDATE gl_accounts SET balance_minor`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM gl_accounts WHERE code`).
		WillReturnRows(accountRow(AccountPremiumPayable, NormalCredit, now))
	mock.ExpectExec(`UPDATE gl_accounts SET balance_minor`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE journal_entries SET status`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := &Service{db: db, clock: func() time.Time { return now }}
	entry, err := s.CreateEntry(context.Background(), CreateEntryRequest{
		Type:                TypePayment,
		Memo:                "daily premium",
		SourceTransactionID: "txn-1",
		AutoPost:            true,
		Lines: []LineInput{
			{AccountCode: AccountCashGateway, DebitMinor: 8700},
			{AccountCode: AccountPremiumPayable, CreditMinor: 8700},
		},
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if entry.ID != "je-1" || entry.EntryNumber != "JE-20260401-00001" {
		t.Fatalf("expected the existing entry back, got %s/%s", entry.ID, entry.EntryNumber)
	}
	if entry.Status != StatusPosted || entry.PostedAt == nil {
		t.Fatalf("entry status = %s, posted_at = %v, want POSTED", entry.Status, entry.PostedAt)
	}

	// No second entry, line, or sequence number may have been written.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected statements: %v", err)
	}
}
