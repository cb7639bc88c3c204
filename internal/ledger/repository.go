package ledger

import (
	"context"
	"database/sql"
	"time"
)

const entryColumns = `
id, entry_number, entry_type, entry_date, memo,
total_debit_minor, total_credit_minor, status,
source_transaction_id, reverses_entry_id, reversed_by_entry_id,
posted_at, created_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e                      Entry
		sourceID, revOf, revBy sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.EntryNumber, &e.Type, &e.EntryDate, &e.Memo,
		&e.TotalDebitMinor, &e.TotalCreditMinor, &e.Status,
		&sourceID, &revOf, &revBy,
		&e.PostedAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.SourceTransactionID = sourceID.String
	e.ReversesEntryID = revOf.String
	e.ReversedByEntryID = revBy.String
	return &e, nil
}

func getEntryByID(ctx context.Context, db *sql.DB, id string) (*Entry, error) {
	q := `SELECT ` + entryColumns + ` FROM journal_entries WHERE id = $1`
	return scanEntry(db.QueryRowContext(ctx, q, id))
}

func findEntryBySource(ctx context.Context, tx *sql.Tx, sourceTransactionID string) (*Entry, error) {
	q := `SELECT ` + entryColumns + ` FROM journal_entries WHERE source_transaction_id = $1`
	return scanEntry(tx.QueryRowContext(ctx, q, sourceTransactionID))
}

func lockEntry(ctx context.Context, tx *sql.Tx, id string) (*Entry, error) {
	q := `SELECT ` + entryColumns + ` FROM journal_entries WHERE id = $1 FOR UPDATE`
	return scanEntry(tx.QueryRowContext(ctx, q, id))
}

func insertEntry(ctx context.Context, tx *sql.Tx, e *Entry) error {
	const q = `
INSERT INTO journal_entries (
  id, entry_number, entry_type, entry_date, memo,
  total_debit_minor, total_credit_minor, status,
  source_transaction_id, reverses_entry_id, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11)
`
	_, err := tx.ExecContext(ctx, q,
		e.ID, e.EntryNumber, e.Type, e.EntryDate, e.Memo,
		e.TotalDebitMinor, e.TotalCreditMinor, e.Status,
		e.SourceTransactionID, e.ReversesEntryID, e.CreatedAt,
	)
	return err
}

func insertLine(ctx context.Context, tx *sql.Tx, l *Line) error {
	const q = `
INSERT INTO journal_lines (id, entry_id, account_code, debit_minor, credit_minor, memo)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := tx.ExecContext(ctx, q, l.ID, l.EntryID, l.AccountCode, l.DebitMinor, l.CreditMinor, l.Memo)
	return err
}

func listLines(ctx context.Context, tx *sql.Tx, entryID string) ([]Line, error) {
	const q = `
SELECT id, entry_id, account_code, debit_minor, credit_minor, memo
FROM journal_lines WHERE entry_id = $1 ORDER BY id
`
	rows, err := tx.QueryContext(ctx, q, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountCode, &l.DebitMinor, &l.CreditMinor, &l.Memo); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func listLinesDB(ctx context.Context, db *sql.DB, entryID string) ([]Line, error) {
	const q = `
SELECT id, entry_id, account_code, debit_minor, credit_minor, memo
FROM journal_lines WHERE entry_id = $1 ORDER BY id
`
	rows, err := db.QueryContext(ctx, q, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountCode, &l.DebitMinor, &l.CreditMinor, &l.Memo); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func lockAccountByCode(ctx context.Context, tx *sql.Tx, code string) (*Account, error) {
	const q = `
SELECT id, code, name, normal_balance, balance_minor, created_at, updated_at
FROM gl_accounts WHERE code = $1 FOR UPDATE
`
	var a Account
	err := tx.QueryRowContext(ctx, q, code).Scan(
		&a.ID, &a.Code, &a.Name, &a.NormalBalance, &a.BalanceMinor, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func updateAccountBalance(ctx context.Context, tx *sql.Tx, id string, balanceMinor int64, now time.Time) error {
	const q = `UPDATE gl_accounts SET balance_minor = $2, updated_at = $3 WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, balanceMinor, now)
	return err
}

func setEntryPosted(ctx context.Context, tx *sql.Tx, id string, now time.Time) error {
	const q = `UPDATE journal_entries SET status = $2, posted_at = $3 WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, StatusPosted, now)
	return err
}

func setEntryReversed(ctx context.Context, tx *sql.Tx, id, reversedBy string) error {
	const q = `UPDATE journal_entries SET status = $2, reversed_by_entry_id = $3 WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, StatusReversed, reversedBy)
	return err
}

func listAccounts(ctx context.Context, db *sql.DB) ([]Account, error) {
	const q = `
SELECT id, code, name, normal_balance, balance_minor, created_at, updated_at
FROM gl_accounts ORDER BY code
`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.NormalBalance, &a.BalanceMinor, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
