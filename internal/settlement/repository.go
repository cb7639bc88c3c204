package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const settlementColumns = `
id, settlement_number, partner, settlement_type, total_amount_minor, status,
approved_by, approved_at, bank_reference, ledger_entry_id, created_at, completed_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row rowScanner) (*Settlement, error) {
	var (
		s                        Settlement
		approvedBy, bankRef, led sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.SettlementNumber, &s.Partner, &s.Type, &s.TotalAmountMinor, &s.Status,
		&approvedBy, &s.ApprovedAt, &bankRef, &led, &s.CreatedAt, &s.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	s.ApprovedBy = approvedBy.String
	s.BankReference = bankRef.String
	s.LedgerEntryID = led.String
	return &s, nil
}

func insertSettlement(ctx context.Context, tx *sql.Tx, s *Settlement) error {
	const q = `
INSERT INTO partner_settlements (
  id, settlement_number, partner, settlement_type, total_amount_minor, status, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := tx.ExecContext(ctx, q,
		s.ID, s.SettlementNumber, s.Partner, s.Type, s.TotalAmountMinor, s.Status, s.CreatedAt,
	)
	return err
}

func insertLineItem(ctx context.Context, tx *sql.Tx, li *LineItem) error {
	const q = `
INSERT INTO settlement_line_items (id, settlement_id, description, reference, amount_minor)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := tx.ExecContext(ctx, q, li.ID, li.SettlementID, li.Description, li.Reference, li.AmountMinor)
	return err
}

func getSettlementByID(ctx context.Context, db *sql.DB, id string) (*Settlement, error) {
	q := `SELECT ` + settlementColumns + ` FROM partner_settlements WHERE id = $1`
	return scanSettlement(db.QueryRowContext(ctx, q, id))
}

func lockSettlement(ctx context.Context, tx *sql.Tx, id string) (*Settlement, error) {
	q := `SELECT ` + settlementColumns + ` FROM partner_settlements WHERE id = $1 FOR UPDATE`
	return scanSettlement(tx.QueryRowContext(ctx, q, id))
}

func listLineItems(ctx context.Context, db *sql.DB, settlementID string) ([]LineItem, error) {
	const q = `
SELECT id, settlement_id, description, reference, amount_minor
FROM settlement_line_items WHERE settlement_id = $1 ORDER BY id
`
	rows, err := db.QueryContext(ctx, q, settlementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.SettlementID, &li.Description, &li.Reference, &li.AmountMinor); err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func setSettlementApproved(ctx context.Context, tx *sql.Tx, id, approver string, now time.Time) error {
	const q = `UPDATE partner_settlements SET status = $2, approved_by = $3, approved_at = $4 WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, StatusApproved, approver, now)
	return err
}

func setSettlementCompleted(ctx context.Context, tx *sql.Tx, id, bankReference, ledgerEntryID string, now time.Time) error {
	const q = `
UPDATE partner_settlements SET status = $2, bank_reference = $3, ledger_entry_id = $4, completed_at = $5
WHERE id = $1
`
	_, err := tx.ExecContext(ctx, q, id, StatusCompleted, bankReference, ledgerEntryID, now)
	return err
}

func listSettlements(ctx context.Context, db *sql.DB, status Status, limit int) ([]Settlement, error) {
	q := `SELECT ` + settlementColumns + ` FROM partner_settlements`
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

	var settlements []Settlement
	for rows.Next() {
		var (
			s                        Settlement
			approvedBy, bankRef, led sql.NullString
		)
		err := rows.Scan(
			&s.ID, &s.SettlementNumber, &s.Partner, &s.Type, &s.TotalAmountMinor, &s.Status,
			&approvedBy, &s.ApprovedAt, &bankRef, &led, &s.CreatedAt, &s.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		s.ApprovedBy = approvedBy.String
		s.BankReference = bankRef.String
		s.LedgerEntryID = led.String
		settlements = append(settlements, s)
	}
	return settlements, rows.Err()
}
