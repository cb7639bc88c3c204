package recon

import (
	"context"
	"database/sql"
	"time"
)

// PostgresRepo joins completed payment transactions against their journal
// entries and escrow records to find gaps.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListUnreconciled(ctx context.Context, since time.Time, limit int) ([]Finding, error) {
	const q = `
SELECT
  t.id, t.rider_id, t.amount_minor, t.created_at,
  je.id IS NULL AS missing_entry,
  (je.id IS NOT NULL AND je.status = 'DRAFT') AS entry_not_posted,
  er.id IS NULL AS missing_escrow
FROM transactions t
LEFT JOIN journal_entries je ON je.source_transaction_id = t.id
LEFT JOIN escrow_records er ON er.transaction_id = t.id
WHERE t.status = 'COMPLETED'
  AND t.txn_type IN ('deposit', 'daily')
  AND t.created_at >= $1
  AND (je.id IS NULL OR je.status = 'DRAFT' OR er.id IS NULL)
ORDER BY t.created_at
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var f Finding
		err := rows.Scan(
			&f.TransactionID, &f.RiderID, &f.AmountMinor, &f.CreatedAt,
			&f.MissingEntry, &f.EntryNotPosted, &f.MissingEscrow,
		)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}
