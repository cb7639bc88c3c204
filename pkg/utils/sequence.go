package utils

import (
	"context"
	"database/sql"
	"time"
)

// NextSequence returns the next value of a named daily counter, scoped to
// (scope, date). Sequences reset each day per scope and are used for
// human-readable document numbers (journal entries, remittance batches,
// settlements).
//
// The upsert runs inside the caller's transaction so a rolled-back document
// cannot publish its number; gapless numbering is not promised.
func NextSequence(ctx context.Context, tx *sql.Tx, scope string, date time.Time) (int64, error) {
	const q = `
INSERT INTO daily_sequences (scope, seq_date, next_value)
VALUES ($1, $2, 1)
ON CONFLICT (scope, seq_date)
DO UPDATE SET next_value = daily_sequences.next_value + 1
RETURNING next_value
`
	var n int64
	if err := tx.QueryRowContext(ctx, q, scope, date.Format("2006-01-02")).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
