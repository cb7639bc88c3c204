package wallet

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const walletColumns = `
id, rider_id, balance_minor, total_deposited_minor,
deposit_completed, deposit_completed_at,
daily_payments_count, daily_payments_completed, daily_payments_completed_at,
created_at, updated_at
`

func scanWallet(row *sql.Row) (*Wallet, error) {
	var w Wallet
	err := row.Scan(
		&w.ID, &w.RiderID, &w.BalanceMinor, &w.TotalDepositedMinor,
		&w.DepositCompleted, &w.DepositCompletedAt,
		&w.DailyPaymentsCount, &w.DailyPaymentsCompleted, &w.DailyPaymentsCompletedAt,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func getWalletByRider(ctx context.Context, db *sql.DB, riderID string) (*Wallet, error) {
	q := `SELECT ` + walletColumns + ` FROM wallets WHERE rider_id = $1`
	return scanWallet(db.QueryRowContext(ctx, q, riderID))
}

func insertWallet(ctx context.Context, db *sql.DB, riderID string, now time.Time) (*Wallet, error) {
	q := `
INSERT INTO wallets (id, rider_id, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (rider_id) DO UPDATE SET updated_at = wallets.updated_at
RETURNING ` + walletColumns
	return scanWallet(db.QueryRowContext(ctx, q, uuid.NewString(), riderID, now))
}

func lockWalletByRider(ctx context.Context, tx *sql.Tx, riderID string) (*Wallet, error) {
	q := `SELECT ` + walletColumns + ` FROM wallets WHERE rider_id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRowContext(ctx, q, riderID))
}

func updateWalletProgress(ctx context.Context, tx *sql.Tx, w *Wallet) error {
	const q = `
UPDATE wallets SET
  balance_minor = $2,
  total_deposited_minor = $3,
  deposit_completed = $4,
  deposit_completed_at = $5,
  daily_payments_count = $6,
  daily_payments_completed = $7,
  daily_payments_completed_at = $8,
  updated_at = $9
WHERE id = $1
`
	_, err := tx.ExecContext(ctx, q,
		w.ID, w.BalanceMinor, w.TotalDepositedMinor,
		w.DepositCompleted, w.DepositCompletedAt,
		w.DailyPaymentsCount, w.DailyPaymentsCompleted, w.DailyPaymentsCompletedAt,
		w.UpdatedAt,
	)
	return err
}
