package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends audit events to the audit_events table. The table is
// INSERT-only; no update or delete statements exist anywhere in this package.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, event_type, actor_user_id, actor_role, ip_address,
  rider_id, payment_request_id, batch_id, settlement_id, entry_id,
  message, metadata, created_at
) VALUES (
  $1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''),
  NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''),
  $11, NULLIF($12, ''), $13
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.Type, e.ActorUserID, e.ActorRole, e.IPAddress,
		e.RiderID, e.PaymentRequestID, e.BatchID, e.SettlementID, e.EntryID,
		e.Message, e.Metadata, e.CreatedAt,
	)
	return err
}
