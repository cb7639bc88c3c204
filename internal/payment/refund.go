package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"bodacover-platform/internal/gateway"
	"bodacover-platform/internal/ledger"
	"bodacover-platform/pkg/utils"
)

var ErrRefundNotFound = errors.New("payment: payout result for unknown refund")

// InitiateRefund creates a PENDING refund transaction and pushes the payout.
// The refund settles asynchronously via ProcessPayoutResult; until then the
// wallet and escrow are untouched.
func (s *Service) InitiateRefund(ctx context.Context, riderID, phone string, amountMinor int64, daysToRefund int) (*Transaction, error) {
	if riderID == "" || phone == "" || amountMinor <= 0 || daysToRefund < 1 {
		return nil, ErrInvalidInput
	}
	w, err := s.wallets.Get(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if amountMinor > w.BalanceMinor {
		return nil, fmt.Errorf("%w: refund %d exceeds wallet balance %d", ErrInvalidInput, amountMinor, w.BalanceMinor)
	}

	now := s.clock().UTC()
	txn := &Transaction{
		ID:             uuid.NewString(),
		RiderID:        riderID,
		Type:           TxnRefund,
		AmountMinor:    amountMinor,
		DaysCovered:    daysToRefund,
		Phone:          phone,
		IdempotencyKey: uuid.NewString(),
		Status:         TxnPending,
		CreatedAt:      now,
	}
	err = utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		return insertTransaction(ctx, tx, txn)
	})
	if err != nil {
		return nil, fmt.Errorf("insert refund transaction: %w", err)
	}

	resp, err := s.gateway.PushPayout(ctx, gateway.PayoutRequest{
		Phone:       phone,
		AmountMinor: amountMinor,
		Remarks:     "Cover refund",
		Occasion:    txn.ID,
	})
	if err != nil {
		failErr := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
			return setTransactionStatus(ctx, tx, txn.ID, TxnFailed, "", s.clock().UTC())
		})
		if failErr != nil {
			s.log.ErrorContext(ctx, "mark refund failed", slog.String("transaction_id", txn.ID), slog.Any("error", failErr))
		}
		return nil, fmt.Errorf("push payout: %w", err)
	}

	if err := setTransactionConversation(ctx, s.db, txn.ID, resp.ConversationID, s.clock().UTC()); err != nil {
		return nil, fmt.Errorf("store conversation id: %w", err)
	}
	txn.ConversationID = resp.ConversationID
	return txn, nil
}

// ProcessPayoutResult resolves a refund from the gateway's asynchronous
// payout result. A queue timeout leaves the refund PENDING for the provider
// to deliver a final result later; success deducts the wallet and pulls the
// rider's most recent escrow days, failure just closes the transaction.
func (s *Service) ProcessPayoutResult(ctx context.Context, res gateway.PayoutResult) (*Transaction, error) {
	now := s.clock().UTC()

	var (
		txn          *Transaction
		completedNow bool
	)
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		t, err := lockTransactionByConversation(ctx, tx, res.ConversationID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRefundNotFound
		}
		if err != nil {
			return fmt.Errorf("lock refund: %w", err)
		}
		if t.Status != TxnPending {
			txn = t
			return nil
		}
		if res.Timeout {
			// The payout may still complete; leave it for the final result.
			txn = t
			return nil
		}

		if !res.Success {
			if err := setTransactionStatus(ctx, tx, t.ID, TxnFailed, "", now); err != nil {
				return fmt.Errorf("mark refund failed: %w", err)
			}
			t.Status = TxnFailed
			txn = t
			return nil
		}

		w, err := s.wallets.LockForUpdate(ctx, tx, t.RiderID)
		if err != nil {
			return err
		}
		if err := s.wallets.ApplyRefund(ctx, tx, w, t.AmountMinor); err != nil {
			return err
		}
		if err := setTransactionStatus(ctx, tx, t.ID, TxnCompleted, res.ReceiptNumber, now); err != nil {
			return fmt.Errorf("mark refund completed: %w", err)
		}
		t.Status = TxnCompleted
		t.ReceiptNumber = res.ReceiptNumber
		txn = t
		completedNow = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !completedNow {
		return txn, nil
	}

	// Post-commit fan-out, mirroring the payment path.
	refunded, err := s.escrow.MarkAsRefunded(ctx, txn.RiderID, txn.ID, txn.DaysCovered)
	if err != nil {
		s.log.ErrorContext(ctx, "escrow refund marking failed",
			slog.String("transaction_id", txn.ID), slog.Any("error", err))
	} else if refunded < txn.DaysCovered {
		s.log.WarnContext(ctx, "fewer escrow days refunded than requested",
			slog.String("transaction_id", txn.ID),
			slog.Int("requested", txn.DaysCovered), slog.Int("refunded", refunded))
	}
	_, err = s.ledger.CreateEntry(ctx, ledger.CreateEntryRequest{
		Type:                ledger.TypeRefund,
		Memo:                fmt.Sprintf("refund to rider %s", txn.RiderID),
		SourceTransactionID: txn.ID,
		AutoPost:            true,
		Lines: []ledger.LineInput{
			{AccountCode: ledger.AccountRefundExpense, DebitMinor: txn.AmountMinor, Memo: txn.ReceiptNumber},
			{AccountCode: ledger.AccountCashGateway, CreditMinor: txn.AmountMinor},
		},
	})
	if err != nil {
		s.log.ErrorContext(ctx, "refund ledger posting failed, will retry",
			slog.String("transaction_id", txn.ID), slog.Any("error", err))
	}
	return txn, nil
}
