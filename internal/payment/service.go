package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bodacover-platform/internal/audit"
	"bodacover-platform/internal/config"
	"bodacover-platform/internal/escrow"
	"bodacover-platform/internal/gateway"
	"bodacover-platform/internal/ledger"
	"bodacover-platform/internal/plan"
	"bodacover-platform/internal/policy"
	"bodacover-platform/internal/wallet"
	"bodacover-platform/pkg/logger"
	"bodacover-platform/pkg/utils"
)

var (
	ErrInvalidInput    = errors.New("payment: invalid input")
	ErrRequestNotFound = errors.New("payment request not found")
	// ErrUnknownCallback marks a callback whose correlation id matches
	// nothing we sent. Always treated as a security event.
	ErrUnknownCallback = errors.New("payment: callback for unknown request")
	// ErrCallbackMismatch marks a callback whose amount or phone does not
	// match the stored request.
	ErrCallbackMismatch = errors.New("payment: callback failed validation")
)

// Service orchestrates the payment lifecycle: initiation, callback
// processing, the financial commit, and post-commit ledger/escrow fan-out.
type Service struct {
	db      *sql.DB
	gateway gateway.Client
	wallets *wallet.Service
	plan    plan.Plan
	ledger  *ledger.Service
	escrow  *escrow.Service
	audit   *audit.Service
	policy  policy.Notifier
	cfg     config.PaymentsConfig
	log     *slog.Logger
	clock   func() time.Time
}

func NewService(
	db *sql.DB,
	gw gateway.Client,
	wallets *wallet.Service,
	p plan.Plan,
	ledgerSvc *ledger.Service,
	escrowSvc *escrow.Service,
	auditSvc *audit.Service,
	notifier policy.Notifier,
	cfg config.PaymentsConfig,
	log *slog.Logger,
) *Service {
	return &Service{
		db:      db,
		gateway: gw,
		wallets: wallets,
		plan:    p,
		ledger:  ledgerSvc,
		escrow:  escrowSvc,
		audit:   auditSvc,
		policy:  notifier,
		cfg:     cfg,
		log:     log,
		clock:   time.Now,
	}
}

// InitiationResult is what the caller gets back from InitiatePayment,
// whether the request is new or a replay of an earlier idempotency key.
type InitiationResult struct {
	RequestID       string        `json:"request_id"`
	Status          RequestStatus `json:"status"`
	CheckoutID      string        `json:"checkout_id,omitempty"`
	AmountMinor     int64         `json:"amount_minor"`
	DaysCovered     int           `json:"days_covered"`
	TransactionID   string        `json:"transaction_id,omitempty"`
	CustomerMessage string        `json:"customer_message,omitempty"`
}

// InitiatePayment starts a deposit or daily payment. The idempotency key is
// checked first: a repeated key returns the existing request's outcome with
// no side effects. New requests are validated against the rider's plan
// progress, pushed to the gateway, and left in SENT awaiting the callback.
func (s *Service) InitiatePayment(ctx context.Context, riderID, phone string, pType PaymentType, idempotencyKey string, daysCount int) (*InitiationResult, error) {
	if riderID == "" || phone == "" || idempotencyKey == "" {
		return nil, ErrInvalidInput
	}
	if pType != TypeDeposit && pType != TypeDaily {
		return nil, fmt.Errorf("%w: unknown payment type %q", ErrInvalidInput, pType)
	}

	existing, err := findRequestByKey(ctx, s.db, idempotencyKey)
	if err == nil {
		return resultFrom(existing), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}

	w, err := s.wallets.GetOrCreate(ctx, riderID)
	if err != nil {
		return nil, err
	}

	var (
		amount      int64
		paymentDay  int
		daysCovered int
	)
	switch pType {
	case TypeDeposit:
		if err := s.wallets.CheckDepositEligibility(w); err != nil {
			return nil, err
		}
		amount = s.plan.DepositAmount()
		paymentDay = 1
		daysCovered = 1
	case TypeDaily:
		if err := s.wallets.CheckDailyEligibility(w); err != nil {
			return nil, err
		}
		if daysCount <= 0 {
			daysCount = 1
		}
		amount, daysCovered, err = s.plan.DailyCharge(daysCount, w.DailyPaymentsCount)
		if err != nil {
			return nil, err
		}
		paymentDay = w.DailyPaymentsCount + 2
	}

	now := s.clock().UTC()
	req := &Request{
		ID:             uuid.NewString(),
		RiderID:        riderID,
		Type:           pType,
		AmountMinor:    amount,
		Phone:          phone,
		IdempotencyKey: idempotencyKey,
		PaymentDay:     paymentDay,
		DaysCovered:    daysCovered,
		Status:         StatusInitiated,
		ExpiresAt:      now.Add(s.cfg.RequestExpiry),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := insertRequest(ctx, s.db, req); err != nil {
		// A concurrent request with the same key may have won the unique
		// index race; replay its outcome.
		if dup, lookupErr := findRequestByKey(ctx, s.db, idempotencyKey); lookupErr == nil {
			return resultFrom(dup), nil
		}
		return nil, fmt.Errorf("insert request: %w", err)
	}

	resp, err := s.gateway.PushPayment(ctx, gateway.PushRequest{
		Phone:       phone,
		AmountMinor: amount,
		Reference:   riderID,
		Description: pushDescription(pType),
	})
	if err != nil {
		if _, failErr := setRequestFailed(ctx, s.db, req.ID, StatusFailed, err.Error(), "", s.clock().UTC()); failErr != nil {
			s.log.ErrorContext(ctx, "mark request failed", slog.String("request_id", req.ID), slog.Any("error", failErr))
		}
		return nil, fmt.Errorf("push payment: %w", err)
	}

	if err := setRequestSent(ctx, s.db, req.ID, resp.CheckoutID, resp.MerchantRequestID, s.clock().UTC()); err != nil {
		return nil, fmt.Errorf("mark request sent: %w", err)
	}
	return &InitiationResult{
		RequestID:       req.ID,
		Status:          StatusSent,
		CheckoutID:      resp.CheckoutID,
		AmountMinor:     amount,
		DaysCovered:     daysCovered,
		CustomerMessage: resp.CustomerMessage,
	}, nil
}

// CallbackOutcome reports what processing a gateway result did.
type CallbackOutcome struct {
	RequestID     string
	Status        RequestStatus
	TransactionID string
}

// ProcessCallback resolves a payment request from a gateway result, whether
// delivered by webhook or fetched by the stale-request poller.
//
// A request that is already COMPLETED returns the original transaction id
// and does nothing else, so re-delivered callbacks are harmless. The
// financial commit (wallet, transaction, request status) happens in one
// transaction under the wallet row lock; ledger posting and escrow recording
// run after commit and are retried via their idempotency keys if they fail.
func (s *Service) ProcessCallback(ctx context.Context, res gateway.NormalizedResult) (*CallbackOutcome, error) {
	req, err := findRequestByCheckout(ctx, s.db, res.CheckoutID)
	if errors.Is(err, sql.ErrNoRows) {
		s.securityAlert(ctx, "", "", "callback for unknown checkout id", res.Raw)
		return nil, ErrUnknownCallback
	}
	if err != nil {
		return nil, fmt.Errorf("lookup request: %w", err)
	}

	switch req.Status {
	case StatusCompleted:
		return &CallbackOutcome{RequestID: req.ID, Status: req.Status, TransactionID: req.TransactionID}, nil
	case StatusFailed, StatusCancelled:
		return &CallbackOutcome{RequestID: req.ID, Status: req.Status}, nil
	}

	if !res.Success {
		status := failureStatus(res.ResultCode)
		reason := fmt.Sprintf("%d: %s", res.ResultCode, res.ResultDescription)
		moved, err := setRequestFailed(ctx, s.db, req.ID, status, reason, res.Raw, s.clock().UTC())
		if err != nil {
			return nil, fmt.Errorf("mark request failed: %w", err)
		}
		if !moved {
			// A concurrent delivery resolved the request first; its
			// committed outcome wins.
			return s.resolvedOutcome(ctx, req.ID)
		}
		return &CallbackOutcome{RequestID: req.ID, Status: status}, nil
	}

	if !withinTolerance(req.AmountMinor, res.AmountMinor, s.cfg.AmountToleranceMinor) {
		reason := fmt.Sprintf("callback amount %d outside tolerance of expected %d", res.AmountMinor, req.AmountMinor)
		s.securityAlert(ctx, req.RiderID, req.ID, reason, res.Raw)
		if _, err := setRequestFailed(ctx, s.db, req.ID, StatusFailed, reason, res.Raw, s.clock().UTC()); err != nil {
			return nil, fmt.Errorf("mark request failed: %w", err)
		}
		return nil, ErrCallbackMismatch
	}
	if !phoneSuffixMatch(req.Phone, res.Phone) {
		reason := "callback phone does not match request"
		s.securityAlert(ctx, req.RiderID, req.ID, reason, res.Raw)
		if _, err := setRequestFailed(ctx, s.db, req.ID, StatusFailed, reason, res.Raw, s.clock().UTC()); err != nil {
			return nil, fmt.Errorf("mark request failed: %w", err)
		}
		return nil, ErrCallbackMismatch
	}

	now := s.clock().UTC()
	var (
		txn    *Transaction
		events wallet.Events
		cached *CallbackOutcome
	)
	err = utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		locked, err := lockRequest(ctx, tx, req.ID)
		if err != nil {
			return fmt.Errorf("lock request: %w", err)
		}
		// A concurrent delivery may have resolved the request while we
		// validated; the first committed outcome wins.
		switch locked.Status {
		case StatusCompleted:
			cached = &CallbackOutcome{RequestID: locked.ID, Status: locked.Status, TransactionID: locked.TransactionID}
			return nil
		case StatusFailed, StatusCancelled:
			cached = &CallbackOutcome{RequestID: locked.ID, Status: locked.Status}
			return nil
		}

		w, err := s.wallets.LockForUpdate(ctx, tx, locked.RiderID)
		if err != nil {
			return err
		}
		t := &Transaction{
			ID:             uuid.NewString(),
			RiderID:        locked.RiderID,
			Type:           transactionType(locked.Type),
			AmountMinor:    locked.AmountMinor,
			PaymentDay:     locked.PaymentDay,
			DaysCovered:    locked.DaysCovered,
			Phone:          locked.Phone,
			IdempotencyKey: locked.IdempotencyKey,
			ReceiptNumber:  res.ReceiptNumber,
			Status:         TxnCompleted,
			CreatedAt:      now,
		}
		if err := insertTransaction(ctx, tx, t); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		events, err = s.wallets.ApplyPayment(ctx, tx, w, locked.PaymentDay, locked.AmountMinor, locked.DaysCovered)
		if err != nil {
			return err
		}
		if err := setRequestCompleted(ctx, tx, locked.ID, t.ID, res.Raw, now); err != nil {
			return fmt.Errorf("complete request: %w", err)
		}
		txn = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	s.recordFinancials(ctx, txn)
	s.emitPolicyTriggers(ctx, txn, events)

	return &CallbackOutcome{RequestID: req.ID, Status: StatusCompleted, TransactionID: txn.ID}, nil
}

// resolvedOutcome re-reads a request after a guarded update matched no row
// and returns whatever outcome the winning delivery committed.
func (s *Service) resolvedOutcome(ctx context.Context, requestID string) (*CallbackOutcome, error) {
	req, err := findRequestByID(ctx, s.db, requestID)
	if err != nil {
		return nil, fmt.Errorf("lookup request: %w", err)
	}
	return &CallbackOutcome{RequestID: req.ID, Status: req.Status, TransactionID: req.TransactionID}, nil
}

// GetRequestByKey returns the request created for an idempotency key.
func (s *Service) GetRequestByKey(ctx context.Context, idempotencyKey string) (*Request, error) {
	req, err := findRequestByKey(ctx, s.db, idempotencyKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup request: %w", err)
	}
	return req, nil
}

// GetRequest returns one payment request by id.
func (s *Service) GetRequest(ctx context.Context, requestID string) (*Request, error) {
	req, err := findRequestByID(ctx, s.db, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup request: %w", err)
	}
	return req, nil
}

// recordFinancials posts the ledger entry and creates the escrow record for
// a committed transaction. Both are idempotent on the transaction id, so a
// failure here is logged and safely retried later (see RetryFinancials).
func (s *Service) recordFinancials(ctx context.Context, txn *Transaction) {
	premium, fee := s.premiumSplit(txn.PaymentDay, txn.DaysCovered, txn.AmountMinor)

	lines := []ledger.LineInput{
		{AccountCode: ledger.AccountCashGateway, DebitMinor: txn.AmountMinor, Memo: txn.ReceiptNumber},
	}
	if premium > 0 {
		lines = append(lines, ledger.LineInput{AccountCode: ledger.AccountPremiumPayable, CreditMinor: premium})
	}
	if fee > 0 {
		lines = append(lines, ledger.LineInput{AccountCode: ledger.AccountFeeRevenue, CreditMinor: fee})
	}
	_, err := s.ledger.CreateEntry(ctx, ledger.CreateEntryRequest{
		Type:                ledger.TypePayment,
		Memo:                fmt.Sprintf("%s payment day %d", txn.Type, txn.PaymentDay),
		SourceTransactionID: txn.ID,
		Lines:               lines,
		AutoPost:            true,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "ledger posting failed, will retry",
			slog.String("transaction_id", txn.ID), slog.Any("error", err))
	}

	if _, err := s.escrow.CreateRecord(ctx, txn.RiderID, txn.ID, txn.PaymentDay, premium, fee); err != nil {
		s.log.ErrorContext(ctx, "escrow recording failed, will retry",
			slog.String("transaction_id", txn.ID), slog.Any("error", err))
	}
}

// RetryFinancials re-runs the post-commit ledger and escrow steps for a
// transaction found without them by reconciliation.
func (s *Service) RetryFinancials(ctx context.Context, transactionID string) error {
	txn, err := getTransactionByID(ctx, s.db, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("transaction %s not found", transactionID)
	}
	if err != nil {
		return fmt.Errorf("lookup transaction: %w", err)
	}
	if txn.Status != TxnCompleted || txn.Type == TxnRefund {
		return fmt.Errorf("transaction %s is not a completed payment", transactionID)
	}
	s.recordFinancials(ctx, txn)
	return nil
}

func (s *Service) emitPolicyTriggers(ctx context.Context, txn *Transaction, events wallet.Events) {
	emit := func(trigger string) {
		ev := policy.Event{
			RiderID:       txn.RiderID,
			Trigger:       trigger,
			TransactionID: txn.ID,
			PaymentDay:    txn.PaymentDay,
			OccurredAt:    s.clock().UTC(),
		}
		if err := s.policy.PolicyTriggered(ctx, ev); err != nil {
			s.log.ErrorContext(ctx, "policy trigger delivery failed",
				slog.String("rider_id", txn.RiderID), slog.String("trigger", trigger), slog.Any("error", err))
		}
	}
	if events.DepositCompleted {
		emit(policy.TriggerDepositCompleted)
	}
	if events.PolicyCompleted {
		emit(policy.TriggerPlanCompleted)
	}
}

func (s *Service) securityAlert(ctx context.Context, riderID, requestID, message, payload string) {
	logger.Security(ctx, "callback_rejected",
		"message", message,
		"rider_id", riderID,
		"request_id", requestID)
	if err := s.audit.LogSecurityAlert(ctx, riderID, requestID, message, payload); err != nil {
		s.log.ErrorContext(ctx, "audit append failed", slog.Any("error", err))
	}
}

func (s *Service) premiumSplit(paymentDay, daysCovered int, amountMinor int64) (premium, fee int64) {
	split := s.plan.SplitForDay(paymentDay)
	premium = split.PremiumMinor * int64(daysCovered)
	if premium > amountMinor {
		premium = amountMinor
	}
	return premium, amountMinor - premium
}

func resultFrom(req *Request) *InitiationResult {
	return &InitiationResult{
		RequestID:     req.ID,
		Status:        req.Status,
		CheckoutID:    req.CheckoutID,
		AmountMinor:   req.AmountMinor,
		DaysCovered:   req.DaysCovered,
		TransactionID: req.TransactionID,
	}
}

func transactionType(p PaymentType) TransactionType {
	if p == TypeDeposit {
		return TxnDeposit
	}
	return TxnDaily
}

func pushDescription(p PaymentType) string {
	if p == TypeDeposit {
		return "Cover deposit"
	}
	return "Cover daily"
}

func failureStatus(resultCode int) RequestStatus {
	if resultCode == gateway.ResultCodeUserCancelled {
		return StatusCancelled
	}
	return StatusFailed
}

// withinTolerance reports whether the callback amount is close enough to the
// expected amount to absorb provider-side rounding.
func withinTolerance(expected, got, tolerance int64) bool {
	diff := expected - got
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// phoneSuffixMatch compares the trailing nine digits, ignoring formatting
// and country-code differences. Callbacks without a phone pass; the amount
// check still applies.
func phoneSuffixMatch(stored, got string) bool {
	if got == "" {
		return true
	}
	a, b := digits(stored), digits(got)
	if len(a) > 9 {
		a = a[len(a)-9:]
	}
	if len(b) > 9 {
		b = b[len(b)-9:]
	}
	return a != "" && a == b
}

func digits(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
