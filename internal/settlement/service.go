package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bodacover-platform/internal/ledger"
	"bodacover-platform/pkg/utils"
)

var (
	ErrNotFound          = errors.New("settlement not found")
	ErrNotPending        = errors.New("settlement is not pending approval")
	ErrNotApproved       = errors.New("settlement is not approved")
	ErrNoLineItems       = errors.New("settlement has no line items")
	ErrInvalidLineItem   = errors.New("line item amount must be positive")
	ErrUnknownSettlement = errors.New("no ledger mapping for partner and settlement type")
)

type glPair struct {
	debit  string
	credit string
}

// settlementAccounts maps each supported partner payout to the GL accounts
// its completion entry moves money between.
var settlementAccounts = map[Partner]map[SettlementType]glPair{
	PartnerAggregator: {
		TypeCommission: {debit: ledger.AccountCommissionPayable, credit: ledger.AccountCashGateway},
		TypeFees:       {debit: ledger.AccountFeeRevenue, credit: ledger.AccountCashGateway},
	},
	PartnerUnderwriter: {
		TypeFees: {debit: ledger.AccountFeeRevenue, credit: ledger.AccountCashGateway},
	},
}

// LineItemInput is one requested component of a new settlement.
type LineItemInput struct {
	Description string
	Reference   string
	AmountMinor int64
}

type Service struct {
	db     *sql.DB
	ledger *ledger.Service
	clock  func() time.Time
}

func NewService(db *sql.DB, ledgerSvc *ledger.Service) *Service {
	return &Service{db: db, ledger: ledgerSvc, clock: time.Now}
}

// CreateSettlement opens a pending payout to a partner. Numbers follow
// PARTNER-TYPE-YYYYMMDD-NNN with the sequence scoped per partner and type.
func (s *Service) CreateSettlement(ctx context.Context, partner Partner, sType SettlementType, items []LineItemInput) (*Settlement, error) {
	if _, err := accountsFor(partner, sType); err != nil {
		return nil, err
	}
	total, err := validateLineItems(items)
	if err != nil {
		return nil, err
	}
	now := s.clock().UTC()

	var settlement *Settlement
	err = utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		scope := fmt.Sprintf("%s-%s", partner, sType)
		seq, err := utils.NextSequence(ctx, tx, scope, now)
		if err != nil {
			return fmt.Errorf("settlement sequence: %w", err)
		}
		st := &Settlement{
			ID:               uuid.NewString(),
			SettlementNumber: fmt.Sprintf("%s-%03d", scope+"-"+now.Format("20060102"), seq),
			Partner:          partner,
			Type:             sType,
			TotalAmountMinor: total,
			Status:           StatusPending,
			CreatedAt:        now,
		}
		if err := insertSettlement(ctx, tx, st); err != nil {
			return fmt.Errorf("insert settlement: %w", err)
		}
		for _, in := range items {
			li := LineItem{
				ID:           uuid.NewString(),
				SettlementID: st.ID,
				Description:  in.Description,
				Reference:    in.Reference,
				AmountMinor:  in.AmountMinor,
			}
			if err := insertLineItem(ctx, tx, &li); err != nil {
				return fmt.Errorf("insert line item: %w", err)
			}
			st.LineItems = append(st.LineItems, li)
		}
		settlement = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// Approve moves a pending settlement to APPROVED. There is no un-approving.
func (s *Service) Approve(ctx context.Context, settlementID, approver string) (*Settlement, error) {
	now := s.clock().UTC()

	var settlement *Settlement
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		st, err := lockSettlement(ctx, tx, settlementID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock settlement: %w", err)
		}
		if st.Status != StatusPending {
			return ErrNotPending
		}
		if err := setSettlementApproved(ctx, tx, st.ID, approver, now); err != nil {
			return fmt.Errorf("approve settlement: %w", err)
		}
		st.Status = StatusApproved
		st.ApprovedBy = approver
		st.ApprovedAt = &now
		settlement = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// Process completes an approved settlement, posting its ledger entry and
// recording the bank reference in the same transaction.
func (s *Service) Process(ctx context.Context, settlementID, bankReference string) (*Settlement, error) {
	now := s.clock().UTC()

	var settlement *Settlement
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		st, err := lockSettlement(ctx, tx, settlementID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock settlement: %w", err)
		}
		if st.Status != StatusApproved {
			return ErrNotApproved
		}
		accounts, err := accountsFor(st.Partner, st.Type)
		if err != nil {
			return err
		}

		entry, err := s.ledger.CreateEntryInTx(ctx, tx, ledger.CreateEntryRequest{
			Type:     ledger.TypeSettlement,
			Memo:     fmt.Sprintf("settlement %s", st.SettlementNumber),
			AutoPost: true,
			Lines: []ledger.LineInput{
				{AccountCode: accounts.debit, DebitMinor: st.TotalAmountMinor, Memo: st.SettlementNumber},
				{AccountCode: accounts.credit, CreditMinor: st.TotalAmountMinor, Memo: bankReference},
			},
		})
		if err != nil {
			return fmt.Errorf("post settlement entry: %w", err)
		}

		if err := setSettlementCompleted(ctx, tx, st.ID, bankReference, entry.ID, now); err != nil {
			return fmt.Errorf("complete settlement: %w", err)
		}
		st.Status = StatusCompleted
		st.BankReference = bankReference
		st.LedgerEntryID = entry.ID
		st.CompletedAt = &now
		settlement = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// Get returns one settlement with its line items.
func (s *Service) Get(ctx context.Context, settlementID string) (*Settlement, error) {
	st, err := getSettlementByID(ctx, s.db, settlementID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get settlement: %w", err)
	}
	st.LineItems, err = listLineItems(ctx, s.db, st.ID)
	if err != nil {
		return nil, fmt.Errorf("load line items: %w", err)
	}
	return st, nil
}

// List returns recent settlements, optionally filtered by status.
func (s *Service) List(ctx context.Context, status Status, limit int) ([]Settlement, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return listSettlements(ctx, s.db, status, limit)
}

func accountsFor(partner Partner, sType SettlementType) (glPair, error) {
	pair, ok := settlementAccounts[partner][sType]
	if !ok {
		return glPair{}, fmt.Errorf("%w: %s/%s", ErrUnknownSettlement, partner, sType)
	}
	return pair, nil
}

func validateLineItems(items []LineItemInput) (int64, error) {
	if len(items) == 0 {
		return 0, ErrNoLineItems
	}
	var total int64
	for _, li := range items {
		if li.AmountMinor <= 0 {
			return 0, ErrInvalidLineItem
		}
		total += li.AmountMinor
	}
	return total, nil
}
