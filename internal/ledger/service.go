package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bodacover-platform/pkg/utils"
)

var (
	ErrEmptyEntry      = errors.New("entry has no lines")
	ErrInvalidLine     = errors.New("line must have exactly one positive side")
	ErrUnbalanced      = errors.New("debits and credits do not balance")
	ErrUnknownAccount  = errors.New("account code not in chart of accounts")
	ErrNotFound        = errors.New("journal entry not found")
	ErrNotDraft        = errors.New("entry is not in draft status")
	ErrNotPosted       = errors.New("entry is not posted")
	ErrAlreadyReversed = errors.New("entry already reversed")
)

// LineInput is one requested line of a new journal entry.
type LineInput struct {
	AccountCode string
	DebitMinor  int64
	CreditMinor int64
	Memo        string
}

type CreateEntryRequest struct {
	Type EntryType
	Memo string
	// SourceTransactionID makes creation idempotent: a second request with
	// the same source returns the existing entry untouched.
	SourceTransactionID string
	Lines               []LineInput
	AutoPost            bool
}

type Service struct {
	db    *sql.DB
	clock func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, clock: time.Now}
}

// CreateEntry validates and records a journal entry. Numbers are assigned
// per entry date as JE-YYYYMMDD-NNNNN. With AutoPost the entry posts in the
// same transaction, so account balances and the entry commit together.
func (s *Service) CreateEntry(ctx context.Context, req CreateEntryRequest) (*Entry, error) {
	totalDebit, totalCredit, err := validateLines(req.Lines)
	if err != nil {
		return nil, err
	}
	now := s.clock().UTC()

	var entry *Entry
	err = utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		entry, err = s.createEntryTx(ctx, tx, req, totalDebit, totalCredit, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CreateEntryInTx records (and optionally posts) an entry inside the caller's
// transaction, so a batch or settlement can commit together with its ledger
// entry.
func (s *Service) CreateEntryInTx(ctx context.Context, tx *sql.Tx, req CreateEntryRequest) (*Entry, error) {
	totalDebit, totalCredit, err := validateLines(req.Lines)
	if err != nil {
		return nil, err
	}
	return s.createEntryTx(ctx, tx, req, totalDebit, totalCredit, s.clock().UTC())
}

func (s *Service) createEntryTx(ctx context.Context, tx *sql.Tx, req CreateEntryRequest, totalDebit, totalCredit int64, now time.Time) (*Entry, error) {
	if req.SourceTransactionID != "" {
		existing, err := findEntryBySource(ctx, tx, req.SourceTransactionID)
		if err == nil {
			existing.Lines, err = listLines(ctx, tx, existing.ID)
			if err != nil {
				return nil, fmt.Errorf("load lines: %w", err)
			}
			// A draft left behind by an earlier failed attempt still needs
			// posting when the retry asks for it.
			if req.AutoPost && existing.Status == StatusDraft {
				locked, err := lockEntry(ctx, tx, existing.ID)
				if err != nil {
					return nil, fmt.Errorf("lock entry: %w", err)
				}
				if locked.Status == StatusDraft {
					if err := s.postLocked(ctx, tx, existing, now); err != nil {
						return nil, err
					}
				} else {
					existing.Status = locked.Status
					existing.PostedAt = locked.PostedAt
				}
			}
			return existing, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lookup source: %w", err)
		}
	}

	seq, err := utils.NextSequence(ctx, tx, "JE", now)
	if err != nil {
		return nil, fmt.Errorf("entry sequence: %w", err)
	}
	e := &Entry{
		ID:                  uuid.NewString(),
		EntryNumber:         fmt.Sprintf("JE-%s-%05d", now.Format("20060102"), seq),
		Type:                req.Type,
		EntryDate:           now,
		Memo:                req.Memo,
		TotalDebitMinor:     totalDebit,
		TotalCreditMinor:    totalCredit,
		Status:              StatusDraft,
		SourceTransactionID: req.SourceTransactionID,
		CreatedAt:           now,
	}
	if err := insertEntry(ctx, tx, e); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	for _, in := range req.Lines {
		l := Line{
			ID:          uuid.NewString(),
			EntryID:     e.ID,
			AccountCode: in.AccountCode,
			DebitMinor:  in.DebitMinor,
			CreditMinor: in.CreditMinor,
			Memo:        in.Memo,
		}
		if err := insertLine(ctx, tx, &l); err != nil {
			return nil, fmt.Errorf("insert line: %w", err)
		}
		e.Lines = append(e.Lines, l)
	}

	if req.AutoPost {
		if err := s.postLocked(ctx, tx, e, now); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// PostEntry moves a draft entry to POSTED and applies its lines to account
// balances. Posted and reversed entries are rejected.
func (s *Service) PostEntry(ctx context.Context, entryID string) (*Entry, error) {
	now := s.clock().UTC()

	var entry *Entry
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		e, err := lockEntry(ctx, tx, entryID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock entry: %w", err)
		}
		if e.Status != StatusDraft {
			return ErrNotDraft
		}
		e.Lines, err = listLines(ctx, tx, e.ID)
		if err != nil {
			return fmt.Errorf("load lines: %w", err)
		}
		if err := s.postLocked(ctx, tx, e, now); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ReverseEntry creates and posts a mirror entry with debits and credits
// swapped, then links the pair. Only posted, not-yet-reversed entries can be
// reversed; the original keeps its lines and moves to REVERSED.
func (s *Service) ReverseEntry(ctx context.Context, entryID, memo string) (*Entry, error) {
	now := s.clock().UTC()

	var reversal *Entry
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		orig, err := lockEntry(ctx, tx, entryID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock entry: %w", err)
		}
		if orig.Status == StatusReversed || orig.ReversedByEntryID != "" {
			return ErrAlreadyReversed
		}
		if orig.Status != StatusPosted {
			return ErrNotPosted
		}
		origLines, err := listLines(ctx, tx, orig.ID)
		if err != nil {
			return fmt.Errorf("load lines: %w", err)
		}

		seq, err := utils.NextSequence(ctx, tx, "JE", now)
		if err != nil {
			return fmt.Errorf("entry sequence: %w", err)
		}
		rev := &Entry{
			ID:               uuid.NewString(),
			EntryNumber:      fmt.Sprintf("JE-%s-%05d", now.Format("20060102"), seq),
			Type:             TypeReversal,
			EntryDate:        now,
			Memo:             memo,
			TotalDebitMinor:  orig.TotalCreditMinor,
			TotalCreditMinor: orig.TotalDebitMinor,
			Status:           StatusDraft,
			ReversesEntryID:  orig.ID,
			CreatedAt:        now,
		}
		if err := insertEntry(ctx, tx, rev); err != nil {
			return fmt.Errorf("insert reversal: %w", err)
		}
		for _, in := range reversalLines(origLines) {
			l := Line{
				ID:          uuid.NewString(),
				EntryID:     rev.ID,
				AccountCode: in.AccountCode,
				DebitMinor:  in.DebitMinor,
				CreditMinor: in.CreditMinor,
				Memo:        in.Memo,
			}
			if err := insertLine(ctx, tx, &l); err != nil {
				return fmt.Errorf("insert reversal line: %w", err)
			}
			rev.Lines = append(rev.Lines, l)
		}
		if err := s.postLocked(ctx, tx, rev, now); err != nil {
			return err
		}
		if err := setEntryReversed(ctx, tx, orig.ID, rev.ID); err != nil {
			return fmt.Errorf("mark reversed: %w", err)
		}
		reversal = rev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reversal, nil
}

// GetEntry returns an entry with its lines.
func (s *Service) GetEntry(ctx context.Context, entryID string) (*Entry, error) {
	e, err := getEntryByID(ctx, s.db, entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	e.Lines, err = listLinesDB(ctx, s.db, e.ID)
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	return e, nil
}

// Accounts returns the chart of accounts with current balances.
func (s *Service) Accounts(ctx context.Context) ([]Account, error) {
	return listAccounts(ctx, s.db)
}

// postLocked applies an entry's lines to account balances and flips it to
// POSTED. The caller holds the entry inside tx with lines loaded.
func (s *Service) postLocked(ctx context.Context, tx *sql.Tx, e *Entry, now time.Time) error {
	for _, l := range e.Lines {
		acct, err := lockAccountByCode(ctx, tx, l.AccountCode)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrUnknownAccount, l.AccountCode)
		}
		if err != nil {
			return fmt.Errorf("lock account %s: %w", l.AccountCode, err)
		}
		balance := applyToBalance(acct.NormalBalance, acct.BalanceMinor, l.DebitMinor, l.CreditMinor)
		if err := updateAccountBalance(ctx, tx, acct.ID, balance, now); err != nil {
			return fmt.Errorf("update account %s: %w", l.AccountCode, err)
		}
	}
	if err := setEntryPosted(ctx, tx, e.ID, now); err != nil {
		return fmt.Errorf("mark posted: %w", err)
	}
	e.Status = StatusPosted
	e.PostedAt = &now
	return nil
}

// validateLines checks every line has exactly one positive side and that the
// entry balances with a nonzero total.
func validateLines(lines []LineInput) (totalDebit, totalCredit int64, err error) {
	if len(lines) == 0 {
		return 0, 0, ErrEmptyEntry
	}
	for _, l := range lines {
		if l.DebitMinor < 0 || l.CreditMinor < 0 {
			return 0, 0, ErrInvalidLine
		}
		if (l.DebitMinor > 0) == (l.CreditMinor > 0) {
			return 0, 0, ErrInvalidLine
		}
		if l.AccountCode == "" {
			return 0, 0, ErrInvalidLine
		}
		totalDebit += l.DebitMinor
		totalCredit += l.CreditMinor
	}
	if totalDebit != totalCredit || totalDebit == 0 {
		return 0, 0, ErrUnbalanced
	}
	return totalDebit, totalCredit, nil
}

// reversalLines swaps each line's debit and credit.
func reversalLines(lines []Line) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineInput{
			AccountCode: l.AccountCode,
			DebitMinor:  l.CreditMinor,
			CreditMinor: l.DebitMinor,
			Memo:        l.Memo,
		})
	}
	return out
}

// applyToBalance moves an account balance by one line, honoring the
// account's normal side. Debits increase debit-normal accounts and decrease
// credit-normal ones.
func applyToBalance(normal NormalBalance, balance, debitMinor, creditMinor int64) int64 {
	if normal == NormalDebit {
		return balance + debitMinor - creditMinor
	}
	return balance + creditMinor - debitMinor
}
