package ledger

import (
	"errors"
	"testing"
)

func TestValidateLines(t *testing.T) {
	tests := []struct {
		name    string
		lines   []LineInput
		wantErr error
	}{
		{
			name: "balanced pair",
			lines: []LineInput{
				{AccountCode: AccountCashGateway, DebitMinor: 104800},
				{AccountCode: AccountPremiumPayable, CreditMinor: 104800},
			},
		},
		{
			name: "three way split",
			lines: []LineInput{
				{AccountCode: AccountCashGateway, DebitMinor: 104800},
				{AccountCode: AccountPremiumPayable, CreditMinor: 15000},
				{AccountCode: AccountFeeRevenue, CreditMinor: 89800},
			},
		},
		{name: "empty", wantErr: ErrEmptyEntry},
		{
			name: "unbalanced",
			lines: []LineInput{
				{AccountCode: AccountCashGateway, DebitMinor: 100},
				{AccountCode: AccountFeeRevenue, CreditMinor: 200},
			},
			wantErr: ErrUnbalanced,
		},
		{
			name: "zero totals",
			lines: []LineInput{
				{AccountCode: AccountCashGateway, DebitMinor: 0, CreditMinor: 0},
			},
			wantErr: ErrInvalidLine,
		},
		{
			name: "both sides set",
			lines: []LineInput{
				{AccountCode: AccountCashGateway, DebitMinor: 100, CreditMinor: 100},
				{AccountCode: AccountFeeRevenue, CreditMinor: 0},
			},
			wantErr: ErrInvalidLine,
		},
		{
			name: "negative amount",
			lines: []LineInput{
				{AccountCode: AccountCashGateway, DebitMinor: -100},
				{AccountCode: AccountFeeRevenue, CreditMinor: -100},
			},
			wantErr: ErrInvalidLine,
		},
		{
			name: "missing account code",
			lines: []LineInput{
				{DebitMinor: 100},
				{AccountCode: AccountFeeRevenue, CreditMinor: 100},
			},
			wantErr: ErrInvalidLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debit, credit, err := validateLines(tt.lines)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && debit != credit {
				t.Fatalf("debit %d != credit %d", debit, credit)
			}
		})
	}
}

func TestReversalLinesSwapSides(t *testing.T) {
	orig := []Line{
		{AccountCode: AccountCashGateway, DebitMinor: 8700, Memo: "daily payment"},
		{AccountCode: AccountPremiumPayable, CreditMinor: 7000},
		{AccountCode: AccountFeeRevenue, CreditMinor: 1700},
	}
	rev := reversalLines(orig)
	if len(rev) != 3 {
		t.Fatalf("got %d lines, want 3", len(rev))
	}
	if rev[0].CreditMinor != 8700 || rev[0].DebitMinor != 0 {
		t.Fatalf("line 0 not swapped: %+v", rev[0])
	}
	if rev[1].DebitMinor != 7000 || rev[2].DebitMinor != 1700 {
		t.Fatalf("credit lines not swapped: %+v %+v", rev[1], rev[2])
	}
	if rev[0].Memo != "daily payment" {
		t.Fatal("line memo not carried over")
	}

	if _, _, err := validateLines(rev); err != nil {
		t.Fatalf("reversal lines do not validate: %v", err)
	}
}

func TestApplyToBalance(t *testing.T) {
	tests := []struct {
		name          string
		normal        NormalBalance
		balance       int64
		debit, credit int64
		want          int64
	}{
		{"debit increases asset", NormalDebit, 1000, 500, 0, 1500},
		{"credit decreases asset", NormalDebit, 1000, 0, 300, 700},
		{"credit increases liability", NormalCredit, 1000, 0, 500, 1500},
		{"debit decreases liability", NormalCredit, 1000, 400, 0, 600},
		{"asset can go negative", NormalDebit, 100, 0, 300, -200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := applyToBalance(tt.normal, tt.balance, tt.debit, tt.credit); got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}
