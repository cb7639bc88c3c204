package payment

import (
	"testing"

	"bodacover-platform/internal/config"
	"bodacover-platform/internal/gateway"
	"bodacover-platform/internal/plan"
)

func testPlan() plan.Plan {
	return plan.New(config.PlanConfig{
		DepositAmountMinor: 104800,
		DailyAmountMinor:   8700,
		DailyCount:         30,
		Day1PremiumMinor:   15000,
		DailyPremiumMinor:  7000,
	})
}

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		name          string
		expected, got int64
		tolerance     int64
		want          bool
	}{
		{"exact", 104800, 104800, 100, true},
		{"under within", 104800, 104700, 100, true},
		{"over within", 104800, 104900, 100, true},
		{"under outside", 104800, 104699, 100, false},
		{"over outside", 104800, 104901, 100, false},
		{"zero tolerance exact", 8700, 8700, 0, true},
		{"zero tolerance off by one", 8700, 8701, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := withinTolerance(tt.expected, tt.got, tt.tolerance); got != tt.want {
				t.Fatalf("withinTolerance(%d, %d, %d) = %v", tt.expected, tt.got, tt.tolerance, got)
			}
		})
	}
}

func TestPhoneSuffixMatch(t *testing.T) {
	tests := []struct {
		name        string
		stored, got string
		want        bool
	}{
		{"identical", "254708374149", "254708374149", true},
		{"local vs international", "0708374149", "254708374149", true},
		{"formatted", "+254 708 374 149", "254708374149", true},
		{"different subscriber", "254708374149", "254708374100", false},
		{"empty callback phone passes", "254708374149", "", true},
		{"empty stored phone fails", "", "254708374149", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := phoneSuffixMatch(tt.stored, tt.got); got != tt.want {
				t.Fatalf("phoneSuffixMatch(%q, %q) = %v", tt.stored, tt.got, got)
			}
		})
	}
}

func TestFailureStatus(t *testing.T) {
	if got := failureStatus(gateway.ResultCodeUserCancelled); got != StatusCancelled {
		t.Fatalf("cancelled code mapped to %s", got)
	}
	if got := failureStatus(gateway.ResultCodeInsufficientFunds); got != StatusFailed {
		t.Fatalf("insufficient funds mapped to %s", got)
	}
	if got := failureStatus(gateway.ResultCodeWrongPIN); got != StatusFailed {
		t.Fatalf("wrong pin mapped to %s", got)
	}
}

func TestPremiumSplit(t *testing.T) {
	s := &Service{plan: testPlan()}

	premium, fee := s.premiumSplit(1, 1, 104800)
	if premium != 15000 || fee != 89800 {
		t.Fatalf("deposit split = %d/%d, want 15000/89800", premium, fee)
	}

	premium, fee = s.premiumSplit(5, 1, 8700)
	if premium != 7000 || fee != 1700 {
		t.Fatalf("daily split = %d/%d, want 7000/1700", premium, fee)
	}

	premium, fee = s.premiumSplit(5, 3, 26100)
	if premium != 21000 || fee != 5100 {
		t.Fatalf("multi-day split = %d/%d, want 21000/5100", premium, fee)
	}
}

func TestResultFromCompletedRequest(t *testing.T) {
	req := &Request{
		ID:            "req1",
		Status:        StatusCompleted,
		CheckoutID:    "ws_CO_1",
		AmountMinor:   104800,
		DaysCovered:   1,
		TransactionID: "txn1",
	}
	res := resultFrom(req)
	if res.Status != StatusCompleted || res.TransactionID != "txn1" {
		t.Fatalf("replayed result = %+v", res)
	}
	if res.CheckoutID != "ws_CO_1" || res.AmountMinor != 104800 {
		t.Fatalf("replayed result lost correlation fields: %+v", res)
	}
}

func TestTransactionType(t *testing.T) {
	if transactionType(TypeDeposit) != TxnDeposit {
		t.Fatal("deposit request should produce a deposit transaction")
	}
	if transactionType(TypeDaily) != TxnDaily {
		t.Fatal("daily request should produce a daily transaction")
	}
}
