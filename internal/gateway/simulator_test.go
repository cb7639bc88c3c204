package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bodacover-platform/internal/config"
)

func newTestSimulator(t *testing.T, callbackBase string) *Simulator {
	t.Helper()
	s := NewSimulator(config.GatewayConfig{
		CallbackBaseURL: callbackBase,
		SimulatorDelay:  time.Millisecond,
	}, slog.Default())
	// deliver callbacks synchronously for deterministic tests
	s.after = func(_ time.Duration, fn func()) { fn() }
	return s
}

func TestSimulator_DeliversParseableSuccessCallback(t *testing.T) {
	var delivered []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		delivered = body
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTestSimulator(t, srv.URL)
	resp, err := s.PushPayment(context.Background(), PushRequest{
		Phone:       "254708374149",
		AmountMinor: 104800,
		Reference:   "BC-TEST",
		Description: "Deposit",
	})
	if err != nil {
		t.Fatalf("PushPayment: %v", err)
	}
	if resp.CheckoutID == "" || resp.MerchantRequestID == "" {
		t.Fatalf("missing correlation ids: %+v", resp)
	}
	if delivered == nil {
		t.Fatalf("no callback delivered")
	}

	res, err := ParsePaymentCallback(delivered)
	if err != nil {
		t.Fatalf("ParsePaymentCallback: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.CheckoutID != resp.CheckoutID {
		t.Fatalf("checkout id mismatch: %q vs %q", res.CheckoutID, resp.CheckoutID)
	}
	if res.AmountMinor != 104800 {
		t.Fatalf("amount = %d", res.AmountMinor)
	}
	if res.Phone != "254708374149" {
		t.Fatalf("phone = %q", res.Phone)
	}
	if res.ReceiptNumber == "" {
		t.Fatalf("missing receipt")
	}
}

func TestSimulator_CancelSuffixProducesUserFailure(t *testing.T) {
	var delivered []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	s := newTestSimulator(t, srv.URL)
	if _, err := s.PushPayment(context.Background(), PushRequest{
		Phone:       "254708374199",
		AmountMinor: 8700,
	}); err != nil {
		t.Fatalf("PushPayment: %v", err)
	}

	res, err := ParsePaymentCallback(delivered)
	if err != nil {
		t.Fatalf("ParsePaymentCallback: %v", err)
	}
	if res.Success {
		t.Fatalf("expected user cancellation")
	}
	if res.ResultCode != ResultCodeUserCancelled {
		t.Fatalf("result code = %d", res.ResultCode)
	}
}

func TestSimulator_RejectsFractionalMajorAmount(t *testing.T) {
	s := newTestSimulator(t, "http://127.0.0.1:0")
	if _, err := s.PushPayment(context.Background(), PushRequest{Phone: "254700000001", AmountMinor: 150}); err != ErrInvalidAmount {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestSimulator_PayoutCallbackParses(t *testing.T) {
	var delivered []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	s := newTestSimulator(t, srv.URL)
	resp, err := s.PushPayout(context.Background(), PayoutRequest{
		Phone:       "254708374149",
		AmountMinor: 8700,
		Remarks:     "Refund",
	})
	if err != nil {
		t.Fatalf("PushPayout: %v", err)
	}

	res, err := ParsePayoutCallback(delivered)
	if err != nil {
		t.Fatalf("ParsePayoutCallback: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success: %+v", res)
	}
	if res.ConversationID != resp.ConversationID {
		t.Fatalf("conversation id mismatch")
	}
	if res.AmountMinor != 8700 {
		t.Fatalf("amount = %d", res.AmountMinor)
	}

	// sanity: payload really is valid JSON of the provider shape
	var probe map[string]any
	if err := json.Unmarshal(delivered, &probe); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
}
