package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"bodacover-platform/internal/config"

	"github.com/google/uuid"
)

// Simulator stands in for the live provider when no gateway credentials are
// configured. Pushes return realistic responses and, after Delay, the
// simulator self-delivers a synthetic callback to the configured endpoint so
// the orchestrator, ledger and escrow paths run exactly as in production.
//
// Outcome control, for manual testing:
// - phone ending "99": user cancelled (1032)
// - phone ending "98": insufficient funds (1)
// - anything else: success
type Simulator struct {
	cfg        config.GatewayConfig
	httpClient *http.Client
	log        *slog.Logger
	clock      func() time.Time

	// after is injectable so tests can deliver callbacks synchronously.
	after func(d time.Duration, fn func())

	mu      sync.Mutex
	pending map[string]simulatedPush // by checkout id
}

type simulatedPush struct {
	merchantID  string
	phone       string
	amountMinor int64
}

func NewSimulator(cfg config.GatewayConfig, log *slog.Logger) *Simulator {
	return &Simulator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
		clock:      time.Now,
		after:      func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		pending:    make(map[string]simulatedPush),
	}
}

func (s *Simulator) AccessToken(ctx context.Context) (string, error) {
	return "simulated-" + uuid.NewString(), nil
}

func (s *Simulator) PushPayment(ctx context.Context, req PushRequest) (PushResponse, error) {
	if _, err := majorUnits(req.AmountMinor); err != nil {
		return PushResponse{}, err
	}

	checkoutID := "ws_CO_" + s.clock().Format("020120060102150405") + uuid.NewString()[:6]
	merchantID := uuid.NewString()

	s.mu.Lock()
	s.pending[checkoutID] = simulatedPush{merchantID: merchantID, phone: req.Phone, amountMinor: req.AmountMinor}
	s.mu.Unlock()

	s.log.Info("simulated push accepted", "checkout_id", checkoutID, "amount_minor", req.AmountMinor)

	s.after(s.cfg.SimulatorDelay, func() { s.deliverPaymentCallback(checkoutID) })

	return PushResponse{
		CheckoutID:        checkoutID,
		MerchantRequestID: merchantID,
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

func (s *Simulator) QueryStatus(ctx context.Context, checkoutID string) (NormalizedResult, error) {
	s.mu.Lock()
	p, ok := s.pending[checkoutID]
	s.mu.Unlock()
	if !ok {
		// Finished pushes resolve like the provider does for settled requests.
		return NormalizedResult{
			CheckoutID:        checkoutID,
			ResultCode:        ResultCodeSuccess,
			ResultDescription: "The service request is processed successfully.",
			Success:           true,
		}, nil
	}
	return s.outcome(checkoutID, p), nil
}

func (s *Simulator) PushPayout(ctx context.Context, req PayoutRequest) (PayoutResponse, error) {
	if _, err := majorUnits(req.AmountMinor); err != nil {
		return PayoutResponse{}, err
	}

	conversationID := "AG_" + s.clock().Format("20060102") + "_" + uuid.NewString()[:12]
	originatorID := uuid.NewString()

	s.after(s.cfg.SimulatorDelay, func() {
		s.deliverPayoutCallback(conversationID, originatorID, req)
	})

	return PayoutResponse{
		ConversationID:           conversationID,
		OriginatorConversationID: originatorID,
	}, nil
}

func (s *Simulator) ParseCallback(raw []byte) (NormalizedResult, error) {
	return ParsePaymentCallback(raw)
}

func (s *Simulator) ParsePayoutResult(raw []byte) (PayoutResult, error) {
	return ParsePayoutCallback(raw)
}

func (s *Simulator) outcome(checkoutID string, p simulatedPush) NormalizedResult {
	switch {
	case strings.HasSuffix(p.phone, "99"):
		return NormalizedResult{
			CheckoutID:        checkoutID,
			MerchantRequestID: p.merchantID,
			ResultCode:        ResultCodeUserCancelled,
			ResultDescription: "Request cancelled by user",
		}
	case strings.HasSuffix(p.phone, "98"):
		return NormalizedResult{
			CheckoutID:        checkoutID,
			MerchantRequestID: p.merchantID,
			ResultCode:        ResultCodeInsufficientFunds,
			ResultDescription: "The balance is insufficient for the transaction",
		}
	default:
		return NormalizedResult{
			CheckoutID:        checkoutID,
			MerchantRequestID: p.merchantID,
			ResultCode:        ResultCodeSuccess,
			ResultDescription: "The service request is processed successfully.",
			Success:           true,
			AmountMinor:       p.amountMinor,
			ReceiptNumber:     simulatedReceipt(),
			Phone:             p.phone,
			TransactionTime:   s.clock(),
		}
	}
}

func (s *Simulator) deliverPaymentCallback(checkoutID string) {
	s.mu.Lock()
	p, ok := s.pending[checkoutID]
	delete(s.pending, checkoutID)
	s.mu.Unlock()
	if !ok {
		return
	}

	out := s.outcome(checkoutID, p)

	items := []map[string]any{}
	if out.Success {
		items = []map[string]any{
			{"Name": "Amount", "Value": float64(out.AmountMinor) / 100},
			{"Name": "MpesaReceiptNumber", "Value": out.ReceiptNumber},
			{"Name": "TransactionDate", "Value": out.TransactionTime.Format("20060102150405")},
			{"Name": "PhoneNumber", "Value": out.Phone},
		}
	}
	payload := map[string]any{
		"Body": map[string]any{
			"stkCallback": map[string]any{
				"MerchantRequestID": out.MerchantRequestID,
				"CheckoutRequestID": out.CheckoutID,
				"ResultCode":        out.ResultCode,
				"ResultDesc":        out.ResultDescription,
				"CallbackMetadata":  map[string]any{"Item": items},
			},
		},
	}
	s.postCallback("/webhooks/gateway/payment", payload)
}

func (s *Simulator) deliverPayoutCallback(conversationID, originatorID string, req PayoutRequest) {
	payload := map[string]any{
		"Result": map[string]any{
			"ResultType":               0,
			"ResultCode":               0,
			"ResultDesc":               "The service request is processed successfully.",
			"OriginatorConversationID": originatorID,
			"ConversationID":           conversationID,
			"TransactionID":            simulatedReceipt(),
			"ResultParameters": map[string]any{
				"ResultParameter": []map[string]any{
					{"Key": "TransactionAmount", "Value": float64(req.AmountMinor) / 100},
					{"Key": "TransactionReceipt", "Value": simulatedReceipt()},
				},
			},
		},
	}
	s.postCallback("/webhooks/gateway/payout", payload)
}

func (s *Simulator) postCallback(path string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("simulator callback marshal failed", "err", err)
		return
	}

	url := s.cfg.CallbackBaseURL + path
	resp, err := s.httpClient.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		s.log.Error("simulator callback delivery failed", "url", url, "err", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.log.Warn("simulator callback rejected", "url", url, "status", resp.StatusCode)
	}
}

func simulatedReceipt() string {
	// Ten uppercase alphanumerics, matching provider receipt shape.
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "S" + id[:9]
}

var _ Client = (*Simulator)(nil)
var _ Client = (*DarajaClient)(nil)
