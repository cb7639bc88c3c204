package gateway

import (
	"context"
	"time"
)

// Client is the provider-agnostic contract used by the payment orchestrator.
//
// Rules:
// - No provider HTTP calls outside this package.
// - All amounts are int64 minor units at this boundary; the adapter converts
//   to the provider's whole-major-unit wire format.
// - Callback payloads are parsed here into NormalizedResult; business logic
//   (validation, wallet state) stays in the orchestrator.
type Client interface {
	// AccessToken returns a cached or freshly fetched OAuth token.
	AccessToken(ctx context.Context) (string, error)

	// PushPayment initiates a push-payment (STK push) to the rider's phone.
	PushPayment(ctx context.Context, req PushRequest) (PushResponse, error)

	// QueryStatus asks the provider for the outcome of an earlier push.
	QueryStatus(ctx context.Context, checkoutID string) (NormalizedResult, error)

	// PushPayout initiates a payout (B2C) to the rider's phone.
	PushPayout(ctx context.Context, req PayoutRequest) (PayoutResponse, error)

	// ParseCallback parses a raw push-payment result webhook body.
	ParseCallback(raw []byte) (NormalizedResult, error)

	// ParsePayoutResult parses a raw payout result/timeout webhook body.
	ParsePayoutResult(raw []byte) (PayoutResult, error)
}

type PushRequest struct {
	Phone       string
	AmountMinor int64
	// Reference appears on the customer's statement; max 12 characters.
	Reference string
	// Description is shown in the STK prompt; max 13 characters.
	Description string
}

type PushResponse struct {
	CheckoutID        string
	MerchantRequestID string
	CustomerMessage   string
}

type PayoutRequest struct {
	Phone       string
	AmountMinor int64
	Remarks     string
	// Occasion ties the payout back to our refund transaction.
	Occasion string
}

type PayoutResponse struct {
	ConversationID           string
	OriginatorConversationID string
}

// NormalizedResult is the provider-neutral outcome of a push payment,
// whether it arrived via webhook or a status query.
type NormalizedResult struct {
	CheckoutID        string
	MerchantRequestID string

	ResultCode        int
	ResultDescription string
	Success           bool

	// Populated only on success.
	AmountMinor     int64
	ReceiptNumber   string
	Phone           string
	TransactionTime time.Time

	// Raw is the original payload for audit storage.
	Raw string
}

// PayoutResult is the provider-neutral outcome of a payout request.
type PayoutResult struct {
	ConversationID           string
	OriginatorConversationID string

	ResultCode        int
	ResultDescription string
	Success           bool
	// Timeout marks a queue-timeout delivery; the payout may still complete.
	Timeout bool

	AmountMinor   int64
	ReceiptNumber string

	Raw string
}
