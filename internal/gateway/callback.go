package gateway

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Webhook payload shapes are fixed by the provider; keep them unexported and
// parse into NormalizedResult / PayoutResult at this boundary.

type paymentCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []metadataItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type metadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// ParsePaymentCallback parses a raw push-payment result webhook body.
// Metadata (receipt, amount, phone, transaction date) is present only on
// success; the amount arrives in major units and is converted to minor.
func ParsePaymentCallback(raw []byte) (NormalizedResult, error) {
	var env paymentCallbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return NormalizedResult{}, fmt.Errorf("gateway: malformed payment callback: %w", err)
	}

	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return NormalizedResult{}, fmt.Errorf("gateway: payment callback missing CheckoutRequestID")
	}

	res := NormalizedResult{
		CheckoutID:        cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        cb.ResultCode,
		ResultDescription: cb.ResultDesc,
		Success:           cb.ResultCode == ResultCodeSuccess,
		Raw:               string(raw),
	}
	if !res.Success {
		return res, nil
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			res.AmountMinor = amountToMinor(item.Value)
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				res.ReceiptNumber = v
			}
		case "PhoneNumber":
			res.Phone = phoneString(item.Value)
		case "TransactionDate":
			res.TransactionTime = parseTransactionDate(item.Value)
		}
	}
	return res, nil
}

type payoutCallbackEnvelope struct {
	Result struct {
		ResultType               int    `json:"ResultType"`
		ResultCode               int    `json:"ResultCode"`
		ResultDesc               string `json:"ResultDesc"`
		OriginatorConversationID string `json:"OriginatorConversationID"`
		ConversationID           string `json:"ConversationID"`
		TransactionID            string `json:"TransactionID"`
		ResultParameters         struct {
			ResultParameter []struct {
				Key   string `json:"Key"`
				Value any    `json:"Value"`
			} `json:"ResultParameter"`
		} `json:"ResultParameters"`
	} `json:"Result"`
}

// ParsePayoutCallback parses a raw payout result or queue-timeout body.
func ParsePayoutCallback(raw []byte) (PayoutResult, error) {
	var env payoutCallbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayoutResult{}, fmt.Errorf("gateway: malformed payout callback: %w", err)
	}

	r := env.Result
	if r.ConversationID == "" && r.OriginatorConversationID == "" {
		return PayoutResult{}, fmt.Errorf("gateway: payout callback missing conversation ids")
	}

	res := PayoutResult{
		ConversationID:           r.ConversationID,
		OriginatorConversationID: r.OriginatorConversationID,
		ResultCode:               r.ResultCode,
		ResultDescription:        r.ResultDesc,
		Success:                  r.ResultCode == ResultCodeSuccess,
		ReceiptNumber:            r.TransactionID,
		// ResultType 1 marks a queue-timeout delivery.
		Timeout: r.ResultType == 1,
		Raw:     string(raw),
	}

	for _, p := range r.ResultParameters.ResultParameter {
		switch p.Key {
		case "TransactionAmount":
			res.AmountMinor = amountToMinor(p.Value)
		case "TransactionReceipt":
			if v, ok := p.Value.(string); ok {
				res.ReceiptNumber = v
			}
		}
	}
	return res, nil
}

// amountToMinor converts a provider amount (major units, arriving as a JSON
// number or numeric string) into int64 minor units.
func amountToMinor(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(math.Round(n * 100))
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return int64(math.Round(f * 100))
	default:
		return 0
	}
}

// phoneString normalizes the phone metadata, which arrives as a JSON number.
func phoneString(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatInt(int64(n), 10)
	default:
		return ""
	}
}

// parseTransactionDate parses the provider's YYYYMMDDHHMMSS numeric date.
func parseTransactionDate(v any) time.Time {
	var s string
	switch n := v.(type) {
	case string:
		s = n
	case float64:
		s = strconv.FormatInt(int64(n), 10)
	default:
		return time.Time{}
	}
	t, err := time.Parse("20060102150405", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
