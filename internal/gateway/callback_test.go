package gateway

import (
	"testing"
	"time"
)

const successCallback = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 1048.00},
          {"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
          {"Name": "TransactionDate", "Value": 20191219102115},
          {"Name": "PhoneNumber", "Value": 254708374149}
        ]
      }
    }
  }
}`

const cancelledCallback = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 1032,
      "ResultDesc": "Request cancelled by user"
    }
  }
}`

func TestParsePaymentCallback_Success(t *testing.T) {
	res, err := ParsePaymentCallback([]byte(successCallback))
	if err != nil {
		t.Fatalf("ParsePaymentCallback: %v", err)
	}

	if !res.Success {
		t.Fatalf("expected success")
	}
	if res.CheckoutID != "ws_CO_191220191020363925" {
		t.Fatalf("checkout id = %q", res.CheckoutID)
	}
	if res.AmountMinor != 104800 {
		t.Fatalf("amount = %d, want 104800", res.AmountMinor)
	}
	if res.ReceiptNumber != "NLJ7RT61SV" {
		t.Fatalf("receipt = %q", res.ReceiptNumber)
	}
	if res.Phone != "254708374149" {
		t.Fatalf("phone = %q", res.Phone)
	}
	want := time.Date(2019, 12, 19, 10, 21, 15, 0, time.UTC)
	if !res.TransactionTime.Equal(want) {
		t.Fatalf("transaction time = %v, want %v", res.TransactionTime, want)
	}
}

func TestParsePaymentCallback_UserCancelled(t *testing.T) {
	res, err := ParsePaymentCallback([]byte(cancelledCallback))
	if err != nil {
		t.Fatalf("ParsePaymentCallback: %v", err)
	}
	if res.Success {
		t.Fatalf("expected failure result")
	}
	if res.ResultCode != ResultCodeUserCancelled {
		t.Fatalf("result code = %d", res.ResultCode)
	}
	if res.AmountMinor != 0 || res.ReceiptNumber != "" {
		t.Fatalf("failure callback must not carry metadata: %+v", res)
	}
	if !IsUserFailure(res.ResultCode) {
		t.Fatalf("1032 should classify as a user failure")
	}
}

func TestParsePaymentCallback_Malformed(t *testing.T) {
	if _, err := ParsePaymentCallback([]byte(`{"Body":{}}`)); err == nil {
		t.Fatalf("expected error for missing CheckoutRequestID")
	}
	if _, err := ParsePaymentCallback([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestParsePayoutCallback(t *testing.T) {
	raw := `{
	  "Result": {
	    "ResultType": 0,
	    "ResultCode": 0,
	    "ResultDesc": "The service request is processed successfully.",
	    "OriginatorConversationID": "10571-7910404-1",
	    "ConversationID": "AG_20191219_00004e48cf7e3533f581",
	    "TransactionID": "NLJ41HAY6Q",
	    "ResultParameters": {
	      "ResultParameter": [
	        {"Key": "TransactionAmount", "Value": 87},
	        {"Key": "TransactionReceipt", "Value": "NLJ41HAY6Q"}
	      ]
	    }
	  }
	}`

	res, err := ParsePayoutCallback([]byte(raw))
	if err != nil {
		t.Fatalf("ParsePayoutCallback: %v", err)
	}
	if !res.Success || res.Timeout {
		t.Fatalf("unexpected flags: %+v", res)
	}
	if res.AmountMinor != 8700 {
		t.Fatalf("amount = %d, want 8700", res.AmountMinor)
	}
	if res.ReceiptNumber != "NLJ41HAY6Q" {
		t.Fatalf("receipt = %q", res.ReceiptNumber)
	}
}

func TestParsePayoutCallback_Timeout(t *testing.T) {
	raw := `{
	  "Result": {
	    "ResultType": 1,
	    "ResultCode": 1,
	    "ResultDesc": "The originator conversation has timed out.",
	    "OriginatorConversationID": "10571-7910404-1",
	    "ConversationID": "AG_20191219_00004e48cf7e3533f581"
	  }
	}`

	res, err := ParsePayoutCallback([]byte(raw))
	if err != nil {
		t.Fatalf("ParsePayoutCallback: %v", err)
	}
	if !res.Timeout {
		t.Fatalf("expected timeout delivery")
	}
	if res.Success {
		t.Fatalf("timeout must not be success")
	}
}

func TestAmountToMinor(t *testing.T) {
	cases := []struct {
		in   any
		want int64
	}{
		{1048.00, 104800},
		{87.0, 8700},
		{10.48, 1048},
		{"87", 8700},
		{"bogus", 0},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := amountToMinor(tc.in); got != tc.want {
			t.Fatalf("amountToMinor(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
