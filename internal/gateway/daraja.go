package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"bodacover-platform/internal/config"
)

// DarajaClient talks to the Safaricom Daraja API.
// It is the only place in the codebase that knows the provider's wire format.
type DarajaClient struct {
	cfg        config.GatewayConfig
	baseURL    string
	httpClient *http.Client
	tokens     *tokenSource
	log        *slog.Logger

	// clock is injectable for deterministic password/timestamp tests.
	clock func() time.Time
}

func NewDarajaClient(cfg config.GatewayConfig, store TokenStore, log *slog.Logger) *DarajaClient {
	baseURL := "https://sandbox.safaricom.co.ke"
	if cfg.Environment == "production" {
		baseURL = "https://api.safaricom.co.ke"
	}

	c := &DarajaClient{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
		clock:      time.Now,
	}
	c.tokens = newTokenSource(store, c.fetchToken, cfg.TokenExpiryMargin, cfg.TokenLockTTL, log)
	return c
}

func (c *DarajaClient) AccessToken(ctx context.Context) (string, error) {
	return c.tokens.Token(ctx)
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

func (c *DarajaClient) PushPayment(ctx context.Context, req PushRequest) (PushResponse, error) {
	amountMajor, err := majorUnits(req.AmountMinor)
	if err != nil {
		return PushResponse{}, err
	}

	timestamp := c.clock().Format("20060102150405")
	body := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amountMajor,
		PartyA:            req.Phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       req.Phone,
		CallBackURL:       c.cfg.CallbackBaseURL + "/webhooks/gateway/payment",
		AccountReference:  truncate(req.Reference, 12),
		TransactionDesc:   truncate(req.Description, 13),
	}

	var resp stkPushResponse
	if err := c.post(ctx, "/mpesa/stkpush/v1/processrequest", body, &resp); err != nil {
		return PushResponse{}, err
	}
	if resp.ResponseCode != "0" {
		return PushResponse{}, pushRejectionError(resp.ResponseCode, resp.ResponseDescription)
	}

	return PushResponse{
		CheckoutID:        resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

type stkQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type stkQueryResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
	ResponseDescription string `json:"ResponseDescription"`
}

func (c *DarajaClient) QueryStatus(ctx context.Context, checkoutID string) (NormalizedResult, error) {
	timestamp := c.clock().Format("20060102150405")
	body := stkQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutID,
	}

	var resp stkQueryResponse
	if err := c.post(ctx, "/mpesa/stkpushquery/v1/query", body, &resp); err != nil {
		return NormalizedResult{}, err
	}

	code, err := strconv.Atoi(resp.ResultCode)
	if err != nil {
		return NormalizedResult{}, fmt.Errorf("gateway: unparseable result code %q", resp.ResultCode)
	}

	raw, _ := json.Marshal(resp)
	return NormalizedResult{
		CheckoutID:        resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		ResultCode:        code,
		ResultDescription: resp.ResultDesc,
		Success:           code == ResultCodeSuccess,
		Raw:               string(raw),
	}, nil
}

type b2cRequest struct {
	InitiatorName      string `json:"InitiatorName"`
	SecurityCredential string `json:"SecurityCredential"`
	CommandID          string `json:"CommandID"`
	Amount             int64  `json:"Amount"`
	PartyA             string `json:"PartyA"`
	PartyB             string `json:"PartyB"`
	Remarks            string `json:"Remarks"`
	QueueTimeOutURL    string `json:"QueueTimeOutURL"`
	ResultURL          string `json:"ResultURL"`
	Occasion           string `json:"Occasion"`
}

type b2cResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

func (c *DarajaClient) PushPayout(ctx context.Context, req PayoutRequest) (PayoutResponse, error) {
	amountMajor, err := majorUnits(req.AmountMinor)
	if err != nil {
		return PayoutResponse{}, err
	}

	body := b2cRequest{
		InitiatorName:      c.cfg.InitiatorName,
		SecurityCredential: c.cfg.SecurityCredential,
		CommandID:          "BusinessPayment",
		Amount:             amountMajor,
		PartyA:             c.cfg.ShortCode,
		PartyB:             req.Phone,
		Remarks:            req.Remarks,
		QueueTimeOutURL:    c.cfg.CallbackBaseURL + "/webhooks/gateway/payout-timeout",
		ResultURL:          c.cfg.CallbackBaseURL + "/webhooks/gateway/payout",
		Occasion:           req.Occasion,
	}

	var resp b2cResponse
	if err := c.post(ctx, "/mpesa/b2c/v1/paymentrequest", body, &resp); err != nil {
		return PayoutResponse{}, err
	}
	if resp.ResponseCode != "0" {
		return PayoutResponse{}, fmt.Errorf("gateway: payout rejected: %s: %w", resp.ResponseDescription, ErrUnavailable)
	}

	return PayoutResponse{
		ConversationID:           resp.ConversationID,
		OriginatorConversationID: resp.OriginatorConversationID,
	}, nil
}

func (c *DarajaClient) ParseCallback(raw []byte) (NormalizedResult, error) {
	return ParsePaymentCallback(raw)
}

func (c *DarajaClient) ParsePayoutResult(raw []byte) (PayoutResult, error) {
	return ParsePayoutCallback(raw)
}

// fetchToken performs the OAuth client-credentials exchange.
func (c *DarajaClient) fetchToken(ctx context.Context) (string, time.Duration, error) {
	url := c.baseURL + "/oauth/v1/generate?grant_type=client_credentials"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, classifyTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", 0, ErrAuth
	case resp.StatusCode >= 500:
		return "", 0, ErrUnavailable
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("gateway: token fetch failed: %s", string(body))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, err
	}
	if out.AccessToken == "" {
		return "", 0, ErrAuth
	}

	seconds, err := strconv.Atoi(out.ExpiresIn)
	if err != nil || seconds <= 0 {
		seconds = 3600
	}
	return out.AccessToken, time.Duration(seconds) * time.Second, nil
}

func (c *DarajaClient) post(ctx context.Context, path string, payload, out any) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrAuth
	case resp.StatusCode >= 500:
		return ErrUnavailable
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway: %s returned %d: %s", path, resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

func (c *DarajaClient) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
}

func classifyTransport(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// pushRejectionError classifies a non-zero push response code. User-side
// codes surface as *UserError for the caller to show verbatim; anything else
// is treated as a transient provider fault.
func pushRejectionError(code, description string) error {
	if n, err := strconv.Atoi(code); err == nil && IsUserFailure(n) {
		return &UserError{Code: n, Description: description}
	}
	return fmt.Errorf("gateway: push rejected: %s: %w", description, ErrUnavailable)
}

// majorUnits converts minor units to the provider's whole-major-unit amount.
func majorUnits(minor int64) (int64, error) {
	if minor <= 0 || minor%100 != 0 {
		return 0, ErrInvalidAmount
	}
	return minor / 100, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
