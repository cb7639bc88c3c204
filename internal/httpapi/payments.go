package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bodacover-platform/internal/payment"
)

type initiatePaymentRequest struct {
	RiderID        string `json:"rider_id"`
	Phone          string `json:"phone"`
	Type           string `json:"type"`
	IdempotencyKey string `json:"idempotency_key"`
	DaysCount      int    `json:"days_count,omitempty"`
}

// InitiatePayment starts a deposit or daily payment push.
func (h Handlers) InitiatePayment(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.RiderID == "" || req.Phone == "" || req.IdempotencyKey == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "rider_id, phone, idempotency_key required"})
		return
	}

	result, err := h.Payments.InitiatePayment(
		c.Request.Context(),
		req.RiderID, req.Phone,
		payment.PaymentType(req.Type),
		req.IdempotencyKey, req.DaysCount,
	)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

// GetPaymentRequest returns the state of one payment request.
func (h Handlers) GetPaymentRequest(c *gin.Context) {
	req, err := h.Payments.GetRequest(c.Request.Context(), c.Param("request_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentRequestView(req))
}

// GetPaymentByKey replays the outcome for an idempotency key.
func (h Handlers) GetPaymentByKey(c *gin.Context) {
	req, err := h.Payments.GetRequestByKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentRequestView(req))
}

// RefreshPaymentStatus re-queries the gateway for a request stuck waiting on
// a callback.
func (h Handlers) RefreshPaymentStatus(c *gin.Context) {
	outcome, err := h.Payments.RefreshStatus(c.Request.Context(), c.Param("request_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"request_id":     outcome.RequestID,
		"status":         outcome.Status,
		"transaction_id": outcome.TransactionID,
	})
}

// GetWallet returns a rider's plan progress.
func (h Handlers) GetWallet(c *gin.Context) {
	w, err := h.Wallets.Get(c.Request.Context(), c.Param("rider_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rider_id":                 w.RiderID,
		"balance_minor":            w.BalanceMinor,
		"total_deposited_minor":    w.TotalDepositedMinor,
		"deposit_completed":        w.DepositCompleted,
		"daily_payments_count":     w.DailyPaymentsCount,
		"daily_payments_completed": w.DailyPaymentsCompleted,
	})
}

func paymentRequestView(req *payment.Request) gin.H {
	return gin.H{
		"request_id":     req.ID,
		"rider_id":       req.RiderID,
		"type":           req.Type,
		"amount_minor":   req.AmountMinor,
		"payment_day":    req.PaymentDay,
		"days_covered":   req.DaysCovered,
		"checkout_id":    req.CheckoutID,
		"status":         req.Status,
		"failure_reason": req.FailureReason,
		"transaction_id": req.TransactionID,
		"expires_at":     req.ExpiresAt,
		"created_at":     req.CreatedAt,
	}
}
