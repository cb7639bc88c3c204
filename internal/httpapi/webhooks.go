package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"bodacover-platform/internal/payment"
	"bodacover-platform/pkg/logger"
)

// PaymentCallback receives the provider's push-payment result webhook.
//
// The provider retries on non-200 responses, so anything we could not even
// parse is rejected, while business-level rejections (unknown id, mismatch)
// are acknowledged with 200 after being recorded as security events; a retry
// of those would fail identically.
func (h Handlers) PaymentCallback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	res, err := h.Gateway.ParseCallback(body)
	if err != nil {
		logger.FromGin(c).WarnContext(c.Request.Context(), "unparseable payment callback", slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid callback"})
		return
	}

	outcome, err := h.Payments.ProcessCallback(c.Request.Context(), res)
	if err != nil {
		if errors.Is(err, payment.ErrUnknownCallback) || errors.Is(err, payment.ErrCallbackMismatch) {
			c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
			return
		}
		logger.FromGin(c).ErrorContext(c.Request.Context(), "callback processing failed", slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	logger.FromGin(c).InfoContext(c.Request.Context(), "payment callback processed",
		slog.String("request_id", outcome.RequestID),
		slog.String("status", string(outcome.Status)))
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// PayoutResult receives the provider's asynchronous payout (refund) result.
func (h Handlers) PayoutResult(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	res, err := h.Gateway.ParsePayoutResult(body)
	if err != nil {
		logger.FromGin(c).WarnContext(c.Request.Context(), "unparseable payout result", slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid callback"})
		return
	}

	if _, err := h.Payments.ProcessPayoutResult(c.Request.Context(), res); err != nil {
		if errors.Is(err, payment.ErrRefundNotFound) {
			c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
			return
		}
		logger.FromGin(c).ErrorContext(c.Request.Context(), "payout result processing failed", slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// PayoutTimeout receives the provider's queue-timeout notification. The
// payout may still complete, so the refund stays PENDING.
func (h Handlers) PayoutTimeout(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	res, err := h.Gateway.ParsePayoutResult(body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid callback"})
		return
	}
	res.Timeout = true

	if _, err := h.Payments.ProcessPayoutResult(c.Request.Context(), res); err != nil && !errors.Is(err, payment.ErrRefundNotFound) {
		logger.FromGin(c).ErrorContext(c.Request.Context(), "payout timeout processing failed", slog.Any("error", err))
	}
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}
