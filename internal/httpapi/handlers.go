package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bodacover-platform/internal/audit"
	"bodacover-platform/internal/auth"
	"bodacover-platform/internal/escrow"
	"bodacover-platform/internal/gateway"
	"bodacover-platform/internal/ledger"
	"bodacover-platform/internal/payment"
	"bodacover-platform/internal/recon"
	"bodacover-platform/internal/settlement"
	"bodacover-platform/internal/wallet"
	"bodacover-platform/pkg/utils"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth        *auth.Manager
	Gateway     gateway.Client
	Payments    *payment.Service
	Wallets     *wallet.Service
	Escrow      *escrow.Service
	Settlements *settlement.Service
	Ledger      *ledger.Service
	Recon       *recon.Service
	Audit       *audit.Service

	DB *sql.DB
}

const healthTimeout = 2 * time.Second

// respondServiceError maps sentinel errors from internal services onto HTTP
// statuses. Unknown errors become 500 without leaking internals.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, payment.ErrInvalidInput),
		errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, escrow.ErrInvalidRefund),
		errors.Is(err, settlement.ErrNoLineItems),
		errors.Is(err, settlement.ErrInvalidLineItem),
		errors.Is(err, settlement.ErrUnknownSettlement),
		errors.Is(err, ledger.ErrEmptyEntry),
		errors.Is(err, ledger.ErrInvalidLine),
		errors.Is(err, ledger.ErrUnbalanced):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, payment.ErrRequestNotFound),
		errors.Is(err, wallet.ErrNotFound),
		errors.Is(err, escrow.ErrBatchNotFound),
		errors.Is(err, settlement.ErrNotFound),
		errors.Is(err, ledger.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, wallet.ErrDepositDone),
		errors.Is(err, wallet.ErrDepositRequired),
		errors.Is(err, wallet.ErrPlanComplete),
		errors.Is(err, escrow.ErrNotPending),
		errors.Is(err, escrow.ErrNotApproved),
		errors.Is(err, settlement.ErrNotPending),
		errors.Is(err, settlement.ErrNotApproved),
		errors.Is(err, ledger.ErrNotDraft),
		errors.Is(err, ledger.ErrNotPosted),
		errors.Is(err, ledger.ErrAlreadyReversed):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, gateway.ErrAuth):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "payment gateway rejected our credentials"})

	case gateway.IsRetryable(err):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "payment gateway unavailable, try again"})

	default:
		var userErr *gateway.UserError
		if errors.As(err, &userErr) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"error":       userErr.Description,
				"result_code": userErr.Code,
			})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// actor extracts the authenticated admin identity for audit records.
func actor(c *gin.Context) (userID, role string) {
	userID, _ = auth.UserID(c.Request.Context())
	role, _ = auth.Role(c.Request.Context())
	return userID, role
}

func (h Handlers) auditAdmin(c *gin.Context, message string, target audit.Event) {
	if h.Audit == nil {
		return
	}
	userID, role := actor(c)
	_ = h.Audit.LogAdminAction(c.Request.Context(), userID, role, c.ClientIP(), message, target)
}

// Healthz reports liveness plus a database round-trip.
func (h Handlers) Healthz(c *gin.Context) {
	if h.DB != nil {
		if err := utils.HealthCheck(c.Request.Context(), h.DB, healthTimeout); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "down"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
