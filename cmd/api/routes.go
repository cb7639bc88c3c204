package main

import (
	"github.com/gin-gonic/gin"

	"bodacover-platform/internal/httpapi"
	"bodacover-platform/internal/rbac"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", h.Healthz)

	// Provider webhooks (public). The gateway does not sign callbacks, so
	// handlers validate payloads against stored request state instead.
	webhooks := r.Group("/webhooks/gateway")
	{
		webhooks.POST("/payment", h.PaymentCallback)
		webhooks.POST("/payout", h.PayoutResult)
		webhooks.POST("/payout-timeout", h.PayoutTimeout)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		// PAYMENT routes
		payments := v1.Group("/payments")
		{
			payments.POST("", h.InitiatePayment)
			payments.GET("/:request_id", h.GetPaymentRequest)
			payments.GET("/by-key/:key", h.GetPaymentByKey)
			payments.POST("/:request_id/refresh", h.RefreshPaymentStatus)
		}

		v1.GET("/wallets/:rider_id", h.GetWallet)

		// ADMIN routes. Finance and operations staff only.
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleFinance, rbac.RoleOperations, rbac.RoleSuperAdmin))
		{
			batches := admin.Group("/remittance-batches")
			{
				batches.POST("/day1", h.CreateDay1Batch)
				batches.POST("/monthly", h.CreateMonthlyBatch)
				batches.GET("", h.ListBatches)
				batches.GET("/:batch_id", h.GetBatch)
				batches.POST("/:batch_id/approve", h.ApproveBatch)
				batches.POST("/:batch_id/process", h.ProcessBatch)
			}

			settlements := admin.Group("/settlements")
			{
				settlements.POST("", h.CreateSettlement)
				settlements.GET("", h.ListSettlements)
				settlements.GET("/:settlement_id", h.GetSettlement)
				settlements.POST("/:settlement_id/approve", h.ApproveSettlement)
				settlements.POST("/:settlement_id/process", h.ProcessSettlement)
			}

			ledgerGroup := admin.Group("/ledger")
			{
				ledgerGroup.GET("/accounts", h.GetLedgerAccounts)
				ledgerGroup.GET("/entries/:entry_id", h.GetLedgerEntry)
				ledgerGroup.POST("/entries/:entry_id/reverse", h.ReverseLedgerEntry)
			}

			admin.POST("/refunds", h.InitiateRefund)

			reconGroup := admin.Group("/recon")
			{
				reconGroup.GET("/unposted", h.ReconUnposted)
				reconGroup.POST("/retry/:transaction_id", h.ReconRetry)
			}
		}
	}
}
