package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bodacover-platform/internal/audit"
	"bodacover-platform/internal/escrow"
	"bodacover-platform/internal/settlement"
)

// --- Remittance batches ---

// CreateDay1Batch groups pending day-1 premiums into a new batch.
func (h Handlers) CreateDay1Batch(c *gin.Context) {
	result, err := h.Escrow.CreateDay1Batch(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.respondBatchResult(c, result)
}

// CreateMonthlyBatch groups pending accumulated premiums into a new batch.
func (h Handlers) CreateMonthlyBatch(c *gin.Context) {
	result, err := h.Escrow.CreateMonthlyBulkBatch(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.respondBatchResult(c, result)
}

func (h Handlers) respondBatchResult(c *gin.Context, result *escrow.BatchResult) {
	if result.Batch == nil {
		c.JSON(http.StatusOK, gin.H{"record_count": 0, "total_premium_minor": 0})
		return
	}
	h.auditAdmin(c, "created remittance batch "+result.Batch.BatchNumber, audit.Event{BatchID: result.Batch.ID})
	c.JSON(http.StatusCreated, gin.H{
		"batch_id":            result.Batch.ID,
		"batch_number":        result.Batch.BatchNumber,
		"record_count":        result.RecordCount,
		"total_premium_minor": result.TotalPremiumMinor,
		"status":              result.Batch.Status,
	})
}

func (h Handlers) ListBatches(c *gin.Context) {
	batches, err := h.Escrow.ListBatches(c.Request.Context(), escrow.BatchStatus(c.Query("status")), 0)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

func (h Handlers) GetBatch(c *gin.Context) {
	b, err := h.Escrow.GetBatch(c.Request.Context(), c.Param("batch_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h Handlers) ApproveBatch(c *gin.Context) {
	userID, _ := actor(c)
	b, err := h.Escrow.ApproveBatch(c.Request.Context(), c.Param("batch_id"), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.auditAdmin(c, "approved remittance batch "+b.BatchNumber, audit.Event{BatchID: b.ID})
	c.JSON(http.StatusOK, b)
}

type processBatchRequest struct {
	BankReference string `json:"bank_reference"`
}

func (h Handlers) ProcessBatch(c *gin.Context) {
	var req processBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BankReference == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bank_reference required"})
		return
	}
	b, err := h.Escrow.ProcessBatch(c.Request.Context(), c.Param("batch_id"), req.BankReference)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.auditAdmin(c, "processed remittance batch "+b.BatchNumber, audit.Event{BatchID: b.ID, EntryID: b.LedgerEntryID})
	c.JSON(http.StatusOK, b)
}

// --- Partner settlements ---

type createSettlementRequest struct {
	Partner   string `json:"partner"`
	Type      string `json:"type"`
	LineItems []struct {
		Description string `json:"description"`
		Reference   string `json:"reference,omitempty"`
		AmountMinor int64  `json:"amount_minor"`
	} `json:"line_items"`
}

func (h Handlers) CreateSettlement(c *gin.Context) {
	var req createSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	items := make([]settlement.LineItemInput, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, settlement.LineItemInput{
			Description: li.Description,
			Reference:   li.Reference,
			AmountMinor: li.AmountMinor,
		})
	}

	st, err := h.Settlements.CreateSettlement(
		c.Request.Context(),
		settlement.Partner(req.Partner),
		settlement.SettlementType(req.Type),
		items,
	)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.auditAdmin(c, "created settlement "+st.SettlementNumber, audit.Event{SettlementID: st.ID})
	c.JSON(http.StatusCreated, st)
}

func (h Handlers) ListSettlements(c *gin.Context) {
	settlements, err := h.Settlements.List(c.Request.Context(), settlement.Status(c.Query("status")), 0)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlements": settlements})
}

func (h Handlers) GetSettlement(c *gin.Context) {
	st, err := h.Settlements.Get(c.Request.Context(), c.Param("settlement_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) ApproveSettlement(c *gin.Context) {
	userID, _ := actor(c)
	st, err := h.Settlements.Approve(c.Request.Context(), c.Param("settlement_id"), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.auditAdmin(c, "approved settlement "+st.SettlementNumber, audit.Event{SettlementID: st.ID})
	c.JSON(http.StatusOK, st)
}

func (h Handlers) ProcessSettlement(c *gin.Context) {
	var req processBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BankReference == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bank_reference required"})
		return
	}
	st, err := h.Settlements.Process(c.Request.Context(), c.Param("settlement_id"), req.BankReference)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.auditAdmin(c, "processed settlement "+st.SettlementNumber, audit.Event{SettlementID: st.ID, EntryID: st.LedgerEntryID})
	c.JSON(http.StatusOK, st)
}

// --- Ledger ---

func (h Handlers) GetLedgerAccounts(c *gin.Context) {
	accounts, err := h.Ledger.Accounts(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (h Handlers) GetLedgerEntry(c *gin.Context) {
	e, err := h.Ledger.GetEntry(c.Request.Context(), c.Param("entry_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

type reverseEntryRequest struct {
	Reason string `json:"reason"`
}

// ReverseLedgerEntry creates the correcting mirror entry. This is the only
// correction mechanism; posted entries are never edited.
func (h Handlers) ReverseLedgerEntry(c *gin.Context) {
	var req reverseEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Reason == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "reason required"})
		return
	}
	rev, err := h.Ledger.ReverseEntry(c.Request.Context(), c.Param("entry_id"), req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.auditAdmin(c, "reversed ledger entry "+rev.ReversesEntryID+": "+req.Reason, audit.Event{EntryID: rev.ID})
	c.JSON(http.StatusCreated, rev)
}

// --- Refunds & reconciliation ---

type initiateRefundRequest struct {
	RiderID      string `json:"rider_id"`
	Phone        string `json:"phone"`
	AmountMinor  int64  `json:"amount_minor"`
	DaysToRefund int    `json:"days_to_refund"`
}

func (h Handlers) InitiateRefund(c *gin.Context) {
	var req initiateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	txn, err := h.Payments.InitiateRefund(c.Request.Context(), req.RiderID, req.Phone, req.AmountMinor, req.DaysToRefund)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.auditAdmin(c, "initiated refund for rider "+req.RiderID, audit.Event{RiderID: req.RiderID, Metadata: txn.ID})
	c.JSON(http.StatusAccepted, gin.H{
		"transaction_id":  txn.ID,
		"status":          txn.Status,
		"conversation_id": txn.ConversationID,
	})
}

// ReconUnposted lists completed transactions whose ledger or escrow fan-out
// is missing.
func (h Handlers) ReconUnposted(c *gin.Context) {
	report, err := h.Recon.UnpostedTransactions(c.Request.Context(), 0, 0)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ReconRetry re-runs the idempotent ledger/escrow fan-out for one
// transaction.
func (h Handlers) ReconRetry(c *gin.Context) {
	if err := h.Payments.RetryFinancials(c.Request.Context(), c.Param("transaction_id")); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "retried"})
}
