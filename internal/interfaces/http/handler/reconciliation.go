package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/meritledger/backend/internal/application/reconciliation"
	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/interfaces/http/dto"
)

// ReconciliationHandler handles allocation, price checks, batch runs and the
// exception listings (orphans, review queues, audit trail)
type ReconciliationHandler struct {
	BaseHandler
	allocation *reconciliation.AllocationService
	prices     *reconciliation.PriceService
	query      *reconciliation.QueryService
	batch      *reconciliation.BatchProcessor
}

// NewReconciliationHandler creates a new ReconciliationHandler. batch may be
// nil when no document source is configured.
func NewReconciliationHandler(
	allocation *reconciliation.AllocationService,
	prices *reconciliation.PriceService,
	query *reconciliation.QueryService,
	batch *reconciliation.BatchProcessor,
) *ReconciliationHandler {
	return &ReconciliationHandler{
		allocation: allocation,
		prices:     prices,
		query:      query,
		batch:      batch,
	}
}

// ListReviewsRequest filters the review listing by queue
type ListReviewsRequest struct {
	dto.LimitRequest
	Queue string `form:"queue" binding:"omitempty,oneof=quarantine typo_review"`
}

// Allocate settles one receipt line against open buckets
//
//	@Router	/allocations [post]
func (h *ReconciliationHandler) Allocate(c *gin.Context) {
	var req reconciliation.AllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.allocation.Allocate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// CheckPrice runs the price-fairness gate
//
//	@Router	/price-checks [post]
func (h *ReconciliationHandler) CheckPrice(c *gin.Context) {
	var req reconciliation.PriceCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	decision, err := h.prices.Check(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, decision)
}

// RunBatch processes every pending file in the configured source
//
//	@Router	/batches [post]
func (h *ReconciliationHandler) RunBatch(c *gin.Context) {
	if h.batch == nil {
		h.Unavailable(c, "No document source is configured")
		return
	}

	report, err := h.batch.Run(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// ListOrphans returns unmatched settlement remainders, newest first
//
//	@Router	/orphans [get]
func (h *ReconciliationHandler) ListOrphans(c *gin.Context) {
	var req dto.LimitRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	orphans, err := h.query.ListOrphans(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, orphans)
}

// ListReviews returns parked documents, optionally for one queue
//
//	@Router	/reviews [get]
func (h *ReconciliationHandler) ListReviews(c *gin.Context) {
	var req ListReviewsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	items, err := h.query.ListReviews(c.Request.Context(), ledger.ReviewQueue(req.Queue), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, items)
}

// RecentAudit returns the merit audit trail across entities
//
//	@Router	/audit [get]
func (h *ReconciliationHandler) RecentAudit(c *gin.Context) {
	var req dto.LimitRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entries, err := h.query.RecentAudit(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}
