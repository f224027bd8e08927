package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/meritledger/backend/internal/application/reconciliation"
	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/interfaces/http/dto"
)

// EntityHandler handles trading partner endpoints: snapshots, merit and debt
type EntityHandler struct {
	BaseHandler
	query *reconciliation.QueryService
	merit *reconciliation.MeritService
	debts *reconciliation.DebtService
}

// NewEntityHandler creates a new EntityHandler
func NewEntityHandler(
	query *reconciliation.QueryService,
	merit *reconciliation.MeritService,
	debts *reconciliation.DebtService,
) *EntityHandler {
	return &EntityHandler{
		query: query,
		merit: merit,
		debts: debts,
	}
}

// RecomputeAllResponse reports how many entities were recomputed
type RecomputeAllResponse struct {
	Entities int `json:"entities"`
}

// List returns a page of entity snapshots
//
//	@Router	/entities [get]
func (h *EntityHandler) List(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	filter := partner.EntityFilter{
		Search:   req.Search,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	entities, total, err := h.query.ListEntities(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, entities, total, req.Page, req.PageSize)
}

// GetByID returns one entity snapshot
//
//	@Router	/entities/{id} [get]
func (h *EntityHandler) GetByID(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entity, err := h.query.GetEntity(c.Request.Context(), req.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entity)
}

// Audit returns the merit history of one entity, newest first
//
//	@Router	/entities/{id}/audit [get]
func (h *EntityHandler) Audit(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}
	var req dto.LimitRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entries, err := h.query.EntityAudit(c.Request.Context(), uri.ID, req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}

// ChangeMerit applies a manual merit adjustment
//
//	@Router	/entities/{id}/merit [post]
func (h *EntityHandler) ChangeMerit(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}
	var req reconciliation.MeritChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	snapshot, err := h.merit.ApplyChange(c.Request.Context(), uri.ID, req.Change, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, snapshot)
}

// RecomputeDebt recomputes one entity's balance from its open buckets
//
//	@Router	/entities/{id}/debt/recompute [post]
func (h *EntityHandler) RecomputeDebt(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	debt, err := h.debts.Recompute(c.Request.Context(), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, debt)
}

// RecomputeAllDebts recomputes every entity's balance
//
//	@Router	/debts/recompute [post]
func (h *EntityHandler) RecomputeAllDebts(c *gin.Context) {
	n, err := h.debts.RecomputeAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RecomputeAllResponse{Entities: n})
}
