package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/meritledger/backend/internal/application/reconciliation"
	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/interfaces/http/dto"
)

// DocumentHandler handles document ingestion and lookups
type DocumentHandler struct {
	BaseHandler
	ingestion  *reconciliation.IngestionService
	allocation *reconciliation.AllocationService
	query      *reconciliation.QueryService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(
	ingestion *reconciliation.IngestionService,
	allocation *reconciliation.AllocationService,
	query *reconciliation.QueryService,
) *DocumentHandler {
	return &DocumentHandler{
		ingestion:  ingestion,
		allocation: allocation,
		query:      query,
	}
}

// ListDocumentsRequest carries the document listing filters
type ListDocumentsRequest struct {
	dto.ListRequest
	EntityID string `form:"entity_id" binding:"max=64"`
	Type     string `form:"type" binding:"omitempty,oneof=inv_rec inv_sent rec_rec rec_sent"`
	Status   string `form:"status" binding:"omitempty,oneof=Incomplete Partial Completed"`
}

// RollupResponse is the recomputed status of a document
type RollupResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

// Ingest records one extracted document. Placeholder tokens in the body are
// treated as absent values.
//
//	@Router	/documents [post]
func (h *DocumentHandler) Ingest(c *gin.Context) {
	var raw ledger.RawDocument
	if err := c.ShouldBindJSON(&raw); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.ingestion.IngestRaw(c.Request.Context(), &raw)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Accepted() {
		h.Created(c, result)
		return
	}
	h.Accepted(c, result)
}

// GetByID returns a document with its line items
//
//	@Router	/documents/{id} [get]
func (h *DocumentHandler) GetByID(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindError(c, err)
		return
	}

	doc, err := h.query.GetDocument(c.Request.Context(), req.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, doc)
}

// List returns a page of documents
//
//	@Router	/documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	req := ListDocumentsRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	filter := ledger.DocumentFilter{
		EntityID: req.EntityID,
		Type:     ledger.DocumentType(req.Type),
		Status:   ledger.Status(req.Status),
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	docs, total, err := h.query.ListDocuments(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, docs, total, req.Page, req.PageSize)
}

// Rollup recomputes the status of every line and of the document itself
//
//	@Router	/documents/{id}/rollup [post]
func (h *DocumentHandler) Rollup(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindError(c, err)
		return
	}

	status, err := h.allocation.Rollup(c.Request.Context(), req.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RollupResponse{DocumentID: req.ID, Status: status.String()})
}
