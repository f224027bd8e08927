package router

import (
	"github.com/gin-gonic/gin"
	"github.com/meritledger/backend/internal/interfaces/http/handler"
)

// Token scopes guarding the write endpoints
const (
	ScopeDocumentsWrite = "documents:write"
	ScopeBatchesRun     = "batches:run"
	ScopeMeritWrite     = "merit:write"
	ScopeDebtsWrite     = "debts:write"
)

// Handlers are the HTTP handlers of the ledger API
type Handlers struct {
	Documents      *handler.DocumentHandler
	Entities       *handler.EntityHandler
	Reconciliation *handler.ReconciliationHandler
	System         *handler.SystemHandler
}

// LedgerGroups returns the resource groups of the ledger API
func LedgerGroups(h Handlers) []*ResourceGroup {
	documents := NewResourceGroup("documents", "/documents").
		Write("", ScopeDocumentsWrite, h.Documents.Ingest).
		Read("", h.Documents.List).
		Read("/:id", h.Documents.GetByID).
		Write("/:id/rollup", ScopeDocumentsWrite, h.Documents.Rollup)

	entities := NewResourceGroup("entities", "/entities").
		Read("", h.Entities.List).
		Read("/:id", h.Entities.GetByID).
		Read("/:id/audit", h.Entities.Audit).
		Write("/:id/merit", ScopeMeritWrite, h.Entities.ChangeMerit).
		Write("/:id/debt/recompute", ScopeDebtsWrite, h.Entities.RecomputeDebt)

	reconciliation := NewResourceGroup("reconciliation", "").
		Write("/allocations", ScopeDocumentsWrite, h.Reconciliation.Allocate).
		Write("/price-checks", ScopeDocumentsWrite, h.Reconciliation.CheckPrice).
		Write("/batches", ScopeBatchesRun, h.Reconciliation.RunBatch).
		Write("/debts/recompute", ScopeDebtsWrite, h.Entities.RecomputeAllDebts).
		Read("/orphans", h.Reconciliation.ListOrphans).
		Read("/reviews", h.Reconciliation.ListReviews).
		Read("/audit", h.Reconciliation.RecentAudit)

	system := NewResourceGroup("system", "/system").
		Read("/info", h.System.GetSystemInfo)

	return []*ResourceGroup{documents, entities, reconciliation, system}
}

// LedgerRoutes mounts the ledger API and the root health probe. With a nil
// authorizer every route is open.
func LedgerRoutes(engine *gin.Engine, h Handlers, authorize Authorizer, routeMW ...gin.HandlerFunc) {
	engine.GET("/health", h.System.Health)

	NewRouter(engine,
		WithAuthorizer(authorize),
		WithRouteMiddleware(routeMW...),
	).Register(LedgerGroups(h)...).Setup()
}
