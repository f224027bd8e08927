package reconciliation_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/meritledger/backend/internal/application/reconciliation"
	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/meritledger/backend/internal/infrastructure/config"
	"github.com/meritledger/backend/internal/infrastructure/persistence"
	"github.com/meritledger/backend/internal/infrastructure/strategy/similarity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedInflation float64

func (f fixedInflation) CurrentRate(context.Context) float64 { return float64(f) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type harness struct {
	ingestion  *reconciliation.IngestionService
	allocation *reconciliation.AllocationService
	merit      *reconciliation.MeritService
	debts      *reconciliation.DebtService
	prices     *reconciliation.PriceService
	query      *reconciliation.QueryService
	repos      reconciliation.Repositories
	publisher  *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	settings := reconciliation.DefaultSettings()
	scope := persistence.NewGormTransactionScope(db.DB)
	resolver := partner.NewIdentityResolver(similarity.NewLevenshteinStrategy())

	h := &harness{publisher: &recordingPublisher{}, repos: persistence.NewRepositories(db.DB)}
	h.allocation = reconciliation.NewAllocationService(scope, nil, settings, logger)
	h.prices = reconciliation.NewPriceService(scope, fixedInflation(4.0), settings, logger)
	h.ingestion = reconciliation.NewIngestionService(scope, resolver, h.allocation, h.prices, settings, logger)
	h.merit = reconciliation.NewMeritService(scope, logger)
	h.debts = reconciliation.NewDebtService(scope, logger)
	h.query = reconciliation.NewQueryService(h.repos)

	h.ingestion.SetEventPublisher(h.publisher)
	h.allocation.SetEventPublisher(h.publisher)
	h.merit.SetEventPublisher(h.publisher)
	h.prices.SetEventPublisher(h.publisher)
	return h
}

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(name, qty, price string) ledger.IncomingItem {
	return ledger.IncomingItem{Name: name, Quantity: dec(qty), UnitPrice: dec(price)}
}

func doc(id string, docType ledger.DocumentType, entityID, entityName *string, items ...ledger.IncomingItem) *ledger.IncomingDocument {
	return &ledger.IncomingDocument{ID: id, Type: docType, EntityID: entityID, EntityName: entityName, Items: items}
}

func (h *harness) ingest(t *testing.T, in *ledger.IncomingDocument) *reconciliation.IngestResult {
	t.Helper()
	res, err := h.ingestion.Ingest(context.Background(), in, nil)
	require.NoError(t, err)
	return res
}

func (h *harness) entity(t *testing.T, id string) *partner.Snapshot {
	t.Helper()
	e, err := h.query.GetEntity(context.Background(), id)
	require.NoError(t, err)
	return e
}

func (h *harness) bucket(t *testing.T, documentID string) *ledger.ObligationBucket {
	t.Helper()
	buckets, err := h.repos.BucketRepo.ListByDocument(context.Background(), documentID)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	return buckets[0]
}

func (h *harness) status(t *testing.T, id string) string {
	t.Helper()
	d, err := h.query.GetDocument(context.Background(), id)
	require.NoError(t, err)
	return d.Status
}

func TestIngest_ReceiptSettlesInvoicesInFIFOOrder(t *testing.T) {
	h := newHarness(t)
	acme := strPtr("CL-001")
	name := strPtr("Acme Corp")

	first := h.ingest(t, doc("INV-1", ledger.DocumentTypeInvoiceSent, acme, name, line("Widget", "10", "5")))
	assert.True(t, first.Accepted())
	assert.True(t, first.EntityCreated)
	h.ingest(t, doc("INV-2", ledger.DocumentTypeInvoiceSent, acme, name, line("Widget", "5", "5")))

	receipt := h.ingest(t, doc("REC-1", ledger.DocumentTypeReceiptSent, acme, name, line("Widget", "12", "5")))
	require.Len(t, receipt.Allocations, 1)
	alloc := receipt.Allocations[0]
	assert.True(t, alloc.Applied)
	assert.True(t, dec("12").Equal(alloc.Allocated))
	assert.True(t, alloc.Unmatched.IsZero())
	assert.Nil(t, alloc.Orphan)
	require.Len(t, alloc.Settlements, 2)
	assert.Equal(t, "INV-1", alloc.Settlements[0].TargetDocumentID)
	assert.True(t, dec("10").Equal(alloc.Settlements[0].Quantity))
	assert.Equal(t, "INV-2", alloc.Settlements[1].TargetDocumentID)
	assert.True(t, dec("2").Equal(alloc.Settlements[1].Quantity))

	assert.Equal(t, "Completed", receipt.Status)
	assert.Equal(t, "Completed", h.status(t, "INV-1"))
	assert.Equal(t, "Partial", h.status(t, "INV-2"))

	e := h.entity(t, "CL-001")
	assert.Equal(t, 103, e.Merit)
	assert.Equal(t, 0, e.Streak)
	assert.True(t, dec("15").Equal(e.Debt), "debt = 3 widgets outstanding at 5, got %s", e.Debt)

	types := h.publisher.types()
	assert.Contains(t, types, partner.EventTypeEntityRegistered)
	assert.Contains(t, types, ledger.EventTypeDocumentRecorded)
	assert.Contains(t, types, ledger.EventTypeSettlementApplied)
	assert.Contains(t, types, ledger.EventTypeDocumentStatusChanged)
	assert.Contains(t, types, partner.EventTypeMeritChanged)
}

func TestIngest_ReceiptSurplusBecomesOrphan(t *testing.T) {
	h := newHarness(t)
	acme := strPtr("CL-001")

	h.ingest(t, doc("INV-1", ledger.DocumentTypeInvoiceSent, acme, nil, line("Widget", "10", "5")))
	receipt := h.ingest(t, doc("REC-1", ledger.DocumentTypeReceiptSent, acme, nil, line("Widget", "15", "5")))

	alloc := receipt.Allocations[0]
	assert.True(t, dec("10").Equal(alloc.Allocated))
	assert.True(t, dec("5").Equal(alloc.Unmatched))
	require.NotNil(t, alloc.Orphan)
	assert.Equal(t, string(ledger.OrphanReasonSurplus), alloc.Orphan.Reason)
	assert.Equal(t, "Partial", receipt.Status)

	orphans, err := h.query.ListOrphans(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.True(t, dec("25").Equal(orphans[0].Amount))
	assert.Contains(t, h.publisher.types(), ledger.EventTypeOrphanSettlementRecorded)
}

func TestIngest_ReceiptWithoutOpenBucket(t *testing.T) {
	h := newHarness(t)

	receipt := h.ingest(t, doc("REC-1", ledger.DocumentTypeReceiptReceived, strPtr("V-9"), strPtr("Vendor"), line("Paper", "3", "2")))
	alloc := receipt.Allocations[0]
	assert.True(t, alloc.Allocated.IsZero())
	require.NotNil(t, alloc.Orphan)
	assert.Equal(t, string(ledger.OrphanReasonNoOpenBucket), alloc.Orphan.Reason)
	assert.Equal(t, "Incomplete", receipt.Status)
}

func TestIngest_ReceiptDoesNotCrossEntities(t *testing.T) {
	h := newHarness(t)

	h.ingest(t, doc("INV-1", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), nil, line("Widget", "10", "5")))
	receipt := h.ingest(t, doc("REC-1", ledger.DocumentTypeReceiptSent, strPtr("CL-002"), nil, line("Widget", "10", "5")))

	assert.True(t, receipt.Allocations[0].Allocated.IsZero())
	assert.Equal(t, "Incomplete", h.status(t, "INV-1"))
}

func TestAllocate_ReplayIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ingest(t, doc("INV-1", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), nil, line("Widget", "10", "5")))

	req := reconciliation.AllocationRequest{
		SourceDocumentID: "PAY-1",
		DocumentType:     ledger.DocumentTypeReceiptSent,
		EntityID:         "CL-001",
		ItemName:         "Widget",
		Quantity:         dec("4"),
		UnitPrice:        dec("5"),
	}
	first, err := h.allocation.Allocate(ctx, req)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.True(t, dec("4").Equal(first.Allocated))

	replay, err := h.allocation.Allocate(ctx, req)
	require.NoError(t, err)
	assert.False(t, replay.Applied)
	assert.True(t, dec("4").Equal(replay.Allocated))
	assert.Empty(t, replay.Settlements)

	d, err := h.query.GetDocument(ctx, "INV-1")
	require.NoError(t, err)
	assert.Equal(t, "Partial", d.Status)
	assert.True(t, dec("4").Equal(d.Items[0].QtySettled))
}

func TestAllocate_RejectsInvoiceType(t *testing.T) {
	h := newHarness(t)
	_, err := h.allocation.Allocate(context.Background(), reconciliation.AllocationRequest{
		SourceDocumentID: "X",
		DocumentType:     ledger.DocumentTypeInvoiceSent,
		EntityID:         "CL-001",
		ItemName:         "Widget",
		Quantity:         dec("1"),
		UnitPrice:        dec("1"),
	})
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, shared.CodeNotAReceipt, de.Code)
}

func TestIngest_DebtSignFollowsDirection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.ingest(t, doc("BILL-1", ledger.DocumentTypeInvoiceReceived, strPtr("V-1"), strPtr("Paper Co"), line("Paper", "4", "10")))
	assert.True(t, dec("-40").Equal(h.entity(t, "V-1").Debt))

	h.ingest(t, doc("INV-1", ledger.DocumentTypeInvoiceSent, strPtr("V-1"), nil, line("Consulting", "1", "100")))
	assert.True(t, dec("60").Equal(h.entity(t, "V-1").Debt))

	debt, err := h.debts.Recompute(ctx, "V-1")
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(debt.Receivable))
	assert.True(t, dec("40").Equal(debt.Payable))
	assert.True(t, dec("60").Equal(debt.Net))

	n, err := h.debts.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, dec("60").Equal(h.entity(t, "V-1").Debt))
}

func TestIngest_LowConfidenceStreak(t *testing.T) {
	h := newHarness(t)
	low := 50.0
	high := 99.0

	for i, id := range []string{"D-1", "D-2", "D-3", "D-4", "D-5"} {
		in := doc(id, ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), nil, line("Widget", "1", "1"))
		in.Confidence = &low
		h.ingest(t, in)
		assert.Equal(t, i+1, h.entity(t, "CL-001").Streak)
	}
	// +5 rewards, -(1+2+2+3+5) penalties
	assert.Equal(t, 92, h.entity(t, "CL-001").Merit)

	clean := doc("D-6", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), nil, line("Widget", "1", "1"))
	clean.Confidence = &high
	h.ingest(t, clean)
	e := h.entity(t, "CL-001")
	assert.Equal(t, 0, e.Streak)
	assert.Equal(t, 93, e.Merit)

	audit, err := h.query.EntityAudit(context.Background(), "CL-001", 0)
	require.NoError(t, err)
	assert.Len(t, audit, 11)
	assert.Equal(t, reconciliation.DocumentRewardReason, audit[0].Reason)
	assert.Equal(t, partner.StreakReason(5), audit[1].Reason)
}

func TestIngest_PriceGateOnReceivedInvoices(t *testing.T) {
	h := newHarness(t)
	vendor := strPtr("V-1")

	first := h.ingest(t, doc("BILL-1", ledger.DocumentTypeInvoiceReceived, vendor, strPtr("Steel Ltd"), line("Steel", "1", "100")))
	assert.Empty(t, first.PriceDecisions)

	hike := h.ingest(t, doc("BILL-2", ledger.DocumentTypeInvoiceReceived, vendor, nil, line("Steel", "1", "120")))
	require.Len(t, hike.PriceDecisions, 1)
	decision := hike.PriceDecisions[0]
	assert.False(t, decision.Accepted)
	assert.Equal(t, "Unfair price hike: 20.0% vs 4.0% inflation", decision.Reason)
	assert.Equal(t, 101+1-5, h.entity(t, "V-1").Merit)
	assert.Contains(t, h.publisher.types(), partner.EventTypePriceRejected)

	// the rejected 120 did not replace the 100 baseline
	repeat := h.ingest(t, doc("BILL-3", ledger.DocumentTypeInvoiceReceived, vendor, nil, line("Steel", "1", "120")))
	require.Len(t, repeat.PriceDecisions, 1)
	assert.False(t, repeat.PriceDecisions[0].Accepted)
	assert.InDelta(t, 20.0, repeat.PriceDecisions[0].IncreasePct, 0.001)
	assert.Equal(t, 97+1-5, h.entity(t, "V-1").Merit)

	fair := h.ingest(t, doc("BILL-4", ledger.DocumentTypeInvoiceReceived, vendor, nil, line("Steel", "1", "104")))
	require.Len(t, fair.PriceDecisions, 1)
	assert.True(t, fair.PriceDecisions[0].Accepted)
	assert.Equal(t, 94, h.entity(t, "V-1").Merit)

	// 104 is the accepted baseline now: 112 is a 7.7% rise
	next := h.ingest(t, doc("BILL-5", ledger.DocumentTypeInvoiceReceived, vendor, nil, line("Steel", "1", "112")))
	require.Len(t, next.PriceDecisions, 1)
	assert.True(t, next.PriceDecisions[0].Accepted)
}

func TestIngest_SentInvoicesSkipPriceGate(t *testing.T) {
	h := newHarness(t)
	h.ingest(t, doc("INV-1", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), nil, line("Widget", "1", "100")))
	res := h.ingest(t, doc("INV-2", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), nil, line("Widget", "1", "300")))
	assert.Empty(t, res.PriceDecisions)
	assert.Equal(t, 102, h.entity(t, "CL-001").Merit)
}

func TestPriceService_Check(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ingest(t, doc("INV-1", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), nil, line("Widget", "1", "1")))

	inflation := 10.0
	ok, err := h.prices.Check(ctx, reconciliation.PriceCheckRequest{EntityID: "CL-001", PriorPrice: dec("100"), NewPrice: dec("115"), Inflation: &inflation})
	require.NoError(t, err)
	assert.True(t, ok.Accepted)

	rejected, err := h.prices.Check(ctx, reconciliation.PriceCheckRequest{EntityID: "CL-001", PriorPrice: dec("100"), NewPrice: dec("120")})
	require.NoError(t, err)
	assert.False(t, rejected.Accepted)
	assert.Equal(t, 4.0, rejected.Inflation)
	assert.Equal(t, 96, h.entity(t, "CL-001").Merit)
}

func TestIngest_DuplicateDocument(t *testing.T) {
	h := newHarness(t)
	in := doc("INV-1", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), nil, line("Widget", "1", "1"))
	h.ingest(t, in)

	_, err := h.ingestion.Ingest(context.Background(), in, nil)
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, shared.CodeDuplicateDocument, de.Code)
	assert.Equal(t, 101, h.entity(t, "CL-001").Merit)
}

func TestIngest_ReviewRouting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ingest(t, doc("INV-1", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), strPtr("Acme Corp"), line("Widget", "1", "1")))

	t.Run("name far from stored name goes to typo review", func(t *testing.T) {
		res := h.ingest(t, doc("INV-2", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), strPtr("Zeta Industries"), line("Widget", "1", "1")))
		assert.Equal(t, partner.ClassificationTypoReview.String(), res.Classification)
		assert.False(t, res.Accepted())

		_, err := h.query.GetDocument(ctx, "INV-2")
		assert.Error(t, err)

		reviews, err := h.query.ListReviews(ctx, ledger.ReviewQueueTypo, 0)
		require.NoError(t, err)
		require.Len(t, reviews, 1)
		assert.Equal(t, "Acme Corp", reviews[0].StoredName)
		assert.Equal(t, "Zeta Industries", *reviews[0].CandidateName)
	})

	t.Run("close spelling is accepted and keeps the stored name", func(t *testing.T) {
		res := h.ingest(t, doc("INV-3", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), strPtr("Acme Corp."), line("Widget", "1", "1")))
		assert.True(t, res.Accepted())
		assert.Equal(t, "Acme Corp", h.entity(t, "CL-001").Name)
	})

	t.Run("no identity at all is quarantined", func(t *testing.T) {
		res := h.ingest(t, doc("INV-4", ledger.DocumentTypeInvoiceSent, nil, nil, line("Widget", "1", "1")))
		assert.Equal(t, partner.ClassificationIrreconcilable.String(), res.Classification)

		reviews, err := h.query.ListReviews(ctx, ledger.ReviewQueueQuarantine, 0)
		require.NoError(t, err)
		assert.Len(t, reviews, 1)
		assert.Contains(t, h.publisher.types(), ledger.EventTypeDocumentQueuedForReview)
	})

	t.Run("name only heals the id", func(t *testing.T) {
		res := h.ingest(t, doc("INV-5", ledger.DocumentTypeInvoiceSent, nil, strPtr("Acme Corp"), line("Widget", "1", "1")))
		assert.Equal(t, "CL-001", res.EntityID)
		assert.False(t, res.EntityCreated)
	})

	t.Run("unknown name mints a new entity", func(t *testing.T) {
		res := h.ingest(t, doc("INV-6", ledger.DocumentTypeInvoiceSent, nil, strPtr("Brand New LLC"), line("Widget", "1", "1")))
		assert.True(t, res.EntityCreated)
		assert.Regexp(t, `^ENT-[0-9A-F]{6}$`, res.EntityID)
	})
}

func TestIngestRaw_PlaceholdersAndCoalescing(t *testing.T) {
	h := newHarness(t)
	raw := &ledger.RawDocument{
		ID:         "INV-7",
		Type:       "inv_sent",
		EntityID:   strPtr("N/A"),
		EntityName: strPtr("Acme Corp"),
		Date:       "2024-03-05",
		DueDate:    "2024-02-28",
		Items: []ledger.RawItem{
			{Name: "Widget", Qty: ledger.NewFlexDecimal(dec("2")), UnitPrice: ledger.NewFlexDecimal(dec("3"))},
			{Name: "Widget", Qty: ledger.NewFlexDecimal(dec("1")), UnitPrice: ledger.NewFlexDecimal(dec("3"))},
		},
	}
	res, err := h.ingestion.IngestRaw(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, res.EntityCreated)

	d, err := h.query.GetDocument(context.Background(), "INV-7")
	require.NoError(t, err)
	require.Len(t, d.Items, 1)
	assert.True(t, dec("3").Equal(d.Items[0].Quantity))
	require.NotNil(t, d.IssueDate)
	assert.Equal(t, "2024-02-28", d.IssueDate.Format("2006-01-02"))
}

func TestMeritService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ingest(t, doc("INV-1", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), nil, line("Widget", "1", "1")))

	snap, err := h.merit.ApplyChange(ctx, "CL-001", -10, "Late delivery")
	require.NoError(t, err)
	assert.Equal(t, 91, snap.Merit)

	_, err = h.merit.ApplyChange(ctx, "CL-001", 5, "  ")
	assert.Error(t, err)

	_, err = h.merit.ApplyChange(ctx, "CL-404", 1, "Bonus")
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, shared.CodeEntityNotFound, de.Code)

	penalty, err := h.merit.ApplyStreakPenalty(ctx, "CL-001", true)
	require.NoError(t, err)
	assert.Equal(t, -1, penalty)
	penalty, err = h.merit.ApplyStreakPenalty(ctx, "CL-001", false)
	require.NoError(t, err)
	assert.Equal(t, 0, penalty)
	assert.Equal(t, 0, h.entity(t, "CL-001").Streak)

	recent, err := h.query.RecentAudit(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, partner.StreakReason(1), recent[0].Reason)
	assert.Equal(t, "Late delivery", recent[1].Reason)
}

func TestAllocationService_Rollup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ingest(t, doc("INV-1", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), nil, line("Widget", "1", "1")))

	status, err := h.allocation.Rollup(ctx, "INV-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusIncomplete, status)

	_, err = h.allocation.Rollup(ctx, "missing")
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, shared.CodeDocumentNotFound, de.Code)
}

func TestQueryService_ListEntities(t *testing.T) {
	h := newHarness(t)
	for _, id := range []string{"CL-003", "CL-001", "CL-002"} {
		h.ingest(t, doc("INV-"+id, ledger.DocumentTypeInvoiceSent, strPtr(id), nil, line("Widget", "1", "1")))
	}
	entities, total, err := h.query.ListEntities(context.Background(), partner.EntityFilter{OrderBy: "id", OrderDir: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestMeritService_StreakScheduleWithoutTransaction(t *testing.T) {
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	repos := persistence.NewRepositories(db.DB)
	e, err := partner.NewEntity("VN-001", "Acme Supplies")
	require.NoError(t, err)
	require.NoError(t, repos.EntityRepo.Create(ctx, e))

	merit := reconciliation.NewMeritService(reconciliation.NewNoOpTransactionScope(repos), zap.NewNop())

	var penalties []int
	for range 5 {
		p, err := merit.ApplyStreakPenalty(ctx, "VN-001", true)
		require.NoError(t, err)
		penalties = append(penalties, p)
	}
	assert.Equal(t, []int{-1, -2, -2, -3, -5}, penalties)

	stored, err := repos.EntityRepo.FindByID(ctx, "VN-001")
	require.NoError(t, err)
	assert.Equal(t, 87, stored.Merit)
	assert.Equal(t, 5, stored.Streak)

	audit, err := repos.MeritAuditRepo.ListByEntity(ctx, "VN-001", 10)
	require.NoError(t, err)
	require.Len(t, audit, 5)
	assert.Equal(t, partner.StreakReason(5), audit[0].Reason)
}

func TestAllocate_AcmeSequenceEndsInOrphan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ingest(t, doc("INV-1", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), strPtr("Acme Corp"), line("Widget", "10", "5")))

	pay := func(receiptID, qty string) *reconciliation.AllocationResult {
		res, err := h.allocation.Allocate(ctx, reconciliation.AllocationRequest{
			SourceDocumentID: receiptID,
			DocumentType:     ledger.DocumentTypeReceiptSent,
			EntityID:         "CL-001",
			ItemName:         "Widget",
			Quantity:         dec(qty),
			UnitPrice:        dec("5"),
		})
		require.NoError(t, err)
		return res
	}

	first := pay("PAY-1", "4")
	assert.True(t, dec("4").Equal(first.Allocated))
	b := h.bucket(t, "INV-1")
	assert.True(t, dec("4").Equal(b.QtyFulfilled))
	assert.Equal(t, ledger.StatusPartial, b.Status)
	assert.Equal(t, "Partial", h.status(t, "INV-1"))

	second := pay("PAY-2", "6")
	assert.True(t, dec("6").Equal(second.Allocated))
	assert.Nil(t, second.Orphan)
	b = h.bucket(t, "INV-1")
	assert.True(t, dec("10").Equal(b.QtyFulfilled))
	assert.Equal(t, ledger.StatusCompleted, b.Status)
	assert.Equal(t, "Completed", h.status(t, "INV-1"))

	third := pay("PAY-3", "3")
	assert.True(t, third.Allocated.IsZero())
	require.NotNil(t, third.Orphan)
	assert.Equal(t, string(ledger.OrphanReasonNoOpenBucket), third.Orphan.Reason)
	assert.Empty(t, third.Settlements)

	after := h.bucket(t, "INV-1")
	assert.True(t, dec("10").Equal(after.QtyFulfilled))
	assert.Equal(t, ledger.StatusCompleted, after.Status)
	assert.Equal(t, b.UpdatedAt.UnixNano(), after.UpdatedAt.UnixNano())
	assert.Equal(t, "Completed", h.status(t, "INV-1"))
}

func TestAllocate_SettlesBucketWhoseInvoiceIsGone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ingest(t, doc("INV-1", ledger.DocumentTypeInvoiceSent, strPtr("CL-001"), nil, line("Widget", "2", "5")))

	gone := &ledger.ObligationBucket{
		DocumentID:   "GONE-1",
		ItemName:     "Widget",
		EntityID:     "CL-001",
		Side:         ledger.BucketSideReceivable,
		QtyTotal:     dec("10"),
		QtyFulfilled: decimal.Zero,
		UnitPrice:    dec("5"),
		Status:       ledger.StatusIncomplete,
	}
	require.NoError(t, h.repos.BucketRepo.CreateBatch(ctx, []*ledger.ObligationBucket{gone}))

	res, err := h.allocation.Allocate(ctx, reconciliation.AllocationRequest{
		SourceDocumentID: "PAY-1",
		DocumentType:     ledger.DocumentTypeReceiptSent,
		EntityID:         "CL-001",
		ItemName:         "Widget",
		Quantity:         dec("6"),
		UnitPrice:        dec("5"),
	})
	require.NoError(t, err)
	assert.True(t, dec("6").Equal(res.Allocated))
	assert.True(t, res.Unmatched.IsZero())
	require.Len(t, res.Settlements, 2)
	assert.Equal(t, "INV-1", res.Settlements[0].TargetDocumentID)
	assert.Equal(t, "GONE-1", res.Settlements[1].TargetDocumentID)
	assert.True(t, dec("4").Equal(res.Settlements[1].Quantity))

	orphaned := h.bucket(t, "GONE-1")
	assert.True(t, dec("4").Equal(orphaned.QtyFulfilled))
	assert.Equal(t, ledger.StatusPartial, orphaned.Status)
	assert.Equal(t, "Completed", h.status(t, "INV-1"))
}
