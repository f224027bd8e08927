package telemetry

import (
	"context"
	"time"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrDocumentType = attribute.Key("document.type")
	AttrOrphanReason = attribute.Key("orphan.reason")
	AttrReviewQueue  = attribute.Key("review.queue")
	AttrMeritKind    = attribute.Key("merit.kind")
	AttrStatus       = attribute.Key("status")
)

// ReconciliationMetrics turns domain events into counters. It subscribes to
// the event bus like any other handler.
type ReconciliationMetrics struct {
	documents     *Counter
	settlements   *Counter
	orphans       *Counter
	reviews       *Counter
	statusChanges *Counter
	entities      *Counter
	meritChanges  *Counter
	rejections    *Counter
	batchDuration *Histogram
	batchFiles    *Counter
}

// NewReconciliationMetrics registers the instruments on meter
func NewReconciliationMetrics(meter metric.Meter) (*ReconciliationMetrics, error) {
	m := &ReconciliationMetrics{}
	counters := []struct {
		dst  **Counter
		name string
		desc string
	}{
		{&m.documents, "meritledger.documents.recorded", "Documents accepted into the ledger"},
		{&m.settlements, "meritledger.settlements.applied", "Bucket consumptions"},
		{&m.orphans, "meritledger.orphans.recorded", "Settlement quantity that matched no open bucket"},
		{&m.reviews, "meritledger.reviews.queued", "Documents parked for human review"},
		{&m.statusChanges, "meritledger.documents.status_changes", "Document status transitions"},
		{&m.entities, "meritledger.entities.registered", "Counterparties created"},
		{&m.meritChanges, "meritledger.merit.changes", "Merit adjustments"},
		{&m.rejections, "meritledger.price.rejections", "Invoices flagged by the price-fairness gate"},
		{&m.batchFiles, "meritledger.batch.files", "Inbox files processed by batch runs"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.desc, "{event}")
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}
	h, err := NewHistogram(meter, HistogramOpts{
		Name:        "meritledger.batch.duration",
		Description: "Wall time of a batch run",
		Unit:        "s",
		Boundaries:  BatchDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	m.batchDuration = h
	return m, nil
}

// EventTypes subscribes to all events
func (m *ReconciliationMetrics) EventTypes() []string {
	return nil
}

// Handle increments the counter for the event
func (m *ReconciliationMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.DocumentRecordedEvent:
		m.documents.Inc(ctx, AttrDocumentType.String(string(e.DocumentType)))
	case *ledger.SettlementAppliedEvent:
		m.settlements.Inc(ctx, AttrStatus.String(string(e.BucketStatus)))
	case *ledger.OrphanSettlementRecordedEvent:
		m.orphans.Inc(ctx, AttrOrphanReason.String(string(e.Reason)))
	case *ledger.DocumentQueuedForReviewEvent:
		m.reviews.Inc(ctx, AttrReviewQueue.String(string(e.Queue)))
	case *ledger.DocumentStatusChangedEvent:
		m.statusChanges.Inc(ctx, AttrStatus.String(string(e.To)))
	case *partner.EntityRegisteredEvent:
		m.entities.Inc(ctx)
	case *partner.MeritChangedEvent:
		kind := "reward"
		if e.Change < 0 {
			kind = "penalty"
		}
		m.meritChanges.Inc(ctx, AttrMeritKind.String(kind))
	case *partner.PriceRejectedEvent:
		m.rejections.Inc(ctx)
	}
	return nil
}

// RecordBatch records the size and wall time of a finished batch run
func (m *ReconciliationMetrics) RecordBatch(ctx context.Context, processed, failed int, elapsed time.Duration) {
	m.batchFiles.Add(ctx, int64(processed-failed), AttrStatus.String("ok"))
	if failed > 0 {
		m.batchFiles.Add(ctx, int64(failed), AttrStatus.String("failed"))
	}
	m.batchDuration.RecordDuration(ctx, elapsed)
}

var _ shared.EventHandler = (*ReconciliationMetrics)(nil)
