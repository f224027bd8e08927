package reconciliation

import (
	"context"
	"errors"
	"sort"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/meritledger/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AllocationService settles receipt lines against open obligation buckets
// and rolls the result up into document status.
type AllocationService struct {
	scope          TransactionScope
	strategy       ledger.AllocationStrategy
	settings       Settings
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(scope TransactionScope, strategy ledger.AllocationStrategy, settings Settings, logger *zap.Logger) *AllocationService {
	if strategy == nil {
		strategy = ledger.NewFIFOAllocationStrategy()
	}
	return &AllocationService{
		scope:    scope,
		strategy: strategy,
		settings: settings,
		logger:   logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *AllocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Allocate settles one receipt line in its own transaction
func (s *AllocationService) Allocate(ctx context.Context, req AllocationRequest) (*AllocationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "allocate",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, req.SourceDocumentID),
		telemetry.WithAttribute(telemetry.SpanAttrEntityID, req.EntityID),
	)
	defer span.End()

	var (
		result *AllocationResult
		sink   eventSink
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.allocate(ctx, repos, req, &sink)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAllocated, result.Allocated.String(),
		telemetry.SpanAttrUnmatched, result.Unmatched.String(),
	)
	sink.publish(ctx, s.eventPublisher)
	return result, nil
}

// Rollup recomputes and stores the status of a document
func (s *AllocationService) Rollup(ctx context.Context, documentID string) (ledger.Status, error) {
	var (
		status ledger.Status
		sink   eventSink
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := loadDocument(ctx, repos, documentID)
		if err != nil {
			return err
		}
		if err := rollup(ctx, repos, doc, &sink); err != nil {
			return err
		}
		status = doc.Status
		return nil
	})
	if err != nil {
		return "", err
	}
	sink.publish(ctx, s.eventPublisher)
	return status, nil
}

func (s *AllocationService) allocate(ctx context.Context, repos TransactionalRepositories, req AllocationRequest, sink *eventSink) (*AllocationResult, error) {
	side, ok := req.DocumentType.SettlesSide()
	if !ok {
		return nil, shared.NewDomainError(shared.CodeNotAReceipt, "Only receipts can be allocated: "+req.DocumentType.String())
	}
	if !req.Quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Allocation quantity must be positive")
	}
	if req.UnitPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidPrice, "Allocation unit price cannot be negative")
	}

	key := ledger.AllocationKey{
		SourceDocumentID: req.SourceDocumentID,
		ItemName:         req.ItemName,
		Amount:           req.Quantity.Mul(req.UnitPrice),
	}
	record := ledger.NewAllocationRecord(key, req.EntityID, req.Quantity, req.UnitPrice)
	inserted, err := repos.Settlements().RecordAllocation(ctx, record)
	if err != nil {
		return nil, err
	}
	if !inserted {
		s.logger.Info("Allocation already applied",
			zap.String("source_document_id", req.SourceDocumentID),
			zap.String("item", req.ItemName),
			zap.String("amount", key.Amount.String()))
		existing, err := repos.Settlements().FindAllocation(ctx, key)
		if err != nil {
			return nil, err
		}
		return &AllocationResult{
			Applied:     false,
			Allocated:   existing.Allocated,
			Unmatched:   existing.Unmatched,
			Settlements: []SettlementResponse{},
		}, nil
	}

	scopeEntity := ""
	if s.settings.ScopeToEntity {
		scopeEntity = req.EntityID
	}
	buckets, err := repos.Buckets().FindOpen(ctx, side, scopeEntity, req.ItemName)
	if err != nil {
		return nil, err
	}
	plan, err := s.strategy.Plan(req.Quantity, buckets)
	if err != nil {
		return nil, err
	}

	result := &AllocationResult{
		Applied:     true,
		Allocated:   decimal.Zero,
		Unmatched:   decimal.Zero,
		Settlements: make([]SettlementResponse, 0, len(plan.Fills)),
	}
	touched := make(map[string]*ledger.Document)

	for _, fill := range plan.Apply() {
		bucket := fill.Bucket
		consumed := fill.Quantity
		if fill.FullyFilled {
			s.logger.Debug("Bucket completed",
				zap.String("document_id", bucket.DocumentID),
				zap.String("item", bucket.ItemName))
		}
		if err := repos.Buckets().Save(ctx, bucket); err != nil {
			return nil, err
		}

		settlement := ledger.NewSettlement(req.SourceDocumentID, bucket, consumed, req.UnitPrice)
		if err := repos.Settlements().CreateSettlement(ctx, settlement); err != nil {
			return nil, err
		}
		sink.add(ledger.NewSettlementAppliedEvent(settlement, bucket.Status))

		target, err := touchedDocument(ctx, repos, touched, bucket.DocumentID)
		switch {
		case err == nil:
			if err := settleLine(ctx, repos, target, req.ItemName, consumed); err != nil {
				return nil, err
			}
		case errors.Is(err, errDocumentNotFound):
			// the bucket outlived its invoice; it is still settled
			s.logger.Warn("Bucket without parent document",
				zap.String("document_id", bucket.DocumentID),
				zap.String("item", bucket.ItemName))
		default:
			return nil, err
		}

		result.Allocated = result.Allocated.Add(consumed)
		result.Settlements = append(result.Settlements, SettlementResponse{
			TargetDocumentID: settlement.TargetDocumentID,
			BucketSeq:        settlement.BucketSeq,
			ItemName:         settlement.ItemName,
			Quantity:         settlement.Quantity,
			Amount:           settlement.Amount,
		})
	}

	// The receipt line is settled by what actually found a bucket
	if result.Allocated.IsPositive() {
		source, err := touchedDocument(ctx, repos, touched, req.SourceDocumentID)
		switch {
		case err == nil:
			if err := settleLine(ctx, repos, source, req.ItemName, result.Allocated); err != nil {
				return nil, err
			}
		case errors.Is(err, errDocumentNotFound):
			// manual allocation with no recorded receipt
		default:
			return nil, err
		}
	}

	result.Unmatched = req.Quantity.Sub(result.Allocated)
	if result.Unmatched.IsPositive() {
		reason := ledger.OrphanReasonSurplus
		if len(result.Settlements) == 0 {
			reason = ledger.OrphanReasonNoOpenBucket
		}
		orphan := ledger.NewOrphanSettlement(req.SourceDocumentID, req.EntityID, req.ItemName, result.Unmatched, req.UnitPrice, reason)
		if err := repos.Settlements().CreateOrphan(ctx, orphan); err != nil {
			return nil, err
		}
		s.logger.Warn("Orphan settlement recorded",
			zap.String("source_document_id", req.SourceDocumentID),
			zap.String("entity_id", req.EntityID),
			zap.String("item", req.ItemName),
			zap.String("quantity", orphan.Quantity.String()),
			zap.String("reason", string(reason)))
		sink.add(ledger.NewOrphanSettlementRecordedEvent(orphan))
		resp := ToOrphanResponse(orphan)
		result.Orphan = &resp
	}

	record.Allocated = result.Allocated
	record.Unmatched = result.Unmatched
	if err := repos.Settlements().UpdateAllocation(ctx, record); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := rollup(ctx, repos, touched[id], sink); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// touchedDocument loads a document once per allocation
func touchedDocument(ctx context.Context, repos TransactionalRepositories, touched map[string]*ledger.Document, id string) (*ledger.Document, error) {
	if doc, ok := touched[id]; ok {
		return doc, nil
	}
	doc, err := loadDocument(ctx, repos, id)
	if err != nil {
		return nil, err
	}
	touched[id] = doc
	return doc, nil
}

func settleLine(ctx context.Context, repos TransactionalRepositories, doc *ledger.Document, itemName string, qty decimal.Decimal) error {
	line := doc.Item(itemName)
	if line == nil {
		return nil
	}
	if _, err := line.SettleQuantity(qty); err != nil {
		return err
	}
	return repos.Documents().SaveLineItem(ctx, line)
}

// rollup writes the derived status when it changed
func rollup(ctx context.Context, repos TransactionalRepositories, doc *ledger.Document, sink *eventSink) error {
	from := doc.Status
	if !doc.RefreshStatus() {
		return nil
	}
	if err := repos.Documents().UpdateStatus(ctx, doc.ID, doc.Status); err != nil {
		return err
	}
	sink.add(ledger.NewDocumentStatusChangedEvent(doc.ID, from, doc.Status))
	return nil
}

var errDocumentNotFound = shared.NewDomainError(shared.CodeDocumentNotFound, "Document not found")

func loadDocument(ctx context.Context, repos TransactionalRepositories, id string) (*ledger.Document, error) {
	doc, err := repos.Documents().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeDocumentNotFound, "Document not found: "+id)
		}
		return nil, err
	}
	return doc, nil
}
