package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/meritledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// IngestionService takes one normalized document through identity
// resolution, the ledger, allocation, roll-up, merit and debt in a single
// transaction.
type IngestionService struct {
	scope          TransactionScope
	resolver       *partner.IdentityResolver
	allocator      *AllocationService
	prices         *PriceService
	settings       Settings
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(
	scope TransactionScope,
	resolver *partner.IdentityResolver,
	allocator *AllocationService,
	prices *PriceService,
	settings Settings,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		scope:     scope,
		resolver:  resolver,
		allocator: allocator,
		prices:    prices,
		settings:  settings,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *IngestionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// IngestRaw normalizes an extracted record and ingests it
func (s *IngestionService) IngestRaw(ctx context.Context, raw *ledger.RawDocument) (*IngestResult, error) {
	in, err := ledger.NormalizeRaw(raw)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode review payload: %w", err)
	}
	return s.Ingest(ctx, in, payload)
}

// Ingest records one document. Documents that cannot be tied to an entity
// are parked in a review queue and leave the rest of the ledger untouched.
func (s *IngestionService) Ingest(ctx context.Context, in *ledger.IncomingDocument, payload []byte) (*IngestResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ingestion", "ingest")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentID, in.ID,
		telemetry.SpanAttrDocumentType, in.Type.String(),
		telemetry.SpanAttrItemCount, len(in.Items),
	)

	// The market lookup is I/O and stays outside the transaction
	inflation := s.settings.FallbackInflation
	if in.Type == ledger.DocumentTypeInvoiceReceived && len(in.Items) > 0 && s.prices != nil {
		inflation = s.prices.CurrentInflation(ctx)
	}

	var (
		result *IngestResult
		sink   eventSink
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.Documents().Exists(ctx, in.ID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeDuplicateDocument, "Document already recorded: "+in.ID)
		}

		res, err := s.resolver.Resolve(ctx, repos.Entities(), partner.NewCandidate(in.EntityID, in.EntityName))
		if err != nil {
			return err
		}
		if res.Classification != partner.ClassificationAccepted {
			result, err = s.park(ctx, repos, in, res, payload, &sink)
			return err
		}

		result, err = s.record(ctx, repos, in, res, inflation, &sink)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOutcome, result.Classification,
		telemetry.SpanAttrEntityID, result.EntityID,
	)

	s.logger.Info("Document ingested",
		zap.String("document_id", in.ID),
		zap.String("type", in.Type.String()),
		zap.String("classification", result.Classification),
		zap.String("entity_id", result.EntityID))
	sink.publish(ctx, s.eventPublisher)
	return result, nil
}

func (s *IngestionService) park(ctx context.Context, repos TransactionalRepositories, in *ledger.IncomingDocument, res *partner.Resolution, payload []byte, sink *eventSink) (*IngestResult, error) {
	queue := ledger.ReviewQueueQuarantine
	if res.Classification == partner.ClassificationTypoReview {
		queue = ledger.ReviewQueueTypo
	}
	item := ledger.NewReviewItem(in, queue, res.Reason, payload)
	item.StoredName = res.StoredName
	item.Similarity = res.Similarity
	if err := repos.Reviews().Create(ctx, item); err != nil {
		return nil, err
	}
	sink.add(ledger.NewDocumentQueuedForReviewEvent(item))

	s.logger.Warn("Document routed to review",
		zap.String("document_id", in.ID),
		zap.String("queue", string(queue)),
		zap.String("reason", res.Reason))
	return &IngestResult{
		DocumentID:     in.ID,
		Classification: res.Classification.String(),
		Reason:         res.Reason,
	}, nil
}

func (s *IngestionService) record(ctx context.Context, repos TransactionalRepositories, in *ledger.IncomingDocument, res *partner.Resolution, inflation float64, sink *eventSink) (*IngestResult, error) {
	entity := res.Entity
	doc, err := ledger.NewDocument(in, entity.ID)
	if err != nil {
		return nil, err
	}
	if err := repos.Documents().Create(ctx, doc); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError(shared.CodeDuplicateDocument, "Document already recorded: "+in.ID)
		}
		return nil, err
	}
	if buckets := doc.OpenBuckets(); len(buckets) > 0 {
		if err := repos.Buckets().CreateBatch(ctx, buckets); err != nil {
			return nil, err
		}
	}
	sink.collect(doc)

	result := &IngestResult{
		DocumentID:     doc.ID,
		Classification: res.Classification.String(),
		Reason:         res.Reason,
		EntityID:       entity.ID,
		EntityCreated:  res.Created,
		Status:         doc.Status.String(),
	}

	if doc.Type.IsReceipt() {
		for _, li := range doc.LineItems {
			alloc, err := s.allocator.allocate(ctx, repos, AllocationRequest{
				SourceDocumentID: doc.ID,
				DocumentType:     doc.Type,
				EntityID:         entity.ID,
				ItemName:         li.Name,
				Quantity:         li.Quantity,
				UnitPrice:        li.UnitPrice,
			}, sink)
			if err != nil {
				return nil, err
			}
			result.Allocations = append(result.Allocations, *alloc)
		}
		reloaded, err := loadDocument(ctx, repos, doc.ID)
		if err != nil {
			return nil, err
		}
		result.Status = reloaded.Status.String()
	}

	if doc.Type.IsInvoice() {
		decisions, err := s.trackPrices(ctx, repos, doc, entity, inflation)
		if err != nil {
			return nil, err
		}
		result.PriceDecisions = decisions
	}

	if _, err := applyMeritChange(ctx, repos, entity, s.settings.DocumentReward, DocumentRewardReason); err != nil {
		return nil, err
	}
	lowConfidence := in.Confidence != nil && *in.Confidence < s.settings.ConfidenceThreshold
	if _, err := recordOutcome(ctx, repos, entity, lowConfidence); err != nil {
		return nil, err
	}
	if _, err := refreshDebt(ctx, repos, entity); err != nil {
		return nil, err
	}
	if err := repos.Entities().Save(ctx, entity); err != nil {
		return nil, err
	}
	sink.collect(entity)

	snapshot := entity.Snapshot()
	result.Entity = &snapshot
	return result, nil
}

// trackPrices updates the last known price of every line and, for invoices
// received from a vendor, runs the price gate against the previous price.
// A rejected price never becomes the new baseline.
func (s *IngestionService) trackPrices(ctx context.Context, repos TransactionalRepositories, doc *ledger.Document, entity *partner.Entity, inflation float64) ([]partner.PriceDecision, error) {
	var decisions []partner.PriceDecision
	for _, li := range doc.LineItems {
		if doc.Type == ledger.DocumentTypeInvoiceReceived {
			prior, err := repos.MarketPrices().Find(ctx, entity.ID, li.Name)
			switch {
			case err == nil:
				decision := s.settings.PricePolicy.Evaluate(prior.UnitPrice, li.UnitPrice, inflation)
				if err := applyPriceDecision(ctx, repos, entity, decision); err != nil {
					return nil, err
				}
				decisions = append(decisions, decision)
				if !decision.Accepted {
					s.logger.Warn("Price hike rejected",
						zap.String("entity_id", entity.ID),
						zap.String("item", li.Name),
						zap.Float64("increase_pct", decision.IncreasePct))
					continue
				}
			case errors.Is(err, shared.ErrNotFound):
			default:
				return nil, err
			}
		}
		if err := repos.MarketPrices().Upsert(ctx, &partner.MarketPrice{
			EntityID:  entity.ID,
			ItemName:  li.Name,
			UnitPrice: li.UnitPrice,
		}); err != nil {
			return nil, err
		}
	}
	return decisions, nil
}
