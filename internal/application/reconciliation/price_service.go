package reconciliation

import (
	"context"

	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InflationSource supplies the current market inflation percentage. It never
// fails; implementations fall back to a configured rate.
type InflationSource interface {
	CurrentRate(ctx context.Context) float64
}

// PriceService runs the price-fairness gate and applies its penalty
type PriceService struct {
	scope          TransactionScope
	inflation      InflationSource
	settings       Settings
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPriceService creates a new PriceService
func NewPriceService(scope TransactionScope, inflation InflationSource, settings Settings, logger *zap.Logger) *PriceService {
	return &PriceService{
		scope:     scope,
		inflation: inflation,
		settings:  settings,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PriceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CurrentInflation returns the market rate, or the fallback when no source is wired
func (s *PriceService) CurrentInflation(ctx context.Context) float64 {
	if s.inflation == nil {
		return s.settings.FallbackInflation
	}
	return s.inflation.CurrentRate(ctx)
}

// Evaluate judges a price change against the supplied inflation rate.
// A rejection applies the policy penalty to the entity's merit.
func (s *PriceService) Evaluate(ctx context.Context, entityID string, prior, next decimal.Decimal, inflation float64) (*partner.PriceDecision, error) {
	decision := s.settings.PricePolicy.Evaluate(prior, next, inflation)
	if decision.Accepted {
		return &decision, nil
	}

	var sink eventSink
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		e, err := loadEntity(ctx, repos, entityID)
		if err != nil {
			return err
		}
		if err := applyPriceDecision(ctx, repos, e, decision); err != nil {
			return err
		}
		if err := repos.Entities().Save(ctx, e); err != nil {
			return err
		}
		sink.collect(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Warn("Price hike rejected",
		zap.String("entity_id", entityID),
		zap.Float64("increase_pct", decision.IncreasePct),
		zap.Float64("inflation", inflation))
	sink.publish(ctx, s.eventPublisher)
	return &decision, nil
}

// EvaluateWithMarket is Evaluate with the inflation rate looked up from the market source
func (s *PriceService) EvaluateWithMarket(ctx context.Context, entityID string, prior, next decimal.Decimal) (*partner.PriceDecision, error) {
	return s.Evaluate(ctx, entityID, prior, next, s.CurrentInflation(ctx))
}

// Check serves a price-check request
func (s *PriceService) Check(ctx context.Context, req PriceCheckRequest) (*partner.PriceDecision, error) {
	if req.Inflation != nil {
		return s.Evaluate(ctx, req.EntityID, req.PriorPrice, req.NewPrice, *req.Inflation)
	}
	return s.EvaluateWithMarket(ctx, req.EntityID, req.PriorPrice, req.NewPrice)
}

// applyPriceDecision applies the penalty of a rejected decision to e. The caller saves e.
func applyPriceDecision(ctx context.Context, repos TransactionalRepositories, e *partner.Entity, decision partner.PriceDecision) error {
	if decision.Accepted {
		return nil
	}
	if _, err := applyMeritChange(ctx, repos, e, decision.Penalty, decision.Reason); err != nil {
		return err
	}
	e.AddDomainEvent(partner.NewPriceRejectedEvent(e.ID, decision.IncreasePct, decision.Inflation))
	return nil
}
