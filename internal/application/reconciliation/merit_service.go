package reconciliation

import (
	"context"
	"errors"

	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MeritService applies merit changes and streak penalties. Each call is one
// transaction covering the entity update and its audit entry.
type MeritService struct {
	scope          TransactionScope
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewMeritService creates a new MeritService
func NewMeritService(scope TransactionScope, logger *zap.Logger) *MeritService {
	return &MeritService{
		scope:  scope,
		logger: logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *MeritService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ApplyChange adds delta to the entity's merit with an audit reason
func (s *MeritService) ApplyChange(ctx context.Context, entityID string, delta int, reason string) (*partner.Snapshot, error) {
	var (
		snapshot partner.Snapshot
		sink     eventSink
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		e, err := loadEntity(ctx, repos, entityID)
		if err != nil {
			return err
		}
		if _, err := applyMeritChange(ctx, repos, e, delta, reason); err != nil {
			return err
		}
		if err := repos.Entities().Save(ctx, e); err != nil {
			return err
		}
		snapshot = e.Snapshot()
		sink.collect(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Merit changed",
		zap.String("entity_id", entityID),
		zap.Int("change", delta),
		zap.String("reason", reason))
	sink.publish(ctx, s.eventPublisher)
	return &snapshot, nil
}

// ApplyStreakPenalty advances the streak and returns the penalty applied,
// which is zero for a clean event
func (s *MeritService) ApplyStreakPenalty(ctx context.Context, entityID string, errorOccurred bool) (int, error) {
	var (
		penalty int
		sink    eventSink
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		e, err := loadEntity(ctx, repos, entityID)
		if err != nil {
			return err
		}
		penalty, err = recordOutcome(ctx, repos, e, errorOccurred)
		if err != nil {
			return err
		}
		if err := repos.Entities().Save(ctx, e); err != nil {
			return err
		}
		sink.collect(e)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if penalty != 0 {
		s.logger.Info("Streak penalty applied",
			zap.String("entity_id", entityID),
			zap.Int("penalty", penalty))
	}
	sink.publish(ctx, s.eventPublisher)
	return penalty, nil
}

func loadEntity(ctx context.Context, repos TransactionalRepositories, entityID string) (*partner.Entity, error) {
	e, err := repos.Entities().FindByID(ctx, entityID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeEntityNotFound, "Entity not found: "+entityID)
		}
		return nil, err
	}
	return e, nil
}

// applyMeritChange mutates e and appends the audit entry. The caller saves e.
func applyMeritChange(ctx context.Context, repos TransactionalRepositories, e *partner.Entity, delta int, reason string) (*partner.MeritAuditEntry, error) {
	entry, err := e.ApplyMeritChange(delta, reason)
	if err != nil {
		return nil, err
	}
	if err := repos.MeritAudit().Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// recordOutcome advances the streak of e and appends any penalty entry. The caller saves e.
func recordOutcome(ctx context.Context, repos TransactionalRepositories, e *partner.Entity, errorOccurred bool) (int, error) {
	entry, err := e.RecordOutcome(errorOccurred)
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, nil
	}
	if err := repos.MeritAudit().Append(ctx, entry); err != nil {
		return 0, err
	}
	return entry.Change, nil
}
