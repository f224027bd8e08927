package reconciliation

import (
	"context"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/partner"
	"go.uber.org/zap"
)

// DebtService recomputes net balances from outstanding invoice lines.
// Recomputation is total, so running it twice gives the same result.
type DebtService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewDebtService creates a new DebtService
func NewDebtService(scope TransactionScope, logger *zap.Logger) *DebtService {
	return &DebtService{scope: scope, logger: logger}
}

// Recompute refreshes one entity's stored debt
func (s *DebtService) Recompute(ctx context.Context, entityID string) (*DebtResponse, error) {
	var breakdown ledger.DebtBreakdown
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		e, err := loadEntity(ctx, repos, entityID)
		if err != nil {
			return err
		}
		breakdown, err = refreshDebt(ctx, repos, e)
		if err != nil {
			return err
		}
		return repos.Entities().Save(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return &DebtResponse{
		EntityID:   entityID,
		Receivable: breakdown.Receivable,
		Payable:    breakdown.Payable,
		Net:        breakdown.Net,
	}, nil
}

// RecomputeAll refreshes every entity and returns how many were processed
func (s *DebtService) RecomputeAll(ctx context.Context) (int, error) {
	var ids []string
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		ids, err = repos.Entities().ListIDs(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := s.Recompute(ctx, id); err != nil {
			return 0, err
		}
	}
	s.logger.Info("Debt recomputed", zap.Int("entities", len(ids)))
	return len(ids), nil
}

// refreshDebt computes the entity's balance and stores it on e. The caller saves e.
func refreshDebt(ctx context.Context, repos TransactionalRepositories, e *partner.Entity) (ledger.DebtBreakdown, error) {
	receivable, err := repos.Documents().ListLineItemsByEntity(ctx, e.ID, ledger.DocumentTypeInvoiceSent)
	if err != nil {
		return ledger.DebtBreakdown{}, err
	}
	payable, err := repos.Documents().ListLineItemsByEntity(ctx, e.ID, ledger.DocumentTypeInvoiceReceived)
	if err != nil {
		return ledger.DebtBreakdown{}, err
	}
	breakdown := ledger.ComputeDebt(receivable, payable)
	e.SetDebt(breakdown.Net)
	return breakdown, nil
}
