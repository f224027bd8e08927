package reconciliation

import (
	"context"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/partner"
)

// TransactionScope provides transactional access to the reconciliation repositories.
// All repository operations inside Execute commit or roll back together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	Documents() ledger.DocumentRepository
	Buckets() ledger.BucketRepository
	Settlements() ledger.SettlementRepository
	Reviews() ledger.ReviewRepository
	Entities() partner.EntityRepository
	MeritAudit() partner.MeritAuditRepository
	MarketPrices() partner.MarketPriceRepository
}

// Repositories is a plain set of repositories
type Repositories struct {
	DocumentRepo    ledger.DocumentRepository
	BucketRepo      ledger.BucketRepository
	SettlementRepo  ledger.SettlementRepository
	ReviewRepo      ledger.ReviewRepository
	EntityRepo      partner.EntityRepository
	MeritAuditRepo  partner.MeritAuditRepository
	MarketPriceRepo partner.MarketPriceRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Documents returns the document repository.
func (s *NoOpTransactionScope) Documents() ledger.DocumentRepository {
	return s.repos.DocumentRepo
}

// Buckets returns the bucket repository.
func (s *NoOpTransactionScope) Buckets() ledger.BucketRepository {
	return s.repos.BucketRepo
}

// Settlements returns the settlement repository.
func (s *NoOpTransactionScope) Settlements() ledger.SettlementRepository {
	return s.repos.SettlementRepo
}

// Reviews returns the review queue repository.
func (s *NoOpTransactionScope) Reviews() ledger.ReviewRepository {
	return s.repos.ReviewRepo
}

// Entities returns the entity repository.
func (s *NoOpTransactionScope) Entities() partner.EntityRepository {
	return s.repos.EntityRepo
}

// MeritAudit returns the merit audit repository.
func (s *NoOpTransactionScope) MeritAudit() partner.MeritAuditRepository {
	return s.repos.MeritAuditRepo
}

// MarketPrices returns the market price repository.
func (s *NoOpTransactionScope) MarketPrices() partner.MarketPriceRepository {
	return s.repos.MarketPriceRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
