package persistence

import (
	"context"

	"github.com/meritledger/backend/internal/application/reconciliation"
	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/partner"
	"gorm.io/gorm"
)

// GormTransactionScope implements reconciliation.TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos reconciliation.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Documents returns the document repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Documents() ledger.DocumentRepository {
	return NewGormDocumentRepository(r.tx)
}

// Buckets returns the bucket repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Buckets() ledger.BucketRepository {
	return NewGormBucketRepository(r.tx)
}

// Settlements returns the settlement repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Settlements() ledger.SettlementRepository {
	return NewGormSettlementRepository(r.tx)
}

// Reviews returns the review queue repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Reviews() ledger.ReviewRepository {
	return NewGormReviewRepository(r.tx)
}

// Entities returns the entity repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Entities() partner.EntityRepository {
	return NewGormEntityRepository(r.tx)
}

// MeritAudit returns the merit audit repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MeritAudit() partner.MeritAuditRepository {
	return NewGormMeritAuditRepository(r.tx)
}

// MarketPrices returns the market price repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MarketPrices() partner.MarketPriceRepository {
	return NewGormMarketPriceRepository(r.tx)
}

// NewRepositories builds the non-transactional repository set used by read paths.
func NewRepositories(db *gorm.DB) reconciliation.Repositories {
	return reconciliation.Repositories{
		DocumentRepo:    NewGormDocumentRepository(db),
		BucketRepo:      NewGormBucketRepository(db),
		SettlementRepo:  NewGormSettlementRepository(db),
		ReviewRepo:      NewGormReviewRepository(db),
		EntityRepo:      NewGormEntityRepository(db),
		MeritAuditRepo:  NewGormMeritAuditRepository(db),
		MarketPriceRepo: NewGormMarketPriceRepository(db),
	}
}

// Ensure GormTransactionScope implements TransactionScope
var _ reconciliation.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ reconciliation.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
