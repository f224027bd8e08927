package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// EntityModel is the persistence model for the partner.Entity aggregate.
type EntityModel struct {
	ID        string          `gorm:"type:varchar(64);primaryKey"`
	Name      string          `gorm:"type:varchar(200);not null;index:idx_entity_name"`
	Merit     int             `gorm:"not null;default:100"`
	Streak    int             `gorm:"not null;default:0"`
	Debt      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntityModel) TableName() string {
	return "entities"
}

// ToDomain converts the persistence model to a domain Entity.
func (m *EntityModel) ToDomain() *partner.Entity {
	return &partner.Entity{
		ID:        m.ID,
		Name:      m.Name,
		Merit:     m.Merit,
		Streak:    m.Streak,
		Debt:      m.Debt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Entity.
func (m *EntityModel) FromDomain(e *partner.Entity) {
	m.ID = e.ID
	m.Name = e.Name
	m.Merit = e.Merit
	m.Streak = e.Streak
	m.Debt = e.Debt
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// EntityModelFromDomain creates a new persistence model from a domain Entity.
func EntityModelFromDomain(e *partner.Entity) *EntityModel {
	m := &EntityModel{}
	m.FromDomain(e)
	return m
}

// MeritAuditModel is one row of the append-only merit history.
// Seq gives a strict insertion order independent of clock resolution.
type MeritAuditModel struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	ID        uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex"`
	EntityID  string    `gorm:"type:varchar(64);not null;index:idx_merit_audit_entity"`
	Change    int       `gorm:"not null"`
	Reason    string    `gorm:"type:text;not null"`
	Timestamp time.Time `gorm:"column:recorded_at;not null;index"`
}

// TableName returns the table name for GORM
func (MeritAuditModel) TableName() string {
	return "merit_audit"
}

// ToDomain converts the persistence model to a domain MeritAuditEntry.
func (m *MeritAuditModel) ToDomain() partner.MeritAuditEntry {
	return partner.MeritAuditEntry{
		ID:        m.ID,
		EntityID:  m.EntityID,
		Change:    m.Change,
		Reason:    m.Reason,
		Timestamp: m.Timestamp,
	}
}

// MeritAuditModelFromDomain creates a new persistence model from a domain MeritAuditEntry.
func MeritAuditModelFromDomain(e *partner.MeritAuditEntry) *MeritAuditModel {
	return &MeritAuditModel{
		ID:        e.ID,
		EntityID:  e.EntityID,
		Change:    e.Change,
		Reason:    e.Reason,
		Timestamp: e.Timestamp,
	}
}

// MeritAuditRow is the read shape of an audit row joined with its entity name.
type MeritAuditRow struct {
	MeritAuditModel
	EntityName string
}

// ToDomain converts the joined row to a MeritAuditView.
func (r *MeritAuditRow) ToDomain() partner.MeritAuditView {
	return partner.MeritAuditView{
		MeritAuditEntry: r.MeritAuditModel.ToDomain(),
		EntityName:      r.EntityName,
	}
}

// MarketPriceModel holds the last known unit price per entity and item.
type MarketPriceModel struct {
	EntityID  string          `gorm:"type:varchar(64);primaryKey"`
	ItemName  string          `gorm:"type:varchar(200);primaryKey"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MarketPriceModel) TableName() string {
	return "market_prices"
}

// ToDomain converts the persistence model to a domain MarketPrice.
func (m *MarketPriceModel) ToDomain() *partner.MarketPrice {
	return &partner.MarketPrice{
		EntityID:  m.EntityID,
		ItemName:  m.ItemName,
		UnitPrice: m.UnitPrice,
	}
}
