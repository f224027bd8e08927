package partner

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InitialMerit is the score every entity starts with
const InitialMerit = 100

// Entity is a trading partner: a vendor, a client or both.
// Merit and streak change only through ApplyMeritChange and RecordOutcome.
type Entity struct {
	shared.BaseAggregateRoot
	ID        string
	Name      string
	Merit     int
	Streak    int
	Debt      decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEntity registers a counterparty with the starting merit score
func NewEntity(id, name string) (*Entity, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidEntity, "Entity id cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidEntity, "Entity name cannot be empty")
	}
	now := time.Now()
	e := &Entity{
		ID:        id,
		Name:      name,
		Merit:     InitialMerit,
		Streak:    0,
		Debt:      decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.AddDomainEvent(NewEntityRegisteredEvent(e))
	return e, nil
}

// ApplyMeritChange adds delta to the merit score and returns the audit entry
// to append. Merit is not clamped in either direction.
func (e *Entity) ApplyMeritChange(delta int, reason string) (*MeritAuditEntry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidReason, "Merit change requires a reason")
	}
	before := e.Merit
	e.Merit += delta
	e.UpdatedAt = time.Now()
	entry := &MeritAuditEntry{
		ID:        uuid.New(),
		EntityID:  e.ID,
		Change:    delta,
		Reason:    reason,
		Timestamp: e.UpdatedAt,
	}
	e.AddDomainEvent(NewMeritChangedEvent(e.ID, before, e.Merit, delta, reason))
	return entry, nil
}

// RecordOutcome advances the streak counter. An error raises the streak and
// applies the scheduled penalty; a clean event resets it with no merit change
// and returns a nil entry.
func (e *Entity) RecordOutcome(errorOccurred bool) (*MeritAuditEntry, error) {
	e.Streak = NextStreak(e.Streak, errorOccurred)
	e.UpdatedAt = time.Now()
	if !errorOccurred {
		return nil, nil
	}
	return e.ApplyMeritChange(PenaltyForStreak(e.Streak), StreakReason(e.Streak))
}

// SetDebt stores a freshly recomputed net balance
func (e *Entity) SetDebt(debt decimal.Decimal) bool {
	if e.Debt.Equal(debt) {
		return false
	}
	e.Debt = debt
	e.UpdatedAt = time.Now()
	return true
}

// Snapshot is the outbound view of an entity
type Snapshot struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Merit  int             `json:"merit"`
	Streak int             `json:"streak"`
	Debt   decimal.Decimal `json:"debt"`
}

// Snapshot returns the outbound view
func (e *Entity) Snapshot() Snapshot {
	return Snapshot{
		ID:     e.ID,
		Name:   e.Name,
		Merit:  e.Merit,
		Streak: e.Streak,
		Debt:   e.Debt,
	}
}
