package partner

import "github.com/meritledger/backend/internal/domain/shared"

// Event type constants
const (
	EventTypeEntityRegistered = "EntityRegistered"
	EventTypeMeritChanged     = "MeritChanged"
	EventTypePriceRejected    = "PriceRejected"
)

// AggregateTypeEntity is the aggregate type for trading partners
const AggregateTypeEntity = "Entity"

// EntityRegisteredEvent is raised when a new counterparty is created
type EntityRegisteredEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
}

// NewEntityRegisteredEvent creates an EntityRegisteredEvent
func NewEntityRegisteredEvent(e *Entity) *EntityRegisteredEvent {
	return &EntityRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEntityRegistered, AggregateTypeEntity, e.ID),
		Name:            e.Name,
	}
}

// MeritChangedEvent is raised for every merit adjustment
type MeritChangedEvent struct {
	shared.BaseDomainEvent
	Before int    `json:"before"`
	After  int    `json:"after"`
	Change int    `json:"change"`
	Reason string `json:"reason"`
}

// NewMeritChangedEvent creates a MeritChangedEvent
func NewMeritChangedEvent(entityID string, before, after, change int, reason string) *MeritChangedEvent {
	return &MeritChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMeritChanged, AggregateTypeEntity, entityID),
		Before:          before,
		After:           after,
		Change:          change,
		Reason:          reason,
	}
}

// PriceRejectedEvent is raised when the price gate rejects a hike
type PriceRejectedEvent struct {
	shared.BaseDomainEvent
	IncreasePct float64 `json:"increase_pct"`
	Inflation   float64 `json:"inflation"`
}

// NewPriceRejectedEvent creates a PriceRejectedEvent
func NewPriceRejectedEvent(entityID string, increasePct, inflation float64) *PriceRejectedEvent {
	return &PriceRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePriceRejected, AggregateTypeEntity, entityID),
		IncreasePct:     increasePct,
		Inflation:       inflation,
	}
}
