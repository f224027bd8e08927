package partner

import (
	"time"

	"github.com/google/uuid"
)

// MeritAuditEntry is an immutable record of one merit change
type MeritAuditEntry struct {
	ID        uuid.UUID
	EntityID  string
	Change    int
	Reason    string
	Timestamp time.Time
}

// MeritAuditView is an audit entry joined with the entity's current display name
type MeritAuditView struct {
	MeritAuditEntry
	EntityName string
}
