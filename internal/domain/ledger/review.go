package ledger

import (
	"time"

	"github.com/google/uuid"
)

// ReviewQueue names the manual-review queue a document was routed to
type ReviewQueue string

const (
	// ReviewQueueQuarantine holds documents with no usable identity at all
	ReviewQueueQuarantine ReviewQueue = "quarantine"
	// ReviewQueueTypo holds documents whose name drifted too far from the stored entity
	ReviewQueueTypo ReviewQueue = "typo_review"
)

// IsValid checks if the queue is known
func (q ReviewQueue) IsValid() bool {
	return q == ReviewQueueQuarantine || q == ReviewQueueTypo
}

// ReviewItem is a document parked for a human, with the raw record kept verbatim
type ReviewItem struct {
	ID            uuid.UUID
	DocumentID    string
	DocumentType  DocumentType
	Queue         ReviewQueue
	Reason        string
	CandidateID   *string
	CandidateName *string
	StoredName    string
	Similarity    float64
	Payload       []byte
	CreatedAt     time.Time
}

// NewReviewItem creates a review queue entry
func NewReviewItem(in *IncomingDocument, queue ReviewQueue, reason string, payload []byte) *ReviewItem {
	return &ReviewItem{
		ID:            uuid.New(),
		DocumentID:    in.ID,
		DocumentType:  in.Type,
		Queue:         queue,
		Reason:        reason,
		CandidateID:   in.EntityID,
		CandidateName: in.EntityName,
		Payload:       payload,
		CreatedAt:     time.Now(),
	}
}
