package event

import (
	"context"
	"encoding/json"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/shared"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingHandler writes every domain event to the log as a structured
// journal entry. Orphans and review parking are logged at warn level.
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a LoggingHandler
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger.Named("journal")}
}

// EventTypes subscribes to all events
func (h *LoggingHandler) EventTypes() []string {
	return nil
}

// Handle logs the event with its JSON payload
func (h *LoggingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	level := zapcore.InfoLevel
	switch event.EventType() {
	case ledger.EventTypeOrphanSettlementRecorded, ledger.EventTypeDocumentQueuedForReview:
		level = zapcore.WarnLevel
	}
	if ce := h.logger.Check(level, event.EventType()); ce != nil {
		ce.Write(
			zap.String("event_id", event.EventID().String()),
			zap.String("aggregate_type", event.AggregateType()),
			zap.String("aggregate_id", event.AggregateID()),
			zap.Time("occurred_at", event.OccurredAt()),
			zap.ByteString("payload", payload),
		)
	}
	return nil
}

var _ shared.EventHandler = (*LoggingHandler)(nil)
