package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingHandler struct {
	mu      sync.Mutex
	types   []string
	handled []shared.DomainEvent
	err     error
	panics  bool
}

func newRecordingHandler(types ...string) *recordingHandler {
	return &recordingHandler{types: types}
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func statusChanged(id string) shared.DomainEvent {
	return ledger.NewDocumentStatusChangedEvent(id, ledger.StatusIncomplete, ledger.StatusPartial)
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	status := newRecordingHandler(ledger.EventTypeDocumentStatusChanged)
	merit := newRecordingHandler(partner.EventTypeMeritChanged)
	all := newRecordingHandler()
	bus.Subscribe(status)
	bus.Subscribe(merit)
	bus.Subscribe(all)

	err := bus.Publish(context.Background(),
		statusChanged("INV-1"),
		partner.NewMeritChangedEvent("CL-001", 100, 101, 1, "New document processed successfully"),
	)
	require.NoError(t, err)

	assert.Equal(t, 1, status.count())
	assert.Equal(t, 1, merit.count())
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newRecordingHandler(partner.EventTypeMeritChanged)
	bus.Subscribe(h, ledger.EventTypeDocumentStatusChanged)

	require.NoError(t, bus.Publish(context.Background(), statusChanged("INV-1")))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newRecordingHandler()
	failing.err = errors.New("sink unavailable")
	panicking := newRecordingHandler()
	panicking.panics = true
	healthy := newRecordingHandler()
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), statusChanged("INV-1")))
	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, int64(2), bus.Failures())
	assert.Len(t, recorded.FilterMessage("Event handler failed").All(), 2)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newRecordingHandler()
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), statusChanged("INV-1")))
	assert.Zero(t, h.count())
}

func TestInMemoryEventBus_StopRejectsPublish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()
	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Stop(ctx))

	assert.ErrorIs(t, bus.Publish(ctx, statusChanged("INV-1")), ErrBusStopped)

	require.NoError(t, bus.Start(ctx))
	assert.NoError(t, bus.Publish(ctx, statusChanged("INV-1")))
}

func TestLoggingHandler(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	h := NewLoggingHandler(zap.New(core))
	assert.Empty(t, h.EventTypes())

	orphan := ledger.NewOrphanSettlementRecordedEvent(&ledger.OrphanSettlement{
		SourceDocumentID: "REC-1",
		EntityID:         "CL-001",
		ItemName:         "Widget",
		Reason:           ledger.OrphanReasonSurplus,
	})
	require.NoError(t, h.Handle(context.Background(), orphan))
	require.NoError(t, h.Handle(context.Background(), statusChanged("INV-1")))

	entries := recorded.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, ledger.EventTypeOrphanSettlementRecorded, entries[0].Message)
	assert.Equal(t, "REC-1", entries[0].ContextMap()["aggregate_id"])
	assert.Contains(t, entries[0].ContextMap()["payload"], `"reason":"surplus"`)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
}
