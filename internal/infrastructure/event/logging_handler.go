package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/caixaops/backend/internal/domain/shared"
)

// LoggingEventHandler writes every domain event to the structured log,
// giving operations a flat audit feed of lifecycle transitions.
type LoggingEventHandler struct {
	logger *zap.Logger
}

// NewLoggingEventHandler creates a LoggingEventHandler
func NewLoggingEventHandler(logger *zap.Logger) *LoggingEventHandler {
	return &LoggingEventHandler{logger: logger}
}

// Handle logs the event
func (h *LoggingEventHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.logger.Info("Domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

// EventTypes returns an empty slice: the handler receives every event
func (h *LoggingEventHandler) EventTypes() []string {
	return nil
}

var _ shared.EventHandler = (*LoggingEventHandler)(nil)
