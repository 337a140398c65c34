package events

import (
	"context"

	"go.uber.org/zap"
)

// ClickStore persists click facts. Implementations live with whatever
// analytics backend the deployment uses; the engine only publishes.
type ClickStore interface {
	SaveClick(ctx context.Context, event *LinkClickedEvent) error
}

// ZapClickStore writes click facts to the log instead of a store. It is
// the default sink when no analytics backend is configured.
type ZapClickStore struct {
	logger *zap.Logger
}

// NewZapClickStore creates a log-only click store.
func NewZapClickStore(logger *zap.Logger) *ZapClickStore {
	return &ZapClickStore{logger: logger}
}

func (s *ZapClickStore) SaveClick(_ context.Context, event *LinkClickedEvent) error {
	s.logger.Info("link clicked",
		zap.String("code", event.Code),
		zap.Int64("tenant_id", event.TenantID),
		zap.String("referrer", event.Referrer),
		zap.Time("clicked_at", event.ClickedAt),
	)

	return nil
}

// Compile-time check.
var _ ClickStore = (*ZapClickStore)(nil)
