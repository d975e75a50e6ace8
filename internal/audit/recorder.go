package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/carenet/identity-service/internal/core/events"
)

// BusRecorder publishes entries onto the in-process event bus after the
// primary operation has completed. The bus runs subscribers asynchronously
// and logs their failures, which gives audit writes their fire-and-forget
// semantics.
type BusRecorder struct {
	bus    *events.EventBus
	logger *slog.Logger
}

func NewBusRecorder(bus *events.EventBus, logger *slog.Logger) *BusRecorder {
	return &BusRecorder{bus: bus, logger: logger}
}

func (r *BusRecorder) Record(ctx context.Context, e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	// detach from the request context so the write survives response flush
	ctx = context.WithoutCancel(ctx)

	if err := r.bus.Publish(ctx, events.NewAuditRecordedEvent(e)); err != nil {
		r.logger.Error("failed to publish audit entry", "action", e.Action, "error", err)
	}
}

// StoreSink subscribes to audit events and persists them.
type StoreSink struct {
	repo   Repository
	logger *slog.Logger
}

func NewStoreSink(repo Repository, logger *slog.Logger) *StoreSink {
	return &StoreSink{repo: repo, logger: logger}
}

func (s *StoreSink) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeAuditRecorded, s.handle)
}

func (s *StoreSink) handle(_ context.Context, evt events.Event) error {
	payload, ok := evt.Payload().(map[string]interface{})
	if !ok {
		s.logger.Error("audit event carried unexpected payload", "event_id", evt.EventID())
		return nil
	}

	entry, ok := payload["entry"].(Entry)
	if !ok {
		s.logger.Error("audit event payload missing entry", "event_id", evt.EventID())
		return nil
	}

	if err := s.repo.Create(&entry); err != nil {
		// surfaced to operators via the log, never to the caller
		s.logger.Error("failed to persist audit entry",
			"action", entry.Action,
			"error", err)
		return err
	}
	return nil
}
