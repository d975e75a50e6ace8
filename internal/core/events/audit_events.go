package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAuditRecorded = "audit.recorded"
)

// NewAuditRecordedEvent wraps an audit entry for asynchronous persistence.
// The payload travels under the "entry" key.
func NewAuditRecordedEvent(entry any) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeAuditRecorded,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"entry": entry,
		},
	}
}
