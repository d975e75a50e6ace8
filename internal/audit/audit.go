package audit

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Audit actions recorded by the identity core.
const (
	ActionLogin          = "LOGIN"
	ActionLogout         = "LOGOUT"
	ActionSelectHospital = "SELECT_HOSPITAL"
	ActionGrantProfile   = "GRANT_PROFILE"
	ActionRevokeProfile  = "REVOKE_PROFILE"
)

// Metadata is the structured payload attached to an audit entry.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata column type %T", src)
	}
}

// Entry is an append-only record of a security-relevant action. The core
// only ever writes these; nothing in this service reads them back.
type Entry struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	UserID      *int64    `json:"user_id,omitempty" gorm:"column:user_id"`
	HospitalID  *int64    `json:"hospital_id,omitempty" gorm:"column:hospital_id"`
	Action      string    `json:"action" gorm:"column:action;not null"`
	Description string    `json:"description" gorm:"column:description"`
	IPAddress   string    `json:"ip_address,omitempty" gorm:"column:ip_address"`
	UserAgent   string    `json:"user_agent,omitempty" gorm:"column:user_agent"`
	Metadata    Metadata  `json:"metadata" gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (Entry) TableName() string {
	return "audit_log_entries"
}

// Recorder accepts audit entries best-effort: recording never fails the
// primary operation. Failures must still be observable to operators, which
// the implementations handle by logging.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type Repository interface {
	Create(e *Entry) error
}
