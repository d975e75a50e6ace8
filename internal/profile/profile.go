package profile

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Permissions is the opaque attribute bag attached to a profile. Downstream
// services define its shape; this service passes it through unchanged.
type Permissions map[string]any

func (p Permissions) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (p *Permissions) Scan(src any) error {
	if src == nil {
		*p = Permissions{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported permissions column type %T", src)
	}
}

// Allows reports whether the bag contains key with a boolean true value.
// Non-boolean values are settings for downstream services, never evaluated
// here.
func (p Permissions) Allows(key string) bool {
	v, ok := p[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Modules is the list of functional module names a profile may open.
type Modules []string

func (m Modules) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (m *Modules) Scan(src any) error {
	if src == nil {
		*m = Modules{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported modules column type %T", src)
	}
}

// Profile is a named bundle of module access and permission flags. Read
// mostly; provisioned by administrators out-of-band.
type Profile struct {
	ID          int64       `json:"id" gorm:"primaryKey"`
	Code        string      `json:"code" gorm:"column:code;uniqueIndex;not null"`
	Name        string      `json:"name" gorm:"column:name;not null"`
	Description string      `json:"description" gorm:"column:description"`
	Modules     Modules     `json:"modules" gorm:"column:modules;type:jsonb"`
	Permissions Permissions `json:"permissions" gorm:"column:permissions;type:jsonb"`
	IsActive    bool        `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt   time.Time   `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Profile) TableName() string {
	return "profiles"
}

type Repository interface {
	GetByID(id int64) (*Profile, error)
	ListActive() ([]*Profile, error)
}

var ErrNotFound = errors.New("profile not found")
