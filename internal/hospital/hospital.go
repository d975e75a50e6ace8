package hospital

import (
	"errors"
	"fmt"
	"time"
)

// Hospital is an isolated customer organization with its own branding and
// routing. Provisioned out-of-band; this service only reads it.
type Hospital struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Code         string    `json:"code" gorm:"column:code;uniqueIndex;not null"`
	Name         string    `json:"name" gorm:"column:name;not null"`
	LegalID      string    `json:"legal_id" gorm:"column:legal_id"`
	Subdomain    string    `json:"subdomain" gorm:"column:subdomain;not null"`
	CustomDomain *string   `json:"custom_domain,omitempty" gorm:"column:custom_domain"`
	LogoURL      string    `json:"logo_url,omitempty" gorm:"column:logo_url"`
	PrimaryColor string    `json:"primary_color,omitempty" gorm:"column:primary_color"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Hospital) TableName() string {
	return "hospitals"
}

// RedirectURL computes the post-selection target: the hospital's custom
// domain when it has one, otherwise its subdomain under the base routing
// domain.
func (h *Hospital) RedirectURL(scheme, baseDomain string) string {
	if h.CustomDomain != nil && *h.CustomDomain != "" {
		return fmt.Sprintf("%s://%s", scheme, *h.CustomDomain)
	}
	return fmt.Sprintf("%s://%s.%s", scheme, h.Subdomain, baseDomain)
}

type Repository interface {
	GetByID(id int64) (*Hospital, error)
	ListActive() ([]*Hospital, error)
}

var ErrNotFound = errors.New("hospital not found")
