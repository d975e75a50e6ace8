package grant

import (
	"github.com/carenet/identity-service/internal"
	"github.com/carenet/identity-service/internal/core/common/validation"
)

// GrantDTO is the transport shape for the administrative grant and revoke
// endpoints.
type GrantDTO struct {
	UserID     int64 `json:"userId"`
	HospitalID int64 `json:"hospitalId"`
	ProfileID  int64 `json:"profileId"`
}

func (d GrantDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("userId", d.UserID).Required().MinInt(1, internal.ErrCodeInvalidUserID)
	v.Field("hospitalId", d.HospitalID).Required().MinInt(1, internal.ErrCodeInvalidHospitalID)
	v.Field("profileId", d.ProfileID).Required().MinInt(1, internal.ErrCodeInvalidProfileID)
	return v.Validate()
}
