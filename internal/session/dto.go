package session

import (
	"github.com/carenet/identity-service/internal/grant"
	"github.com/carenet/identity-service/internal/hospital"
	"github.com/carenet/identity-service/internal/profile"
	"github.com/carenet/identity-service/internal/user"
)

// LoginDTO is the transport shape for login requests. Either a one-time
// authorization code or a provider-issued access token must be present.
type LoginDTO struct {
	Code             string `json:"code,omitempty"`
	AzureAccessToken string `json:"azureAccessToken,omitempty"`
	AzureIDToken     string `json:"azureIdToken,omitempty"`
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken"`
}

// SelectHospitalDTO for tenant selection requests
type SelectHospitalDTO struct {
	HospitalID int64 `json:"hospitalId"`
}

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

// Validate checks that exactly one credential shape is usable.
func (d LoginDTO) Validate() error {
	if d.Code == "" && d.AzureAccessToken == "" {
		return ValidationError{Msg: "either code or azureAccessToken is required"}
	}
	return nil
}

func (d RefreshTokenDTO) Validate() error {
	if d.RefreshToken == "" {
		return ValidationError{Msg: "refreshToken is required"}
	}
	return nil
}

func (d SelectHospitalDTO) Validate() error {
	if d.HospitalID <= 0 {
		return ValidationError{Msg: "hospitalId is required"}
	}
	return nil
}

// LoginResponse is returned after a successful login. Hospitals lists every
// active grant the user holds across tenants; no hospital is bound yet.
type LoginResponse struct {
	AccessToken  string                  `json:"accessToken"`
	RefreshToken string                  `json:"refreshToken"`
	ExpiresIn    int64                   `json:"expiresIn"`
	User         *user.User              `json:"user"`
	Hospitals    []grant.HospitalProfile `json:"hospitals"`
}

// TokenPair is a rotated access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SelectHospitalResponse carries the hospital-scoped context token and where
// the client should go next.
type SelectHospitalResponse struct {
	AccessToken string             `json:"accessToken"`
	RedirectURL string             `json:"redirectUrl"`
	Hospital    *hospital.Hospital `json:"hospital"`
	Profiles    []*profile.Profile `json:"profiles"`
}
