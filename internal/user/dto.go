package user

import "github.com/carenet/identity-service/internal/grant"

// CurrentUserResponse is returned by GET /users/me: the caller's account
// plus every hospital they can currently enter.
type CurrentUserResponse struct {
	User      *User                   `json:"user"`
	Hospitals []grant.HospitalProfile `json:"hospitals"`
}
