package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/carenet/identity-service/internal"
	"github.com/carenet/identity-service/pkg/logger"
)

func TestIdentity(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Identity Bridge Suite")
}

// fakeProvider stands in for the external identity provider's token and
// identity-info endpoints.
type fakeProvider struct {
	server *httptest.Server

	acceptCode     string
	issuedToken    string
	account        map[string]any
	rejectUserInfo bool
}

func newFakeProvider() *fakeProvider {
	p := &fakeProvider{
		acceptCode:  "good-code",
		issuedToken: "provider-access-token",
		account: map[string]any{
			"id":                "ext-1",
			"displayName":       "Dr. Example",
			"mail":              "a@x.com",
			"userPrincipalName": "a@corp.example",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.FormValue("code") != p.acceptCode {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": p.issuedToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if p.rejectUserInfo || r.Header.Get("Authorization") != "Bearer "+p.issuedToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p.account)
	})

	p.server = httptest.NewServer(mux)
	return p
}

func (p *fakeProvider) config() internal.ProviderConfig {
	return internal.ProviderConfig{
		TenantID:     "test-tenant",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  p.server.URL + "/callback",
		Scopes:       []string{"openid", "profile", "email"},
		AuthURL:      p.server.URL + "/oauth2/authorize",
		TokenURL:     p.server.URL + "/oauth2/token",
		UserInfoURL:  p.server.URL + "/me",
		Timeout:      2 * time.Second,
	}
}

var _ = ginkgo.Describe("AzureBridge", func() {
	var (
		provider *fakeProvider
		bridge   *AzureBridge
		ctx      context.Context
	)

	ginkgo.BeforeEach(func() {
		provider = newFakeProvider()
		ctx = context.Background()

		var err error
		bridge, err = NewAzureBridge(ctx, provider.config(), logger.LoggerWrapper())
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
	})

	ginkgo.AfterEach(func() {
		provider.server.Close()
	})

	ginkgo.Describe("ExchangeCode", func() {
		ginkgo.Context("when the provider accepts the code", func() {
			ginkgo.It("should return the normalized identity", func() {
				// When
				id, err := bridge.ExchangeCode(ctx, "good-code")

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(id.ExternalID).To(gomega.Equal("ext-1"))
				gomega.Expect(id.DisplayName).To(gomega.Equal("Dr. Example"))
				gomega.Expect(id.Email).To(gomega.Equal("a@x.com"))
				gomega.Expect(id.ExternalTenantID).To(gomega.Equal("test-tenant"))
			})
		})

		ginkgo.Context("when the provider rejects the code", func() {
			ginkgo.It("should fail with ErrExternalAuthFailure", func() {
				// When
				id, err := bridge.ExchangeCode(ctx, "stale-code")

				// Then
				gomega.Expect(err).To(gomega.MatchError(ErrExternalAuthFailure))
				gomega.Expect(id).To(gomega.BeNil())
			})
		})
	})

	ginkgo.Describe("FromAccessToken", func() {
		ginkgo.Context("when the token is accepted", func() {
			ginkgo.It("should prefer email over the principal name", func() {
				// When
				id, err := bridge.FromAccessToken(ctx, "provider-access-token", "")

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(id.Email).To(gomega.Equal("a@x.com"))
			})

			ginkgo.It("should fall back to the principal name when email is absent", func() {
				// Given
				delete(provider.account, "mail")

				// When
				id, err := bridge.FromAccessToken(ctx, "provider-access-token", "")

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(id.Email).To(gomega.Equal("a@corp.example"))
			})
		})

		ginkgo.Context("when the identity-info endpoint rejects the token", func() {
			ginkgo.It("should fail with ErrExternalAuthFailure", func() {
				// When
				id, err := bridge.FromAccessToken(ctx, "forged-token", "")

				// Then
				gomega.Expect(err).To(gomega.MatchError(ErrExternalAuthFailure))
				gomega.Expect(id).To(gomega.BeNil())
			})
		})

		ginkgo.Context("when the account has no subject id", func() {
			ginkgo.It("should fail with ErrMissingIdentityID", func() {
				// Given
				provider.account["id"] = ""

				// When
				id, err := bridge.FromAccessToken(ctx, "provider-access-token", "")

				// Then
				gomega.Expect(err).To(gomega.MatchError(ErrMissingIdentityID))
				gomega.Expect(id).To(gomega.BeNil())
			})
		})

		ginkgo.Context("when no token is supplied", func() {
			ginkgo.It("should fail without calling the provider", func() {
				// When
				id, err := bridge.FromAccessToken(ctx, "", "")

				// Then
				gomega.Expect(err).To(gomega.MatchError(ErrExternalAuthFailure))
				gomega.Expect(id).To(gomega.BeNil())
			})
		})
	})
})
