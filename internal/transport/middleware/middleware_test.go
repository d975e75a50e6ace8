package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestMiddleware(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Transport Middleware Suite")
}

var _ = ginkgo.Describe("RequestID", func() {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ginkgo.It("should assign a trace id when the request carries none", func() {
		// Given
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
		rec := httptest.NewRecorder()

		// When
		RequestID(okHandler).ServeHTTP(rec, req)

		// Then
		gomega.Expect(rec.Header().Get("X-Trace-ID")).ToNot(gomega.BeEmpty())
	})

	ginkgo.It("should propagate an incoming trace id unchanged", func() {
		// Given
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
		req.Header.Set("X-Trace-ID", "trace-123")
		rec := httptest.NewRecorder()

		// When
		RequestID(okHandler).ServeHTTP(rec, req)

		// Then
		gomega.Expect(rec.Header().Get("X-Trace-ID")).To(gomega.Equal("trace-123"))
	})
})

var _ = ginkgo.Describe("LoggingMiddleware", func() {
	var (
		logOutput *bytes.Buffer
		lg        *slog.Logger
	)

	ginkgo.BeforeEach(func() {
		logOutput = &bytes.Buffer{}
		lg = slog.New(slog.NewJSONHandler(logOutput, nil))
	})

	echoHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"email":"demo@carenet.example"}`))
	})

	ginkgo.It("should log request and response without leaking credentials", func() {
		// Given a login request that carries an authorization code and a token
		body := `{"code":"auth-code-secret-value","external_access_token":"bearer-secret-value"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer super-secret")
		rec := httptest.NewRecorder()

		// When
		LoggingMiddleware(lg)(echoHandler).ServeHTTP(rec, req)

		// Then both sides are logged and every credential is masked
		out := logOutput.String()
		gomega.Expect(out).To(gomega.ContainSubstring("incoming request"))
		gomega.Expect(out).To(gomega.ContainSubstring("response"))
		gomega.Expect(out).To(gomega.ContainSubstring("[FILTERED]"))
		gomega.Expect(out).ToNot(gomega.ContainSubstring("auth-code-secret-value"))
		gomega.Expect(out).ToNot(gomega.ContainSubstring("bearer-secret-value"))
		gomega.Expect(out).ToNot(gomega.ContainSubstring("super-secret"))
	})

	ginkgo.It("should keep the response body intact for the client", func() {
		// Given
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		rec := httptest.NewRecorder()

		// When
		LoggingMiddleware(lg)(echoHandler).ServeHTTP(rec, req)

		// Then
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("demo@carenet.example"))
	})
})
