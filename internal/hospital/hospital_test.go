package hospital

import (
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestHospital(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Hospital Module Suite")
}

var _ = ginkgo.Describe("RedirectURL", func() {
	ginkgo.Context("when the hospital has no custom domain", func() {
		ginkgo.It("should derive the subdomain under the base routing domain", func() {
			// Given
			h := &Hospital{Code: "demo", Subdomain: "demo"}

			// When
			url := h.RedirectURL("https", "carenet.health")

			// Then
			gomega.Expect(url).To(gomega.Equal("https://demo.carenet.health"))
		})
	})

	ginkgo.Context("when the hospital has a custom domain", func() {
		ginkgo.It("should prefer the custom domain", func() {
			// Given
			custom := "portal.stmarys.example"
			h := &Hospital{Code: "stmarys", Subdomain: "stmarys", CustomDomain: &custom}

			// When
			url := h.RedirectURL("https", "carenet.health")

			// Then
			gomega.Expect(url).To(gomega.Equal("https://portal.stmarys.example"))
		})
	})

	ginkgo.Context("when the custom domain is set but empty", func() {
		ginkgo.It("should fall back to the subdomain", func() {
			// Given
			empty := ""
			h := &Hospital{Code: "demo", Subdomain: "demo", CustomDomain: &empty}

			// When
			url := h.RedirectURL("https", "carenet.health")

			// Then
			gomega.Expect(url).To(gomega.Equal("https://demo.carenet.health"))
		})
	})
})
