package profile

import (
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestProfile(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Profile Module Suite")
}

var _ = ginkgo.Describe("Permissions", func() {
	ginkgo.Describe("database round-trip", func() {
		ginkgo.It("should survive Value then Scan unchanged", func() {
			// Given
			perms := Permissions{
				"can_manage_access": true,
				"export_format":     "csv",
				"max_reports":       float64(10),
			}

			// When
			raw, err := perms.Value()
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			var decoded Permissions
			err = decoded.Scan([]byte(raw.(string)))

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(decoded).To(gomega.Equal(perms))
		})

		ginkgo.It("should scan NULL into an empty bag", func() {
			// When
			var decoded Permissions
			err := decoded.Scan(nil)

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(decoded).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("Allows", func() {
		ginkgo.It("should only allow keys set to a boolean true", func() {
			// Given
			perms := Permissions{
				"can_manage_access": true,
				"can_view_reports":  false,
				"export_format":     "csv",
			}

			// Then
			gomega.Expect(perms.Allows("can_manage_access")).To(gomega.BeTrue())
			gomega.Expect(perms.Allows("can_view_reports")).To(gomega.BeFalse())
			gomega.Expect(perms.Allows("export_format")).To(gomega.BeFalse())
			gomega.Expect(perms.Allows("missing")).To(gomega.BeFalse())
		})
	})
})

var _ = ginkgo.Describe("Modules", func() {
	ginkgo.It("should round-trip the allowed module list", func() {
		// Given
		modules := Modules{"admissions", "billing", "reports"}

		// When
		raw, err := modules.Value()
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		var decoded Modules
		err = decoded.Scan(raw.(string))

		// Then
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(decoded).To(gomega.Equal(modules))
	})
})
