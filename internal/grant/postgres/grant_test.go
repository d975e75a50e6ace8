package postgres

import (
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/carenet/identity-service/internal/grant"
	"github.com/carenet/identity-service/internal/hospital"
	"github.com/carenet/identity-service/internal/profile"
)

func TestGrantRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Grant Repository Suite")
}

// sqlite shadow models: the production models carry postgres-only tags
// (jsonb columns, now() defaults) that sqlite's DDL cannot digest, so the
// test schema is migrated from these instead.
type sqliteHospital struct {
	ID           int64     `gorm:"primaryKey"`
	Code         string    `gorm:"column:code;uniqueIndex;not null"`
	Name         string    `gorm:"column:name;not null"`
	LegalID      string    `gorm:"column:legal_id"`
	Subdomain    string    `gorm:"column:subdomain;not null"`
	CustomDomain *string   `gorm:"column:custom_domain"`
	LogoURL      string    `gorm:"column:logo_url"`
	PrimaryColor string    `gorm:"column:primary_color"`
	IsActive     bool      `gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (sqliteHospital) TableName() string {
	return "hospitals"
}

type sqliteProfile struct {
	ID          int64               `gorm:"primaryKey"`
	Code        string              `gorm:"column:code;uniqueIndex;not null"`
	Name        string              `gorm:"column:name;not null"`
	Description string              `gorm:"column:description"`
	Modules     profile.Modules     `gorm:"column:modules"`
	Permissions profile.Permissions `gorm:"column:permissions"`
	IsActive    bool                `gorm:"column:is_active;default:true"`
	CreatedAt   time.Time           `gorm:"column:created_at"`
	UpdatedAt   time.Time           `gorm:"column:updated_at"`
}

func (sqliteProfile) TableName() string {
	return "profiles"
}

type sqliteAccessGrant struct {
	ID         int64      `gorm:"primaryKey"`
	UserID     int64      `gorm:"column:user_id;not null"`
	HospitalID int64      `gorm:"column:hospital_id;not null"`
	ProfileID  int64      `gorm:"column:profile_id;not null"`
	IsActive   bool       `gorm:"column:is_active;default:true"`
	GrantedBy  *int64     `gorm:"column:granted_by"`
	GrantedAt  time.Time  `gorm:"column:granted_at"`
	RevokedBy  *int64     `gorm:"column:revoked_by"`
	RevokedAt  *time.Time `gorm:"column:revoked_at"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
}

func (sqliteAccessGrant) TableName() string {
	return "user_hospital_profiles"
}

func openTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	gomega.Expect(err).ToNot(gomega.HaveOccurred())

	err = db.AutoMigrate(&sqliteHospital{}, &sqliteProfile{}, &sqliteAccessGrant{})
	gomega.Expect(err).ToNot(gomega.HaveOccurred())

	// same partial unique index the production migration installs: one
	// active row per triple, revoked history unconstrained
	err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_uhp_active_triple
		ON user_hospital_profiles (user_id, hospital_id, profile_id)
		WHERE is_active`).Error
	gomega.Expect(err).ToNot(gomega.HaveOccurred())

	return db
}

var _ = ginkgo.Describe("GrantRepository", func() {
	var (
		db       *gorm.DB
		repo     grant.Repository
		demoHosp hospital.Hospital
		auditor  profile.Profile
	)

	ginkgo.BeforeEach(func() {
		db = openTestDB()

		// truncate between specs; the shared-cache in-memory db persists
		db.Exec("DELETE FROM user_hospital_profiles")
		db.Exec("DELETE FROM hospitals")
		db.Exec("DELETE FROM profiles")

		demoHosp = hospital.Hospital{Code: "demo", Name: "Demo Hospital", Subdomain: "demo", IsActive: true}
		gomega.Expect(db.Create(&demoHosp).Error).ToNot(gomega.HaveOccurred())

		auditor = profile.Profile{
			Code:        "auditor",
			Name:        "Auditor",
			Modules:     profile.Modules{"reports"},
			Permissions: profile.Permissions{"can_view_reports": true},
			IsActive:    true,
		}
		gomega.Expect(db.Create(&auditor).Error).ToNot(gomega.HaveOccurred())

		repo = NewGrantRepository(db)
	})

	ginkgo.It("should create and list active grants joined with hospital and profile", func() {
		// Given
		granter := int64(99)
		created, err := repo.Create(&grant.AccessGrant{
			UserID:     1,
			HospitalID: demoHosp.ID,
			ProfileID:  auditor.ID,
			IsActive:   true,
			GrantedBy:  &granter,
			GrantedAt:  time.Now().UTC(),
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		// When
		grants, err := repo.ListActive(1)

		// Then
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(grants).To(gomega.HaveLen(1))
		gomega.Expect(grants[0].ID).To(gomega.Equal(created.ID))
		gomega.Expect(grants[0].Hospital.Code).To(gomega.Equal("demo"))
		gomega.Expect(grants[0].Profile.Code).To(gomega.Equal("auditor"))
		gomega.Expect(grants[0].Profile.Permissions.Allows("can_view_reports")).To(gomega.BeTrue())
	})

	ginkgo.It("should return the winning row when two creates collide on the same triple", func() {
		// Given an active grant already inserted for the triple
		granter := int64(99)
		winner, err := repo.Create(&grant.AccessGrant{
			UserID: 1, HospitalID: demoHosp.ID, ProfileID: auditor.ID,
			IsActive: true, GrantedBy: &granter, GrantedAt: time.Now().UTC(),
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		// When a second create races in for the same triple
		other := int64(42)
		loser, err := repo.Create(&grant.AccessGrant{
			UserID: 1, HospitalID: demoHosp.ID, ProfileID: auditor.ID,
			IsActive: true, GrantedBy: &other, GrantedAt: time.Now().UTC(),
		})

		// Then the unique index absorbs the conflict and the first row wins
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(loser.ID).To(gomega.Equal(winner.ID))
		gomega.Expect(*loser.GrantedBy).To(gomega.Equal(granter))

		grants, err := repo.ListActive(1)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(grants).To(gomega.HaveLen(1))
	})

	ginkgo.It("should restrict ListActiveForHospital to one hospital", func() {
		// Given
		other := hospital.Hospital{Code: "other", Name: "Other Hospital", Subdomain: "other", IsActive: true}
		gomega.Expect(db.Create(&other).Error).ToNot(gomega.HaveOccurred())

		_, err := repo.Create(&grant.AccessGrant{UserID: 1, HospitalID: demoHosp.ID, ProfileID: auditor.ID, IsActive: true, GrantedAt: time.Now().UTC()})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		_, err = repo.Create(&grant.AccessGrant{UserID: 1, HospitalID: other.ID, ProfileID: auditor.ID, IsActive: true, GrantedAt: time.Now().UTC()})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		// When
		grants, err := repo.ListActiveForHospital(1, other.ID)

		// Then
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(grants).To(gomega.HaveLen(1))
		gomega.Expect(grants[0].HospitalID).To(gomega.Equal(other.ID))
	})

	ginkgo.It("should deactivate and reactivate the same row", func() {
		// Given
		granter := int64(99)
		revoker := int64(77)
		created, err := repo.Create(&grant.AccessGrant{
			UserID: 1, HospitalID: demoHosp.ID, ProfileID: auditor.ID,
			IsActive: true, GrantedBy: &granter, GrantedAt: time.Now().UTC(),
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		// When
		err = repo.Deactivate(created.ID, &revoker, time.Now().UTC())
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		// Then
		found, err := repo.FindByTriple(1, demoHosp.ID, auditor.ID)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(found.IsActive).To(gomega.BeFalse())
		gomega.Expect(*found.RevokedBy).To(gomega.Equal(revoker))

		active, err := repo.ListActive(1)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(active).To(gomega.BeEmpty())

		// When reactivated
		reactivated, err := repo.Reactivate(created.ID, &granter, time.Now().UTC())

		// Then same id, revoker cleared
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(reactivated.ID).To(gomega.Equal(created.ID))
		gomega.Expect(reactivated.IsActive).To(gomega.BeTrue())
		gomega.Expect(reactivated.RevokedBy).To(gomega.BeNil())
		gomega.Expect(reactivated.RevokedAt).To(gomega.BeNil())
	})

	ginkgo.It("should return ErrNotFound for an unknown triple", func() {
		// When
		found, err := repo.FindByTriple(1, 999, 999)

		// Then
		gomega.Expect(err).To(gomega.MatchError(grant.ErrNotFound))
		gomega.Expect(found).To(gomega.BeNil())
	})
})
