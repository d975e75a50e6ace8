package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/carenet/identity-service/internal/grant"
	"github.com/carenet/identity-service/internal/hospital"
	"github.com/carenet/identity-service/internal/profile"
	"github.com/carenet/identity-service/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample hospitals, profiles and grants for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			fmt.Println("Clearing existing seed data")
			for _, table := range []string{"user_hospital_profiles", "sessions", "audit_log_entries", "profiles", "hospitals", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
		}

		hospitals := []hospital.Hospital{
			{Code: "RSGM", Name: "General Hospital", LegalID: "1199-0001", Subdomain: "general", PrimaryColor: "#0b5394", IsActive: true},
			{Code: "RSUN", Name: "North Clinic", LegalID: "1199-0002", Subdomain: "north", PrimaryColor: "#38761d", IsActive: true},
		}
		for i := range hospitals {
			if err := db.Where(hospital.Hospital{Code: hospitals[i].Code}).
				FirstOrCreate(&hospitals[i]).Error; err != nil {
				log.Fatalf("failed to seed hospital %s: %v", hospitals[i].Code, err)
			}
			fmt.Println("Seeded hospital:", hospitals[i].Code)
		}

		profiles := []profile.Profile{
			{
				Code: "ADMIN", Name: "Administrator",
				Description: "Full administrative access",
				Modules:     profile.Modules{"admin", "reports", "scheduling"},
				Permissions: profile.Permissions{"can_manage_access": true, "can_view_reports": true},
				IsActive:    true,
			},
			{
				Code: "DOCTOR", Name: "Doctor",
				Description: "Clinical staff",
				Modules:     profile.Modules{"patients", "scheduling"},
				Permissions: profile.Permissions{"can_view_patients": true},
				IsActive:    true,
			},
		}
		for i := range profiles {
			if err := db.Where(profile.Profile{Code: profiles[i].Code}).
				FirstOrCreate(&profiles[i]).Error; err != nil {
				log.Fatalf("failed to seed profile %s: %v", profiles[i].Code, err)
			}
			fmt.Println("Seeded profile:", profiles[i].Code)
		}

		// demo account matching a fake external subject, useful against a
		// stubbed provider in development
		demo := user.User{
			Email:            "demo@carenet.example",
			Name:             "Demo Admin",
			ExternalID:       "00000000-0000-0000-0000-00000000demo",
			ExternalTenantID: "dev",
			IsActive:         true,
		}
		if err := db.Where(user.User{Email: demo.Email}).FirstOrCreate(&demo).Error; err != nil {
			log.Fatalf("failed to seed demo user: %v", err)
		}
		fmt.Println("Seeded demo user:", demo.Email)

		for _, h := range hospitals {
			g := grant.AccessGrant{
				UserID:     demo.ID,
				HospitalID: h.ID,
				ProfileID:  profiles[0].ID,
				IsActive:   true,
				GrantedAt:  time.Now().UTC(),
			}
			if err := db.Where(grant.AccessGrant{
				UserID: demo.ID, HospitalID: h.ID, ProfileID: profiles[0].ID,
			}).FirstOrCreate(&g).Error; err != nil {
				log.Fatalf("failed to seed grant for %s: %v", h.Code, err)
			}
			fmt.Printf("Seeded grant: %s -> %s/%s\n", demo.Email, h.Code, profiles[0].Code)
		}

		fmt.Println("Seeding complete")
	},
}
