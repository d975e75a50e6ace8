package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/carenet/identity-service/internal"
	"github.com/carenet/identity-service/internal/audit"
	auditpg "github.com/carenet/identity-service/internal/audit/postgres"
	"github.com/carenet/identity-service/internal/core/events"
	"github.com/carenet/identity-service/internal/grant"
	grantpg "github.com/carenet/identity-service/internal/grant/postgres"
	"github.com/carenet/identity-service/internal/hospital"
	hospitalpg "github.com/carenet/identity-service/internal/hospital/postgres"
	"github.com/carenet/identity-service/internal/identity"
	"github.com/carenet/identity-service/internal/profile"
	profilepg "github.com/carenet/identity-service/internal/profile/postgres"
	"github.com/carenet/identity-service/internal/session"
	sessionpg "github.com/carenet/identity-service/internal/session/postgres"
	"github.com/carenet/identity-service/internal/token"
	"github.com/carenet/identity-service/internal/transport/rest"
	"github.com/carenet/identity-service/internal/user"
	userpg "github.com/carenet/identity-service/internal/user/postgres"
	"github.com/carenet/identity-service/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger

	SessionHandler  *session.Handler
	UserHandler     *user.Handler
	GrantHandler    *grant.Handler
	HospitalHandler *hospital.Handler
	ProfileHandler  *profile.Handler
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB,
		deps.SessionHandler, deps.UserHandler, deps.GrantHandler, deps.HospitalHandler, deps.ProfileHandler, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// gorm rides the already-pooled pgx connection
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	// audit pipeline: recorder publishes, sink persists
	bus := events.NewEventBus(lg)
	sink := audit.NewStoreSink(auditpg.NewAuditRepository(gormDB), lg)
	sink.Register(bus)
	recorder := audit.NewBusRecorder(bus, lg)

	bridge, err := identity.NewAzureBridge(context.Background(), config.Provider, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize identity bridge: %w", err)
	}

	codec := token.NewJWTCodec(config.Security.AccessTokenSecret, config.Security.RefreshTokenSecret)

	userRepo := userpg.NewUserRepository(gormDB)
	grantRepo := grantpg.NewGrantRepository(gormDB)
	hospitalRepo := hospitalpg.NewHospitalRepository(gormDB)
	profileRepo := profilepg.NewProfileRepository(gormDB)
	sessionRepo := sessionpg.NewSessionRepository(gormDB)

	userService := user.NewService(userRepo, lg)
	grantService := grant.NewService(grantRepo, recorder, lg)
	sessionService := session.NewService(
		bridge, userService, grantRepo, sessionRepo, codec, recorder,
		config.Security, config.Routing, lg,
	)

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Gorm:   gormDB,
		Router: chi.NewRouter(),

		SessionHandler:  session.NewHandler(sessionService, grantRepo),
		UserHandler:     user.NewHandler(userService, grantRepo),
		GrantHandler:    grant.NewHandler(grantService),
		HospitalHandler: hospital.NewHandler(hospitalRepo),
		ProfileHandler:  profile.NewHandler(profileRepo),
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
