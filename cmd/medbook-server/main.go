package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/medbook/medbook/internal/config"
	"github.com/medbook/medbook/internal/domain/appointment"
	"github.com/medbook/medbook/internal/domain/dashboard"
	"github.com/medbook/medbook/internal/domain/hospital"
	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/domain/prescription"
	"github.com/medbook/medbook/internal/domain/records"
	"github.com/medbook/medbook/internal/domain/telephony"
	"github.com/medbook/medbook/internal/domain/triage"
	"github.com/medbook/medbook/internal/domain/video"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/internal/platform/blobstore"
	"github.com/medbook/medbook/internal/platform/db"
	"github.com/medbook/medbook/internal/platform/middleware"
	"github.com/medbook/medbook/internal/platform/notification"
)

const apiBodyLimit = 1 << 20

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "medbook-server",
		Short: "Healthcare booking platform API server",
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	})
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(remindCmd())
	return rootCmd
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// openPool loads the configuration and connects to the database. Callers own
// the returned pool.
func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			dir := migrationsDir(cmd, cfg)
			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Fprintln(cmd.OutOrStdout(), "Write a new forward migration to undo a schema change.")
			return nil
		},
	})

	return cmd
}

func migrationsDir(cmd *cobra.Command, cfg *config.Config) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return cfg.MigrationsDir
}

func remindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send reminders for confirmed appointments starting soon",
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, _ := cmd.Flags().GetInt("hours-before")
			logger := newLogger()

			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			app, cleanup, err := buildApp(cfg, pool, auth.NewMemoryRevocationStore(), logger)
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := app.appointments.SendReminders(ctx, hours)
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if r.Status != "success" {
					failed++
					logger.Warn().Int64("appointment_id", r.AppointmentID).Str("error", r.Error).Msg("reminder failed")
				}
			}
			fmt.Printf("Sent %d reminder(s), %d failed.\n", len(results)-failed, failed)
			return nil
		},
	}
	cmd.Flags().Int("hours-before", 24, "Remind about appointments starting within this many hours")
	return cmd
}

// app holds the wired domain services shared by serve and the one-shot
// commands.
type app struct {
	identity      *identity.Service
	hospitals     *hospital.Service
	appointments  *appointment.Service
	triage        *triage.Service
	prescriptions *prescription.Service
	records       *records.Service
	telephony     *telephony.Service
	dashboard     *dashboard.Service
	uploads       *blobstore.FSStore
}

func buildApp(cfg *config.Config, pool *pgxpool.Pool, revocations auth.RevocationStore, logger zerolog.Logger) (*app, func(), error) {
	senders, closeSenders, err := notification.BuildSenders(notification.ChannelConfig{
		EmailServiceURL:   cfg.EmailServiceURL,
		SMSServiceURL:     cfg.SMSServiceURL,
		PushServiceURL:    cfg.PushServiceURL,
		SMTPHost:          cfg.SMTPHost,
		SMTPPort:          cfg.SMTPPort,
		SMTPUsername:      cfg.SMTPUsername,
		SMTPPassword:      cfg.SMTPPassword,
		SMTPFrom:          cfg.SMTPFrom,
		TwilioAccountSID:  cfg.TwilioAccountSID,
		TwilioAuthToken:   cfg.TwilioAuthToken,
		TwilioPhoneNumber: cfg.TwilioPhoneNumber,
		MQTTBrokerURL:     cfg.MQTTBrokerURL,
		MQTTClientID:      cfg.MQTTClientID,
		MQTTTopicPrefix:   cfg.MQTTTopicPrefix,
		Timeout:           cfg.NotificationTimeout(),
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("notification senders: %w", err)
	}
	dispatcher := notification.NewDispatcher(senders, cfg.NotificationTimeout(), logger)
	events := notification.NewBuilder(notification.NewTemplateEngine(), notification.TemplateIDs{
		Confirmation: cfg.ConfirmationTemplateID,
		Reminder:     cfg.ReminderTemplateID,
		Prescription: cfg.PrescriptionTemplateID,
	})

	uploads, err := blobstore.NewLocalStore(cfg.UploadDir, cfg.MaxFileSize)
	if err != nil {
		closeSenders()
		return nil, nil, fmt.Errorf("upload store: %w", err)
	}

	issuer := auth.NewTokenIssuer(cfg.SecretKey, cfg.AccessTokenTTL())
	identitySvc := identity.NewService(
		identity.NewUserRepoPG(pool),
		identity.NewDoctorRepoPG(pool),
		identity.NewAdminRepoPG(pool),
		issuer, revocations,
	)
	hospitalSvc := hospital.NewService(hospital.NewRepoPG(pool))

	minter := video.NewMinter(video.Config{
		GoogleServiceAccountFile: cfg.GoogleServiceAccountFile,
		FallbackService:          cfg.FallbackVideoService,
		ZoomAPIKey:               cfg.ZoomAPIKey,
		ZoomAPISecret:            cfg.ZoomAPISecret,
		BaseURL:                  cfg.VideoBaseURL,
	}, afero.NewOsFs(), logger)

	apptSvc := appointment.NewService(appointment.NewRepoPG(pool), identitySvc, hospitalSvc,
		minter, dispatcher, events, logger)

	aiClient := triage.NewAIClient(cfg.AIServiceURL, cfg.AITimeout(), logger)
	triageSvc := triage.NewService(aiClient, identitySvc, triage.NewRepoPG(pool), cfg.FallbackAIEnabled, logger)

	rxSvc := prescription.NewService(prescription.NewRepoPG(pool), apptSvc, identitySvc,
		dispatcher, events, logger).WithPDFAttachments(cfg.SMTPHost != "")

	recordsSvc := records.NewService(records.NewRepoPG(pool), uploads, blobstore.Policy{
		MaxSize:           cfg.MaxFileSize,
		AllowedExtensions: cfg.AllowedFileTypes,
	}, logger)

	telephonySvc := telephony.NewService(telephony.NewRepoPG(pool), triageSvc, identitySvc,
		identitySvc, apptSvc, hospitalSvc, logger)

	return &app{
		identity:      identitySvc,
		hospitals:     hospitalSvc,
		appointments:  apptSvc,
		triage:        triageSvc,
		prescriptions: rxSvc,
		records:       recordsSvc,
		telephony:     telephonySvc,
		dashboard:     dashboard.NewService(dashboard.NewRepoPG(pool), logger),
		uploads:       uploads,
	}, closeSenders, nil
}

// registerRoutes mounts every public surface at the root of e.
func (a *app) registerRoutes(e *echo.Echo) {
	api := e.Group("")
	identity.NewHandler(a.identity).RegisterRoutes(api)
	hospital.NewHandler(a.hospitals).RegisterRoutes(api)
	appointment.NewHandler(a.appointments).RegisterRoutes(api)
	triage.NewHandler(a.triage).RegisterRoutes(api)
	prescription.NewHandler(a.prescriptions).RegisterRoutes(api)
	records.NewHandler(a.records).RegisterRoutes(api)
	telephony.NewHandler(a.telephony).RegisterRoutes(api)
	dashboard.NewHandler(a.dashboard).RegisterRoutes(api)
	blobstore.NewHandler(a.uploads).RegisterRoutes(api)
}

func newRevocationStore(cfg *config.Config, logger zerolog.Logger) (auth.RevocationStore, func(), error) {
	if cfg.RedisURL == "" {
		mem := auth.NewMemoryRevocationStore()
		return mem, mem.Close, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	logger.Info().Str("addr", opts.Addr).Msg("using redis token revocation store")
	return auth.NewRedisRevocationStore(client), func() { _ = client.Close() }, nil
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Env}); err != nil {
			logger.Warn().Err(err).Msg("sentry init failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	revocations, closeRevocations, err := newRevocationStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up token revocation")
	}
	defer closeRevocations()

	a, cleanup, err := buildApp(cfg, pool, revocations, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire services")
	}
	defer cleanup()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(apiBodyLimit, cfg.MaxFileSize))
	e.Use(auth.JWTMiddleware(auth.JWTConfig{
		Issuer:      auth.NewTokenIssuer(cfg.SecretKey, cfg.AccessTokenTTL()),
		Revocations: revocations,
		Skipper:     auth.AuthSkipper,
	}))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/health/db"
		},
	}))
	e.Use(db.SessionMiddleware(pool, func(c echo.Context) bool {
		return c.Path() == "/" || c.Path() == "/health" || c.Path() == "/health/db" || c.Path() == "/uploads/:filename"
	}))
	e.Use(identity.PrincipalMiddleware(a.identity))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Healthcare Booking Platform API"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	e.GET("/health/db", db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }))

	a.registerRoutes(e)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
