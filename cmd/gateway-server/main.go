package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthgateway/gateway/internal/config"
	"github.com/healthgateway/gateway/internal/domain/appsettings"
	"github.com/healthgateway/gateway/internal/domain/audit"
	"github.com/healthgateway/gateway/internal/domain/comment"
	"github.com/healthgateway/gateway/internal/domain/delegation"
	"github.com/healthgateway/gateway/internal/domain/dependent"
	"github.com/healthgateway/gateway/internal/domain/medication"
	"github.com/healthgateway/gateway/internal/domain/note"
	"github.com/healthgateway/gateway/internal/domain/profile"
	"github.com/healthgateway/gateway/internal/domain/verification"
	"github.com/healthgateway/gateway/internal/partner/odr"
	"github.com/healthgateway/gateway/internal/partner/patient"
	"github.com/healthgateway/gateway/internal/partner/phsa"
	"github.com/healthgateway/gateway/internal/partner/salesforce"
	"github.com/healthgateway/gateway/internal/platform/auth"
	"github.com/healthgateway/gateway/internal/platform/cache"
	"github.com/healthgateway/gateway/internal/platform/db"
	"github.com/healthgateway/gateway/internal/platform/middleware"
	"github.com/healthgateway/gateway/internal/platform/notify"
	"github.com/healthgateway/gateway/internal/platform/queue"
	"github.com/healthgateway/gateway/internal/platform/result"
	"github.com/healthgateway/gateway/internal/platform/validate"
)

const (
	appGateway    = "gateway"
	appMedication = "medication"

	shutdownTimeout      = 10 * time.Second
	memoryCacheSweepTime = time.Minute
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gateway-server",
		Short: "Health Gateway API servers",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(jobsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start an API server",
	}

	gatewayCmd := &cobra.Command{
		Use:   "gateway",
		Short: "Start the GatewayApi server",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := cmd.Flags().GetString("port")
			return runServer(appGateway, port)
		},
	}
	medicationCmd := &cobra.Command{
		Use:   "medication",
		Short: "Start the Medication server",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := cmd.Flags().GetString("port")
			return runServer(appMedication, port)
		},
	}
	for _, c := range []*cobra.Command{gatewayCmd, medicationCmd} {
		c.Flags().String("port", "", "Listen port (defaults to PORT)")
		cmd.AddCommand(c)
	}
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			pool, err := openPool(ctx, schema)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator, err := db.NewMigrator(pool, dir, schema)
			if err != nil {
				return err
			}
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			pool, err := openPool(ctx, schema)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator, err := db.NewMigrator(pool, dir, schema)
			if err != nil {
				return err
			}
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, statusLabel(s), appliedAt(s))
			}
			return nil
		},
	}

	for _, c := range []*cobra.Command{upCmd, statusCmd} {
		c.Flags().String("schema", "gateway", "Target schema for migrations")
		c.Flags().String("dir", "./migrations", "Path to migrations directory")
		cmd.AddCommand(c)
	}
	return cmd
}

func statusLabel(s db.MigrationStatus) string {
	switch {
	case !s.Applied:
		return "pending"
	case s.Modified:
		return "modified"
	default:
		return "applied"
	}
}

func appliedAt(s db.MigrationStatus) string {
	if s.AppliedAt == nil {
		return "-"
	}
	return s.AppliedAt.Format(time.RFC3339)
}

func openPool(ctx context.Context, schema string) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return db.NewPool(ctx, cfg.DatabaseURL, schema, cfg.DBMaxConns, cfg.DBMinConns)
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Run one-shot maintenance jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "expire-delegations",
		Short: "Expire lapsed delegation invitations and grants",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := newGatewayServices(a)
			report, err := delegation.NewSweeper(svc.delegation, a.logger).RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Expired %d invitation(s), removed %d grant(s).\n", report.Invitations, report.Grants)
			return nil
		},
	})
	return cmd
}

func newLogger(env string, out io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// loadConfig reads and validates the configuration, then builds the logger
// for its ENV so that a value set only in .env is honoured.
func loadConfig(out io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, newLogger(cfg.Env, out), nil
}

// app holds the infrastructure shared by both servers and the jobs.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *pgxpool.Pool
	cache   *cache.Cache
	pub     queue.Publisher
	closers []func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig(os.Stdout)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)
	logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")

	a.cache = cache.New(a.cacheProvider(ctx), cfg.CachePrefix, logger)

	if len(cfg.KafkaBrokers) > 0 {
		kp, err := queue.NewKafkaPublisher(cfg.KafkaBrokers, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.pub = kp
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not set; queue messages are only logged")
		a.pub = queue.NewLogPublisher(logger)
	}
	a.closers = append(a.closers, func() { _ = a.pub.Close() })
	return a, nil
}

// cacheProvider prefers Redis and falls back to process memory.
func (a *app) cacheProvider(ctx context.Context) cache.Provider {
	if a.cfg.RedisURL != "" {
		r, err := cache.NewRedis(ctx, a.cfg.RedisURL)
		if err == nil {
			a.closers = append(a.closers, func() { _ = r.Close() })
			a.logger.Info().Msg("using redis cache")
			return r
		}
		a.logger.Warn().Err(err).Msg("redis unavailable; using in-memory cache")
	}
	mem := cache.NewMemory()
	cleanupCtx, cancel := context.WithCancel(context.Background())
	mem.StartCleanup(cleanupCtx, memoryCacheSweepTime)
	a.closers = append(a.closers, cancel)
	return mem
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, a.pool, fn)
}

func (a *app) patients() *patient.Service {
	client := patient.NewClient(a.cfg.PatientServiceURL, a.cfg.PartnerTimeout)
	return patient.NewService(client, a.cache, a.cfg.PatientCacheTTL, a.logger)
}

type gatewayServices struct {
	profile      *profile.Service
	verification *verification.Service
	comment      *comment.Service
	note         *note.Service
	dependent    *dependent.Service
	delegation   *delegation.Service
	settings     *appsettings.Service
}

func newGatewayServices(a *app) *gatewayServices {
	cfg := a.cfg
	patients := a.patients()
	emails := notify.NewEmailQueue(a.pub, cfg.KafkaEmailTopic, notify.NewTemplateEngine())
	events := notify.NewEventPublisher(a.pub, cfg.KafkaEventTopic, a.logger)

	profileRepo := profile.NewProfileRepoPG(a.pool)
	profileSvc := profile.NewService(
		profileRepo,
		profile.NewTermsRepoPG(a.pool),
		profile.NewPreferenceRepoPG(a.pool),
		patients,
		emails,
		events,
		a.withTx,
		profile.Options{MinPatientAge: cfg.MinPatientAge, WebClientURL: cfg.WebClientURL},
		a.logger,
	)
	verificationSvc := verification.NewService(
		verification.NewRepoPG(a.pool),
		profileRepo,
		phsa.NewClient(cfg.PHSABaseURL, cfg.PartnerTimeout),
		emails,
		events,
		a.withTx,
		verification.Options{
			WebClientURL: cfg.WebClientURL,
			EmailExpiry:  cfg.EmailVerificationExpiry,
			SmsExpiry:    cfg.SMSVerificationExpiry,
			MaxAttempts:  cfg.MaxVerificationAttempts,
		},
		a.logger,
	)
	profileSvc.SetVerifier(verificationSvc)

	delegateRepo := dependent.NewRepoPG(a.pool)
	return &gatewayServices{
		profile:      profileSvc,
		verification: verificationSvc,
		comment:      comment.NewService(comment.NewRepoPG(a.pool), profileRepo),
		note:         note.NewService(note.NewRepoPG(a.pool), profileRepo),
		dependent:    dependent.NewService(delegateRepo, patients, events, cfg.MaxDependentAge, a.logger),
		delegation: delegation.NewService(
			delegation.NewRepoPG(a.pool),
			delegateRepo,
			profileRepo,
			emails,
			events,
			a.withTx,
			delegation.Options{MaxAttempts: cfg.DelegationMaxAttempts, WebClientURL: cfg.WebClientURL},
			a.logger,
		),
		settings: appsettings.NewService(appsettings.NewRepoPG(a.pool), a.cache, cfg.TourCacheTTL, a.logger),
	}
}

// newEcho builds the server shell shared by both applications and returns
// the authenticated /api/v1 group.
func newEcho(cfg *config.Config, logger zerolog.Logger, application string, pinger db.Pinger, recorder middleware.AuditRecorder) (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = result.HTTPErrorHandler(logger)
	e.Validator = validate.New()

	metrics := middleware.NewMetrics(application)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "protectiveWord", auth.DevHdidHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":      "ok",
			"application": application,
		})
	})
	e.GET("/health/db", db.HealthHandler(pinger, application))
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond > 0 {
		api.Use(middleware.RateLimit(rateLimitCfg))
	}
	api.Use(authMiddleware(cfg, logger))
	api.Use(middleware.Audit(logger, application, recorder))
	return e, api
}

// authMiddleware validates bearer tokens; in development a request without
// one is trusted through the X-Dev-Hdid header.
func authMiddleware(cfg *config.Config, logger zerolog.Logger) echo.MiddlewareFunc {
	jwtCfg := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
	}
	if cfg.AuthSigningKey != "" {
		jwtCfg.SigningKey = []byte(cfg.AuthSigningKey)
	}
	if !cfg.IsDev() {
		return auth.JWTMiddleware(jwtCfg, logger)
	}
	var verify echo.MiddlewareFunc
	if cfg.AuthIssuer != "" || cfg.AuthJWKSURL != "" || cfg.AuthSigningKey != "" {
		verify = auth.JWTMiddleware(jwtCfg, logger)
	}
	return auth.DevAuthMiddleware(verify)
}

func buildGateway(a *app, svc *gatewayServices) *echo.Echo {
	e, api := newEcho(a.cfg, a.logger, appGateway, a.pool, audit.NewRecorder(a.pool))

	profile.NewHandler(svc.profile).RegisterRoutes(api)
	verification.NewHandler(svc.verification).RegisterRoutes(api)
	comment.NewHandler(svc.comment).RegisterRoutes(api)
	note.NewHandler(svc.note).RegisterRoutes(api)
	dependent.NewHandler(svc.dependent).RegisterRoutes(api)
	delegation.NewHandler(svc.delegation).RegisterRoutes(api)
	appsettings.NewHandler(svc.settings).RegisterRoutes(api)
	return e
}

func buildMedication(a *app) *echo.Echo {
	cfg := a.cfg
	e, api := newEcho(cfg, a.logger, appMedication, a.pool, audit.NewRecorder(a.pool))

	sf := salesforce.NewClient(salesforce.Config{
		BaseURL:      cfg.SalesforceBaseURL,
		TokenURL:     cfg.SalesforceTokenURL,
		ClientID:     cfg.SalesforceClientID,
		ClientSecret: cfg.SalesforceClientSecret,
		Timeout:      cfg.PartnerTimeout,
	})
	patients := a.patients()
	svc := medication.NewService(patients, odr.NewClient(cfg.ODRBaseURL, cfg.PartnerTimeout), sf,
		a.cache, cfg.ProtectiveWordCacheTTL, a.logger)

	// Delegate checks read resource_delegate directly; events are not
	// published from this application.
	delegates := dependent.NewService(dependent.NewRepoPG(a.pool), patients, nil, cfg.MaxDependentAge, a.logger)
	medication.NewHandler(svc, delegates).RegisterRoutes(api)
	return e
}

func runServer(application, port string) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var e *echo.Echo
	switch application {
	case appGateway:
		svc := newGatewayServices(a)
		e = buildGateway(a, svc)
		sweeper := delegation.NewSweeper(svc.delegation, a.logger)
		done := sweeper.Start(ctx, a.cfg.DelegationSweepInterval)
		defer func() { stop(); <-done }()
	case appMedication:
		e = buildMedication(a)
	default:
		return fmt.Errorf("unknown application %q", application)
	}

	if port == "" {
		port = a.cfg.Port
	}
	logger := a.logger.With().Str("application", application).Logger()

	// Graceful shutdown
	go func() {
		addr := ":" + port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
