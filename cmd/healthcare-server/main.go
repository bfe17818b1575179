package main

import (
	"context"
	"fmt"
	"io/fs"
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

	"github.com/healthcare/healthcare-api/internal/config"
	"github.com/healthcare/healthcare-api/internal/domain/doctor"
	"github.com/healthcare/healthcare-api/internal/domain/mapping"
	"github.com/healthcare/healthcare-api/internal/domain/patient"
	"github.com/healthcare/healthcare-api/internal/domain/user"
	"github.com/healthcare/healthcare-api/internal/platform/apierror"
	"github.com/healthcare/healthcare-api/internal/platform/auth"
	"github.com/healthcare/healthcare-api/internal/platform/db"
	"github.com/healthcare/healthcare-api/internal/platform/middleware"
	"github.com/healthcare/healthcare-api/internal/platform/validation"
	"github.com/healthcare/healthcare-api/migrations"
)

const healthMessage = "Healthcare Backend API is running!"

func main() {
	rootCmd := &cobra.Command{
		Use:   "healthcare-server",
		Short: "Healthcare records API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, schema, closePool, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer closePool()

			fmt.Printf("Running migrations on schema: %s\n", schema)
			count, err := migrator.Up(cmd.Context(), schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	addMigrateFlags(upCmd)
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, schema, closePool, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(cmd.Context(), schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
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
	addMigrateFlags(statusCmd)
	cmd.AddCommand(statusCmd)

	return cmd
}

func addMigrateFlags(cmd *cobra.Command) {
	cmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
	cmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
}

func openMigrator(cmd *cobra.Command) (*db.Migrator, string, func(), error) {
	schema, _ := cmd.Flags().GetString("schema")
	dir, _ := cmd.Flags().GetString("dir")
	if err := db.ValidateSchema(schema); err != nil {
		return nil, "", nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, "", nil, err
	}
	if dir == "" {
		dir = cfg.MigrationsDir
	}

	var src fs.FS = migrations.FS
	if dir != "" {
		src = os.DirFS(dir)
	}

	pool, err := db.NewPool(cmd.Context(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, "", nil, err
	}
	return db.NewMigrator(pool, src, newLogger(cfg)), schema, pool.Close, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg != nil && cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level := zerolog.InfoLevel
	if cfg != nil {
		if parsed, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && parsed != zerolog.NoLevel {
			level = parsed
		}
	}
	return logger.Level(level)
}

// deps are the storage dependencies of the HTTP server.
type deps struct {
	users    user.Repository
	patients patient.Repository
	doctors  doctor.Repository
	mappings mapping.Repository
	tx       db.Transactor
	health   db.Pinger
}

func pgDeps(pool *pgxpool.Pool) deps {
	return deps{
		users:    user.NewRepo(pool),
		patients: patient.NewRepo(pool),
		doctors:  doctor.NewRepo(pool),
		mappings: mapping.NewRepo(pool),
		tx:       db.NewTransactor(pool),
		health:   pool,
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		l := newLogger(nil)
		l.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e, err := newServer(cfg, logger, pgDeps(pool))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
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
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newServer(cfg *config.Config, logger zerolog.Logger, d deps) (*echo.Echo, error) {
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		SigningKey: []byte(cfg.JWTSigningKey),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		return nil, err
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = apierror.HTTPErrorHandler(logger)

	e.Pre(echomw.AddTrailingSlash())

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(!cfg.IsDev()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{"X-Total-Count", "Link", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health/", func(c echo.Context) error {
		return c.String(http.StatusOK, healthMessage)
	})
	e.GET("/health/db/", db.HealthHandler(d.health))

	// Credential endpoints are public.
	authGroup := e.Group("/api/auth")
	userSvc := user.NewService(d.users, d.tx, hasher, tokens, logger)
	user.NewHandler(userSvc).RegisterRoutes(authGroup)

	api := e.Group("/api",
		auth.JWTMiddleware(auth.JWTConfig{Verifier: tokens}),
		middleware.Audit(logger),
	)

	patientSvc := patient.NewService(d.patients, d.tx)
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	doctorSvc := doctor.NewService(d.doctors, d.tx)
	doctor.NewHandler(doctorSvc).RegisterRoutes(api)

	mappingSvc := mapping.NewService(d.mappings, d.patients, d.doctors, d.tx)
	mapping.NewHandler(mappingSvc).RegisterRoutes(api)

	return e, nil
}
