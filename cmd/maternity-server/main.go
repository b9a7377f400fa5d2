package main

import (
	"context"
	"errors"
	"fmt"
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
	"golang.org/x/crypto/bcrypt"

	"github.com/maternity/maternity/internal/config"
	"github.com/maternity/maternity/internal/domain/audit"
	"github.com/maternity/maternity/internal/domain/birth"
	"github.com/maternity/maternity/internal/domain/catalog"
	"github.com/maternity/maternity/internal/domain/mother"
	"github.com/maternity/maternity/internal/domain/newborn"
	"github.com/maternity/maternity/internal/domain/user"
	"github.com/maternity/maternity/internal/platform/auth"
	"github.com/maternity/maternity/internal/platform/db"
	"github.com/maternity/maternity/internal/platform/middleware"
	"github.com/maternity/maternity/internal/reporting"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "maternity-server",
		Short: "Maternity ward record-keeping API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(bootstrapAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "" || os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
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
			dir, _ := cmd.Flags().GetString("dir")

			pool, cleanup, err := connect()
			if err != nil {
				return err
			}
			defer cleanup()

			count, err := db.NewMigrator(pool, dir).Up(context.Background())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			pool, cleanup, err := connect()
			if err != nil {
				return err
			}
			defer cleanup()

			statuses, err := db.NewMigrator(pool, dir).Status(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-30s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-30s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// seedValues is the initial content of each administrable list. The seed is
// idempotent: values already present are left alone.
var seedValues = map[catalog.Kind][]string{
	catalog.KindComuna: {
		"Chillán", "Chillán Viejo", "San Carlos", "Bulnes",
		"Yungay", "Quirihue", "Coelemu", "San Ignacio",
	},
	catalog.KindEstablecimiento: {
		"Hospital Clínico Herminda Martín",
		"Hospital de San Carlos",
		"Hospital Comunitario de Bulnes",
		"Hospital Comunitario de Yungay",
	},
	catalog.KindTipoParto: {
		"Parto Vaginal Cefálico", "Parto Vaginal Podálica", "Fórceps",
		"Cesárea Electiva", "Cesárea Urgencia",
	},
	catalog.KindResultTamizaje: {
		"PENDIENTE", "NEGATIVO", "POSITIVO", "INDETERMINADO",
	},
	catalog.KindRobsonGrupo: {
		"1", "2", "3", "4", "5", "6", "7", "8", "9", "10",
	},
	catalog.KindProfilaxisRN: {
		"VHB (Hepatitis B)", "VITK (Vitamina K)", "POF (Profilaxis Ocular)", "BCG",
	},
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load initial data",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "catalog",
		Short: "Load the initial catalog values",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, cleanup, err := connect()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			svc := catalog.NewService(catalog.NewRepoPG(pool), audit.NopSink{})

			created := 0
			for kind, values := range seedValues {
				for i, value := range values {
					it := &catalog.Item{Kind: kind, Value: value, Order: i + 1}
					err := svc.Create(ctx, audit.Context{ActorName: "seed"}, it)
					switch {
					case errors.Is(err, catalog.ErrDuplicate):
						continue
					case err != nil:
						return fmt.Errorf("seed %s %q: %w", kind, value, err)
					}
					created++
				}
			}
			fmt.Printf("Seeded %d catalog value(s).\n", created)
			return nil
		},
	})

	return cmd
}

func bootstrapAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create the first IT account, already activated",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			password, _ := cmd.Flags().GetString("password")
			if email == "" || name == "" || password == "" {
				return fmt.Errorf("--email, --name and --password are required")
			}
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}

			pool, cleanup, err := connect()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			repo := user.NewRepoPG(pool)
			if _, err := repo.GetByEmail(ctx, email); err == nil {
				return fmt.Errorf("an account with email %s already exists", email)
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			u := &user.User{
				Email:        email,
				FullName:     name,
				PasswordHash: string(hash),
				Role:         auth.RoleFacilityIT,
				IsSuperuser:  true,
				Activated:    true,
				Active:       true,
			}
			if err := repo.Create(ctx, u); err != nil {
				return fmt.Errorf("create admin account: %w", err)
			}
			fmt.Printf("Created admin account %s (%s).\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Admin email address")
	cmd.Flags().String("name", "", "Admin full name")
	cmd.Flags().String("password", "", "Admin password")
	return cmd
}

func connect() (pool *pgxpool.Pool, cleanup func(), err error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	p, err := db.NewPool(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("unsafe configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	jwtCfg := auth.JWTConfig{
		SigningKey: []byte(cfg.AuthSecret),
		TokenTTL:   time.Duration(cfg.TokenTTLHours) * time.Hour,
	}

	var mail user.MailSender
	if cfg.IsDev() && cfg.SendgridAPIKey == "" {
		mail = user.NewLogSender(logger)
	} else {
		mail = user.NewSendGridSender(cfg.SendgridAPIKey, cfg.MailFrom, logger)
	}

	// Repositories and services. The audit recorder is shared by every
	// domain service.
	trail := audit.NewRecorder(audit.NewRepoPG(pool), logger)

	catalogSvc := catalog.NewService(catalog.NewRepoPG(pool), trail)
	userSvc := user.NewService(user.NewRepoPG(pool), mail, trail, jwtCfg)

	motherRepo := mother.NewRepoPG(pool)
	birthRepo := birth.NewRepoPG(pool)
	newbornRepo := newborn.NewRepoPG(pool)

	motherSvc := mother.NewService(motherRepo, catalogSvc, birthRepo, userSvc, trail)
	birthSvc := birth.NewService(birthRepo, motherSvc, catalogSvc, userSvc, trail)
	newbornSvc := newborn.NewService(newbornRepo, birthSvc, catalogSvc, userSvc, trail)
	// Deactivating a birth cascades to its newborns; wired here to keep the
	// two packages from importing each other.
	birthSvc.SetNewbornCascader(newbornSvc)

	reportSvc := reporting.NewService(reporting.NewRepoPG(pool))

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":   "ok",
			"facility": cfg.FacilityName,
		})
	})

	api := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	userHandler := user.NewHandler(userSvc)
	userHandler.MountPublic(api)

	var authMW echo.MiddlewareFunc
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(jwtCfg, logger)
	} else {
		authMW = auth.JWTMiddleware(jwtCfg)
	}
	protected := api.Group("", authMW)

	userHandler.MountProtected(protected)
	catalog.NewHandler(catalogSvc).Register(protected)
	mother.NewHandler(motherSvc).Register(protected)
	birth.NewHandler(birthSvc).Register(protected)
	newborn.NewHandler(newbornSvc).Register(protected)
	reporting.NewHandler(reportSvc).Register(protected)
	audit.NewHandler(audit.NewRepoPG(pool)).Register(protected)

	// Graceful shutdown
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
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
