// Package runtime assembles the configured application and manages its
// lifecycle.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/nexcart/commerce-core/internal/auth"
	"github.com/nexcart/commerce-core/internal/config"
	"github.com/nexcart/commerce-core/internal/httpapi"
	"github.com/nexcart/commerce-core/internal/logging"
	"github.com/nexcart/commerce-core/internal/metrics"
	"github.com/nexcart/commerce-core/internal/middleware"
	"github.com/nexcart/commerce-core/internal/notify"
	"github.com/nexcart/commerce-core/internal/payments"
	"github.com/nexcart/commerce-core/internal/platform/migrations"
	addressessvc "github.com/nexcart/commerce-core/internal/services/addresses"
	cartssvc "github.com/nexcart/commerce-core/internal/services/carts"
	catalogsvc "github.com/nexcart/commerce-core/internal/services/catalog"
	orderssvc "github.com/nexcart/commerce-core/internal/services/orders"
	"github.com/nexcart/commerce-core/internal/storage"
	"github.com/nexcart/commerce-core/internal/storage/memory"
	"github.com/nexcart/commerce-core/internal/storage/postgres"
)

// Application wires configuration, storage, services and the HTTP server
// into a runnable unit.
type Application struct {
	cfg    *config.Config
	log    *logging.Logger
	db     *sql.DB
	hub    *notify.Hub
	server *http.Server
}

// NewApplication builds the application from the environment.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logging.New("commerce-core", cfg.Logging.Level, cfg.Logging.Format)

	var (
		db    *sql.DB
		store storage.Store
	)
	if cfg.Database.DSN == "" {
		log.Warn("DATABASE_URL not set, using in-memory storage")
		store = memory.New()
	} else {
		db, err = openDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := migrations.Apply(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		store = postgres.New(db)
	}

	issuerOpts := []auth.IssuerOption{
		auth.WithTTLs(cfg.Auth.PasswordTokenTTL, cfg.Auth.FederatedTokenTTL),
	}
	issuer, err := auth.NewIssuer([]byte(cfg.Auth.JWTSecret), issuerOpts...)
	if err != nil {
		return nil, fmt.Errorf("create token issuer: %w", err)
	}

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	resolver := auth.NewResolver(store, hasher, log)
	gate := middleware.NewAuthenticator(issuer, log)

	var google *auth.GoogleProvider
	if cfg.GoogleEnabled() {
		google, err = auth.NewGoogleProvider(auth.GoogleConfig{
			ClientID:     cfg.Auth.GoogleClientID,
			ClientSecret: cfg.Auth.GoogleClientSecret,
			RedirectURL:  cfg.Auth.GoogleRedirectURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create google provider: %w", err)
		}
	}

	var gateway payments.Gateway
	if cfg.Gateway.StripeSecretKey != "" {
		gateway, err = payments.NewStripeGateway(cfg.Gateway.StripeSecretKey)
		if err != nil {
			return nil, fmt.Errorf("create payment gateway: %w", err)
		}
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, refunds will not reach a processor")
		gateway = payments.NoopGateway{}
	}

	m := metrics.New("commerce_core")
	hub := notify.NewHub(log, cfg.CORS.AllowedOrigins)

	api := httpapi.NewServer(httpapi.Config{
		Resolver:  resolver,
		Issuer:    issuer,
		Google:    google,
		Gate:      gate,
		Users:     store,
		Catalog:   catalogsvc.New(store, log),
		Carts:     cartssvc.New(store, log),
		Orders:    orderssvc.New(store, gateway, hub, m, log),
		Addresses: addressessvc.New(store, log),
		Hub:       hub,
		Metrics:   m,
		Logger:    log,
	})

	router := api.Router()
	router.Use(middleware.TracingMiddleware(log), middleware.MetricsMiddleware(m))

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	limiter.StartCleanup(time.Minute)
	cors := middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      cors.Handler(limiter.Handler(router)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Application{
		cfg:    cfg,
		log:    log,
		db:     db,
		hub:    hub,
		server: server,
	}, nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Run starts the HTTP server and blocks until the server fails or the
// context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.server.Addr).Info("HTTP server listening")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		return nil
	}
}

// Shutdown stops the server and releases resources.
func (a *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("shutdown http server: %w", err)
	}
	a.hub.Close()
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close database: %w", err)
		}
	}
	a.log.Info("application stopped")
	return firstErr
}
