// Package app wires the principal registry: store, unit of work, services,
// token validation and the HTTP router.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"principal-registry/internal/api"
	"principal-registry/internal/config"
	internaldb "principal-registry/internal/db"
	"principal-registry/internal/db/repository"
	"principal-registry/internal/middleware"
	"principal-registry/internal/service/security"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg    *config.Config
	Store  *internaldb.Store
	Logger *slog.Logger
}

// App is the assembled application.
type App struct {
	Principals *security.PrincipalService
	Validator  middleware.JWTValidator
	Router     http.Handler
}

// New builds the application. ctx bounds background work started by the
// router (rate-limit bookkeeping) and OIDC key fetching.
func New(ctx context.Context, deps Deps) (*App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Cfg

	exec := internaldb.NewTxExecutor(deps.Store, logger.With("component", "tx"))
	principals := security.NewPrincipalService(
		repository.NewUnitOfWork(exec),
		cfg.PrincipalListBlockSize,
		logger.With("component", "principals"),
	)

	validator, err := NewValidator(ctx, cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("token validator: %w", err)
	}

	if err := seedPrincipals(ctx, principals, cfg.SeedPrincipals, logger); err != nil {
		return nil, err
	}

	handler := api.NewHandler(principals, middleware.ContextIdentity{}, logger.With("component", "api"))
	return &App{
		Principals: principals,
		Validator:  validator,
		Router:     NewRouter(ctx, cfg, deps.Store, handler, validator, logger),
	}, nil
}

// NewValidator selects the bearer-token validator: OIDC when an issuer or
// JWKS URL is configured, otherwise the HS256 shared secret.
func NewValidator(ctx context.Context, auth config.AuthConfig) (middleware.JWTValidator, error) {
	switch {
	case auth.JWKSURL != "":
		v, err := middleware.NewOIDCValidatorFromJWKS(ctx, auth.JWKSURL, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
		if err != nil {
			return nil, err
		}
		return v, nil
	case auth.IssuerURL != "":
		v, err := middleware.NewOIDCValidator(ctx, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		v, err := middleware.NewSharedSecretValidator(auth.JWTSecret, auth.Audience)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// NewRouter mounts the unauthenticated health check and the authenticated
// /v1 API.
func NewRouter(
	ctx context.Context,
	cfg *config.Config,
	store *internaldb.Store,
	handler *api.Handler,
	validator middleware.JWTValidator,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger.With("component", "http")))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Read.PingContext(pingCtx); err != nil {
			logger.Warn("health check failed", "error", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(validator, logger.With("component", "auth")))
		r.Use(middleware.RateLimiter(ctx, middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}))
		handler.Routes(r)
	})
	return r
}
