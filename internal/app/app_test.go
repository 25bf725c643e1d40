package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"principal-registry/internal/config"
	internaldb "principal-registry/internal/db"
	"principal-registry/internal/middleware"
)

const testSecret = "app-test-secret"

func testConfig() *config.Config {
	ext := "idp|root"
	return &config.Config{
		RateLimitRPS:           1000,
		RateLimitBurst:         1000,
		CORSAllowedOrigins:     []string{"https://app.example.com"},
		PrincipalListBlockSize: 3,
		Auth:                   config.AuthConfig{JWTSecret: testSecret},
		SeedPrincipals: []config.SeedPrincipal{
			{Name: "root", Email: "root@example.com", ExternalID: &ext},
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) (*App, *internaldb.Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := internaldb.OpenTestStore(t)
	a, err := New(ctx, Deps{Cfg: cfg, Store: store, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	return a, store
}

func bearer(t *testing.T, email string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "sub-" + email,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestNewValidator(t *testing.T) {
	ctx := context.Background()

	v, err := NewValidator(ctx, config.AuthConfig{JWTSecret: "s"})
	require.NoError(t, err)
	assert.IsType(t, &middleware.SharedSecretValidator{}, v)

	v, err = NewValidator(ctx, config.AuthConfig{JWKSURL: "https://issuer.example.com/jwks", Audience: "a"})
	require.NoError(t, err)
	assert.IsType(t, &middleware.OIDCValidator{}, v)

	_, err = NewValidator(ctx, config.AuthConfig{})
	require.Error(t, err)
}

func TestRouter_HealthzIsPublic(t *testing.T) {
	a, _ := newTestApp(t, testConfig())
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRouter_RequiresToken(t *testing.T) {
	a, _ := newTestApp(t, testConfig())

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/principals", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AuthenticatedFlow(t *testing.T) {
	a, _ := newTestApp(t, testConfig())

	// Seeded principal resolves through /v1/me.
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", bearer(t, "root@example.com"))
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var me struct {
		PrincipalID string `json:"principal_id"`
		Email       string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "root@example.com", me.Email)
	assert.NotEmpty(t, me.PrincipalID)

	req = httptest.NewRequest(http.MethodPost, "/v1/principals",
		strings.NewReader(`{"name":"Ana","email":"ana@example.com"}`))
	req.Header.Set("Authorization", bearer(t, "root@example.com"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// A caller without a principal is authenticated but unknown.
	req = httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", bearer(t, "ghost@example.com"))
	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	a, _ := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/v1/principals", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSeedPrincipals_Idempotent(t *testing.T) {
	cfg := testConfig()
	a, store := newTestApp(t, cfg)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, seedPrincipals(context.Background(), a.Principals, cfg.SeedPrincipals, logger))

	var n int
	require.NoError(t, store.Read.QueryRow("SELECT count(*) FROM principals").Scan(&n))
	assert.Equal(t, 1, n)

	bad := []config.SeedPrincipal{{Name: "", Email: "x@example.com"}}
	err := seedPrincipals(context.Background(), a.Principals, bad, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed principal x@example.com")
}
