package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lucasrioja/storefront-backend/api/middleware"
	cartsvc "github.com/lucasrioja/storefront-backend/internal/cart"
	"github.com/lucasrioja/storefront-backend/internal/reservation"
	pkgauth "github.com/lucasrioja/storefront-backend/pkg/auth"
	"github.com/lucasrioja/storefront-backend/pkg/config"
	"github.com/lucasrioja/storefront-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCartService struct{}

func (stubCartService) Get(context.Context, cartsvc.Identity) (*cartsvc.View, error) {
	return &cartsvc.View{Cart: &cartsvc.Cart{}}, nil
}

func (stubCartService) Add(context.Context, cartsvc.Identity, uuid.UUID, string, int) (*cartsvc.Cart, error) {
	return &cartsvc.Cart{}, nil
}

func (stubCartService) Update(context.Context, cartsvc.Identity, string, int) (*cartsvc.Cart, error) {
	return &cartsvc.Cart{}, nil
}

func (stubCartService) Remove(context.Context, cartsvc.Identity, string) (*cartsvc.Cart, error) {
	return &cartsvc.Cart{}, nil
}

func (stubCartService) Clear(context.Context, cartsvc.Identity) (*cartsvc.Cart, error) {
	return &cartsvc.Cart{}, nil
}

func (stubCartService) Sync(context.Context, cartsvc.Identity, []cartsvc.SyncEntry) (*cartsvc.SyncResult, error) {
	return &cartsvc.SyncResult{Cart: &cartsvc.Cart{}}, nil
}

type stubMerger struct{}

func (stubMerger) Merge(context.Context, uuid.UUID, string) (*cartsvc.MergeResult, error) {
	return &cartsvc.MergeResult{Cart: &cartsvc.Cart{}}, nil
}

type stubReservations struct{}

func (stubReservations) Reserve(_ context.Context, sku string, quantity int) (*reservation.Reservation, int, error) {
	return &reservation.Reservation{ID: "lock-1", SKU: sku, Quantity: quantity, ExpiresAt: time.Now().Add(time.Minute)}, 0, nil
}

func (stubReservations) Release(context.Context, string, string) error {
	return nil
}

func (stubReservations) Commit(context.Context, string, string) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "test", Port: "0"},
		JWT:  config.JWTConfig{Secret: "secret", Issuer: "issuer"},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(cfg, logg, stubPinger{}, stubPinger{}, stubCartService{}, stubMerger{}, stubReservations{})
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200: %s", path, rec.Code, rec.Body.String())
		}
		if env := rec.Header().Get("X-Storefront-Env"); env != "test" {
			t.Fatalf("%s env header = %q, want test", path, env)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testConfig())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestPublicPing(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testConfig())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/public/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestCartRoutesMintGuestSession(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testConfig())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if session := rec.Header().Get(middleware.GuestSessionHeader); session == "" {
		t.Fatal("expected minted guest session header")
	}
}

func TestCartRoutesEchoProvidedSession(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(middleware.GuestSessionHeader, "guest-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if session := rec.Header().Get(middleware.GuestSessionHeader); session != "guest-123" {
		t.Fatalf("session header = %q, want guest-123", session)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401: %s", rec.Code, rec.Body.String())
	}
}

func TestMergeRequiresAuthenticatedUser(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", strings.NewReader(`{"guestSessionId":"g1"}`))
	req.Header.Set(middleware.GuestSessionHeader, "g1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401: %s", rec.Code, rec.Body.String())
	}
}

func TestMergeAcceptsValidToken(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	router := newTestRouter(cfg)

	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", strings.NewReader(`{"guestSessionId":"g1"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestReservationRoutesWired(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/reservations", strings.NewReader(`{"sku":"SKU-1","quantity":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}
