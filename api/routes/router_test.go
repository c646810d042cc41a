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
	"github.com/shopspring/decimal"

	cartsvc "github.com/pixelgrove/gamecrate-backend/internal/cart"
	checkoutsvc "github.com/pixelgrove/gamecrate-backend/internal/checkout"
	codesvc "github.com/pixelgrove/gamecrate-backend/internal/codes"
	pkgAuth "github.com/pixelgrove/gamecrate-backend/pkg/auth"
	"github.com/pixelgrove/gamecrate-backend/pkg/config"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	"github.com/pixelgrove/gamecrate-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCartService struct{}

func (stubCartService) Add(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*cartsvc.Snapshot, error) {
	return &cartsvc.Snapshot{}, nil
}

func (stubCartService) Remove(ctx context.Context, sessionID string, productID uuid.UUID) (*cartsvc.Snapshot, error) {
	return &cartsvc.Snapshot{}, nil
}

func (stubCartService) Snapshot(ctx context.Context, sessionID string) (*cartsvc.Snapshot, error) {
	return &cartsvc.Snapshot{}, nil
}

func (stubCartService) Price(ctx context.Context, snapshot *cartsvc.Snapshot, asOf time.Time) (*cartsvc.View, error) {
	return &cartsvc.View{Subtotal: decimal.Zero}, nil
}

func (stubCartService) View(ctx context.Context, sessionID string) (*cartsvc.View, error) {
	return &cartsvc.View{Subtotal: decimal.Zero}, nil
}

func (stubCartService) Clear(ctx context.Context, sessionID string) error {
	return nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Checkout(ctx context.Context, input checkoutsvc.Input) (*checkoutsvc.Result, error) {
	return &checkoutsvc.Result{OrderID: uuid.New(), FinalTotal: decimal.Zero}, nil
}

type stubLoyaltyService struct{}

func (stubLoyaltyService) Earn(ctx context.Context, userID uuid.UUID, amountSpent decimal.Decimal, orderID *uuid.UUID) (int, error) {
	return 0, nil
}

func (stubLoyaltyService) Redeem(ctx context.Context, userID uuid.UUID, points int, orderID *uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (stubLoyaltyService) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return 420, nil
}

func (stubLoyaltyService) ValidateRedemption(points int) error {
	return nil
}

func (stubLoyaltyService) History(ctx context.Context, userID uuid.UUID) ([]models.LoyaltyTransaction, error) {
	return nil, nil
}

func (stubLoyaltyService) CalculateDiscount(points int) decimal.Decimal {
	return decimal.Zero
}

func (stubLoyaltyService) CalculatePointsNeeded(discount decimal.Decimal) int {
	return 0
}

type stubCodesService struct{}

func (stubCodesService) Issue(ctx context.Context, input codesvc.IssueInput) ([]models.DigitalCode, error) {
	return nil, nil
}

func (stubCodesService) RedeemCode(ctx context.Context, code string) (*models.DigitalCode, error) {
	return &models.DigitalCode{Code: code, Redeemed: true}, nil
}

func (stubCodesService) ApplyGiftCard(ctx context.Context, code string, orderTotal decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (stubCodesService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DigitalCode, error) {
	return nil, nil
}

func (stubCodesService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.DigitalCode, error) {
	return nil, nil
}

type stubOrdersService struct{}

func (stubOrdersService) Get(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: id, UserID: userID}, nil
}

func (stubOrdersService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (stubOrdersService) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (stubOrdersService) Cancel(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (stubOrdersService) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil, // redis client, idempotency passes through without a store
		nil, // metrics registry
		stubCartService{},
		stubCheckoutService{},
		stubLoyaltyService{},
		stubCodesService{},
		stubOrdersService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for health live got %d", resp.Code)
	}
}

func TestProtectedRoutesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, path := range []string{"/api/v1/cart", "/api/v1/loyalty/balance", "/api/v1/orders"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s without token got %d", path, resp.Code)
		}
	}
}

func TestProtectedRoutesSucceedWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg)

	for _, path := range []string{"/api/v1/cart", "/api/v1/loyalty/balance", "/api/v1/orders", "/api/v1/codes"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestCheckoutCreatesOrder(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"points_to_redeem":0}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for checkout got %d", resp.Code)
	}
}

func TestCheckoutRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	stale, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now().Add(-2*time.Hour), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"points_to_redeem":0}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+stale)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token got %d", resp.Code)
	}
}
