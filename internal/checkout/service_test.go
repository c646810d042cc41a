package checkout

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/internal/cart"
	"github.com/pixelgrove/gamecrate-backend/internal/codes"
	"github.com/pixelgrove/gamecrate-backend/internal/loyalty"
	"github.com/pixelgrove/gamecrate-backend/internal/orders"
	"github.com/pixelgrove/gamecrate-backend/internal/pricing"
	"github.com/pixelgrove/gamecrate-backend/internal/products"
	"github.com/pixelgrove/gamecrate-backend/pkg/config"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	pkgerrors "github.com/pixelgrove/gamecrate-backend/pkg/errors"
	"github.com/pixelgrove/gamecrate-backend/pkg/logger"
	"github.com/pixelgrove/gamecrate-backend/pkg/redis"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type memStore struct {
	mu    sync.Mutex
	items map[string]string
}

func newMemStore() *memStore {
	return &memStore{items: map[string]string{}}
}

func (m *memStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value.(string)
	return nil
}

func (m *memStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *memStore) CartKey(sessionID string) string {
	return "gc:cart:" + sessionID
}

type recordingNotifier struct {
	mu         sync.Mutex
	orders     []uuid.UUID
	codeCounts []int
}

func (r *recordingNotifier) OrderConfirmed(ctx context.Context, userID uuid.UUID, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, order.ID)
	return nil
}

func (r *recordingNotifier) CodesIssued(ctx context.Context, userID uuid.UUID, issued []models.DigitalCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codeCounts = append(r.codeCounts, len(issued))
	return nil
}

type fixture struct {
	db       *gorm.DB
	carts    cart.Service
	loyalty  loyalty.Service
	checkout Service
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.Promotion{},
		&models.Order{},
		&models.OrderItem{},
		&models.LoyaltyAccount{},
		&models.LoyaltyTransaction{},
		&models.DigitalCode{},
	))

	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})

	productRepo := products.NewRepository(db)
	promoRepo := pricing.NewRepository(db)
	orderRepo := orders.NewRepository(db)

	cartSvc, err := cart.NewService(newMemStore(), productRepo, promoRepo, time.Hour)
	require.NoError(t, err)

	loyaltySvc, err := loyalty.NewService(db, loyalty.NewRepository(db), config.LoyaltyConfig{
		EarnPointsPerDollar:   10,
		RedeemPointsPerDollar: 100,
		MinRedemptionPoints:   100,
	})
	require.NoError(t, err)

	codesSvc, err := codes.NewService(codes.NewRepository(db))
	require.NoError(t, err)

	notifier := &recordingNotifier{}

	checkoutSvc, err := NewService(db, cartSvc, loyaltySvc, codesSvc, productRepo, orderRepo, notifier, nil, logg)
	require.NoError(t, err)

	return &fixture{
		db:       db,
		carts:    cartSvc,
		loyalty:  loyaltySvc,
		checkout: checkoutSvc,
		notifier: notifier,
	}
}

func (f *fixture) seedProduct(t *testing.T, name, category, price string, stock int, digital, giftCard bool) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		Name:       name,
		Category:   category,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		IsDigital:  digital,
		IsGiftCard: giftCard,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *fixture) seedPromo(t *testing.T, productID uuid.UUID, percent string) {
	t.Helper()
	now := time.Now()
	promo := &models.Promotion{
		ID:              uuid.New(),
		ProductID:       &productID,
		DiscountPercent: decimal.RequireFromString(percent),
		StartsAt:        now.Add(-time.Hour),
		EndsAt:          now.Add(time.Hour),
	}
	require.NoError(t, f.db.Create(promo).Error)
}

func TestCheckoutEmptyCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.checkout.Checkout(context.Background(), Input{
		UserID:    uuid.New(),
		SessionID: "sess-empty",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCheckoutScenarioNoRedemption(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	physical := f.seedProduct(t, "Neon Drift", "racing", "20.00", 10, false, false)
	f.seedPromo(t, physical.ID, "10")
	digital := f.seedProduct(t, "Puzzle Pack", "puzzle", "5.00", 10, true, false)

	_, err := f.carts.Add(ctx, "sess-1", physical.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, "sess-1", digital.ID, 1)
	require.NoError(t, err)

	result, err := f.checkout.Checkout(ctx, Input{UserID: userID, SessionID: "sess-1"})
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
	require.True(t, result.FinalTotal.Equal(decimal.RequireFromString("41.00")),
		"got total %s", result.FinalTotal)
	require.Equal(t, 410, result.PointsEarned)
	require.Len(t, result.CodesIssued, 1)
	require.True(t, strings.HasPrefix(result.CodesIssued[0], "DIGI-"))

	var order models.Order
	require.NoError(t, f.db.Preload("Items").First(&order, "id = ?", result.OrderID).Error)
	require.Len(t, order.Items, 2)

	var gotPhysical, gotDigital models.Product
	require.NoError(t, f.db.First(&gotPhysical, "id = ?", physical.ID).Error)
	require.NoError(t, f.db.First(&gotDigital, "id = ?", digital.ID).Error)
	require.Equal(t, 8, gotPhysical.Stock)
	require.Equal(t, 9, gotDigital.Stock)

	balance, err := f.loyalty.Balance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 410, balance)

	snapshot, err := f.carts.Snapshot(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, snapshot.IsEmpty(), "cart must be cleared after checkout")

	require.Len(t, f.notifier.orders, 1)
	require.Equal(t, []int{1}, f.notifier.codeCounts)
}

func TestCheckoutScenarioWithRedemption(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	// seed a 1000 point balance
	_, err := f.loyalty.Earn(ctx, userID, decimal.RequireFromString("100.00"), nil)
	require.NoError(t, err)

	physical := f.seedProduct(t, "Neon Drift", "racing", "20.00", 10, false, false)
	f.seedPromo(t, physical.ID, "10")
	digital := f.seedProduct(t, "Puzzle Pack", "puzzle", "5.00", 10, true, false)

	_, err = f.carts.Add(ctx, "sess-2", physical.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, "sess-2", digital.ID, 1)
	require.NoError(t, err)

	result, err := f.checkout.Checkout(ctx, Input{
		UserID:         userID,
		SessionID:      "sess-2",
		PointsToRedeem: 1000,
	})
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
	require.True(t, result.FinalTotal.Equal(decimal.RequireFromString("31.00")),
		"got total %s", result.FinalTotal)
	require.Equal(t, 310, result.PointsEarned)

	balance, err := f.loyalty.Balance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 310, balance)
}

func TestCheckoutBelowMinimumRedemptionRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	product := f.seedProduct(t, "Neon Drift", "racing", "20.00", 10, false, false)
	_, err := f.carts.Add(ctx, "sess-min", product.ID, 1)
	require.NoError(t, err)

	_, err = f.checkout.Checkout(ctx, Input{
		UserID:         userID,
		SessionID:      "sess-min",
		PointsToRedeem: 50,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
}

func TestCheckoutRedemptionRaceKeepsTotal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	// balance is lower than the requested redemption
	_, err := f.loyalty.Earn(ctx, userID, decimal.RequireFromString("50.00"), nil)
	require.NoError(t, err)

	product := f.seedProduct(t, "Neon Drift", "racing", "20.00", 10, false, false)
	_, err = f.carts.Add(ctx, "sess-3", product.ID, 1)
	require.NoError(t, err)

	result, err := f.checkout.Checkout(ctx, Input{
		UserID:         userID,
		SessionID:      "sess-3",
		PointsToRedeem: 1000,
	})
	require.NoError(t, err)

	// total stays at the committed discounted value, deduction is skipped
	require.True(t, result.FinalTotal.Equal(decimal.RequireFromString("10.00")),
		"got total %s", result.FinalTotal)
	require.NotEmpty(t, result.Warnings)

	balance, err := f.loyalty.Balance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 500+result.PointsEarned, balance)
}

func TestCheckoutPersistFailureLeavesNoState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	product := f.seedProduct(t, "Neon Drift", "racing", "20.00", 10, false, false)
	_, err := f.carts.Add(ctx, "sess-4", product.ID, 2)
	require.NoError(t, err)

	// force the item insert to fail mid-transaction
	require.NoError(t, f.db.Migrator().DropTable(&models.OrderItem{}))

	_, err = f.checkout.Checkout(ctx, Input{UserID: userID, SessionID: "sess-4"})
	require.Error(t, err)

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount, "no order row may survive a failed persist")

	var got models.Product
	require.NoError(t, f.db.First(&got, "id = ?", product.ID).Error)
	require.Equal(t, 10, got.Stock, "stock must be untouched")

	balance, err := f.loyalty.Balance(ctx, userID)
	require.NoError(t, err)
	require.Zero(t, balance, "no points may be awarded")

	snapshot, err := f.carts.Snapshot(ctx, "sess-4")
	require.NoError(t, err)
	require.False(t, snapshot.IsEmpty(), "cart must survive a failed checkout")
}

func TestCheckoutContendedStockNeverGoesNegative(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "Last Copy", "retro", "15.00", 1, false, false)

	_, err := f.carts.Add(ctx, "sess-a", product.ID, 1)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, "sess-b", product.ID, 1)
	require.NoError(t, err)

	first, err := f.checkout.Checkout(ctx, Input{UserID: uuid.New(), SessionID: "sess-a"})
	require.NoError(t, err)
	require.Empty(t, first.Warnings)

	second, err := f.checkout.Checkout(ctx, Input{UserID: uuid.New(), SessionID: "sess-b"})
	require.NoError(t, err)
	require.NotEmpty(t, second.Warnings, "losing checkout must surface a stock warning")

	var got models.Product
	require.NoError(t, f.db.First(&got, "id = ?", product.ID).Error)
	require.Equal(t, 0, got.Stock)
}

func TestCheckoutGiftCardIssuance(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	card := f.seedProduct(t, "Gift Card $25", "gift", "25.00", 100, false, true)
	_, err := f.carts.Add(ctx, "sess-5", card.ID, 2)
	require.NoError(t, err)

	result, err := f.checkout.Checkout(ctx, Input{UserID: userID, SessionID: "sess-5"})
	require.NoError(t, err)
	require.Len(t, result.CodesIssued, 2)
	for _, code := range result.CodesIssued {
		require.True(t, strings.HasPrefix(code, "GAME-"))
	}

	var rows []models.DigitalCode
	require.NoError(t, f.db.Where("order_id = ?", result.OrderID).Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.True(t, row.RemainingBalance.Equal(decimal.RequireFromString("25.00")),
			"gift card balance must equal unit price, got %s", row.RemainingBalance)
		require.False(t, row.Redeemed)
	}
}
