package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/internal/products"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	"github.com/pixelgrove/gamecrate-backend/pkg/enums"
	pkgerrors "github.com/pixelgrove/gamecrate-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, Repository, *gorm.DB) {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.Order{}, &models.OrderItem{}))

	repo := NewRepository(db)
	svc, err := NewService(db, repo, products.NewRepository(db))
	require.NoError(t, err)
	return svc, repo, db
}

func seedOrder(t *testing.T, db *gorm.DB, repo Repository, userID uuid.UUID, qty int) (*models.Order, *models.Product) {
	t.Helper()
	product := &models.Product{
		ID:       uuid.New(),
		Name:     "Starfall Tactics",
		Category: "strategy",
		Price:    decimal.RequireFromString("19.99"),
		Stock:    10,
	}
	require.NoError(t, db.Create(product).Error)

	order := &models.Order{
		UserID: userID,
		Total:  decimal.RequireFromString("19.99"),
		Status: enums.OrderStatusPending,
		Items: []models.OrderItem{
			{ProductID: product.ID, Quantity: qty, UnitPrice: decimal.RequireFromString("19.99")},
		},
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order, product
}

func TestCreatePersistsItems(t *testing.T) {
	t.Parallel()

	_, repo, db := newTestService(t)
	userID := uuid.New()
	order, _ := seedOrder(t, db, repo, userID, 2)

	got, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, userID, got.UserID)
	require.Len(t, got.Items, 1)
	require.Equal(t, 2, got.Items[0].Quantity)
}

func TestMarkDeliveredOnce(t *testing.T) {
	t.Parallel()

	svc, repo, db := newTestService(t)
	ctx := context.Background()
	order, _ := seedOrder(t, db, repo, uuid.New(), 1)

	require.NoError(t, svc.MarkDelivered(ctx, order.ID))

	err := svc.MarkDelivered(ctx, order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCancelDoesNotRestoreStock(t *testing.T) {
	t.Parallel()

	svc, repo, db := newTestService(t)
	ctx := context.Background()
	order, product := seedOrder(t, db, repo, uuid.New(), 3)

	require.NoError(t, svc.Cancel(ctx, order.ID))

	var got models.Product
	require.NoError(t, db.First(&got, "id = ?", product.ID).Error)
	require.Equal(t, 10, got.Stock)

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, reloaded.Status)
}

func TestDeletePendingRestoresStock(t *testing.T) {
	t.Parallel()

	svc, repo, db := newTestService(t)
	ctx := context.Background()
	order, product := seedOrder(t, db, repo, uuid.New(), 3)

	require.NoError(t, svc.Delete(ctx, order.ID))

	var got models.Product
	require.NoError(t, db.First(&got, "id = ?", product.ID).Error)
	require.Equal(t, 13, got.Stock)

	_, err := repo.FindByID(ctx, order.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteDeliveredRejected(t *testing.T) {
	t.Parallel()

	svc, repo, db := newTestService(t)
	ctx := context.Background()
	order, _ := seedOrder(t, db, repo, uuid.New(), 1)

	require.NoError(t, svc.MarkDelivered(ctx, order.ID))

	err := svc.Delete(ctx, order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestDeleteCancelledSkipsRestore(t *testing.T) {
	t.Parallel()

	svc, repo, db := newTestService(t)
	ctx := context.Background()
	order, product := seedOrder(t, db, repo, uuid.New(), 3)

	require.NoError(t, svc.Cancel(ctx, order.ID))
	require.NoError(t, svc.Delete(ctx, order.ID))

	var got models.Product
	require.NoError(t, db.First(&got, "id = ?", product.ID).Error)
	require.Equal(t, 10, got.Stock)
}

func TestGetEnforcesOwnership(t *testing.T) {
	t.Parallel()

	svc, repo, db := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	order, _ := seedOrder(t, db, repo, owner, 1)

	_, err := svc.Get(ctx, order.ID, uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	got, err := svc.Get(ctx, order.ID, owner)
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)
}
