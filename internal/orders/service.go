package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/internal/products"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	"github.com/pixelgrove/gamecrate-backend/pkg/enums"
	pkgerrors "github.com/pixelgrove/gamecrate-backend/pkg/errors"
	"gorm.io/gorm"
)

// Service defines the order lifecycle operations after checkout. Status
// moves are monotonic: pending to delivered, pending to cancelled.
type Service interface {
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	conn     *gorm.DB
	repo     Repository
	products products.Repository
}

// NewService wires an order service with the provided collaborators.
func NewService(conn *gorm.DB, repo Repository, productRepo products.Repository) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("database connection required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{conn: conn, repo: repo, products: productRepo}, nil
}

func (s *service) Get(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, enums.OrderStatusPending, enums.OrderStatusDelivered)
}

// Cancel flips a pending order to cancelled. No stock restore happens on
// this path.
func (s *service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, enums.OrderStatusPending, enums.OrderStatusCancelled)
}

func (s *service) transition(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) error {
	ok, err := s.repo.UpdateStatusFrom(ctx, id, from, to)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return err
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in a transitionable state").
		WithDetails(map[string]any{"expected": from, "requested": to})
}

// Delete removes an order. Pending orders get their stock restored in the
// same transaction; delivered orders are immutable and refuse deletion;
// cancelled orders delete without a restore since their decrement already
// happened and the goods were never held back.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return err
	}

	if order.Status == enums.OrderStatusDelivered {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "delivered orders cannot be deleted")
	}

	restock := order.Status == enums.OrderStatusPending

	return s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if restock {
			productRepo := s.products.WithTx(tx)
			for _, item := range order.Items {
				if err := productRepo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		return s.repo.WithTx(tx).Delete(ctx, order.ID)
	})
}
