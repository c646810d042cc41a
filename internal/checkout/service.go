package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/internal/cart"
	"github.com/pixelgrove/gamecrate-backend/internal/codes"
	"github.com/pixelgrove/gamecrate-backend/internal/loyalty"
	"github.com/pixelgrove/gamecrate-backend/internal/notify"
	"github.com/pixelgrove/gamecrate-backend/internal/orders"
	"github.com/pixelgrove/gamecrate-backend/internal/products"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	"github.com/pixelgrove/gamecrate-backend/pkg/enums"
	pkgerrors "github.com/pixelgrove/gamecrate-backend/pkg/errors"
	"github.com/pixelgrove/gamecrate-backend/pkg/logger"
	"github.com/pixelgrove/gamecrate-backend/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// ErrEmptyCart rejects a checkout before any mutation happens.
var ErrEmptyCart = pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")

// Input describes one checkout attempt.
type Input struct {
	UserID         uuid.UUID
	SessionID      string
	PointsToRedeem int
}

// Result is returned once the order row has committed. Warnings carry
// post-commit settlement failures that did not void the order.
type Result struct {
	OrderID      uuid.UUID       `json:"order_id"`
	FinalTotal   decimal.Decimal `json:"final_total"`
	PointsEarned int             `json:"points_earned"`
	CodesIssued  []string        `json:"codes_issued"`
	Warnings     []string        `json:"warnings,omitempty"`
}

// Service runs the purchase pipeline. Order persistence is the only atomic
// step; everything after commit is best-effort and reported as warnings.
type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	conn     *gorm.DB
	carts    cart.Service
	loyalty  loyalty.Service
	codes    codes.Service
	products products.Repository
	orders   orders.Repository
	notifier notify.Notifier
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// NewService wires the checkout orchestrator with its collaborators.
func NewService(
	conn *gorm.DB,
	carts cart.Service,
	loyaltySvc loyalty.Service,
	codesSvc codes.Service,
	productRepo products.Repository,
	orderRepo orders.Repository,
	notifier notify.Notifier,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("database connection required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if loyaltySvc == nil {
		return nil, fmt.Errorf("loyalty service required")
	}
	if codesSvc == nil {
		return nil, fmt.Errorf("codes service required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		conn:     conn,
		carts:    carts,
		loyalty:  loyaltySvc,
		codes:    codesSvc,
		products: productRepo,
		orders:   orderRepo,
		notifier: notifier,
		metrics:  checkoutMetrics,
		logg:     logg,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	started := time.Now()
	ctx = s.logg.WithUserID(ctx, input.UserID.String())

	result, err := s.run(ctx, input)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "failed"
	case len(result.Warnings) > 0:
		outcome = "partial"
	}
	s.metrics.ObserveDuration(outcome, time.Since(started))
	if err == nil {
		s.metrics.IncSuccess(outcome)
	}
	return result, err
}

func (s *service) run(ctx context.Context, input Input) (*Result, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.PointsToRedeem < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points to redeem must not be negative")
	}
	if input.PointsToRedeem > 0 {
		if err := s.loyalty.ValidateRedemption(input.PointsToRedeem); err != nil {
			s.metrics.IncFailure("validating")
			return nil, err
		}
	}

	// validate
	snapshot, err := s.carts.Snapshot(ctx, input.SessionID)
	if err != nil {
		s.metrics.IncFailure("validating")
		return nil, err
	}
	if snapshot.IsEmpty() {
		s.metrics.IncFailure("validating")
		return nil, ErrEmptyCart
	}

	// price
	view, err := s.carts.Price(ctx, snapshot, time.Now())
	if err != nil {
		s.metrics.IncFailure("pricing")
		return nil, err
	}

	rawTotal := view.Subtotal
	discount := decimal.Zero
	if input.PointsToRedeem > 0 {
		discount = s.loyalty.CalculateDiscount(input.PointsToRedeem)
	}
	finalTotal := rawTotal.Sub(discount)
	if finalTotal.IsNegative() {
		finalTotal = decimal.Zero
	}
	finalTotal = finalTotal.Round(2)

	// persist: the only step with all-or-nothing semantics
	order := &models.Order{
		UserID: input.UserID,
		Total:  finalTotal,
		Status: enums.OrderStatusPending,
	}
	for _, line := range view.Lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	err = s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.orders.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		s.metrics.IncFailure("persisting")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order persistence failed")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order committed")

	result := &Result{
		OrderID:     order.ID,
		FinalTotal:  finalTotal,
		CodesIssued: []string{},
	}

	// settle, issue and notify never roll back the committed order
	settleErr := s.settle(ctx, input, order, view, result)
	issueErr := s.issue(ctx, input.UserID, order, view, result)
	s.notifyAll(ctx, input.UserID, order, result)

	for _, werr := range multierr.Errors(multierr.Append(settleErr, issueErr)) {
		result.Warnings = append(result.Warnings, werr.Error())
	}

	if err := s.carts.Clear(ctx, input.SessionID); err != nil {
		s.logg.Error(ctx, "clearing cart after checkout", err)
		result.Warnings = append(result.Warnings, "cart could not be cleared")
	}

	return result, nil
}

// settle decrements stock and moves loyalty points. Each failure is
// recorded and the rest of the step still runs.
func (s *service) settle(ctx context.Context, input Input, order *models.Order, view *cart.View, result *Result) error {
	var settleErr error

	for _, line := range view.Lines {
		if err := s.products.DecrementStock(ctx, line.Product.ID, line.Quantity); err != nil {
			s.metrics.IncFailure("settling")
			s.logg.Error(ctx, "stock decrement failed", err)
			settleErr = multierr.Append(settleErr,
				fmt.Errorf("stock adjustment failed for %s", line.Product.Name))
		}
	}

	if input.PointsToRedeem > 0 {
		// the order keeps its committed total even when the deduction
		// loses the race against a concurrent spend
		if _, err := s.loyalty.Redeem(ctx, input.UserID, input.PointsToRedeem, &order.ID); err != nil {
			s.metrics.IncFailure("settling")
			s.logg.Error(ctx, "loyalty redemption failed after commit", err)
			settleErr = multierr.Append(settleErr,
				fmt.Errorf("loyalty redemption of %d points was not applied", input.PointsToRedeem))
		}
	}

	earned, err := s.loyalty.Earn(ctx, input.UserID, order.Total, &order.ID)
	if err != nil {
		s.metrics.IncFailure("settling")
		s.logg.Error(ctx, "loyalty earn failed", err)
		settleErr = multierr.Append(settleErr, fmt.Errorf("loyalty points were not awarded"))
	}
	result.PointsEarned = earned

	return settleErr
}

// issue creates one code per purchased unit of digital and gift card
// products, matched to the persisted order items.
func (s *service) issue(ctx context.Context, userID uuid.UUID, order *models.Order, view *cart.View, result *Result) error {
	var issueErr error

	for i, line := range view.Lines {
		if !line.Product.IsDigital && !line.Product.IsGiftCard {
			continue
		}
		codeType := enums.CodeTypeDigitalDownload
		if line.Product.IsGiftCard {
			codeType = enums.CodeTypeGiftCard
		}

		issued, err := s.codes.Issue(ctx, codes.IssueInput{
			OrderID:     order.ID,
			OrderItemID: order.Items[i].ID,
			ProductID:   line.Product.ID,
			UserID:      userID,
			Type:        codeType,
			UnitValue:   line.UnitPrice,
			Quantity:    line.Quantity,
		})
		if err != nil {
			s.metrics.IncFailure("issuing")
			s.logg.Error(ctx, "code issuance failed", err)
			issueErr = multierr.Append(issueErr,
				fmt.Errorf("code issuance failed for %s", line.Product.Name))
		}
		for _, row := range issued {
			result.CodesIssued = append(result.CodesIssued, row.Code)
			s.metrics.IncIssued(codeType.String())
		}
	}

	return issueErr
}

func (s *service) notifyAll(ctx context.Context, userID uuid.UUID, order *models.Order, result *Result) {
	if err := s.notifier.OrderConfirmed(ctx, userID, order); err != nil {
		s.metrics.IncFailure("notifying")
		s.logg.Error(ctx, "order confirmation notify failed", err)
	}
	if len(result.CodesIssued) > 0 {
		issued, err := s.codes.ListByOrder(ctx, order.ID)
		if err == nil {
			err = s.notifier.CodesIssued(ctx, userID, issued)
		}
		if err != nil {
			s.metrics.IncFailure("notifying")
			s.logg.Error(ctx, "codes issued notify failed", err)
		}
	}
}
