package codes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/pkg/db"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	"github.com/pixelgrove/gamecrate-backend/pkg/enums"
	pkgerrors "github.com/pixelgrove/gamecrate-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	maxGenerateAttempts = 5
	maxBalanceAttempts  = 3
)

var (
	// ErrCodeNotFound is returned for unknown code strings.
	ErrCodeNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "code not found")
	// ErrCodeConsumed is returned when a code has no value left.
	ErrCodeConsumed = pkgerrors.New(pkgerrors.CodeStateConflict, "code already redeemed")
)

// IssueInput identifies the order line a batch of codes belongs to.
type IssueInput struct {
	OrderID     uuid.UUID
	OrderItemID uuid.UUID
	ProductID   uuid.UUID
	UserID      uuid.UUID
	Type        enums.CodeType
	UnitValue   decimal.Decimal
	Quantity    int
}

// Service issues and redeems digital codes. Issuance treats uniqueness
// checking and insertion as one atomic step: the insert races against the
// unique index and regenerates on collision.
type Service interface {
	Issue(ctx context.Context, input IssueInput) ([]models.DigitalCode, error)
	RedeemCode(ctx context.Context, code string) (*models.DigitalCode, error)
	ApplyGiftCard(ctx context.Context, code string, orderTotal decimal.Decimal) (decimal.Decimal, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DigitalCode, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.DigitalCode, error)
}

type service struct {
	repo Repository
}

// NewService wires a digital code service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("codes repository required")
	}
	return &service{repo: repo}, nil
}

// Issue creates one code row per purchased unit. Gift cards carry their
// unit price as spendable balance; downloads carry no balance.
func (s *service) Issue(ctx context.Context, input IssueInput) ([]models.DigitalCode, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid code type")
	}
	if input.OrderID == uuid.Nil || input.OrderItemID == uuid.Nil || input.ProductID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order, item, product and user ids are required")
	}

	issued := make([]models.DigitalCode, 0, input.Quantity)
	for i := 0; i < input.Quantity; i++ {
		row, err := s.issueOne(ctx, input)
		if err != nil {
			return issued, err
		}
		issued = append(issued, *row)
	}
	return issued, nil
}

func (s *service) issueOne(ctx context.Context, input IssueInput) (*models.DigitalCode, error) {
	balance := decimal.Zero
	if input.Type == enums.CodeTypeGiftCard {
		balance = input.UnitValue
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		candidate, err := generateCode(input.Type.Prefix())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating code")
		}

		row := &models.DigitalCode{
			OrderID:          input.OrderID,
			OrderItemID:      input.OrderItemID,
			ProductID:        input.ProductID,
			UserID:           input.UserID,
			Code:             candidate,
			Type:             input.Type,
			OriginalValue:    input.UnitValue,
			RemainingBalance: balance,
			SentAt:           time.Now(),
		}

		err = s.repo.Insert(ctx, row)
		if err == nil {
			return row, nil
		}
		if db.IsUniqueViolation(err, "idx_digital_codes_code") {
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting code")
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "exhausted code generation attempts")
}

// RedeemCode fully consumes a code. Gift cards with remaining balance lose
// it here; partial spend goes through ApplyGiftCard instead.
func (s *service) RedeemCode(ctx context.Context, code string) (*models.DigitalCode, error) {
	ok, err := s.repo.MarkRedeemed(ctx, code, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, ferr := s.repo.FindByCode(ctx, code); ferr != nil {
			if ferr == gorm.ErrRecordNotFound {
				return nil, ErrCodeNotFound
			}
			return nil, ferr
		}
		return nil, ErrCodeConsumed
	}
	return s.repo.FindByCode(ctx, code)
}

// ApplyGiftCard spends gift card value against an order total and returns
// the amount applied. The redeemed flag flips only when the balance reaches
// zero; a positive remainder leaves the card open for another order.
func (s *service) ApplyGiftCard(ctx context.Context, code string, orderTotal decimal.Decimal) (decimal.Decimal, error) {
	if orderTotal.Sign() <= 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	for attempt := 0; attempt < maxBalanceAttempts; attempt++ {
		row, err := s.repo.FindByCode(ctx, code)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return decimal.Zero, ErrCodeNotFound
			}
			return decimal.Zero, err
		}
		if row.Type != enums.CodeTypeGiftCard {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "code is not a gift card")
		}
		if row.Redeemed || row.RemainingBalance.Sign() <= 0 {
			return decimal.Zero, ErrCodeConsumed
		}

		applied := row.RemainingBalance
		if applied.GreaterThan(orderTotal) {
			applied = orderTotal
		}
		next := row.RemainingBalance.Sub(applied)
		depleted := next.IsZero()
		now := time.Now()

		ok, err := s.repo.ApplyBalance(ctx, row.ID, row.RemainingBalance, next, depleted, &now)
		if err != nil {
			return decimal.Zero, err
		}
		if ok {
			return applied, nil
		}
		// balance moved underneath us, re-read and retry
	}
	return decimal.Zero, pkgerrors.New(pkgerrors.CodeConflict, "gift card balance contention")
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DigitalCode, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.DigitalCode, error) {
	return s.repo.ListByUser(ctx, userID)
}
