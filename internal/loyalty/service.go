package loyalty

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/pkg/config"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	"github.com/pixelgrove/gamecrate-backend/pkg/enums"
	pkgerrors "github.com/pixelgrove/gamecrate-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrBelowMinimum rejects redemptions under the configured quantum.
	ErrBelowMinimum = pkgerrors.New(pkgerrors.CodeValidation, "redemption below minimum points")
	// ErrInsufficientPoints rejects redemptions exceeding the current balance.
	ErrInsufficientPoints = pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient loyalty points")
)

// Service defines the loyalty points operations. The balance column is a
// denormalized running total; every mutation pairs a guarded balance update
// with an appended ledger row inside one transaction, so the balance always
// equals the sum of ledger deltas.
type Service interface {
	Earn(ctx context.Context, userID uuid.UUID, amountSpent decimal.Decimal, orderID *uuid.UUID) (int, error)
	Redeem(ctx context.Context, userID uuid.UUID, points int, orderID *uuid.UUID) (decimal.Decimal, error)
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	ValidateRedemption(points int) error
	History(ctx context.Context, userID uuid.UUID) ([]models.LoyaltyTransaction, error)
	CalculateDiscount(points int) decimal.Decimal
	CalculatePointsNeeded(discount decimal.Decimal) int
}

type service struct {
	conn  *gorm.DB
	repo  Repository
	rates config.LoyaltyConfig
}

// NewService wires a loyalty service with the provided database and rates.
func NewService(conn *gorm.DB, repo Repository, rates config.LoyaltyConfig) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("database connection required")
	}
	if repo == nil {
		return nil, fmt.Errorf("loyalty repository required")
	}
	if rates.EarnPointsPerDollar <= 0 {
		return nil, fmt.Errorf("earn rate must be positive")
	}
	if rates.RedeemPointsPerDollar <= 0 {
		return nil, fmt.Errorf("redeem rate must be positive")
	}
	if rates.MinRedemptionPoints < 0 {
		return nil, fmt.Errorf("minimum redemption must not be negative")
	}
	return &service{conn: conn, repo: repo, rates: rates}, nil
}

// Earn credits floor(amountSpent * earn rate) points. A zero award is a
// no-op with no ledger row.
func (s *service) Earn(ctx context.Context, userID uuid.UUID, amountSpent decimal.Decimal, orderID *uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, fmt.Errorf("user id is required")
	}

	points := int(amountSpent.Mul(decimal.NewFromInt(int64(s.rates.EarnPointsPerDollar))).Floor().IntPart())
	if points <= 0 {
		return 0, nil
	}

	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.IncrementBalance(ctx, userID, points); err != nil {
			return err
		}
		return repo.CreateTransaction(ctx, &models.LoyaltyTransaction{
			UserID:      userID,
			OrderID:     orderID,
			Type:        enums.LoyaltyTransactionEarned,
			Delta:       points,
			Description: fmt.Sprintf("earned on $%s spent", amountSpent.StringFixed(2)),
		})
	})
	if err != nil {
		return 0, err
	}
	return points, nil
}

// Redeem converts points into a dollar discount. The balance guard lives in
// the store update, so a concurrent spend of the same points makes exactly
// one of the two redemptions fail.
func (s *service) Redeem(ctx context.Context, userID uuid.UUID, points int, orderID *uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, fmt.Errorf("user id is required")
	}
	if points < s.rates.MinRedemptionPoints {
		return decimal.Zero, ErrBelowMinimum
	}

	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.DecrementBalanceIfSufficient(ctx, userID, points)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientPoints
		}
		return repo.CreateTransaction(ctx, &models.LoyaltyTransaction{
			UserID:      userID,
			OrderID:     orderID,
			Type:        enums.LoyaltyTransactionRedeemed,
			Delta:       -points,
			Description: fmt.Sprintf("redeemed %d points", points),
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return s.CalculateDiscount(points), nil
}

// ValidateRedemption checks a requested redemption against the configured
// quantum before anything is committed. The balance check stays in Redeem
// where it is guarded.
func (s *service) ValidateRedemption(points int) error {
	if points <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "points must be positive")
	}
	if points < s.rates.MinRedemptionPoints {
		return ErrBelowMinimum
	}
	return nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	account, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID) ([]models.LoyaltyTransaction, error) {
	return s.repo.ListTransactions(ctx, userID)
}

// CalculateDiscount is linear; fractional cents are allowed here and
// rounding is deferred to the currency boundary.
func (s *service) CalculateDiscount(points int) decimal.Decimal {
	if points <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(points)).
		Div(decimal.NewFromInt(int64(s.rates.RedeemPointsPerDollar)))
}

// CalculatePointsNeeded returns the smallest point amount covering the
// requested discount.
func (s *service) CalculatePointsNeeded(discount decimal.Decimal) int {
	if discount.Sign() <= 0 {
		return 0
	}
	points := discount.Mul(decimal.NewFromInt(int64(s.rates.RedeemPointsPerDollar))).Ceil()
	return int(points.IntPart())
}
