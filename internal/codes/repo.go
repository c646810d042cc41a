package codes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository manages issued digital codes. Uniqueness is enforced by the
// unique index on the code column; callers regenerate on collision.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, code *models.DigitalCode) error
	FindByCode(ctx context.Context, code string) (*models.DigitalCode, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DigitalCode, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.DigitalCode, error)
	MarkRedeemed(ctx context.Context, code string, at time.Time) (bool, error)
	ApplyBalance(ctx context.Context, id uuid.UUID, expected, next decimal.Decimal, redeemed bool, at *time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a digital code repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, code *models.DigitalCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.DigitalCode, error) {
	var row models.DigitalCode
	if err := r.db.WithContext(ctx).First(&row, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DigitalCode, error) {
	var rows []models.DigitalCode
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.DigitalCode, error) {
	var rows []models.DigitalCode
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkRedeemed flips the redeemed flag only when it is still unset. Zero
// rows affected means the code was missing or already consumed.
func (r *repository) MarkRedeemed(ctx context.Context, code string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DigitalCode{}).
		Where("code = ? AND redeemed = ?", code, false).
		Updates(map[string]any{
			"redeemed":          true,
			"redeemed_at":       at,
			"remaining_balance": decimal.Zero,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ApplyBalance is a compare-and-swap on the remaining balance. The expected
// value guards against a concurrent deduction on the same card.
func (r *repository) ApplyBalance(ctx context.Context, id uuid.UUID, expected, next decimal.Decimal, redeemed bool, at *time.Time) (bool, error) {
	updates := map[string]any{
		"remaining_balance": next,
		"redeemed":          redeemed,
	}
	if redeemed && at != nil {
		updates["redeemed_at"] = *at
	}
	res := r.db.WithContext(ctx).
		Model(&models.DigitalCode{}).
		Where("id = ? AND remaining_balance = ? AND redeemed = ?", id, expected, false).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
