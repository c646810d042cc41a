package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository loads promotions applicable to a set of products. Matching is
// re-checked in application logic so a row satisfying both the product and
// category predicates can never double-apply.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ActiveFor(ctx context.Context, productIDs []uuid.UUID, categories []string, asOf time.Time) ([]models.Promotion, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a promotion repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ActiveFor(ctx context.Context, productIDs []uuid.UUID, categories []string, asOf time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	query := r.db.WithContext(ctx).
		Where("starts_at <= ? AND ends_at >= ?", asOf, asOf)

	switch {
	case len(productIDs) > 0 && len(categories) > 0:
		query = query.Where("product_id IN ? OR category IN ?", productIDs, categories)
	case len(productIDs) > 0:
		query = query.Where("product_id IN ?", productIDs)
	case len(categories) > 0:
		query = query.Where("category IN ?", categories)
	default:
		return nil, nil
	}

	if err := query.Find(&promos).Error; err != nil {
		return nil, err
	}
	return promos, nil
}
