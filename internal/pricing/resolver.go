package pricing

import (
	"time"

	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

var (
	hundred     = decimal.NewFromInt(100)
	maxDiscount = decimal.NewFromInt(100)
)

// EffectivePrice computes the unit price for a product after applying the
// most favorable active promotion. Promotions match by product id or by
// category; the [StartsAt, EndsAt] window is inclusive on both ends. When
// several promotions match, the largest discount wins regardless of input
// order. The result is never negative and is rounded to cents.
func EffectivePrice(product models.Product, promotions []models.Promotion, asOf time.Time) decimal.Decimal {
	best := bestDiscount(product, promotions, asOf)
	if best.IsZero() {
		return product.Price.Round(2)
	}

	multiplier := decimal.NewFromInt(1).Sub(best.Div(hundred))
	price := product.Price.Mul(multiplier).Round(2)
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// BestDiscount returns the winning discount percentage for the product, or
// zero when no promotion applies.
func BestDiscount(product models.Product, promotions []models.Promotion, asOf time.Time) decimal.Decimal {
	return bestDiscount(product, promotions, asOf)
}

func bestDiscount(product models.Product, promotions []models.Promotion, asOf time.Time) decimal.Decimal {
	best := decimal.Zero
	for _, promo := range promotions {
		if !applies(product, promo, asOf) {
			continue
		}
		d := clampDiscount(promo.DiscountPercent)
		if d.GreaterThan(best) {
			best = d
		}
	}
	return best
}

func applies(product models.Product, promo models.Promotion, asOf time.Time) bool {
	if asOf.Before(promo.StartsAt) || asOf.After(promo.EndsAt) {
		return false
	}
	if promo.ProductID != nil {
		return *promo.ProductID == product.ID
	}
	if promo.Category != nil {
		return *promo.Category == product.Category
	}
	return false
}

func clampDiscount(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(maxDiscount) {
		return maxDiscount
	}
	return d
}
