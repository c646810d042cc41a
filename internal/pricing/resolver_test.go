package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testProduct(price string) models.Product {
	return models.Product{
		ID:       uuid.New(),
		Name:     "Neon Drift",
		Category: "racing",
		Price:    decimal.RequireFromString(price),
	}
}

func promoFor(productID *uuid.UUID, category *string, percent string, start, end time.Time) models.Promotion {
	return models.Promotion{
		ID:              uuid.New(),
		ProductID:       productID,
		Category:        category,
		DiscountPercent: decimal.RequireFromString(percent),
		StartsAt:        start,
		EndsAt:          end,
	}
}

func TestEffectivePriceNoPromotions(t *testing.T) {
	product := testProduct("20.00")
	price := EffectivePrice(product, nil, time.Now())
	assert.True(t, price.Equal(decimal.RequireFromString("20.00")), "got %s", price)
}

func TestEffectivePriceSinglePromotion(t *testing.T) {
	product := testProduct("20.00")
	now := time.Now()
	promo := promoFor(&product.ID, nil, "10", now.Add(-time.Hour), now.Add(time.Hour))

	price := EffectivePrice(product, []models.Promotion{promo}, now)
	assert.True(t, price.Equal(decimal.RequireFromString("18.00")), "got %s", price)
}

func TestEffectivePriceLargestDiscountWinsEitherOrder(t *testing.T) {
	product := testProduct("20.00")
	now := time.Now()
	category := product.Category
	productPromo := promoFor(&product.ID, nil, "10", now.Add(-time.Hour), now.Add(time.Hour))
	categoryPromo := promoFor(nil, &category, "25", now.Add(-time.Hour), now.Add(time.Hour))

	want := decimal.RequireFromString("15.00")

	price := EffectivePrice(product, []models.Promotion{productPromo, categoryPromo}, now)
	assert.True(t, price.Equal(want), "got %s", price)

	price = EffectivePrice(product, []models.Promotion{categoryPromo, productPromo}, now)
	assert.True(t, price.Equal(want), "got %s", price)
}

func TestEffectivePriceWindowInclusive(t *testing.T) {
	product := testProduct("10.00")
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 7, 23, 59, 59, 0, time.UTC)
	promo := promoFor(&product.ID, nil, "50", start, end)
	promos := []models.Promotion{promo}

	half := decimal.RequireFromString("5.00")

	assert.True(t, EffectivePrice(product, promos, start).Equal(half))
	assert.True(t, EffectivePrice(product, promos, end).Equal(half))
	assert.True(t, EffectivePrice(product, promos, start.Add(-time.Second)).Equal(product.Price))
	assert.True(t, EffectivePrice(product, promos, end.Add(time.Second)).Equal(product.Price))
}

func TestEffectivePriceClampsDiscount(t *testing.T) {
	product := testProduct("10.00")
	now := time.Now()

	over := promoFor(&product.ID, nil, "150", now.Add(-time.Hour), now.Add(time.Hour))
	price := EffectivePrice(product, []models.Promotion{over}, now)
	assert.True(t, price.Equal(decimal.Zero), "got %s", price)

	negative := promoFor(&product.ID, nil, "-10", now.Add(-time.Hour), now.Add(time.Hour))
	price = EffectivePrice(product, []models.Promotion{negative}, now)
	assert.True(t, price.Equal(product.Price), "got %s", price)
}

func TestEffectivePriceIgnoresOtherCategory(t *testing.T) {
	product := testProduct("10.00")
	now := time.Now()
	other := "puzzle"
	promo := promoFor(nil, &other, "50", now.Add(-time.Hour), now.Add(time.Hour))

	price := EffectivePrice(product, []models.Promotion{promo}, now)
	assert.True(t, price.Equal(product.Price), "got %s", price)
}
