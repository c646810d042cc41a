package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Promotion is a time-bounded percentage discount scoped to either a
// single product (ProductID set) or a whole category (Category set).
// StartsAt/EndsAt form an inclusive window.
type Promotion struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID       *uuid.UUID      `gorm:"column:product_id;type:uuid;index"`
	Category        *string         `gorm:"column:category;index"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	StartsAt        time.Time       `gorm:"column:starts_at;not null;index"`
	EndsAt          time.Time       `gorm:"column:ends_at;not null;index"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (p *Promotion) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
