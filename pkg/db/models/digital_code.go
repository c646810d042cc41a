package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DigitalCode is a one-time redemption code issued per purchased unit of
// a digital or gift-card product. Code is globally unique. For gift
// cards RemainingBalance tracks unspent value; Redeemed means fully
// consumed and flips only when the balance reaches zero.
type DigitalCode struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	OrderItemID      uuid.UUID       `gorm:"column:order_item_id;type:uuid;not null"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	UserID           uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	Code             string          `gorm:"column:code;not null;uniqueIndex:idx_digital_codes_code"`
	Type             enums.CodeType  `gorm:"column:type;not null"`
	Redeemed         bool            `gorm:"column:redeemed;not null;default:false"`
	OriginalValue    decimal.Decimal `gorm:"column:original_value;type:numeric(12,2);not null"`
	RemainingBalance decimal.Decimal `gorm:"column:remaining_balance;type:numeric(12,2);not null"`
	SentAt           time.Time       `gorm:"column:sent_at;not null"`
	RedeemedAt       *time.Time      `gorm:"column:redeemed_at"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *DigitalCode) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
