package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/pkg/enums"
	"gorm.io/gorm"
)

// LoyaltyTransaction is one immutable ledger entry. Delta is signed:
// positive for earned points, negative for redemptions.
type LoyaltyTransaction struct {
	ID          uuid.UUID                    `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID                    `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID     *uuid.UUID                   `gorm:"column:order_id;type:uuid"`
	Type        enums.LoyaltyTransactionType `gorm:"column:type;not null"`
	Delta       int                          `gorm:"column:delta;not null"`
	Description string                       `gorm:"column:description"`
	CreatedAt   time.Time                    `gorm:"column:created_at;autoCreateTime"`
}

func (t *LoyaltyTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
