package models

import (
	"time"

	"github.com/google/uuid"
)

// LoyaltyAccount holds the current point balance for a user. Balance is
// only ever changed through guarded updates alongside a matching
// LoyaltyTransaction row, so the sum of transaction deltas always equals
// the balance.
type LoyaltyAccount struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Balance   int       `gorm:"column:balance;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
