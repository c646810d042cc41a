package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
)

const (
	EventOrderConfirmed = "order.confirmed"
	EventCodesIssued    = "codes.issued"
)

// Notifier is the fire-and-forget notification sink. Callers log failures
// and never propagate them into the checkout result.
type Notifier interface {
	OrderConfirmed(ctx context.Context, userID uuid.UUID, order *models.Order) error
	CodesIssued(ctx context.Context, userID uuid.UUID, codes []models.DigitalCode) error
}

// orderConfirmedEvent is the published payload for a completed checkout.
type orderConfirmedEvent struct {
	Type       string    `json:"type"`
	UserID     uuid.UUID `json:"user_id"`
	OrderID    uuid.UUID `json:"order_id"`
	Total      string    `json:"total"`
	ItemCount  int       `json:"item_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

// codesIssuedEvent carries the full code batch so one message can render a
// single delivery email.
type codesIssuedEvent struct {
	Type       string      `json:"type"`
	UserID     uuid.UUID   `json:"user_id"`
	OrderID    uuid.UUID   `json:"order_id"`
	Codes      []codeEntry `json:"codes"`
	OccurredAt time.Time   `json:"occurred_at"`
}

type codeEntry struct {
	Code      string    `json:"code"`
	ProductID uuid.UUID `json:"product_id"`
	Type      string    `json:"type"`
}
