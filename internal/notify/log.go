package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	"github.com/pixelgrove/gamecrate-backend/pkg/logger"
)

type logNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier returns a Notifier that only logs. Used when no Pub/Sub
// project is configured, typically local runs.
func NewLogNotifier(logg *logger.Logger) (Notifier, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &logNotifier{logg: logg}, nil
}

func (n *logNotifier) OrderConfirmed(ctx context.Context, userID uuid.UUID, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order required")
	}
	ctx = n.logg.WithFields(ctx, map[string]any{
		"user_id":  userID,
		"order_id": order.ID,
		"total":    order.Total.StringFixed(2),
	})
	n.logg.Info(ctx, "order confirmation notification")
	return nil
}

func (n *logNotifier) CodesIssued(ctx context.Context, userID uuid.UUID, codes []models.DigitalCode) error {
	if len(codes) == 0 {
		return nil
	}
	ctx = n.logg.WithFields(ctx, map[string]any{
		"user_id":  userID,
		"order_id": codes[0].OrderID,
		"count":    len(codes),
	})
	n.logg.Info(ctx, "codes issued notification")
	return nil
}
