package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
)

const defaultPublishTimeout = 10 * time.Second

// Publisher is the minimal Pub/Sub surface the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) *gcppubsub.PublishResult
}

type pubsubNotifier struct {
	publisher Publisher
}

// NewPubSubNotifier returns a Notifier that publishes JSON events to the
// configured notification topic.
func NewPubSubNotifier(publisher Publisher) (Notifier, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	return &pubsubNotifier{publisher: publisher}, nil
}

func (n *pubsubNotifier) OrderConfirmed(ctx context.Context, userID uuid.UUID, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order required")
	}
	event := orderConfirmedEvent{
		Type:       EventOrderConfirmed,
		UserID:     userID,
		OrderID:    order.ID,
		Total:      order.Total.StringFixed(2),
		ItemCount:  len(order.Items),
		OccurredAt: time.Now().UTC(),
	}
	return n.publish(ctx, event, map[string]string{
		"event_type": EventOrderConfirmed,
		"user_id":    userID.String(),
	})
}

func (n *pubsubNotifier) CodesIssued(ctx context.Context, userID uuid.UUID, codes []models.DigitalCode) error {
	if len(codes) == 0 {
		return nil
	}
	event := codesIssuedEvent{
		Type:       EventCodesIssued,
		UserID:     userID,
		OrderID:    codes[0].OrderID,
		OccurredAt: time.Now().UTC(),
	}
	for _, code := range codes {
		event.Codes = append(event.Codes, codeEntry{
			Code:      code.Code,
			ProductID: code.ProductID,
			Type:      code.Type.String(),
		})
	}
	return n.publish(ctx, event, map[string]string{
		"event_type": EventCodesIssued,
		"user_id":    userID.String(),
	})
}

func (n *pubsubNotifier) publish(ctx context.Context, event any, attrs map[string]string) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := n.publisher.Publish(publishCtx, &gcppubsub.Message{
		Data:       payload,
		Attributes: attrs,
	})
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return err
	}
	return nil
}
