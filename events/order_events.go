package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/luxurytech30-cpu/meiza-font/models"
	awspkg "github.com/luxurytech30-cpu/meiza-font/pkg/aws"
	"go.uber.org/zap"
)

// OrderEvents publishes order lifecycle events to an SNS topic.
type OrderEvents struct {
	snsClient   awspkg.SNSPublisher
	snsTopicArn string
	logger      *zap.Logger
}

func NewOrderEvents(snsClient awspkg.SNSPublisher, snsTopicArn string, logger *zap.Logger) *OrderEvents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderEvents{
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		logger:      logger,
	}
}

// PublishOrderPlaced is a no-op when no topic is configured.
func (o *OrderEvents) PublishOrderPlaced(ctx context.Context, event models.OrderPlacedEvent) error {
	if o.snsClient == nil || o.snsTopicArn == "" {
		o.logger.Debug("SNS not configured, skipping event publish", zap.String("order_id", event.OrderID))
		return nil
	}
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType, err)
	}
	id, err := o.snsClient.Publish(ctx, o.snsTopicArn, b, map[string]string{
		"event_type":     event.EventType,
		"payment_method": string(event.PaymentMethod),
	})
	if err != nil {
		return err
	}
	o.logger.Info("Published order event",
		zap.String("message_id", id),
		zap.String("event_type", event.EventType),
		zap.String("order_id", event.OrderID))
	return nil
}
