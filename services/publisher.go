package services

import (
	"context"
	"encoding/json"
	"fmt"

	"loyalty-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
)

const (
	EventCouponActivated = "coupon_activated"
	EventCouponRedeemed  = "coupon_redeemed"
	EventCouponCancelled = "coupon_cancelled"
)

// EventPublisher sends a raw message to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topicArn string, message []byte) error
}

// SNSPublisher publishes redemption events to AWS SNS.
type SNSPublisher struct {
	client *sns.Client
}

// NewSNSPublisher loads the default AWS config. A non-empty endpoint points
// the client at LocalStack or another SNS-compatible service.
func NewSNSPublisher(ctx context.Context, endpoint string) (*SNSPublisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := sns.NewFromConfig(cfg, func(o *sns.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &SNSPublisher{client: client}, nil
}

func (p *SNSPublisher) Publish(ctx context.Context, topicArn string, message []byte) error {
	if topicArn == "" {
		return fmt.Errorf("empty topicArn")
	}
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topicArn),
		Message:  aws.String(string(message)),
	})
	if err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", topicArn, err)
	}
	return nil
}

// eventEmitter wraps an optional publisher. Publishing never fails the
// caller's operation.
type eventEmitter struct {
	publisher EventPublisher
	topicArn  string
	logger    *zap.Logger
}

func (e eventEmitter) emit(ctx context.Context, eventType string, r *models.Redemption) {
	if e.publisher == nil || e.topicArn == "" {
		return
	}

	event := models.RedemptionEvent{
		EventType:      eventType,
		RedemptionID:   r.Code,
		CouponID:       r.CouponID.String(),
		CustomerID:     r.CustomerID.String(),
		ShopID:         r.ShopID.String(),
		PointsDeducted: r.PointsDeducted,
		Discount:       r.DiscountApplied,
		Timestamp:      r.UpdatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("Failed to marshal redemption event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if err := e.publisher.Publish(ctx, e.topicArn, payload); err != nil {
		e.logger.Error("Failed to publish redemption event",
			zap.String("event_type", eventType),
			zap.String("redemption_id", r.Code),
			zap.Error(err),
		)
		return
	}
	e.logger.Debug("Published redemption event", zap.String("event_type", eventType), zap.String("redemption_id", r.Code))
}
