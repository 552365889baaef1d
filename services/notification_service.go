// services/notification_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"loyalty-backend/models"
	"loyalty-backend/repository"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

const notificationRedemptionConfirmed = "redemption_confirmed"

// Notifier tells a customer that one of their coupons was just redeemed.
type Notifier interface {
	RedemptionConfirmed(ctx context.Context, customer *models.User, shop *models.Shop, finalized *FinalizedRedemption)
}

// MessageSender is the slice of the Twilio API the notifier uses.
type MessageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type NotificationService struct {
	sender MessageSender
	from   string
	logs   repository.NotificationLogRepository
	logger *zap.Logger
}

// NewTwilioNotificationService builds a Notifier backed by the Twilio REST
// API.
func NewTwilioNotificationService(accountSID, authToken, from string, logs repository.NotificationLogRepository, logger *zap.Logger) *NotificationService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewNotificationService(client.Api, from, logs, logger)
}

func NewNotificationService(sender MessageSender, from string, logs repository.NotificationLogRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{sender: sender, from: from, logs: logs, logger: logger}
}

func (s *NotificationService) RedemptionConfirmed(ctx context.Context, customer *models.User, shop *models.Shop, finalized *FinalizedRedemption) {
	message := confirmationMessage(customer, shop, finalized)

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(customer.Phone)
	params.SetFrom(s.from)
	params.SetBody(message)

	resp, err := s.sender.CreateMessage(params)
	status := "sent"
	errorMsg := ""

	if err != nil {
		s.logger.Warn("Failed to send redemption confirmation",
			zap.String("customer_id", customer.ID.String()),
			zap.Error(err),
		)
		status = "failed"
		errorMsg = err.Error()
	} else if resp != nil && resp.Sid != nil {
		s.logger.Info("Redemption confirmation sent",
			zap.String("customer_id", customer.ID.String()),
			zap.String("sid", *resp.Sid),
		)
	}

	entry := &models.NotificationLog{
		ShopID:       shop.ID,
		CustomerID:   customer.ID,
		RedemptionID: finalized.Redemption.ID,
		Type:         notificationRedemptionConfirmed,
		Message:      message,
		Status:       status,
		ErrorMessage: errorMsg,
		Channel:      "sms",
		SentAt:       time.Now().UTC(),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to log notification", zap.String("customer_id", customer.ID.String()), zap.Error(err))
	}
}

func confirmationMessage(customer *models.User, shop *models.Shop, finalized *FinalizedRedemption) string {
	name := customer.FirstName
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s, your coupon \"%s\" (%s) was redeemed at %s. %d points were used.",
		name,
		finalized.Coupon.Name,
		finalized.Redemption.Code,
		shop.Name,
		finalized.Redemption.PointsDeducted,
	)
}
