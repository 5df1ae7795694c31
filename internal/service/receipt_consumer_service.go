package service

import (
	"context"
	"encoding/json"

	"heartlink-be/internal/dto"
	"heartlink-be/internal/pkg/logger"
	"heartlink-be/internal/pkg/mailer"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IReceiptConsumerService interface {
	Consume(ctx context.Context) error
}

// receiptConsumerService drains the activation pipeline and sends receipt
// emails. Mail delivery is best effort: a failed send is logged and the
// message acknowledged, never retried into the user's inbox twice.
type receiptConsumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	mailer    mailer.IEmailService
	log       logger.ILogger
}

func NewReceiptConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	emailService mailer.IEmailService,
	log logger.ILogger,
) IReceiptConsumerService {
	return &receiptConsumerService{
		pubSub:    pubSub,
		topicName: topicName,
		mailer:    emailService,
		log:       log,
	}
}

func (cs *receiptConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *receiptConsumerService) processMessage(msg *message.Message) {
	var payload dto.SubscriptionActivatedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("receipt_consumer", "failed to unmarshal receipt message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // malformed messages are not retriable
		return
	}

	if cs.mailer == nil {
		msg.Ack()
		return
	}

	err := cs.mailer.SendSubscriptionReceipt(
		payload.Email,
		payload.FullName,
		payload.PlanName,
		payload.Amount,
		payload.Currency,
		payload.PeriodEnd,
	)
	if err != nil {
		cs.log.Warn("receipt_consumer", "failed to send receipt email", map[string]interface{}{
			"user_id": payload.UserId,
			"email":   payload.Email,
			"error":   err.Error(),
		})
	} else {
		cs.log.Info("receipt_consumer", "receipt email sent", map[string]interface{}{
			"user_id": payload.UserId,
			"email":   payload.Email,
		})
	}
	msg.Ack()
}
