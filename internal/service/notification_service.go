package service

import (
	"context"
	"encoding/json"

	"video-segmentation-be/internal/dto"
	"video-segmentation-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// NotificationDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Broadcast(message dto.EventMessage)
}

// NotificationService relays session and propagation events from the
// internal bus to connected websocket observers. It keeps no history:
// clients that connect mid-run only see events from then on.
type NotificationService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	delivery  NotificationDelivery
	logger    logger.ILogger
}

func NewNotificationService(
	pubSub *gochannel.GoChannel,
	topicName string,
	delivery NotificationDelivery,
	log logger.ILogger,
) *NotificationService {
	return &NotificationService{
		pubSub:    pubSub,
		topicName: topicName,
		delivery:  delivery,
		logger:    log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to subscribe to event bus", map[string]interface{}{"error": err.Error()})
		return err
	}

	go func() {
		for msg := range messages {
			s.handleMessage(msg)
		}
	}()

	s.logger.Info("NotificationService", "Notification service started", map[string]interface{}{"topic": s.topicName})
	return nil
}

func (s *NotificationService) handleMessage(msg *message.Message) {
	var envelope dto.EventMessage
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		s.logger.Warn("NotificationService", "Dropping malformed event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if s.delivery != nil {
		s.delivery.Broadcast(envelope)
	}
	msg.Ack()
}
