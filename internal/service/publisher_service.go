package service

import (
	"context"
	"encoding/json"

	"video-segmentation-be/internal/dto"
	"video-segmentation-be/internal/pkg/logger"
	"video-segmentation-be/pkg/events"
	pkgNats "video-segmentation-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IPublisherService fans session/propagation events out to the internal
// bus (consumed by the notification service) and, when configured, mirrors
// them onto NATS for external observers. Publishing is fire-and-forget:
// a broken bus never fails the operation that produced the event.
type IPublisherService interface {
	Publish(ctx context.Context, event events.Event)
}

type publisherService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	natsPub   *pkgNats.Publisher
	logger    logger.ILogger
}

func NewPublisherService(
	pubSub *gochannel.GoChannel,
	topicName string,
	natsPub *pkgNats.Publisher,
	log logger.ILogger,
) IPublisherService {
	return &publisherService{
		pubSub:    pubSub,
		topicName: topicName,
		natsPub:   natsPub,
		logger:    log,
	}
}

func (s *publisherService) Publish(ctx context.Context, event events.Event) {
	envelope := dto.EventMessage{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Error("PublisherService", "Failed to marshal event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.pubSub.Publish(s.topicName, msg); err != nil {
		s.logger.Error("PublisherService", "Failed to publish to internal bus", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}

	// NATS mirror is optional; natsPub is nil when the broker is absent.
	if err := s.natsPub.Publish(ctx, event); err != nil {
		s.logger.Warn("PublisherService", "Failed to mirror event to NATS", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
