package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"video-segmentation-be/internal/config"
	"video-segmentation-be/pkg/events"
	"video-segmentation-be/pkg/nats"
)

// Tails the SEGMENTATION stream and prints every event. Handy while
// developing frontends against the websocket feed, or for checking that
// the NATS mirror is receiving traffic.
func main() {
	cfg := config.Load()

	subscriber, err := nats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Error: Failed to connect to NATS: %v", err)
	}
	defer subscriber.Close()

	err = subscriber.Subscribe("segmentation.>", "eventtail", func(_ context.Context, event events.Event) error {
		payload, err := json.Marshal(event.Payload())
		if err != nil {
			return err
		}
		log.Printf("%s %s", event.EventType(), payload)
		return nil
	})
	if err != nil {
		log.Fatalf("Error: Failed to subscribe: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
