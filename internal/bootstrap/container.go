package bootstrap

import (
	"context"
	"log"

	"video-segmentation-be/internal/config"
	"video-segmentation-be/internal/controller"
	"video-segmentation-be/internal/handler"
	"video-segmentation-be/internal/pkg/logger"
	"video-segmentation-be/internal/pkg/serverutils"
	"video-segmentation-be/internal/repository/memory"
	"video-segmentation-be/internal/repository/unitofwork"
	"video-segmentation-be/internal/service"
	"video-segmentation-be/internal/websocket"
	"video-segmentation-be/pkg/inference/factory"

	pkgNats "video-segmentation-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

// eventTopic is the internal bus topic session/propagation events travel on.
const eventTopic = "segmentation_events"

type Container struct {
	// Controllers
	SessionController      controller.ISessionController
	SegmentationController controller.ISegmentationController
	VideoController        controller.IVideoController

	// Exposed for main.go (gallery preload on startup)
	VideoService service.IVideoService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	// Held for shutdown
	NatsPublisher *pkgNats.Publisher
	Logger        logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// NATS mirror is optional: a missing broker downgrades to internal-only
	// event delivery.
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	// 3. Inference collaborator
	predictor, err := factory.NewPredictor(
		cfg.Inference.Provider,
		cfg.Inference.BaseURL,
		cfg.Inference.SyntheticHeight,
		cfg.Inference.SyntheticWidth,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize inference provider: %v", err)
	}
	log.Printf("[INFO] Using inference provider: %s", cfg.Inference.Provider)

	// 4. WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(wsLogger)
	go wsHub.Run()

	// 5. Services
	publisherService := service.NewPublisherService(pubSub, eventTopic, natsPub, sysLogger)

	videoService := service.NewVideoService(uowFactory, cfg.Data, cfg.App.BaseURL, sysLogger)

	sessionRepo := memory.NewSessionRepository(cfg.Session.TTL, cfg.Session.SweepInterval)
	sessionService := service.NewSessionService(sessionRepo, videoService, predictor, publisherService, sysLogger)
	// Explicit closes and TTL evictions share one teardown path.
	sessionRepo.SetReclaimHandler(sessionService.Reclaim)

	segmentationService := service.NewSegmentationService(sessionRepo, predictor, publisherService, sysLogger)
	propagationService := service.NewPropagationService(sessionRepo, predictor, publisherService, sysLogger)

	notifService := service.NewNotificationService(pubSub, eventTopic, wsHub, wsLogger)
	if err := notifService.Start(context.Background()); err != nil {
		log.Printf("[WARN] Notification relay not running: %v", err)
	}

	notifHandler := handler.NewNotificationHandler(wsHub, wsLogger)

	// 6. Controllers
	return &Container{
		SessionController:      controller.NewSessionController(sessionService),
		SegmentationController: controller.NewSegmentationController(segmentationService, propagationService),
		VideoController:        controller.NewVideoController(videoService, serverutils.NewJwtMiddleware(cfg.App.JWTSecret)),

		VideoService: videoService,

		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,

		NatsPublisher: natsPub,
		Logger:        sysLogger,
	}
}
