package main

import (
	"context"
	"log"

	"video-segmentation-be/internal/bootstrap"
	"video-segmentation-be/internal/config"
	"video-segmentation-be/internal/server"
	"video-segmentation-be/internal/tracer"
	"video-segmentation-be/pkg/database"
	"video-segmentation-be/pkg/ffmpeg"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Preflight: ffmpeg is required for probing and uploads
	if err := ffmpeg.CheckInstallation(); err != nil {
		log.Printf("[WARN] %v — uploads and probing will fail", err)
	}

	// 3. Initialize Database (video catalog)
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.NatsPublisher.Close()
	defer container.Logger.Sync()

	// 5. Register gallery videos that aren't catalogued yet
	if err := container.VideoService.PreloadGallery(context.Background()); err != nil {
		log.Printf("[WARN] Gallery preload failed: %v", err)
	}

	// 6. Run Server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
