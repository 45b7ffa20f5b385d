package main

import (
	"context"
	"log"

	"video-segmentation-be/internal/config"
	"video-segmentation-be/internal/pkg/logger"
	"video-segmentation-be/internal/repository/unitofwork"
	"video-segmentation-be/internal/service"
	"video-segmentation-be/pkg/database"
	"video-segmentation-be/pkg/ffmpeg"
)

// Seeds the video catalog from the gallery directory. Safe to re-run:
// already-registered paths are skipped.
func main() {
	cfg := config.Load()

	if err := ffmpeg.CheckInstallation(); err != nil {
		log.Fatalf("Error: %v", err)
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, false)
	defer sysLogger.Sync()

	uowFactory := unitofwork.NewRepositoryFactory(db)
	videoService := service.NewVideoService(uowFactory, cfg.Data, cfg.App.BaseURL, sysLogger)

	if err := videoService.PreloadGallery(context.Background()); err != nil {
		log.Fatal("Error: Gallery seed failed:", err)
	}

	log.Println("Gallery seed complete.")
}
