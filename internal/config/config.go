package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Data      DataConfig
	Session   SessionConfig
	Inference InferenceConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	JWTSecret          string // empty disables bearer protection of upload routes
}

type DatabaseConfig struct {
	Connection string
}

type DataConfig struct {
	DataPath              string
	GalleryPath           string
	GalleryPrefix         string
	PostersPath           string
	PostersPrefix         string
	UploadsPath           string
	UploadsPrefix         string
	DefaultVideoPath      string
	MaxUploadDurationSec  float64
	UploadEncodeSeekTime  float64
}

type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

type InferenceConfig struct {
	Provider string // "remote" or "synthetic"
	BaseURL  string
	// Frame size the synthetic provider renders when no model server is
	// configured.
	SyntheticHeight int
	SyntheticWidth  int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "5000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:5000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			JWTSecret:          getEnv("API_JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Data: DataConfig{
			DataPath:             getEnv("DATA_PATH", "./data"),
			GalleryPath:          getEnv("GALLERY_PATH", "./data/gallery"),
			GalleryPrefix:        getEnv("GALLERY_PREFIX", "gallery"),
			PostersPath:          getEnv("POSTERS_PATH", "./data/posters"),
			PostersPrefix:        getEnv("POSTERS_PREFIX", "posters"),
			UploadsPath:          getEnv("UPLOADS_PATH", "./data/uploads"),
			UploadsPrefix:        getEnv("UPLOADS_PREFIX", "uploads"),
			DefaultVideoPath:     getEnv("DEFAULT_VIDEO_PATH", ""),
			MaxUploadDurationSec: getEnvAsFloat("MAX_UPLOAD_VIDEO_DURATION", 10.0),
			UploadEncodeSeekTime: getEnvAsFloat("VIDEO_ENCODE_SEEK_TIME", 0),
		},
		Session: SessionConfig{
			TTL:           getEnvAsDuration("SESSION_TTL", 1*time.Hour),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		},
		Inference: InferenceConfig{
			Provider:        getEnv("INFERENCE_PROVIDER", "remote"),
			BaseURL:         getEnv("INFERENCE_BASE_URL", "http://localhost:7861"),
			SyntheticHeight: getEnvAsInt("SYNTHETIC_FRAME_HEIGHT", 480),
			SyntheticWidth:  getEnvAsInt("SYNTHETIC_FRAME_WIDTH", 854),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
