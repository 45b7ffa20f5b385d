package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	VideoSourceGallery = "gallery"
	VideoSourceUpload  = "upload"
)

// Video is one entry of the gallery/upload catalog. Code is the public
// identifier clients use in API responses; Path is relative to the data
// directory and doubles as the value passed to start_session.
type Video struct {
	Code       uuid.UUID
	Path       string
	PosterPath *string
	Width      int
	Height     int
	FrameCount int
	FPS        float64
	Source     string // "gallery" | "upload"
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
