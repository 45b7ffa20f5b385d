package model

import (
	"time"

	"github.com/google/uuid"
)

type Video struct {
	Code       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Path       string    `gorm:"type:text;not null;uniqueIndex"`
	PosterPath *string   `gorm:"type:text"`
	Width      int       `gorm:"not null"`
	Height     int       `gorm:"not null"`
	FrameCount int       `gorm:"not null"`
	FPS        float64
	Source     string    `gorm:"type:varchar(16);not null;default:'upload'"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  *time.Time
}

func (Video) TableName() string {
	return "videos"
}
