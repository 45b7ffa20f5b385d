package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByCode filters videos by their public code.
type ByCode struct {
	Code uuid.UUID
}

func (s ByCode) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("code = ?", s.Code)
}

// ByPath filters videos by their data-relative path.
type ByPath struct {
	Path string
}

func (s ByPath) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("path = ?", s.Path)
}

// BySource filters videos by origin ("gallery" or "upload").
type BySource struct {
	Source string
}

func (s BySource) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source = ?", s.Source)
}

// OrderByCreatedAt sorts oldest first so gallery listings are stable.
type OrderByCreatedAt struct{}

func (s OrderByCreatedAt) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}
