package mapper

import (
	"video-segmentation-be/internal/entity"
	"video-segmentation-be/internal/model"
)

type VideoMapper struct{}

func NewVideoMapper() *VideoMapper {
	return &VideoMapper{}
}

func (m *VideoMapper) ToEntity(v *model.Video) *entity.Video {
	if v == nil {
		return nil
	}
	return &entity.Video{
		Code:       v.Code,
		Path:       v.Path,
		PosterPath: v.PosterPath,
		Width:      v.Width,
		Height:     v.Height,
		FrameCount: v.FrameCount,
		FPS:        v.FPS,
		Source:     v.Source,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}

func (m *VideoMapper) ToModel(v *entity.Video) *model.Video {
	if v == nil {
		return nil
	}
	return &model.Video{
		Code:       v.Code,
		Path:       v.Path,
		PosterPath: v.PosterPath,
		Width:      v.Width,
		Height:     v.Height,
		FrameCount: v.FrameCount,
		FPS:        v.FPS,
		Source:     v.Source,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}

func (m *VideoMapper) ToEntities(models []*model.Video) []*entity.Video {
	entities := make([]*entity.Video, 0, len(models))
	for _, v := range models {
		entities = append(entities, m.ToEntity(v))
	}
	return entities
}
