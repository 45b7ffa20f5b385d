package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-segmentation-be/internal/config"
	"video-segmentation-be/internal/dto"
	"video-segmentation-be/internal/entity"
	"video-segmentation-be/internal/pkg/logger"
	"video-segmentation-be/internal/repository/specification"
	"video-segmentation-be/internal/repository/unitofwork"
	"video-segmentation-be/pkg/ffmpeg"

	"github.com/google/uuid"
)

type IVideoService interface {
	VideoResolver

	DefaultVideo(ctx context.Context) (*dto.VideoResponse, error)
	ListVideos(ctx context.Context) ([]*dto.VideoResponse, error)
	UploadVideo(ctx context.Context, file *multipart.FileHeader, req *dto.UploadVideoRequest) (*dto.VideoResponse, error)

	// PreloadGallery scans the gallery directory and registers any video
	// the catalog does not know yet. Called once on startup.
	PreloadGallery(ctx context.Context) error
}

type videoService struct {
	uowFactory unitofwork.RepositoryFactory
	data       config.DataConfig
	baseURL    string
	logger     logger.ILogger
}

func NewVideoService(
	uowFactory unitofwork.RepositoryFactory,
	data config.DataConfig,
	baseURL string,
	log logger.ILogger,
) IVideoService {
	return &videoService{
		uowFactory: uowFactory,
		data:       data,
		baseURL:    baseURL,
		logger:     log,
	}
}

// Resolve maps a client-supplied relative path onto a catalog entry. Paths
// that escape the data directory are rejected before any disk access.
func (s *videoService) Resolve(ctx context.Context, path string) (*ResolvedVideo, error) {
	rel, err := s.safeRelPath(path)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	video, err := uow.VideoRepository().FindOne(ctx, specification.ByPath{Path: rel})
	if err != nil {
		return nil, err
	}

	absPath := filepath.Join(s.data.DataPath, rel)
	if video != nil {
		return &ResolvedVideo{
			AbsPath:    absPath,
			Width:      video.Width,
			Height:     video.Height,
			FrameCount: video.FrameCount,
		}, nil
	}

	// Not catalogued; probe the file directly so sessions can still start
	// on videos dropped into the data directory by hand.
	meta, err := ffmpeg.Probe(ctx, absPath)
	if err != nil {
		return nil, fmt.Errorf("video %q not found: %w", rel, err)
	}
	return &ResolvedVideo{
		AbsPath:    absPath,
		Width:      meta.Width,
		Height:     meta.Height,
		FrameCount: meta.NumVideoFrames,
	}, nil
}

func (s *videoService) DefaultVideo(ctx context.Context) (*dto.VideoResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if s.data.DefaultVideoPath != "" {
		video, err := uow.VideoRepository().FindOne(ctx, specification.ByPath{Path: s.data.DefaultVideoPath})
		if err != nil {
			return nil, err
		}
		if video != nil {
			return s.toResponse(video), nil
		}
	}

	// Fall back to the oldest gallery entry.
	videos, err := uow.VideoRepository().FindAll(ctx,
		specification.BySource{Source: entity.VideoSourceGallery},
		specification.OrderByCreatedAt{},
	)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("%w: no videos in catalog", ErrInvalidArgument)
	}
	return s.toResponse(videos[0]), nil
}

func (s *videoService) ListVideos(ctx context.Context) ([]*dto.VideoResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	videos, err := uow.VideoRepository().FindAll(ctx, specification.OrderByCreatedAt{})
	if err != nil {
		return nil, err
	}

	result := make([]*dto.VideoResponse, 0, len(videos))
	for _, video := range videos {
		result = append(result, s.toResponse(video))
	}
	return result, nil
}

// UploadVideo normalizes an upload (seek, trim to the configured maximum,
// H.264, even dimensions) and registers it under a content-addressed name,
// so re-uploading identical content lands on the same catalog entry.
func (s *videoService) UploadVideo(ctx context.Context, file *multipart.FileHeader, req *dto.UploadVideoRequest) (*dto.VideoResponse, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open upload: %v", ErrInvalidArgument, err)
	}
	defer src.Close()

	inTmp, err := os.CreateTemp("", "upload-in-*"+filepath.Ext(file.Filename))
	if err != nil {
		return nil, err
	}
	defer os.Remove(inTmp.Name())
	if _, err := io.Copy(inTmp, src); err != nil {
		inTmp.Close()
		return nil, err
	}
	inTmp.Close()

	meta, err := ffmpeg.Probe(ctx, inTmp.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable video: %v", ErrInvalidArgument, err)
	}
	if meta.NumVideoStreams != 1 {
		return nil, fmt.Errorf("%w: expected 1 video stream, got %d", ErrInvalidArgument, meta.NumVideoStreams)
	}

	seek := s.data.UploadEncodeSeekTime
	if req.StartTimeSec != nil {
		seek = *req.StartTimeSec
	}
	duration := s.data.MaxUploadDurationSec
	if req.DurationTimeSec != nil && *req.DurationTimeSec < duration {
		duration = *req.DurationTimeSec
	}
	if remaining := meta.DurationSec - seek; remaining < duration {
		duration = remaining
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: nothing to encode (duration %.2fs, seek %.2fs)", ErrInvalidArgument, meta.DurationSec, seek)
	}

	outTmp := inTmp.Name() + ".out.mp4"
	defer os.Remove(outTmp)
	if err := ffmpeg.Transcode(ctx, inTmp.Name(), outTmp, seek, duration); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	hash, err := fileSHA256(outTmp)
	if err != nil {
		return nil, err
	}
	relPath := filepath.ToSlash(filepath.Join(s.data.UploadsPrefix, hash+".mp4"))
	destPath := filepath.Join(s.data.UploadsPath, hash+".mp4")

	if err := os.MkdirAll(s.data.UploadsPath, 0o755); err != nil {
		return nil, err
	}
	if err := moveFile(outTmp, destPath); err != nil {
		return nil, err
	}

	outMeta, err := ffmpeg.Probe(ctx, destPath)
	if err != nil {
		return nil, err
	}

	video, err := s.register(ctx, relPath, nil, outMeta, entity.VideoSourceUpload)
	if err != nil {
		return nil, err
	}

	s.logger.Info("VideoService", "Video uploaded", map[string]interface{}{
		"path":     relPath,
		"duration": duration,
		"frames":   outMeta.NumVideoFrames,
	})

	return s.toResponse(video), nil
}

func (s *videoService) PreloadGallery(ctx context.Context) error {
	entries, err := os.ReadDir(s.data.GalleryPath)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("VideoService", "Gallery directory missing, skipping preload", map[string]interface{}{"path": s.data.GalleryPath})
			return nil
		}
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".mp4") {
			continue
		}
		relPath := filepath.ToSlash(filepath.Join(s.data.GalleryPrefix, e.Name()))

		existing, err := uow.VideoRepository().FindOne(ctx, specification.ByPath{Path: relPath})
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		absPath := filepath.Join(s.data.GalleryPath, e.Name())
		meta, err := ffmpeg.Probe(ctx, absPath)
		if err != nil {
			s.logger.Warn("VideoService", "Skipping unreadable gallery file", map[string]interface{}{
				"path":  absPath,
				"error": err.Error(),
			})
			continue
		}

		poster := s.posterFor(e.Name())
		if _, err := s.register(ctx, relPath, poster, meta, entity.VideoSourceGallery); err != nil {
			return err
		}
		s.logger.Info("VideoService", "Gallery video registered", map[string]interface{}{"path": relPath})
	}
	return nil
}

// posterFor returns the data-relative poster path when a matching jpg
// exists next to the gallery video.
func (s *videoService) posterFor(videoName string) *string {
	base := strings.TrimSuffix(videoName, filepath.Ext(videoName))
	posterAbs := filepath.Join(s.data.PostersPath, base+".jpg")
	if _, err := os.Stat(posterAbs); err != nil {
		return nil
	}
	rel := filepath.ToSlash(filepath.Join(s.data.PostersPrefix, base+".jpg"))
	return &rel
}

func (s *videoService) register(ctx context.Context, relPath string, posterPath *string, meta ffmpeg.Metadata, source string) (*entity.Video, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	video, err := uow.VideoRepository().FindOne(ctx, specification.ByPath{Path: relPath})
	if err != nil {
		return nil, err
	}

	if video != nil {
		now := time.Now()
		video.PosterPath = posterPath
		video.Width = meta.Width
		video.Height = meta.Height
		video.FrameCount = meta.NumVideoFrames
		video.FPS = meta.FPS
		video.UpdatedAt = &now
		if err := uow.VideoRepository().Update(ctx, video); err != nil {
			return nil, err
		}
		return video, nil
	}

	video = &entity.Video{
		Code:       uuid.New(),
		Path:       relPath,
		PosterPath: posterPath,
		Width:      meta.Width,
		Height:     meta.Height,
		FrameCount: meta.NumVideoFrames,
		FPS:        meta.FPS,
		Source:     source,
		CreatedAt:  time.Now(),
	}
	if err := uow.VideoRepository().Create(ctx, video); err != nil {
		return nil, err
	}
	return video, nil
}

func (s *videoService) toResponse(video *entity.Video) *dto.VideoResponse {
	res := &dto.VideoResponse{
		ID:         video.Code.String(),
		Height:     video.Height,
		Width:      video.Width,
		URL:        s.baseURL + "/" + video.Path,
		Path:       video.Path,
		PosterPath: video.PosterPath,
	}
	if video.PosterPath != nil {
		posterURL := s.baseURL + "/" + *video.PosterPath
		res.PosterURL = &posterURL
	}
	return res
}

// safeRelPath normalizes a client path and rejects anything that would
// escape the data directory.
func (s *videoService) safeRelPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty video path", ErrInvalidArgument)
	}
	cleaned := filepath.ToSlash(filepath.Clean(path))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: path %q escapes data directory", ErrInvalidArgument, path)
	}
	return cleaned, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// moveFile renames, falling back to copy for cross-device temp dirs.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
