package service

import (
	"context"
	"fmt"
	"time"

	"video-segmentation-be/internal/dto"
	"video-segmentation-be/internal/model"
	"video-segmentation-be/internal/pkg/logger"
	"video-segmentation-be/internal/repository/memory"
	"video-segmentation-be/pkg/events"
	"video-segmentation-be/pkg/inference"

	"github.com/google/uuid"
)

// ResolvedVideo is what the catalog knows about a playable video on disk.
type ResolvedVideo struct {
	AbsPath    string
	Width      int
	Height     int
	FrameCount int
}

// VideoResolver turns a client-supplied video path into catalog metadata.
// Implemented by the video service; faked in tests.
type VideoResolver interface {
	Resolve(ctx context.Context, path string) (*ResolvedVideo, error)
}

type ISessionService interface {
	StartSession(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	CloseSession(ctx context.Context, req *dto.CloseSessionRequest) (*dto.CloseSessionResponse, error)

	// Reclaim tears a session down. Registered as the store's reclaim
	// handler so explicit closes and TTL evictions share one path.
	Reclaim(session *model.Session)
}

type sessionService struct {
	sessions  *memory.SessionRepository
	resolver  VideoResolver
	predictor inference.Predictor
	publisher IPublisherService
	logger    logger.ILogger
}

func NewSessionService(
	sessions *memory.SessionRepository,
	resolver VideoResolver,
	predictor inference.Predictor,
	publisher IPublisherService,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		sessions:  sessions,
		resolver:  resolver,
		predictor: predictor,
		publisher: publisher,
		logger:    log,
	}
}

func (s *sessionService) StartSession(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	video, err := s.resolver.Resolve(ctx, req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown video path %q: %v", ErrInvalidArgument, req.Path, err)
	}

	sessionID := uuid.NewString()

	_, err = s.predictor.StartSession(ctx, inference.StartSessionRequest{
		Path:      video.AbsPath,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: start session: %v", ErrInferenceFailure, err)
	}

	session := model.NewSession(sessionID, video.AbsPath, video.Width, video.Height, video.FrameCount)
	s.sessions.Save(session)

	s.logger.Info("SessionService", "Session started", map[string]interface{}{
		"session_id":  sessionID,
		"video_path":  video.AbsPath,
		"frame_count": video.FrameCount,
	})
	s.publisher.Publish(ctx, events.SessionStarted(sessionID, video.AbsPath))

	return &dto.StartSessionResponse{SessionID: sessionID}, nil
}

// CloseSession is idempotent: closing an unknown or already-expired session
// reports success=false instead of erroring.
func (s *sessionService) CloseSession(ctx context.Context, req *dto.CloseSessionRequest) (*dto.CloseSessionResponse, error) {
	success := s.sessions.Delete(req.SessionID)
	if success {
		s.publisher.Publish(ctx, events.SessionClosed(req.SessionID))
	}
	return &dto.CloseSessionResponse{Success: success}, nil
}

func (s *sessionService) Reclaim(session *model.Session) {
	session.Mu.Lock()
	if session.Closed {
		session.Mu.Unlock()
		return
	}
	session.Closed = true
	run := session.Run
	session.Mu.Unlock()

	if run != nil {
		run.Cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.predictor.CloseSession(ctx, inference.CloseSessionRequest{SessionID: session.ID}); err != nil {
		s.logger.Warn("SessionService", "Failed to close predictor session", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}

	s.logger.Info("SessionService", "Session reclaimed", map[string]interface{}{
		"session_id": session.ID,
		"run_active": run != nil,
	})
}
