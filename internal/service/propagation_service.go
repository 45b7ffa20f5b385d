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
)

// FrameEvent is one element of a propagation stream: a frame's masks, or
// the terminal error that ended the run early. After an Err event the
// channel closes.
type FrameEvent struct {
	Result *dto.RLEMaskListOnFrame
	Err    error
}

// IPropagationService drives frame-by-frame mask propagation. Results flow
// over an unbuffered channel so a slow consumer backpressures the model
// instead of masks piling up in memory. At most one run per session.
type IPropagationService interface {
	Start(ctx context.Context, req *dto.PropagateInVideoRequest) (<-chan FrameEvent, error)
	Cancel(ctx context.Context, req *dto.CancelPropagateRequest) (*dto.CancelPropagateResponse, error)
}

type propagationService struct {
	sessions  *memory.SessionRepository
	predictor inference.Predictor
	publisher IPublisherService
	logger    logger.ILogger
}

func NewPropagationService(
	sessions *memory.SessionRepository,
	predictor inference.Predictor,
	publisher IPublisherService,
	log logger.ILogger,
) IPropagationService {
	return &propagationService{
		sessions:  sessions,
		predictor: predictor,
		publisher: publisher,
		logger:    log,
	}
}

// Start registers a run and launches the engine goroutine. The returned
// channel closes once the run reaches a terminal state; the caller's ctx
// cancelling (client disconnect) counts as cancellation.
func (s *propagationService) Start(ctx context.Context, req *dto.PropagateInVideoRequest) (<-chan FrameEvent, error) {
	session, err := lockLiveSession(s.sessions, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Run != nil {
		session.Mu.Unlock()
		return nil, fmt.Errorf("%w: session %s", ErrAlreadyRunning, req.SessionID)
	}
	if !session.ValidFrame(req.StartFrameIndex) {
		session.Mu.Unlock()
		return nil, fmt.Errorf("%w: start frame %d outside [0, %d)", ErrInvalidArgument, req.StartFrameIndex, session.FrameCount)
	}
	run := model.NewPropagationRun(ctx, req.StartFrameIndex)
	session.Run = run
	session.Mu.Unlock()

	s.publisher.Publish(ctx, events.PropagationStarted(session.ID, req.StartFrameIndex))

	ch := make(chan FrameEvent) // unbuffered: one in-flight frame, ever
	go s.run(session, run, ch)

	return ch, nil
}

func (s *propagationService) run(session *model.Session, run *model.PropagationRun, ch chan<- FrameEvent) {
	defer close(ch)

	var terminalErr error
	lastEmitted := run.StartFrame - 1

loop:
	for frame := run.StartFrame; frame < session.FrameCount; frame++ {
		// Cancellation is observed between frames, never mid-frame: a
		// frame either streams out complete or not at all.
		if run.Cancelled() {
			break
		}

		res, err := s.predictor.PropagateStep(run.Context(), inference.PropagateStepRequest{
			SessionID:  session.ID,
			FrameIndex: frame,
		})
		if err != nil {
			if run.Cancelled() {
				break
			}
			terminalErr = fmt.Errorf("%w: propagate frame %d: %v", ErrInferenceFailure, frame, err)
			break
		}

		mapped, err := toMaskListOnFrame(res)
		if err != nil {
			terminalErr = err
			break
		}

		select {
		case ch <- FrameEvent{Result: mapped}:
		case <-run.Context().Done():
			run.Cancel()
			break loop
		}

		lastEmitted = frame
		session.Mu.Lock()
		run.Cursor = frame
		session.Mu.Unlock()

		s.publisher.Publish(context.Background(), events.PropagationProgress(session.ID, frame, session.FrameCount))
	}

	if terminalErr != nil && !run.Cancelled() {
		select {
		case ch <- FrameEvent{Err: terminalErr}:
		case <-run.Context().Done():
		}
	}

	session.Mu.Lock()
	session.Run = nil
	session.Mu.Unlock()

	switch {
	case run.Cancelled():
		s.logger.Info("PropagationService", "Run cancelled", map[string]interface{}{
			"session_id": session.ID,
			"last_frame": lastEmitted,
		})
		s.publisher.Publish(context.Background(), events.PropagationCancelled(session.ID, lastEmitted))
		s.notifyCancel(session.ID)
	case terminalErr != nil:
		s.logger.Error("PropagationService", "Run failed", map[string]interface{}{
			"session_id": session.ID,
			"error":      terminalErr.Error(),
		})
		s.publisher.Publish(context.Background(), events.PropagationFailed(session.ID, lastEmitted+1, terminalErr))
	default:
		s.publisher.Publish(context.Background(), events.PropagationCompleted(session.ID, lastEmitted))
	}
}

// notifyCancel tells the model server to drop whatever step it has queued.
// Best effort; the run is already over from the caller's point of view.
func (s *propagationService) notifyCancel(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.predictor.CancelPropagate(ctx, inference.CancelPropagateRequest{SessionID: sessionID}); err != nil {
		s.logger.Warn("PropagationService", "Failed to notify predictor of cancel", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// Cancel flips the run's cancel flag and returns immediately; the stream
// winds down on its own. Cancelling a session with no active run is a
// no-op success, an unknown session reports success=false.
func (s *propagationService) Cancel(ctx context.Context, req *dto.CancelPropagateRequest) (*dto.CancelPropagateResponse, error) {
	session, err := lockLiveSession(s.sessions, req.SessionID)
	if err != nil {
		return &dto.CancelPropagateResponse{Success: false}, nil
	}
	run := session.Run
	session.Mu.Unlock()

	if run != nil {
		run.Cancel()
	}

	return &dto.CancelPropagateResponse{Success: true}, nil
}
