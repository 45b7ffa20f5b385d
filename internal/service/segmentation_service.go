package service

import (
	"context"
	"fmt"
	"sort"

	"video-segmentation-be/internal/dto"
	"video-segmentation-be/internal/model"
	"video-segmentation-be/internal/pkg/logger"
	"video-segmentation-be/internal/repository/memory"
	"video-segmentation-be/pkg/events"
	"video-segmentation-be/pkg/inference"
	"video-segmentation-be/pkg/mask"
)

// ISegmentationService covers the per-frame annotation edits. Every edit is
// applied to the model first and recorded locally only on success, so the
// session's annotation bookkeeping never runs ahead of the model state.
type ISegmentationService interface {
	AddPoints(ctx context.Context, req *dto.AddPointsRequest) (*dto.RLEMaskListOnFrame, error)
	ClearPointsInFrame(ctx context.Context, req *dto.ClearPointsInFrameRequest) (*dto.RLEMaskListOnFrame, error)
	ClearPointsInVideo(ctx context.Context, req *dto.ClearPointsInVideoRequest) (*dto.ClearPointsInVideoResponse, error)
	RemoveObject(ctx context.Context, req *dto.RemoveObjectRequest) ([]dto.RLEMaskListOnFrame, error)
}

type segmentationService struct {
	sessions  *memory.SessionRepository
	predictor inference.Predictor
	publisher IPublisherService
	logger    logger.ILogger
}

func NewSegmentationService(
	sessions *memory.SessionRepository,
	predictor inference.Predictor,
	publisher IPublisherService,
	log logger.ILogger,
) ISegmentationService {
	return &segmentationService{
		sessions:  sessions,
		predictor: predictor,
		publisher: publisher,
		logger:    log,
	}
}

// lockLiveSession fetches a session and acquires its mutex, which
// serializes same-session operations while distinct sessions proceed in
// parallel. Closed is re-checked under the lock: a reclaim can land between
// the store lookup and the lock, and no operation may proceed against a
// torn-down predictor session. The caller unlocks.
func lockLiveSession(sessions *memory.SessionRepository, id string) (*model.Session, error) {
	session, ok := sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	session.Mu.Lock()
	if session.Closed {
		session.Mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

func (s *segmentationService) AddPoints(ctx context.Context, req *dto.AddPointsRequest) (*dto.RLEMaskListOnFrame, error) {
	session, err := lockLiveSession(s.sessions, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer session.Mu.Unlock()

	if !session.ValidFrame(req.FrameIndex) {
		return nil, fmt.Errorf("%w: frame index %d outside [0, %d)", ErrInvalidArgument, req.FrameIndex, session.FrameCount)
	}
	if len(req.Points) != len(req.Labels) {
		return nil, fmt.Errorf("%w: %d points but %d labels", ErrInvalidArgument, len(req.Points), len(req.Labels))
	}
	for _, label := range req.Labels {
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("%w: label %d (want 0 or 1)", ErrInvalidArgument, label)
		}
	}

	res, err := s.predictor.AddPoints(ctx, inference.AddPointsRequest{
		SessionID:      req.SessionID,
		FrameIndex:     req.FrameIndex,
		ClearOldPoints: req.ClearOldPoints,
		ObjectID:       req.ObjectID,
		Labels:         req.Labels,
		Points:         req.Points,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: add points: %v", ErrInferenceFailure, err)
	}

	obj, _ := session.Object(req.ObjectID, true)
	points := make([]model.Point, 0, len(req.Points))
	for i, p := range req.Points {
		points = append(points, model.Point{X: p[0], Y: p[1], Label: req.Labels[i]})
	}
	if req.ClearOldPoints {
		obj.PointsByFrame[req.FrameIndex] = points
	} else {
		obj.PointsByFrame[req.FrameIndex] = append(obj.PointsByFrame[req.FrameIndex], points...)
	}

	return toMaskListOnFrame(res)
}

func (s *segmentationService) ClearPointsInFrame(ctx context.Context, req *dto.ClearPointsInFrameRequest) (*dto.RLEMaskListOnFrame, error) {
	session, err := lockLiveSession(s.sessions, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer session.Mu.Unlock()

	if !session.ValidFrame(req.FrameIndex) {
		return nil, fmt.Errorf("%w: frame index %d outside [0, %d)", ErrInvalidArgument, req.FrameIndex, session.FrameCount)
	}
	obj, ok := session.Object(req.ObjectID, false)
	if !ok {
		return nil, fmt.Errorf("%w: unknown object id %d", ErrInvalidArgument, req.ObjectID)
	}

	res, err := s.predictor.ClearPointsInFrame(ctx, inference.ClearPointsInFrameRequest{
		SessionID:  req.SessionID,
		FrameIndex: req.FrameIndex,
		ObjectID:   req.ObjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: clear points in frame: %v", ErrInferenceFailure, err)
	}

	delete(obj.PointsByFrame, req.FrameIndex)

	return toMaskListOnFrame(res)
}

func (s *segmentationService) ClearPointsInVideo(ctx context.Context, req *dto.ClearPointsInVideoRequest) (*dto.ClearPointsInVideoResponse, error) {
	session, err := lockLiveSession(s.sessions, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer session.Mu.Unlock()

	res, err := s.predictor.ClearPointsInVideo(ctx, inference.ClearPointsInVideoRequest{
		SessionID: req.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: clear points in video: %v", ErrInferenceFailure, err)
	}

	session.Objects = make(map[int]*model.ObjectState)

	return &dto.ClearPointsInVideoResponse{Success: res.Success}, nil
}

// RemoveObject drops an object and returns refreshed masks for every frame
// the object had predictions on, sorted by frame index.
func (s *segmentationService) RemoveObject(ctx context.Context, req *dto.RemoveObjectRequest) ([]dto.RLEMaskListOnFrame, error) {
	session, err := lockLiveSession(s.sessions, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer session.Mu.Unlock()

	if _, ok := session.Object(req.ObjectID, false); !ok {
		return nil, fmt.Errorf("%w: unknown object id %d", ErrInvalidArgument, req.ObjectID)
	}

	res, err := s.predictor.RemoveObject(ctx, inference.RemoveObjectRequest{
		SessionID: req.SessionID,
		ObjectID:  req.ObjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: remove object: %v", ErrInferenceFailure, err)
	}

	delete(session.Objects, req.ObjectID)

	sort.Slice(res.Results, func(i, j int) bool {
		return res.Results[i].FrameIndex < res.Results[j].FrameIndex
	})

	results := make([]dto.RLEMaskListOnFrame, 0, len(res.Results))
	for _, frame := range res.Results {
		mapped, err := toMaskListOnFrame(frame)
		if err != nil {
			return nil, err
		}
		results = append(results, *mapped)
	}

	s.publisher.Publish(ctx, events.ObjectRemoved(req.SessionID, req.ObjectID))

	return results, nil
}

// toMaskListOnFrame maps one frame of model output onto the wire DTO. Every
// counts string is parsed back against its declared size before it leaves
// the service: a mask that fails its own invariants is a bug upstream and
// must never reach a client.
func toMaskListOnFrame(res inference.PropagateDataResponse) (*dto.RLEMaskListOnFrame, error) {
	list := make([]dto.RLEMaskForObject, 0, len(res.Results))
	for _, value := range res.Results {
		h, w := value.Mask.Size[0], value.Mask.Size[1]
		if _, err := mask.ParseCountsString(value.Mask.Counts, h, w); err != nil {
			return nil, fmt.Errorf("frame %d object %d: %w", res.FrameIndex, value.ObjectID, err)
		}
		list = append(list, dto.RLEMaskForObject{
			ObjectID: value.ObjectID,
			RLEMask: dto.RLEMask{
				Size:   []int{h, w},
				Counts: value.Mask.Counts,
				Order:  "F",
			},
		})
	}
	return &dto.RLEMaskListOnFrame{FrameIndex: res.FrameIndex, RLEMaskList: list}, nil
}
