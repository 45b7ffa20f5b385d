package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"video-segmentation-be/pkg/events"
	"video-segmentation-be/pkg/inference"
	"video-segmentation-be/pkg/mask"
)

// nopLogger keeps test output clean.
type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// recordingPublisher captures events in publish order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// wireMask builds a valid counts-string mask of the given size with a
// small foreground box, so responses survive the service's codec check.
func wireMask(h, w int) inference.Mask {
	pixels := make([]bool, h*w)
	for y := 1; y < h-1 && y < 4; y++ {
		for x := 1; x < w-1 && x < 4; x++ {
			pixels[y*w+x] = true
		}
	}
	r, err := mask.Encode(mask.Bitmap{Pixels: pixels, Height: h, Width: w})
	if err != nil {
		panic(err)
	}
	return inference.Mask{Size: [2]int{h, w}, Counts: r.CountsString()}
}

func frameResponse(frame int, objectIDs ...int) inference.PropagateDataResponse {
	res := inference.PropagateDataResponse{FrameIndex: frame}
	for _, id := range objectIDs {
		res.Results = append(res.Results, inference.PropagateDataValue{
			ObjectID: id,
			Mask:     wireMask(8, 8),
		})
	}
	return res
}

// fakePredictor is a scripted inference collaborator. Zero value succeeds
// on every call with one object per frame.
type fakePredictor struct {
	mu    sync.Mutex
	calls []string

	failOn    map[string]error
	stepDelay time.Duration

	// stepResults overrides the per-frame response when set.
	stepResults func(frame int) inference.PropagateDataResponse

	// stepErrAt fails PropagateStep for specific frames.
	stepErrAt map[int]error

	// failAfterClose makes edits and steps error once close_session has
	// been called, like a real model server would.
	failAfterClose bool

	removeResults []inference.PropagateDataResponse
}

func (f *fakePredictor) closedGuard() error {
	if f.failAfterClose && f.callCount("close_session") > 0 {
		return fmt.Errorf("predictor session closed")
	}
	return nil
}

func (f *fakePredictor) record(op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	err := f.failOn[op]
	f.mu.Unlock()
	return err
}

func (f *fakePredictor) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakePredictor) StartSession(_ context.Context, req inference.StartSessionRequest) (inference.StartSessionResponse, error) {
	if err := f.record("start_session"); err != nil {
		return inference.StartSessionResponse{}, err
	}
	return inference.StartSessionResponse{SessionID: req.SessionID}, nil
}

func (f *fakePredictor) CloseSession(_ context.Context, _ inference.CloseSessionRequest) (inference.CloseSessionResponse, error) {
	if err := f.record("close_session"); err != nil {
		return inference.CloseSessionResponse{}, err
	}
	return inference.CloseSessionResponse{Success: true}, nil
}

func (f *fakePredictor) AddPoints(_ context.Context, req inference.AddPointsRequest) (inference.PropagateDataResponse, error) {
	if err := f.record("add_points"); err != nil {
		return inference.PropagateDataResponse{}, err
	}
	if err := f.closedGuard(); err != nil {
		return inference.PropagateDataResponse{}, err
	}
	return frameResponse(req.FrameIndex, req.ObjectID), nil
}

func (f *fakePredictor) ClearPointsInFrame(_ context.Context, req inference.ClearPointsInFrameRequest) (inference.PropagateDataResponse, error) {
	if err := f.record("clear_points_in_frame"); err != nil {
		return inference.PropagateDataResponse{}, err
	}
	return frameResponse(req.FrameIndex), nil
}

func (f *fakePredictor) ClearPointsInVideo(_ context.Context, _ inference.ClearPointsInVideoRequest) (inference.ClearPointsInVideoResponse, error) {
	if err := f.record("clear_points_in_video"); err != nil {
		return inference.ClearPointsInVideoResponse{}, err
	}
	return inference.ClearPointsInVideoResponse{Success: true}, nil
}

func (f *fakePredictor) RemoveObject(_ context.Context, _ inference.RemoveObjectRequest) (inference.RemoveObjectResponse, error) {
	if err := f.record("remove_object"); err != nil {
		return inference.RemoveObjectResponse{}, err
	}
	return inference.RemoveObjectResponse{Results: f.removeResults}, nil
}

func (f *fakePredictor) PropagateStep(ctx context.Context, req inference.PropagateStepRequest) (inference.PropagateDataResponse, error) {
	if err := f.record("propagate_step"); err != nil {
		return inference.PropagateDataResponse{}, err
	}
	if err := f.closedGuard(); err != nil {
		return inference.PropagateDataResponse{}, err
	}
	if err := f.stepErrAt[req.FrameIndex]; err != nil {
		return inference.PropagateDataResponse{}, err
	}
	if f.stepDelay > 0 {
		select {
		case <-time.After(f.stepDelay):
		case <-ctx.Done():
			return inference.PropagateDataResponse{}, ctx.Err()
		}
	}
	if f.stepResults != nil {
		return f.stepResults(req.FrameIndex), nil
	}
	return frameResponse(req.FrameIndex, 1), nil
}

func (f *fakePredictor) CancelPropagate(_ context.Context, _ inference.CancelPropagateRequest) (inference.CancelPropagateResponse, error) {
	if err := f.record("cancel_propagate"); err != nil {
		return inference.CancelPropagateResponse{}, err
	}
	return inference.CancelPropagateResponse{Success: true}, nil
}

// fakeResolver maps every known path onto a fixed-size test video.
type fakeResolver struct {
	frameCount int
	failAll    bool
}

func (r *fakeResolver) Resolve(_ context.Context, path string) (*ResolvedVideo, error) {
	if r.failAll {
		return nil, fmt.Errorf("no such video %q", path)
	}
	frames := r.frameCount
	if frames == 0 {
		frames = 10
	}
	return &ResolvedVideo{
		AbsPath:    "/data/" + path,
		Width:      8,
		Height:     8,
		FrameCount: frames,
	}, nil
}
