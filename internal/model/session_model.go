package model

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Point is one labeled click on a frame. Label 1 marks foreground,
// 0 background.
type Point struct {
	X     float64
	Y     float64
	Label int
}

// ObjectState holds the accumulated point edits for one tracked object,
// keyed by frame index. Objects are created implicitly by the first edit
// referencing their id.
type ObjectState struct {
	PointsByFrame map[int][]Point
}

func NewObjectState() *ObjectState {
	return &ObjectState{PointsByFrame: make(map[int][]Point)}
}

// Session binds a loaded video to accumulated annotations and at most one
// active propagation run. The session store is the sole owner; all access
// to mutable fields happens under Mu, which serializes same-session
// operations while distinct sessions proceed in parallel.
type Session struct {
	ID         string
	VideoPath  string
	Width      int
	Height     int
	FrameCount int
	CreatedAt  time.Time
	LastUseAt  time.Time

	Closed  bool
	Objects map[int]*ObjectState
	Run     *PropagationRun

	Mu sync.Mutex
}

func NewSession(id, videoPath string, width, height, frameCount int) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		VideoPath:  videoPath,
		Width:      width,
		Height:     height,
		FrameCount: frameCount,
		CreatedAt:  now,
		LastUseAt:  now,
		Objects:    make(map[int]*ObjectState),
	}
}

// Touch updates the sliding-expiration timestamp.
func (s *Session) Touch() {
	s.LastUseAt = time.Now()
}

// ValidFrame reports whether the index falls inside the video's known range.
func (s *Session) ValidFrame(frame int) bool {
	return frame >= 0 && frame < s.FrameCount
}

// Object returns the state for an object id, creating it when create is set.
func (s *Session) Object(id int, create bool) (*ObjectState, bool) {
	obj, ok := s.Objects[id]
	if !ok && create {
		obj = NewObjectState()
		s.Objects[id] = obj
		ok = true
	}
	return obj, ok
}

// FramesTouchedBy lists the frames an object has edits on, unordered.
func (s *Session) FramesTouchedBy(objectID int) []int {
	obj, ok := s.Objects[objectID]
	if !ok {
		return nil
	}
	frames := make([]int, 0, len(obj.PointsByFrame))
	for f := range obj.PointsByFrame {
		frames = append(frames, f)
	}
	return frames
}

// PropagationRun is the transient record of one in-flight propagation.
// Created under the session mutex when a run starts, cleared when it
// reaches a terminal state. The cancel flag is atomic so CancelPropagate
// never has to wait behind a frame computation.
type PropagationRun struct {
	StartFrame int
	Cursor     int

	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

func NewPropagationRun(parent context.Context, startFrame int) *PropagationRun {
	ctx, cancel := context.WithCancel(parent)
	return &PropagationRun{
		StartFrame: startFrame,
		Cursor:     startFrame,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (r *PropagationRun) Context() context.Context {
	return r.ctx
}

// Cancel flips the cooperative flag; the engine observes it between
// frames, never mid-frame.
func (r *PropagationRun) Cancel() {
	r.cancelled.Store(true)
	r.cancel()
}

func (r *PropagationRun) Cancelled() bool {
	return r.cancelled.Load()
}
