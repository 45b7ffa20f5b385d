package synthetic

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"video-segmentation-be/pkg/inference"
	"video-segmentation-be/pkg/mask"
)

const boxHalf = 10

// Predictor is a model-free stand-in for the segmentation capability. It
// tracks the clicked points per session/object and answers every request
// with a deterministic box mask around the first foreground point, shifted
// one pixel per frame during propagation. Useful for frontend development
// and for exercising the orchestration layer without a GPU.
type Predictor struct {
	height int
	width  int

	mu       sync.Mutex
	sessions map[string]map[int][]point
}

type point struct {
	x, y  float64
	label int
}

var _ inference.Predictor = &Predictor{}

func NewPredictor(height, width int) *Predictor {
	return &Predictor{
		height:   height,
		width:    width,
		sessions: make(map[string]map[int][]point),
	}
}

func (p *Predictor) StartSession(ctx context.Context, req inference.StartSessionRequest) (inference.StartSessionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[req.SessionID] = make(map[int][]point)
	return inference.StartSessionResponse{SessionID: req.SessionID}, nil
}

func (p *Predictor) CloseSession(ctx context.Context, req inference.CloseSessionRequest) (inference.CloseSessionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.sessions[req.SessionID]
	delete(p.sessions, req.SessionID)
	return inference.CloseSessionResponse{Success: ok}, nil
}

func (p *Predictor) AddPoints(ctx context.Context, req inference.AddPointsRequest) (inference.PropagateDataResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	objects, ok := p.sessions[req.SessionID]
	if !ok {
		return inference.PropagateDataResponse{}, fmt.Errorf("unknown session %s", req.SessionID)
	}

	if req.ClearOldPoints {
		objects[req.ObjectID] = nil
	}
	for i, pt := range req.Points {
		label := 1
		if i < len(req.Labels) {
			label = req.Labels[i]
		}
		objects[req.ObjectID] = append(objects[req.ObjectID], point{x: pt[0], y: pt[1], label: label})
	}
	if objects[req.ObjectID] == nil {
		objects[req.ObjectID] = []point{}
	}

	return p.frameMasksLocked(objects, req.FrameIndex)
}

func (p *Predictor) ClearPointsInFrame(ctx context.Context, req inference.ClearPointsInFrameRequest) (inference.PropagateDataResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	objects, ok := p.sessions[req.SessionID]
	if !ok {
		return inference.PropagateDataResponse{}, fmt.Errorf("unknown session %s", req.SessionID)
	}
	if _, ok := objects[req.ObjectID]; ok {
		objects[req.ObjectID] = []point{}
	}
	return p.frameMasksLocked(objects, req.FrameIndex)
}

func (p *Predictor) ClearPointsInVideo(ctx context.Context, req inference.ClearPointsInVideoRequest) (inference.ClearPointsInVideoResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[req.SessionID]; !ok {
		return inference.ClearPointsInVideoResponse{}, fmt.Errorf("unknown session %s", req.SessionID)
	}
	p.sessions[req.SessionID] = make(map[int][]point)
	return inference.ClearPointsInVideoResponse{Success: true}, nil
}

func (p *Predictor) RemoveObject(ctx context.Context, req inference.RemoveObjectRequest) (inference.RemoveObjectResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	objects, ok := p.sessions[req.SessionID]
	if !ok {
		return inference.RemoveObjectResponse{}, fmt.Errorf("unknown session %s", req.SessionID)
	}
	delete(objects, req.ObjectID)
	return inference.RemoveObjectResponse{}, nil
}

func (p *Predictor) PropagateStep(ctx context.Context, req inference.PropagateStepRequest) (inference.PropagateDataResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	objects, ok := p.sessions[req.SessionID]
	if !ok {
		return inference.PropagateDataResponse{}, fmt.Errorf("unknown session %s", req.SessionID)
	}
	return p.frameMasksLocked(objects, req.FrameIndex)
}

func (p *Predictor) CancelPropagate(ctx context.Context, req inference.CancelPropagateRequest) (inference.CancelPropagateResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.sessions[req.SessionID]
	return inference.CancelPropagateResponse{Success: ok}, nil
}

// frameMasksLocked renders one box mask per tracked object, ordered by
// object id so the result list is stable.
func (p *Predictor) frameMasksLocked(objects map[int][]point, frameIndex int) (inference.PropagateDataResponse, error) {
	ids := make([]int, 0, len(objects))
	for id := range objects {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	res := inference.PropagateDataResponse{FrameIndex: frameIndex}
	for _, id := range ids {
		m, err := p.renderMask(objects[id], frameIndex)
		if err != nil {
			return inference.PropagateDataResponse{}, err
		}
		res.Results = append(res.Results, inference.PropagateDataValue{ObjectID: id, Mask: m})
	}
	return res, nil
}

func (p *Predictor) renderMask(pts []point, frameIndex int) (inference.Mask, error) {
	bm := mask.Bitmap{
		Pixels: make([]bool, p.height*p.width),
		Height: p.height,
		Width:  p.width,
	}

	for _, pt := range pts {
		if pt.label != 1 {
			continue
		}
		cx := int(pt.x) + frameIndex // drift right, one pixel per frame
		cy := int(pt.y)
		for y := cy - boxHalf; y <= cy+boxHalf; y++ {
			for x := cx - boxHalf; x <= cx+boxHalf; x++ {
				if y >= 0 && y < p.height && x >= 0 && x < p.width {
					bm.Pixels[y*p.width+x] = true
				}
			}
		}
		break // box around the first foreground point only
	}

	rle, err := mask.Encode(bm)
	if err != nil {
		return inference.Mask{}, err
	}
	return inference.Mask{Size: rle.Size, Counts: rle.CountsString()}, nil
}
