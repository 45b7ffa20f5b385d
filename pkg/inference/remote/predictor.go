package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"video-segmentation-be/pkg/inference"
)

// Predictor talks to a model server over HTTP. Each request is a typed
// JSON body whose "type" field names the operation; the server routes on
// it. Propagation steps can take seconds of GPU time, hence the long
// client timeout.
type Predictor struct {
	BaseURL string
	Client  *http.Client
}

// Ensure Predictor implements inference.Predictor
var _ inference.Predictor = &Predictor{}

func NewPredictor(baseURL string) *Predictor {
	return &Predictor{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (p *Predictor) post(ctx context.Context, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/infer", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("inference server returned %d: %s", resp.StatusCode, string(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode inference response: %w", err)
	}
	return nil
}

func (p *Predictor) StartSession(ctx context.Context, req inference.StartSessionRequest) (inference.StartSessionResponse, error) {
	req.Type = "start_session"
	var res inference.StartSessionResponse
	err := p.post(ctx, req, &res)
	return res, err
}

func (p *Predictor) CloseSession(ctx context.Context, req inference.CloseSessionRequest) (inference.CloseSessionResponse, error) {
	req.Type = "close_session"
	var res inference.CloseSessionResponse
	err := p.post(ctx, req, &res)
	return res, err
}

func (p *Predictor) AddPoints(ctx context.Context, req inference.AddPointsRequest) (inference.PropagateDataResponse, error) {
	req.Type = "add_points"
	var res inference.PropagateDataResponse
	err := p.post(ctx, req, &res)
	return res, err
}

func (p *Predictor) ClearPointsInFrame(ctx context.Context, req inference.ClearPointsInFrameRequest) (inference.PropagateDataResponse, error) {
	req.Type = "clear_points_in_frame"
	var res inference.PropagateDataResponse
	err := p.post(ctx, req, &res)
	return res, err
}

func (p *Predictor) ClearPointsInVideo(ctx context.Context, req inference.ClearPointsInVideoRequest) (inference.ClearPointsInVideoResponse, error) {
	req.Type = "clear_points_in_video"
	var res inference.ClearPointsInVideoResponse
	err := p.post(ctx, req, &res)
	return res, err
}

func (p *Predictor) RemoveObject(ctx context.Context, req inference.RemoveObjectRequest) (inference.RemoveObjectResponse, error) {
	req.Type = "remove_object"
	var res inference.RemoveObjectResponse
	err := p.post(ctx, req, &res)
	return res, err
}

func (p *Predictor) PropagateStep(ctx context.Context, req inference.PropagateStepRequest) (inference.PropagateDataResponse, error) {
	req.Type = "propagate_step"
	var res inference.PropagateDataResponse
	err := p.post(ctx, req, &res)
	return res, err
}

func (p *Predictor) CancelPropagate(ctx context.Context, req inference.CancelPropagateRequest) (inference.CancelPropagateResponse, error) {
	req.Type = "cancel_propagate_in_video"
	var res inference.CancelPropagateResponse
	err := p.post(ctx, req, &res)
	return res, err
}
