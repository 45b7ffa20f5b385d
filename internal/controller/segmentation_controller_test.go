package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"video-segmentation-be/internal/dto"
	"video-segmentation-be/internal/pkg/serverutils"
	"video-segmentation-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSegmentationService struct {
	addPointsErr error
}

func (f *fakeSegmentationService) AddPoints(_ context.Context, req *dto.AddPointsRequest) (*dto.RLEMaskListOnFrame, error) {
	if f.addPointsErr != nil {
		return nil, f.addPointsErr
	}
	return &dto.RLEMaskListOnFrame{
		FrameIndex: req.FrameIndex,
		RLEMaskList: []dto.RLEMaskForObject{{
			ObjectID: req.ObjectID,
			RLEMask:  dto.RLEMask{Size: []int{4, 4}, Counts: "02", Order: "F"},
		}},
	}, nil
}

func (f *fakeSegmentationService) ClearPointsInFrame(_ context.Context, req *dto.ClearPointsInFrameRequest) (*dto.RLEMaskListOnFrame, error) {
	return &dto.RLEMaskListOnFrame{FrameIndex: req.FrameIndex, RLEMaskList: []dto.RLEMaskForObject{}}, nil
}

func (f *fakeSegmentationService) ClearPointsInVideo(context.Context, *dto.ClearPointsInVideoRequest) (*dto.ClearPointsInVideoResponse, error) {
	return &dto.ClearPointsInVideoResponse{Success: true}, nil
}

func (f *fakeSegmentationService) RemoveObject(context.Context, *dto.RemoveObjectRequest) ([]dto.RLEMaskListOnFrame, error) {
	return []dto.RLEMaskListOnFrame{}, nil
}

type fakePropagationService struct {
	startErr error
	frames   []dto.RLEMaskListOnFrame
	finalErr error

	cancelled bool
}

func (f *fakePropagationService) Start(context.Context, *dto.PropagateInVideoRequest) (<-chan service.FrameEvent, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	ch := make(chan service.FrameEvent)
	go func() {
		defer close(ch)
		for i := range f.frames {
			ch <- service.FrameEvent{Result: &f.frames[i]}
		}
		if f.finalErr != nil {
			ch <- service.FrameEvent{Err: f.finalErr}
		}
	}()
	return ch, nil
}

func (f *fakePropagationService) Cancel(context.Context, *dto.CancelPropagateRequest) (*dto.CancelPropagateResponse, error) {
	f.cancelled = true
	return &dto.CancelPropagateResponse{Success: true}, nil
}

func newTestApp(seg service.ISegmentationService, prop service.IPropagationService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewSegmentationController(seg, prop).RegisterRoutes(app)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	return res
}

func TestAddPointsRoute(t *testing.T) {
	app := newTestApp(&fakeSegmentationService{}, &fakePropagationService{})

	res := postJSON(t, app, "/api/add_points", fiber.Map{
		"sessionId":  "s1",
		"frameIndex": 3,
		"objectId":   1,
		"points":     [][]float64{{1, 2}},
		"labels":     []int{1},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got dto.RLEMaskListOnFrame
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, 3, got.FrameIndex)
	require.Len(t, got.RLEMaskList, 1)
	assert.Equal(t, "F", got.RLEMaskList[0].RLEMask.Order)
}

func TestAddPointsRejectsMissingSessionID(t *testing.T) {
	app := newTestApp(&fakeSegmentationService{}, &fakePropagationService{})

	res := postJSON(t, app, "/api/add_points", fiber.Map{
		"frameIndex": 0,
		"objectId":   1,
		"points":     [][]float64{{1, 2}},
		"labels":     []int{1},
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestServiceErrorsMapToStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: frame 99", service.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("%w: boom", service.ErrInferenceFailure), http.StatusBadGateway},
	}

	for _, tc := range cases {
		app := newTestApp(&fakeSegmentationService{addPointsErr: tc.err}, &fakePropagationService{})
		res := postJSON(t, app, "/api/add_points", fiber.Map{
			"sessionId": "s1",
			"points":    [][]float64{{1, 2}},
			"labels":    []int{1},
		})
		assert.Equal(t, tc.status, res.StatusCode)

		var body serverutils.ErrorBody
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		assert.NotEmpty(t, body.Error)
	}
}

func TestCancelRoute(t *testing.T) {
	prop := &fakePropagationService{}
	app := newTestApp(&fakeSegmentationService{}, prop)

	res := postJSON(t, app, "/api/cancel_propagate_in_video", fiber.Map{"sessionId": "s1"})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got dto.CancelPropagateResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.True(t, got.Success)
	assert.True(t, prop.cancelled)
}

func TestPropagateStreamsMultipartChunks(t *testing.T) {
	prop := &fakePropagationService{
		frames: []dto.RLEMaskListOnFrame{
			{FrameIndex: 0, RLEMaskList: []dto.RLEMaskForObject{}},
			{FrameIndex: 1, RLEMaskList: []dto.RLEMaskForObject{}},
		},
	}
	app := newTestApp(&fakeSegmentationService{}, prop)

	res := postJSON(t, app, "/propagate_in_video", fiber.Map{"session_id": "s1", "start_frame_index": 0})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "multipart/x-savi-stream; boundary=frame", res.Header.Get("Content-Type"))

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Equal(t, 2, strings.Count(text, "--frame\r\n"))
	assert.Contains(t, text, "Frame-Current: -1\r\n")
	assert.Contains(t, text, "Mask-Type: RLE[]\r\n")
	assert.Contains(t, text, `"frameIndex":0`)
	assert.Contains(t, text, `"frameIndex":1`)
}

func TestPropagateStreamSurfacesTerminalError(t *testing.T) {
	prop := &fakePropagationService{
		frames:   []dto.RLEMaskListOnFrame{{FrameIndex: 0, RLEMaskList: []dto.RLEMaskForObject{}}},
		finalErr: fmt.Errorf("%w: frame 1 exploded", service.ErrInferenceFailure),
	}
	app := newTestApp(&fakeSegmentationService{}, prop)

	res := postJSON(t, app, "/propagate_in_video", fiber.Map{"session_id": "s1"})
	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `"frameIndex":0`)
	assert.Contains(t, text, `"error":"inference failure: frame 1 exploded"`)
}

func TestPropagateConflictBeforeStream(t *testing.T) {
	prop := &fakePropagationService{startErr: service.ErrAlreadyRunning}
	app := newTestApp(&fakeSegmentationService{}, prop)

	res := postJSON(t, app, "/propagate_in_video", fiber.Map{"session_id": "s1"})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}
