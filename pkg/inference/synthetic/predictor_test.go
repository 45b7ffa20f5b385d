package synthetic

import (
	"context"
	"testing"

	"video-segmentation-be/pkg/inference"
	"video-segmentation-be/pkg/mask"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestSession(t *testing.T, p *Predictor, id string) {
	t.Helper()
	_, err := p.StartSession(context.Background(), inference.StartSessionRequest{SessionID: id, Path: "/data/x.mp4"})
	require.NoError(t, err)
}

func decode(t *testing.T, m inference.Mask) mask.Bitmap {
	t.Helper()
	r, err := mask.ParseCountsString(m.Counts, m.Size[0], m.Size[1])
	require.NoError(t, err)
	bm, err := mask.Decode(r)
	require.NoError(t, err)
	return bm
}

func TestAddPointsProducesBoxAroundClick(t *testing.T) {
	p := NewPredictor(64, 64)
	startTestSession(t, p, "s1")

	res, err := p.AddPoints(context.Background(), inference.AddPointsRequest{
		SessionID:  "s1",
		FrameIndex: 0,
		ObjectID:   1,
		Points:     [][]float64{{30, 30}},
		Labels:     []int{1},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)

	bm := decode(t, res.Results[0].Mask)
	assert.True(t, bm.Pixels[30*64+30], "click center must be foreground")
	assert.True(t, bm.Pixels[20*64+20], "box corner must be foreground")
	assert.False(t, bm.Pixels[5*64+5], "far pixel must stay background")
}

func TestBackgroundOnlyClicksYieldEmptyMask(t *testing.T) {
	p := NewPredictor(32, 32)
	startTestSession(t, p, "s1")

	res, err := p.AddPoints(context.Background(), inference.AddPointsRequest{
		SessionID:  "s1",
		FrameIndex: 0,
		ObjectID:   1,
		Points:     [][]float64{{10, 10}},
		Labels:     []int{0},
	})
	require.NoError(t, err)

	bm := decode(t, res.Results[0].Mask)
	for _, px := range bm.Pixels {
		assert.False(t, px)
	}
}

func TestPropagateStepDriftsBox(t *testing.T) {
	p := NewPredictor(64, 64)
	startTestSession(t, p, "s1")

	_, err := p.AddPoints(context.Background(), inference.AddPointsRequest{
		SessionID: "s1",
		ObjectID:  1,
		Points:    [][]float64{{20, 20}},
		Labels:    []int{1},
	})
	require.NoError(t, err)

	res, err := p.PropagateStep(context.Background(), inference.PropagateStepRequest{SessionID: "s1", FrameIndex: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, res.FrameIndex)

	bm := decode(t, res.Results[0].Mask)
	assert.True(t, bm.Pixels[20*64+25], "box center drifts right one pixel per frame")
	assert.False(t, bm.Pixels[20*64+9], "trailing edge moves with it")
}

func TestResultsOrderedByObjectID(t *testing.T) {
	p := NewPredictor(32, 32)
	startTestSession(t, p, "s1")

	for _, id := range []int{7, 2, 5} {
		_, err := p.AddPoints(context.Background(), inference.AddPointsRequest{
			SessionID: "s1",
			ObjectID:  id,
			Points:    [][]float64{{16, 16}},
			Labels:    []int{1},
		})
		require.NoError(t, err)
	}

	res, err := p.PropagateStep(context.Background(), inference.PropagateStepRequest{SessionID: "s1", FrameIndex: 0})
	require.NoError(t, err)
	require.Len(t, res.Results, 3)
	assert.Equal(t, 2, res.Results[0].ObjectID)
	assert.Equal(t, 5, res.Results[1].ObjectID)
	assert.Equal(t, 7, res.Results[2].ObjectID)
}

func TestRemoveObjectDropsItsMasks(t *testing.T) {
	p := NewPredictor(32, 32)
	startTestSession(t, p, "s1")

	_, err := p.AddPoints(context.Background(), inference.AddPointsRequest{
		SessionID: "s1", ObjectID: 1, Points: [][]float64{{16, 16}}, Labels: []int{1},
	})
	require.NoError(t, err)

	_, err = p.RemoveObject(context.Background(), inference.RemoveObjectRequest{SessionID: "s1", ObjectID: 1})
	require.NoError(t, err)

	res, err := p.PropagateStep(context.Background(), inference.PropagateStepRequest{SessionID: "s1", FrameIndex: 0})
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestSessionLifecycle(t *testing.T) {
	p := NewPredictor(32, 32)
	startTestSession(t, p, "s1")

	closed, err := p.CloseSession(context.Background(), inference.CloseSessionRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, closed.Success)

	_, err = p.PropagateStep(context.Background(), inference.PropagateStepRequest{SessionID: "s1", FrameIndex: 0})
	assert.Error(t, err)

	closed, err = p.CloseSession(context.Background(), inference.CloseSessionRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.False(t, closed.Success)
}
