package service

import (
	"context"
	"testing"
	"time"

	"video-segmentation-be/internal/dto"
	"video-segmentation-be/internal/model"
	"video-segmentation-be/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPropagationFixture(t *testing.T, frameCount int, predictor *fakePredictor) (IPropagationService, *model.Session, *recordingPublisher) {
	t.Helper()
	repo := memory.NewSessionRepository(time.Hour, time.Hour)
	session := model.NewSession("s1", "/data/gallery/a.mp4", 8, 8, frameCount)
	repo.Save(session)

	publisher := &recordingPublisher{}
	svc := NewPropagationService(repo, predictor, publisher, nopLogger{})
	return svc, session, publisher
}

func collect(t *testing.T, stream <-chan FrameEvent) []FrameEvent {
	t.Helper()
	var out []FrameEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-stream:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream did not close in time")
		}
	}
}

func TestPropagationEmitsEveryFrameInOrder(t *testing.T) {
	svc, session, publisher := newPropagationFixture(t, 6, &fakePredictor{})

	stream, err := svc.Start(context.Background(), &dto.PropagateInVideoRequest{SessionID: "s1"})
	require.NoError(t, err)

	events := collect(t, stream)
	require.Len(t, events, 6)
	for i, ev := range events {
		require.NoError(t, ev.Err)
		assert.Equal(t, i, ev.Result.FrameIndex)
		require.Len(t, ev.Result.RLEMaskList, 1)
		assert.Equal(t, "F", ev.Result.RLEMaskList[0].RLEMask.Order)
	}

	// Terminal state clears the run record.
	session.Mu.Lock()
	assert.Nil(t, session.Run)
	session.Mu.Unlock()

	types := publisher.types()
	assert.Equal(t, "PROPAGATION_STARTED", types[0])
	assert.Equal(t, "PROPAGATION_COMPLETED", types[len(types)-1])
}

func TestPropagationStartsMidVideo(t *testing.T) {
	svc, _, _ := newPropagationFixture(t, 10, &fakePredictor{})

	stream, err := svc.Start(context.Background(), &dto.PropagateInVideoRequest{SessionID: "s1", StartFrameIndex: 7})
	require.NoError(t, err)

	events := collect(t, stream)
	require.Len(t, events, 3)
	assert.Equal(t, 7, events[0].Result.FrameIndex)
	assert.Equal(t, 9, events[2].Result.FrameIndex)
}

func TestPropagationRejectsBadStart(t *testing.T) {
	svc, _, _ := newPropagationFixture(t, 10, &fakePredictor{})

	_, err := svc.Start(context.Background(), &dto.PropagateInVideoRequest{SessionID: "missing"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Start(context.Background(), &dto.PropagateInVideoRequest{SessionID: "s1", StartFrameIndex: 10})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSecondStartConflictsWhileRunning(t *testing.T) {
	predictor := &fakePredictor{stepDelay: 20 * time.Millisecond}
	svc, _, _ := newPropagationFixture(t, 50, predictor)

	stream, err := svc.Start(context.Background(), &dto.PropagateInVideoRequest{SessionID: "s1"})
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), &dto.PropagateInVideoRequest{SessionID: "s1"})
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	// Wind the first run down; afterwards a new run is allowed.
	res, err := svc.Cancel(context.Background(), &dto.CancelPropagateRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	collect(t, stream)

	stream2, err := svc.Start(context.Background(), &dto.PropagateInVideoRequest{SessionID: "s1"})
	require.NoError(t, err)
	svc.Cancel(context.Background(), &dto.CancelPropagateRequest{SessionID: "s1"})
	collect(t, stream2)
}

func TestCancelStopsStreamPromptly(t *testing.T) {
	predictor := &fakePredictor{stepDelay: 10 * time.Millisecond}
	svc, session, publisher := newPropagationFixture(t, 1000, predictor)

	stream, err := svc.Start(context.Background(), &dto.PropagateInVideoRequest{SessionID: "s1"})
	require.NoError(t, err)

	// Consume a few frames, then cancel.
	for i := 0; i < 3; i++ {
		ev := <-stream
		require.NoError(t, ev.Err)
	}
	res, err := svc.Cancel(context.Background(), &dto.CancelPropagateRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	events := collect(t, stream)
	// Cancellation lands between frames: at most the in-flight frame
	// still arrives, and no error event does.
	assert.LessOrEqual(t, len(events), 2)
	for _, ev := range events {
		assert.NoError(t, ev.Err)
	}

	session.Mu.Lock()
	assert.Nil(t, session.Run)
	session.Mu.Unlock()

	assert.Contains(t, publisher.types(), "PROPAGATION_CANCELLED")
	assert.Eventually(t, func() bool {
		return predictor.callCount("cancel_propagate") == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCancelWithoutRun(t *testing.T) {
	svc, _, _ := newPropagationFixture(t, 10, &fakePredictor{})

	res, err := svc.Cancel(context.Background(), &dto.CancelPropagateRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = svc.Cancel(context.Background(), &dto.CancelPropagateRequest{SessionID: "missing"})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestStepFailureEndsStreamWithError(t *testing.T) {
	predictor := &fakePredictor{stepErrAt: map[int]error{3: assert.AnError}}
	svc, session, publisher := newPropagationFixture(t, 10, predictor)

	stream, err := svc.Start(context.Background(), &dto.PropagateInVideoRequest{SessionID: "s1"})
	require.NoError(t, err)

	events := collect(t, stream)
	require.Len(t, events, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, i, events[i].Result.FrameIndex)
	}
	last := events[3]
	require.Error(t, last.Err)
	assert.ErrorIs(t, last.Err, ErrInferenceFailure)

	// The session survives a failed run.
	session.Mu.Lock()
	assert.Nil(t, session.Run)
	assert.False(t, session.Closed)
	session.Mu.Unlock()

	assert.Contains(t, publisher.types(), "PROPAGATION_FAILED")
}

func TestSlowConsumerBackpressuresEngine(t *testing.T) {
	predictor := &fakePredictor{}
	svc, _, _ := newPropagationFixture(t, 100, predictor)

	stream, err := svc.Start(context.Background(), &dto.PropagateInVideoRequest{SessionID: "s1"})
	require.NoError(t, err)

	// Consume 3 frames, then stall. The unbuffered channel allows at most
	// one computed-but-undelivered frame beyond what we've read.
	for i := 0; i < 3; i++ {
		ev := <-stream
		require.NoError(t, ev.Err)
	}
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, predictor.callCount("propagate_step"), 5)

	svc.Cancel(context.Background(), &dto.CancelPropagateRequest{SessionID: "s1"})
	collect(t, stream)
}

func TestConsumerDisconnectCancelsRun(t *testing.T) {
	predictor := &fakePredictor{stepDelay: 5 * time.Millisecond}
	svc, session, _ := newPropagationFixture(t, 1000, predictor)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := svc.Start(ctx, &dto.PropagateInVideoRequest{SessionID: "s1"})
	require.NoError(t, err)

	ev := <-stream
	require.NoError(t, ev.Err)
	cancel()

	collect(t, stream)
	session.Mu.Lock()
	assert.Nil(t, session.Run)
	session.Mu.Unlock()
}

func TestStartLosingRaceWithCloseDoesNotRun(t *testing.T) {
	// Start can fetch its session handle just before a close reclaims it.
	// Losing that race must reject the start; winning it must leave a run
	// the reclaim cancels. Either way no step reaches the closed predictor
	// session uncancelled, so the stream never carries an error event.
	for i := 0; i < 50; i++ {
		repo := memory.NewSessionRepository(time.Hour, time.Hour)
		predictor := &fakePredictor{failAfterClose: true}
		publisher := &recordingPublisher{}
		sessions := NewSessionService(repo, &fakeResolver{}, predictor, publisher, nopLogger{})
		repo.SetReclaimHandler(sessions.Reclaim)
		session := model.NewSession("s1", "/data/gallery/a.mp4", 8, 8, 20)
		repo.Save(session)

		svc := NewPropagationService(repo, predictor, publisher, nopLogger{})

		type started struct {
			stream <-chan FrameEvent
			err    error
		}
		res := make(chan started, 1)
		go func() {
			stream, err := svc.Start(context.Background(), &dto.PropagateInVideoRequest{SessionID: "s1"})
			res <- started{stream: stream, err: err}
		}()
		repo.Delete("s1")

		got := <-res
		if got.err != nil {
			assert.ErrorIs(t, got.err, ErrSessionNotFound)
			continue
		}
		for ev := range got.stream {
			assert.NoError(t, ev.Err)
		}
		session.Mu.Lock()
		assert.Nil(t, session.Run)
		session.Mu.Unlock()
	}
}

func TestEditsAllowedAfterRunFinishes(t *testing.T) {
	repo := memory.NewSessionRepository(time.Hour, time.Hour)
	session := model.NewSession("s1", "/data/gallery/a.mp4", 8, 8, 4)
	repo.Save(session)

	publisher := &recordingPublisher{}
	predictor := &fakePredictor{}
	propagation := NewPropagationService(repo, predictor, publisher, nopLogger{})
	segmentation := NewSegmentationService(repo, predictor, publisher, nopLogger{})

	stream, err := propagation.Start(context.Background(), &dto.PropagateInVideoRequest{SessionID: "s1"})
	require.NoError(t, err)
	collect(t, stream)

	_, err = segmentation.AddPoints(context.Background(), addPointsReq())
	assert.NoError(t, err)
}
