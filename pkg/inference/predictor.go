package inference

import "context"

// Predictor is the segmentation/tracking capability the orchestration core
// depends on. Implementations are opaque: given a session's accumulated
// point/mask state and an operation, they return updated masks for one or
// more frames. Every call may block on model compute, so everything takes
// a context.
type Predictor interface {
	StartSession(ctx context.Context, req StartSessionRequest) (StartSessionResponse, error)
	CloseSession(ctx context.Context, req CloseSessionRequest) (CloseSessionResponse, error)

	AddPoints(ctx context.Context, req AddPointsRequest) (PropagateDataResponse, error)
	ClearPointsInFrame(ctx context.Context, req ClearPointsInFrameRequest) (PropagateDataResponse, error)
	ClearPointsInVideo(ctx context.Context, req ClearPointsInVideoRequest) (ClearPointsInVideoResponse, error)
	RemoveObject(ctx context.Context, req RemoveObjectRequest) (RemoveObjectResponse, error)

	PropagateStep(ctx context.Context, req PropagateStepRequest) (PropagateDataResponse, error)
	CancelPropagate(ctx context.Context, req CancelPropagateRequest) (CancelPropagateResponse, error)
}
