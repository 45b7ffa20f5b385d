package inference

// Wire types for the inference collaborator. The model server owns the
// heavy per-session model state; it is keyed by the same session id the
// orchestration layer issues. Masks cross this boundary already in the
// compact counts-string form.

type Mask struct {
	Size   [2]int `json:"size"` // height, width
	Counts string `json:"counts"`
}

type StartSessionRequest struct {
	Type      string `json:"type"`
	Path      string `json:"path"`
	SessionID string `json:"session_id"`
}

type StartSessionResponse struct {
	SessionID string `json:"session_id"`
}

type CloseSessionRequest struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type CloseSessionResponse struct {
	Success bool `json:"success"`
}

type AddPointsRequest struct {
	Type           string      `json:"type"`
	SessionID      string      `json:"session_id"`
	FrameIndex     int         `json:"frame_index"`
	ClearOldPoints bool        `json:"clear_old_points"`
	ObjectID       int         `json:"object_id"`
	Labels         []int       `json:"labels"`
	Points         [][]float64 `json:"points"`
}

type ClearPointsInFrameRequest struct {
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	FrameIndex int    `json:"frame_index"`
	ObjectID   int    `json:"object_id"`
}

type ClearPointsInVideoRequest struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type ClearPointsInVideoResponse struct {
	Success bool `json:"success"`
}

type RemoveObjectRequest struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	ObjectID  int    `json:"object_id"`
}

// PropagateStepRequest asks the model for the masks of a single frame,
// given everything the session has accumulated so far. The engine drives
// propagation one step at a time so a slow consumer backpressures the
// model instead of the other way round.
type PropagateStepRequest struct {
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	FrameIndex int    `json:"frame_index"`
}

type CancelPropagateRequest struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type CancelPropagateResponse struct {
	Success bool `json:"success"`
}

type PropagateDataValue struct {
	ObjectID int  `json:"object_id"`
	Mask     Mask `json:"mask"`
}

type PropagateDataResponse struct {
	FrameIndex int                  `json:"frame_index"`
	Results    []PropagateDataValue `json:"results"`
}

type RemoveObjectResponse struct {
	Results []PropagateDataResponse `json:"results"`
}
