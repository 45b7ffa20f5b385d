package dto

// Wire contract of the segmentation API. Field casing follows the
// original frontend client: camelCase everywhere except the propagation
// stream request, which historically bypassed the validated-input path
// and kept snake_case keys.

type StartSessionRequest struct {
	Path string `json:"path" validate:"required"`
}

type StartSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type CloseSessionRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type CloseSessionResponse struct {
	Success bool `json:"success"`
}

type AddPointsRequest struct {
	SessionID      string      `json:"sessionId" validate:"required"`
	FrameIndex     int         `json:"frameIndex" validate:"gte=0"`
	ObjectID       int         `json:"objectId" validate:"gte=0"`
	Points         [][]float64 `json:"points" validate:"required,dive,len=2"`
	Labels         []int       `json:"labels" validate:"required"`
	ClearOldPoints bool        `json:"clearOldPoints"`
}

type ClearPointsInFrameRequest struct {
	SessionID  string `json:"sessionId" validate:"required"`
	FrameIndex int    `json:"frameIndex" validate:"gte=0"`
	ObjectID   int    `json:"objectId" validate:"gte=0"`
}

type ClearPointsInVideoRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type ClearPointsInVideoResponse struct {
	Success bool `json:"success"`
}

type RemoveObjectRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	ObjectID  int    `json:"objectId" validate:"gte=0"`
}

type PropagateInVideoRequest struct {
	SessionID       string `json:"session_id" validate:"required"`
	StartFrameIndex int    `json:"start_frame_index" validate:"gte=0"`
}

type CancelPropagateRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type CancelPropagateResponse struct {
	Success bool `json:"success"`
}

// RLEMask is the lossless mask encoding delivered to clients: column-major
// ("F" order) run lengths in the compact counts-string form.
type RLEMask struct {
	Size   []int  `json:"size"` // [height, width]
	Counts string `json:"counts"`
	Order  string `json:"order"`
}

type RLEMaskForObject struct {
	ObjectID int     `json:"objectId"`
	RLEMask  RLEMask `json:"rleMask"`
}

// RLEMaskListOnFrame is one frame's worth of predictions: the frame index
// plus one mask per currently tracked object.
type RLEMaskListOnFrame struct {
	FrameIndex  int                `json:"frameIndex"`
	RLEMaskList []RLEMaskForObject `json:"rleMaskList"`
}
