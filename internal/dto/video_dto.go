package dto

type VideoResponse struct {
	ID         string  `json:"id"`
	Height     int     `json:"height"`
	Width      int     `json:"width"`
	URL        string  `json:"url"`
	Path       string  `json:"path"`
	PosterPath *string `json:"posterPath"`
	PosterURL  *string `json:"posterUrl"`
}

// UploadVideoRequest arrives as a multipart form; the file part is read
// separately by the controller.
type UploadVideoRequest struct {
	StartTimeSec    *float64 `json:"startTimeSec" form:"startTimeSec"`
	DurationTimeSec *float64 `json:"durationTimeSec" form:"durationTimeSec"`
}
