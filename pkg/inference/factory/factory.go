package factory

import (
	"fmt"

	"video-segmentation-be/pkg/inference"
	"video-segmentation-be/pkg/inference/remote"
	"video-segmentation-be/pkg/inference/synthetic"
)

func NewPredictor(providerType, baseURL string, height, width int) (inference.Predictor, error) {
	switch providerType {
	case "remote":
		if baseURL == "" {
			baseURL = "http://localhost:7861" // Default
		}
		return remote.NewPredictor(baseURL), nil
	case "synthetic":
		return synthetic.NewPredictor(height, width), nil
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", providerType)
	}
}
