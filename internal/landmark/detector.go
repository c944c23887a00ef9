// Package landmark turns submitted camera frames into hand landmarks.
package landmark

//go:generate mockgen -source=detector.go -destination=mock_detector.go -package=landmark

import (
	"context"
	"image"

	"ctchen222/Finger-Auth/internal/fingers"
)

// Detector finds at most one hand in an image. found is false when the image
// holds no hand; err is reserved for detector failures.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (hand fingers.HandLandmarks, found bool, err error)
}

// Config holds the detection thresholds forwarded to the estimator.
type Config struct {
	// MaxHands is the maximum number of hands to detect.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns single-hand, static-image thresholds.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
