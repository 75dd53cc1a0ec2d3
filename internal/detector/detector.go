package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks in
	// the frame's pixel space. Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	// Hands scoring below it are discarded.
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config tuned for forgiving single-hand control:
// low thresholds keep tracking alive in poor lighting and partial views.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.4,
		MinTrackingConf: 0.3,
	}
}

// filterHands drops hands below the confidence floor and caps the count.
func filterHands(hands []HandLandmarks, cfg Config) []HandLandmarks {
	kept := hands[:0]
	for _, h := range hands {
		if h.Score < cfg.MinConfidence {
			continue
		}
		kept = append(kept, h)
		if cfg.MaxHands > 0 && len(kept) == cfg.MaxHands {
			break
		}
	}
	return kept
}
