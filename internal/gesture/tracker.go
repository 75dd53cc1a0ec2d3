package gesture

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
)

// fieldPadding is added to the bounding box center to guess the visible
// field size when normalizing the anchor.
const fieldPadding = 200.0

// Anchor is a position normalized to [0,1] on both axes.
type Anchor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is the per-frame result of the tracker.
type State struct {
	Gesture    Gesture   `json:"gesture"`
	Confidence float64   `json:"confidence"`
	HoldStart  time.Time `json:"hold_start"`
	Anchor     Anchor    `json:"anchor"`
	Held       bool      `json:"held"`
}

// HoldDuration returns how long the gesture had been held at now.
func (s State) HoldDuration(now time.Time) time.Duration {
	return now.Sub(s.HoldStart)
}

// Tracker follows gesture identity across frames. It remembers only the
// previous gesture and when it began. Not safe for concurrent use.
type Tracker struct {
	holdThreshold time.Duration
	last          Gesture
	start         time.Time
	tracking      bool
}

// NewTracker returns a Tracker that reports a gesture as held once it has
// been seen continuously for holdThreshold.
func NewTracker(holdThreshold time.Duration) (*Tracker, error) {
	if holdThreshold < 0 {
		return nil, errors.Wrapf(config.ErrInvalid, "hold threshold must not be negative, got %s", holdThreshold)
	}
	return &Tracker{holdThreshold: holdThreshold}, nil
}

// Update records the gesture observed at now and returns its hold state.
// Hold timing is driven purely by timestamps, so irregular frame rates do
// not change the result.
func (t *Tracker) Update(g Gesture, confidence float64, palm detector.Point3D, box detector.Rect, now time.Time) State {
	if !t.tracking || g != t.last {
		t.last = g
		t.start = now
		t.tracking = true
	}

	return State{
		Gesture:    g,
		Confidence: confidence,
		HoldStart:  t.start,
		Anchor:     EstimateAnchor(palm, box),
		Held:       now.Sub(t.start) >= t.holdThreshold,
	}
}

// Reset forgets the previous gesture so the next Update starts a new hold.
func (t *Tracker) Reset() {
	t.last = None
	t.start = time.Time{}
	t.tracking = false
}

// EstimateAnchor normalizes the palm position against a field size guessed
// from the hand's own bounding box rather than the camera resolution.
//
// This is a rough approximation kept for display and anchoring; cursor
// placement uses the real frame size instead (see dispatch.CursorMapper).
func EstimateAnchor(palm detector.Point3D, box detector.Rect) Anchor {
	fieldW := box.X + box.Width/2 + fieldPadding
	fieldH := box.Y + box.Height/2 + fieldPadding
	return Anchor{
		X: clamp01(palm.X / fieldW),
		Y: clamp01(palm.Y / fieldH),
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
