package gesture

import (
	"strings"

	"github.com/ayusman/mudra/internal/detector"
)

// minHandSpan is the smallest wrist-to-middle-MCP span, in pixels, that is
// trusted as a normalization reference.
const minHandSpan = 1.0

// farApart is reported as the thumb-index distance when the hand is too
// small to measure. It never satisfies a pinch threshold.
const farApart = 1.0

// Finger names a digit.
type Finger uint8

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

var fingerNames = [...]string{"thumb", "index", "middle", "ring", "pinky"}

func (f Finger) String() string {
	if int(f) < len(fingerNames) {
		return fingerNames[f]
	}
	return "unknown"
}

// FingerSet is an unordered set of digits.
type FingerSet uint8

// Fingers builds a set from the given digits.
func Fingers(fs ...Finger) FingerSet {
	var s FingerSet
	for _, f := range fs {
		s = s.With(f)
	}
	return s
}

// With returns the set plus f.
func (s FingerSet) With(f Finger) FingerSet { return s | 1<<f }

// Has reports whether f is in the set.
func (s FingerSet) Has(f Finger) bool { return s&(1<<f) != 0 }

// Len returns the number of digits in the set.
func (s FingerSet) Len() int {
	n := 0
	for f := Thumb; f <= Pinky; f++ {
		if s.Has(f) {
			n++
		}
	}
	return n
}

// Contains reports whether every digit of other is in s.
func (s FingerSet) Contains(other FingerSet) bool { return s&other == other }

func (s FingerSet) String() string {
	var names []string
	for f := Thumb; f <= Pinky; f++ {
		if s.Has(f) {
			names = append(names, f.String())
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Extraction is the per-frame finger state used by the classifier.
type Extraction struct {
	// Extended holds the digits judged straightened.
	Extended FingerSet
	// ThumbIndexDistance is the thumb-tip to index-tip distance divided by
	// the wrist-to-middle-MCP span.
	ThumbIndexDistance float64
	// ThumbLift is wrist.Y - thumbTip.Y in pixels; positive when the thumb
	// tip is above the wrist.
	ThumbLift float64
}

// fingerJoints lists the PIP and tip landmarks of the four non-thumb digits.
var fingerJoints = [...]struct {
	finger   Finger
	pip, tip int
}{
	{Index, detector.IndexPIP, detector.IndexTip},
	{Middle, detector.MiddlePIP, detector.MiddleTip},
	{Ring, detector.RingPIP, detector.RingTip},
	{Pinky, detector.PinkyPIP, detector.PinkyTip},
}

// Extract derives the finger state of a single frame.
//
// A finger is extended when its tip is farther from the wrist than its PIP
// joint, measured in the image plane. That holds under in-plane rotation but
// not when the hand tilts toward or away from the camera.
func Extract(hand *detector.HandLandmarks) Extraction {
	p := &hand.Points
	wrist := p[detector.Wrist]

	var ext Extraction
	if thumbExtended(hand) {
		ext.Extended = ext.Extended.With(Thumb)
	}
	for _, fj := range fingerJoints {
		if detector.PlanarDistance(p[fj.tip], wrist) > detector.PlanarDistance(p[fj.pip], wrist) {
			ext.Extended = ext.Extended.With(fj.finger)
		}
	}

	ext.ThumbIndexDistance = farApart
	if span := detector.PlanarDistance(wrist, p[detector.MiddleMCP]); span >= minHandSpan {
		ext.ThumbIndexDistance = detector.PlanarDistance(p[detector.ThumbTip], p[detector.IndexTip]) / span
	}
	ext.ThumbLift = wrist.Y - p[detector.ThumbTip].Y

	return ext
}

// thumbExtended compares the thumb tip with the thumb MCP along x. The
// direction flips with handedness because the frame is mirrored.
func thumbExtended(hand *detector.HandLandmarks) bool {
	tip := hand.Points[detector.ThumbTip].X
	base := hand.Points[detector.ThumbMCP].X
	if hand.Handedness == detector.Right {
		return tip < base
	}
	return tip > base
}
