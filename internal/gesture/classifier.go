package gesture

import (
	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/config"
)

// Thresholds parameterize the classifier.
type Thresholds struct {
	// Pinch is the normalized thumb-index distance below which the hand is pinching.
	Pinch float64
	// ThumbMargin is the vertical distance in pixels the thumb tip must clear
	// the wrist by to count as up or down.
	//
	// Unlike Pinch it is not normalized by hand size, so a hand far from the
	// camera needs a proportionally larger gesture. It is kept configurable
	// so it can be normalized later without changing this type.
	ThumbMargin float64
}

// Classifier maps an Extraction to exactly one Gesture. It holds no state
// between calls.
type Classifier struct {
	th Thresholds
}

// NewClassifier validates th and returns a Classifier.
func NewClassifier(th Thresholds) (*Classifier, error) {
	if !config.Finite(th.Pinch) || !config.Finite(th.ThumbMargin) {
		return nil, errors.Wrapf(config.ErrInvalid, "thresholds must be finite numbers, got %+v", th)
	}
	if th.Pinch < 0 {
		return nil, errors.Wrapf(config.ErrInvalid, "pinch threshold must not be negative, got %v", th.Pinch)
	}
	if th.ThumbMargin < 0 {
		return nil, errors.Wrapf(config.ErrInvalid, "thumb margin must not be negative, got %v", th.ThumbMargin)
	}
	return &Classifier{th: th}, nil
}

// Thresholds returns the thresholds the classifier was built with.
func (c *Classifier) Thresholds() Thresholds {
	return c.th
}

var (
	okSignFingers   = Fingers(Middle, Ring, Pinky)
	thumbOnly       = Fingers(Thumb)
	peaceFingers    = Fingers(Index, Middle)
	rockFingers     = Fingers(Index, Pinky)
	threeFingers    = Fingers(Index, Middle, Ring)
	pointWithThumb  = Fingers(Index, Thumb)
	pointIndexAlone = Fingers(Index)
)

// Classify applies the rules in priority order; the first match wins.
//
// Pinch is checked first so that volume control is not pre-empted by other
// digits happening to be extended.
func (c *Classifier) Classify(ext Extraction) Gesture {
	set := ext.Extended

	if ext.ThumbIndexDistance < c.th.Pinch {
		if set.Contains(okSignFingers) {
			return OkSign
		}
		return Pinch
	}

	switch {
	case set == 0:
		return Fist
	case set == thumbOnly:
		switch {
		case ext.ThumbLift > c.th.ThumbMargin:
			return ThumbsUp
		case ext.ThumbLift < -c.th.ThumbMargin:
			return ThumbsDown
		}
		return None
	case set == pointIndexAlone || set == pointWithThumb:
		// A drifting thumb does not break pointing.
		return Point
	case set == peaceFingers:
		return Peace
	case set == rockFingers:
		return Rock
	case set == threeFingers:
		return ThreeFingers
	case set.Len() >= 3:
		return OpenPalm
	}
	return None
}
