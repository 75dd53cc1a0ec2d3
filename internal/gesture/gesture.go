// Package gesture turns hand landmarks into symbolic gestures: finger-state
// extraction, rule-based classification and hold tracking across frames.
package gesture

import (
	"github.com/pkg/errors"
)

// Gesture is the closed set of hand poses the classifier can produce.
// Exactly one value is produced per frame.
type Gesture int

const (
	None Gesture = iota
	OpenPalm
	Fist
	Point
	Peace
	ThumbsUp
	ThumbsDown
	Pinch
	ThreeFingers
	Rock
	OkSign

	numGestures
)

var gestureNames = [numGestures]string{
	None:         "none",
	OpenPalm:     "open_palm",
	Fist:         "fist",
	Point:        "point",
	Peace:        "peace",
	ThumbsUp:     "thumbs_up",
	ThumbsDown:   "thumbs_down",
	Pinch:        "pinch",
	ThreeFingers: "three_fingers",
	Rock:         "rock",
	OkSign:       "ok_sign",
}

// All returns every gesture that can carry an action, i.e. all except None.
func All() []Gesture {
	out := make([]Gesture, 0, numGestures-1)
	for g := OpenPalm; g < numGestures; g++ {
		out = append(out, g)
	}
	return out
}

// Valid reports whether g is a member of the enumeration.
func (g Gesture) Valid() bool {
	return g >= None && g < numGestures
}

func (g Gesture) String() string {
	if !g.Valid() {
		return "unknown"
	}
	return gestureNames[g]
}

// MarshalText implements encoding.TextMarshaler.
func (g Gesture) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Gesture) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Parse looks a gesture up by its snake_case name.
func Parse(name string) (Gesture, error) {
	for i, n := range gestureNames {
		if n == name {
			return Gesture(i), nil
		}
	}
	return None, errors.Errorf("unknown gesture %q", name)
}
