package gesture

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/config"
)

func defaultClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(Thresholds{Pinch: 0.22, ThumbMargin: 15})
	require.NoError(t, err)
	return c
}

// allFingerSets enumerates every subset of the five digits.
func allFingerSets() []FingerSet {
	sets := make([]FingerSet, 0, 32)
	for s := 0; s < 32; s++ {
		sets = append(sets, FingerSet(s))
	}
	return sets
}

func TestNewClassifier_RejectsInvalidThresholds(t *testing.T) {
	tests := []struct {
		name string
		th   Thresholds
	}{
		{"negative pinch", Thresholds{Pinch: -0.1, ThumbMargin: 15}},
		{"negative margin", Thresholds{Pinch: 0.22, ThumbMargin: -1}},
		{"NaN pinch", Thresholds{Pinch: math.NaN(), ThumbMargin: 15}},
		{"infinite pinch", Thresholds{Pinch: math.Inf(1), ThumbMargin: 15}},
		{"NaN margin", Thresholds{Pinch: 0.22, ThumbMargin: math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClassifier(tt.th)
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalid))
		})
	}
}

func TestNewClassifier_ZeroThresholdsAllowed(t *testing.T) {
	c, err := NewClassifier(Thresholds{})
	require.NoError(t, err)
	assert.Equal(t, Thresholds{}, c.Thresholds())

	// Nothing is closer than zero, so pinch can never fire.
	assert.Equal(t, Fist, c.Classify(Extraction{ThumbIndexDistance: 0}))
}

func TestClassify_Rules(t *testing.T) {
	c := defaultClassifier(t)

	tests := []struct {
		name string
		ext  Extraction
		want Gesture
	}{
		{"pinch", Extraction{Extended: Fingers(Index), ThumbIndexDistance: 0.1}, Pinch},
		{"pinch with open hand", Extraction{Extended: Fingers(Thumb, Index, Middle, Ring, Pinky), ThumbIndexDistance: 0.1}, OkSign},
		{"ok sign", Extraction{Extended: Fingers(Middle, Ring, Pinky), ThumbIndexDistance: 0.05}, OkSign},
		{"pinch with two others", Extraction{Extended: Fingers(Middle, Ring), ThumbIndexDistance: 0.05}, Pinch},
		{"fist", Extraction{ThumbIndexDistance: 0.5}, Fist},
		{"thumbs up", Extraction{Extended: Fingers(Thumb), ThumbIndexDistance: 0.9, ThumbLift: 40}, ThumbsUp},
		{"thumbs down", Extraction{Extended: Fingers(Thumb), ThumbIndexDistance: 0.9, ThumbLift: -40}, ThumbsDown},
		{"thumb within margin", Extraction{Extended: Fingers(Thumb), ThumbIndexDistance: 0.9, ThumbLift: 10}, None},
		{"thumb on margin", Extraction{Extended: Fingers(Thumb), ThumbIndexDistance: 0.9, ThumbLift: 15}, None},
		{"point", Extraction{Extended: Fingers(Index), ThumbIndexDistance: 0.8}, Point},
		{"point with thumb", Extraction{Extended: Fingers(Index, Thumb), ThumbIndexDistance: 0.8}, Point},
		{"peace", Extraction{Extended: Fingers(Index, Middle), ThumbIndexDistance: 0.5}, Peace},
		{"rock", Extraction{Extended: Fingers(Index, Pinky), ThumbIndexDistance: 0.5}, Rock},
		{"three fingers", Extraction{Extended: Fingers(Index, Middle, Ring), ThumbIndexDistance: 0.5}, ThreeFingers},
		{"open palm", Extraction{Extended: Fingers(Thumb, Index, Middle, Ring, Pinky), ThumbIndexDistance: 1.0}, OpenPalm},
		{"four fingers", Extraction{Extended: Fingers(Index, Middle, Ring, Pinky), ThumbIndexDistance: 0.6}, OpenPalm},
		{"three without index", Extraction{Extended: Fingers(Middle, Ring, Pinky), ThumbIndexDistance: 0.6}, OpenPalm},
		{"middle alone", Extraction{Extended: Fingers(Middle), ThumbIndexDistance: 0.6}, None},
		{"thumb and pinky", Extraction{Extended: Fingers(Thumb, Pinky), ThumbIndexDistance: 0.6}, None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.ext))
		})
	}
}

func TestClassify_AllFiveExtendedIsOpenPalm(t *testing.T) {
	c := defaultClassifier(t)
	all := Fingers(Thumb, Index, Middle, Ring, Pinky)

	for _, d := range []float64{0.22, 0.5, 1.0, 3.0} {
		assert.Equal(t, OpenPalm, c.Classify(Extraction{Extended: all, ThumbIndexDistance: d}), "distance %v", d)
	}
}

func TestClassify_EmptySetIsFist(t *testing.T) {
	c := defaultClassifier(t)
	for _, d := range []float64{0.22, 0.3, 1.0} {
		for _, lift := range []float64{-100, 0, 100} {
			assert.Equal(t, Fist, c.Classify(Extraction{ThumbIndexDistance: d, ThumbLift: lift}))
		}
	}
}

func TestClassify_PinchAlwaysWins(t *testing.T) {
	c := defaultClassifier(t)
	for _, set := range allFingerSets() {
		got := c.Classify(Extraction{Extended: set, ThumbIndexDistance: 0.1, ThumbLift: 50})
		if set.Contains(Fingers(Middle, Ring, Pinky)) {
			assert.Equal(t, OkSign, got, "set %s", set)
		} else {
			assert.Equal(t, Pinch, got, "set %s", set)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := defaultClassifier(t)
	for _, set := range allFingerSets() {
		ext := Extraction{Extended: set, ThumbIndexDistance: 0.4, ThumbLift: 30}
		first := c.Classify(ext)
		for i := 0; i < 3; i++ {
			require.Equal(t, first, c.Classify(ext))
		}
		assert.True(t, first.Valid())
	}
}

func TestClassify_PeaceScenario(t *testing.T) {
	c := defaultClassifier(t)
	got := c.Classify(Extraction{Extended: Fingers(Index, Middle), ThumbIndexDistance: 0.5})
	assert.Equal(t, Peace, got)
}
