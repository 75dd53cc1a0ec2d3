package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Preset poses below describe a right hand in a 640x480 pixel frame, palm
// toward the camera, fingers pointing up. The wrist-to-middle-MCP span is
// roughly 98px.

type fingerPose bool

const (
	curled   fingerPose = false
	extended fingerPose = true
)

type thumbPose int

const (
	thumbFolded thumbPose = iota
	thumbOut
	thumbDown
	thumbPinchIndex
)

var fingerMCPs = [4]Point3D{
	{X: 292, Y: 310}, // index
	{X: 318, Y: 302}, // middle
	{X: 344, Y: 308}, // ring
	{X: 368, Y: 320}, // pinky
}

func buildHand(thumb thumbPose, index, middle, ring, pinky fingerPose) HandLandmarks {
	h := HandLandmarks{
		Handedness: Right,
		Score:      0.95,
	}

	h.Points[Wrist] = Point3D{X: 320, Y: 400}

	poses := [4]fingerPose{index, middle, ring, pinky}
	for f, pose := range poses {
		base := IndexMCP + f*4
		mcp := fingerMCPs[f]
		h.Points[base] = mcp
		if pose == extended {
			h.Points[base+1] = Point3D{X: mcp.X, Y: mcp.Y - 35, Z: -2}
			h.Points[base+2] = Point3D{X: mcp.X, Y: mcp.Y - 60, Z: -3}
			h.Points[base+3] = Point3D{X: mcp.X, Y: mcp.Y - 80, Z: -4}
		} else {
			h.Points[base+1] = Point3D{X: mcp.X, Y: mcp.Y - 30, Z: -8}
			h.Points[base+2] = Point3D{X: mcp.X, Y: mcp.Y - 12, Z: -10}
			h.Points[base+3] = Point3D{X: mcp.X, Y: mcp.Y + 8, Z: -8}
		}
	}

	h.Points[ThumbCMC] = Point3D{X: 296, Y: 380}
	h.Points[ThumbMCP] = Point3D{X: 278, Y: 355}
	switch thumb {
	case thumbOut:
		h.Points[ThumbIP] = Point3D{X: 262, Y: 335}
		h.Points[ThumbTip] = Point3D{X: 248, Y: 318}
	case thumbDown:
		h.Points[ThumbIP] = Point3D{X: 262, Y: 410}
		h.Points[ThumbTip] = Point3D{X: 250, Y: 440}
	case thumbPinchIndex:
		tip := h.Points[IndexTip]
		h.Points[ThumbIP] = Point3D{X: 290, Y: (355 + tip.Y) / 2}
		h.Points[ThumbTip] = Point3D{X: tip.X + 5, Y: tip.Y + 4}
	default:
		h.Points[ThumbIP] = Point3D{X: 300, Y: 350}
		h.Points[ThumbTip] = Point3D{X: 318, Y: 345}
	}

	h.Box = h.ComputeBox()
	return h
}

// OpenPalmLandmarks returns a hand with all five digits extended.
func OpenPalmLandmarks() HandLandmarks {
	return buildHand(thumbOut, extended, extended, extended, extended)
}

// FistLandmarks returns a hand with every digit curled.
func FistLandmarks() HandLandmarks {
	return buildHand(thumbFolded, curled, curled, curled, curled)
}

// PointLandmarks returns a hand with only the index finger extended.
func PointLandmarks() HandLandmarks {
	return buildHand(thumbFolded, extended, curled, curled, curled)
}

// PeaceLandmarks returns a hand with index and middle fingers extended.
func PeaceLandmarks() HandLandmarks {
	return buildHand(thumbFolded, extended, extended, curled, curled)
}

// ThumbsUpLandmarks returns a hand with only the thumb extended, tip above the wrist.
func ThumbsUpLandmarks() HandLandmarks {
	return buildHand(thumbOut, curled, curled, curled, curled)
}

// ThumbsDownLandmarks returns a hand with only the thumb extended, tip below the wrist.
func ThumbsDownLandmarks() HandLandmarks {
	return buildHand(thumbDown, curled, curled, curled, curled)
}

// PinchLandmarks returns a hand with the thumb tip touching the extended index tip.
func PinchLandmarks() HandLandmarks {
	return buildHand(thumbPinchIndex, extended, curled, curled, curled)
}

// ThreeFingersLandmarks returns a hand with index, middle and ring extended.
func ThreeFingersLandmarks() HandLandmarks {
	return buildHand(thumbFolded, extended, extended, extended, curled)
}

// RockLandmarks returns a hand with index and pinky extended.
func RockLandmarks() HandLandmarks {
	return buildHand(thumbFolded, extended, curled, curled, extended)
}

// OkSignLandmarks returns a thumb-index circle with the other three fingers extended.
func OkSignLandmarks() HandLandmarks {
	return buildHand(thumbPinchIndex, curled, extended, extended, extended)
}

// Offset returns a copy of h translated by (dx, dy) pixels.
func Offset(h HandLandmarks, dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	h.Box = h.ComputeBox()
	return h
}

// Mirror returns a copy of h reflected around x = axis with the opposite handedness.
func Mirror(h HandLandmarks, axis float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X = 2*axis - h.Points[i].X
	}
	if h.Handedness == Right {
		h.Handedness = Left
	} else {
		h.Handedness = Right
	}
	h.Box = h.ComputeBox()
	return h
}
