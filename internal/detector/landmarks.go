// Package detector provides hand detection interfaces and the landmark frame
// consumed by the gesture pipeline.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// palmLandmarks are averaged to locate the palm center.
var palmLandmarks = [...]int{Wrist, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}

// Handedness identifies which hand a frame was observed for.
type Handedness string

const (
	Left  Handedness = "Left"
	Right Handedness = "Right"
)

// Point3D represents a landmark in image space: x and y in pixels, z as
// relative depth scaled like x.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Rect is an axis-aligned rectangle in image-space pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// HandLandmarks is a single observation of one tracked hand. Points are
// ordered by the MediaPipe index constants above and are never reordered.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness Handedness            `json:"handedness"`
	Score      float64               `json:"score"`
	Box        Rect                  `json:"box"`
}

// PlanarDistance returns the Euclidean distance between a and b in the x/y plane.
func PlanarDistance(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PalmCenter returns the mean of the wrist and the four finger MCP joints.
func (h *HandLandmarks) PalmCenter() Point3D {
	var c Point3D
	for _, idx := range palmLandmarks {
		c.X += h.Points[idx].X
		c.Y += h.Points[idx].Y
		c.Z += h.Points[idx].Z
	}
	n := float64(len(palmLandmarks))
	return Point3D{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}

// ComputeBox returns the integer-aligned bounding rectangle of all points.
func (h *HandLandmarks) ComputeBox() Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range h.Points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	x0, y0 := math.Floor(minX), math.Floor(minY)
	return Rect{
		X:      x0,
		Y:      y0,
		Width:  math.Floor(maxX) - x0,
		Height: math.Floor(maxY) - y0,
	}
}

// Scale returns a copy of the hand with every coordinate multiplied by the
// frame dimensions. z uses the width, matching MediaPipe's depth convention.
// The bounding box is recomputed in pixel space.
func (h HandLandmarks) Scale(width, height float64) HandLandmarks {
	scaled := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	for i, p := range h.Points {
		scaled.Points[i] = Point3D{X: p.X * width, Y: p.Y * height, Z: p.Z * width}
	}
	scaled.Box = scaled.ComputeBox()
	return scaled
}
