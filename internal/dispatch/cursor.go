package dispatch

import (
	"math"
)

// Point is a 2D position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width and height in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CursorConfig parameterizes CursorMapper.
type CursorConfig struct {
	Screen Size
	// Margin keeps the pointer this many pixels away from every screen edge.
	Margin float64
	// Inset is the fraction of the frame ignored on each side; 0.2 maps the
	// central 60% of the camera view to the whole screen.
	Inset float64
	// Smoothing in [0,1): 0 follows the hand exactly, values near 1 lag heavily.
	Smoothing float64
	// MaxSpeed caps the distance moved in one frame. Zero disables the cap.
	MaxSpeed float64
}

// CursorMapper converts palm positions in the camera frame to smoothed
// screen coordinates. It remembers the last emitted position.
type CursorMapper struct {
	cfg     CursorConfig
	last    Point
	hasLast bool
}

// NewCursorMapper returns a mapper with no previous position.
func NewCursorMapper(cfg CursorConfig) *CursorMapper {
	return &CursorMapper{cfg: cfg}
}

// Target maps palm to a screen position without smoothing. The frame is the
// real camera resolution. An empty frame maps to the screen center.
func (m *CursorMapper) Target(palm Point, frame Size) Point {
	s := m.cfg.Screen
	x := m.cfg.Margin + 0.5*(s.Width-2*m.cfg.Margin)
	y := m.cfg.Margin + 0.5*(s.Height-2*m.cfg.Margin)

	if frame.Width > 0 {
		x = clamp(m.normalize(palm.X, frame.Width)*s.Width, m.cfg.Margin, s.Width-m.cfg.Margin)
	}
	if frame.Height > 0 {
		y = clamp(m.normalize(palm.Y, frame.Height)*s.Height, m.cfg.Margin, s.Height-m.cfg.Margin)
	}
	return Point{X: x, Y: y}
}

func (m *CursorMapper) normalize(v, extent float64) float64 {
	inset := m.cfg.Inset * extent
	return clamp((v-inset)/(extent-2*inset), 0, 1)
}

// Move maps palm, smooths against the previous position and returns the new
// pointer position rounded to whole pixels. The first call jumps straight
// to the target.
func (m *CursorMapper) Move(palm Point, frame Size) (int, int) {
	target := m.Target(palm, frame)

	next := target
	if m.hasLast {
		k := 1 - m.cfg.Smoothing
		next = Point{
			X: m.last.X + (target.X-m.last.X)*k,
			Y: m.last.Y + (target.Y-m.last.Y)*k,
		}
		next = m.limit(next)
	}

	m.last = next
	m.hasLast = true
	return int(math.Round(next.X)), int(math.Round(next.Y))
}

// limit shortens the step from the last position to at most MaxSpeed.
func (m *CursorMapper) limit(next Point) Point {
	if m.cfg.MaxSpeed <= 0 {
		return next
	}
	dx, dy := next.X-m.last.X, next.Y-m.last.Y
	dist := math.Hypot(dx, dy)
	if dist <= m.cfg.MaxSpeed {
		return next
	}
	scale := m.cfg.MaxSpeed / dist
	return Point{X: m.last.X + dx*scale, Y: m.last.Y + dy*scale}
}

// Position returns the last emitted position, if any.
func (m *CursorMapper) Position() (Point, bool) {
	return m.last, m.hasLast
}

// Reset forgets the last position so the next Move jumps.
func (m *CursorMapper) Reset() {
	m.last = Point{}
	m.hasLast = false
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
