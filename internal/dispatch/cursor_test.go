package dispatch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	camera = Size{Width: 640, Height: 480}
	center = Point{X: 320, Y: 240}
)

func testCursorConfig() CursorConfig {
	return CursorConfig{
		Screen:    Size{Width: 1920, Height: 1080},
		Margin:    30,
		Inset:     0.2,
		Smoothing: 0.3,
	}
}

func TestCursorMapper_Target(t *testing.T) {
	m := NewCursorMapper(testCursorConfig())

	tests := []struct {
		name string
		palm Point
		want Point
	}{
		{"center", center, Point{X: 960, Y: 540}},
		{"top left clamps to margin", Point{X: 0, Y: 0}, Point{X: 30, Y: 30}},
		{"inside inset clamps to margin", Point{X: 128, Y: 96}, Point{X: 30, Y: 30}},
		{"bottom right clamps to margin", Point{X: 640, Y: 480}, Point{X: 1890, Y: 1050}},
		{"active zone", Point{X: 224, Y: 168}, Point{X: 480, Y: 270}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Target(tt.palm, camera)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
		})
	}
}

func TestCursorMapper_EmptyFrameMapsToCenter(t *testing.T) {
	m := NewCursorMapper(testCursorConfig())
	assert.Equal(t, Point{X: 960, Y: 540}, m.Target(Point{X: 50, Y: 50}, Size{}))
}

func TestCursorMapper_FirstMoveJumps(t *testing.T) {
	m := NewCursorMapper(testCursorConfig())
	_, ok := m.Position()
	require.False(t, ok)

	x, y := m.Move(Point{X: 600, Y: 450}, camera)
	assert.Equal(t, 1890, x)
	assert.Equal(t, 1050, y)

	pos, ok := m.Position()
	require.True(t, ok)
	assert.Equal(t, Point{X: 1890, Y: 1050}, pos)
}

func TestCursorMapper_Smoothing(t *testing.T) {
	m := NewCursorMapper(testCursorConfig())
	m.Move(center, camera)

	// 960 + (1890-960)*0.7 = 1611, 540 + (1050-540)*0.7 = 897
	x, y := m.Move(Point{X: 600, Y: 450}, camera)
	assert.Equal(t, 1611, x)
	assert.Equal(t, 897, y)
}

func TestCursorMapper_ConvergesWithoutOvershoot(t *testing.T) {
	for _, speed := range []float64{0, 200} {
		cfg := testCursorConfig()
		cfg.MaxSpeed = speed
		m := NewCursorMapper(cfg)
		m.Move(center, camera)

		prevX, prevY := 960, 540
		for i := 0; i < 40; i++ {
			x, y := m.Move(Point{X: 600, Y: 450}, camera)
			require.GreaterOrEqual(t, x, prevX)
			require.GreaterOrEqual(t, y, prevY)
			require.LessOrEqual(t, x, 1890)
			require.LessOrEqual(t, y, 1050)
			if speed > 0 {
				step := math.Hypot(float64(x-prevX), float64(y-prevY))
				require.LessOrEqual(t, step, speed+1.5)
			}
			prevX, prevY = x, y
		}
		assert.Equal(t, 1890, prevX, "speed %v", speed)
		assert.Equal(t, 1050, prevY, "speed %v", speed)
	}
}

func TestCursorMapper_Reset(t *testing.T) {
	m := NewCursorMapper(testCursorConfig())
	m.Move(center, camera)
	m.Reset()

	_, ok := m.Position()
	assert.False(t, ok)

	x, y := m.Move(Point{X: 600, Y: 450}, camera)
	assert.Equal(t, 1890, x)
	assert.Equal(t, 1050, y)
}
