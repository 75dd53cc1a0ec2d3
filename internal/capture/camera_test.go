package capture

import (
	"errors"
	"testing"
)

func TestNewCamera(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CameraConfig
		wantFPS int
	}{
		{
			name:    "defaults",
			cfg:     DefaultCameraConfig(),
			wantFPS: IdleFPS,
		},
		{
			name:    "zero config falls back",
			cfg:     CameraConfig{DeviceID: 1},
			wantFPS: IdleFPS,
		},
		{
			name:    "explicit rate",
			cfg:     CameraConfig{DeviceID: 2, FPS: 30},
			wantFPS: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.cfg, nil)

			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
			if cam.IsOpen() {
				t.Error("camera should not be open initially")
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(DefaultCameraConfig(), nil)

	tests := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{name: "set to 15", fps: 15, wantFPS: 15},
		{name: "set to 1", fps: 1, wantFPS: 1},
		{name: "zero keeps previous", fps: 0, wantFPS: 1},
		{name: "negative keeps previous", fps: -5, wantFPS: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.SetFPS(tt.fps)
			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
		})
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(DefaultCameraConfig(), nil)
	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}
	if !cam.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Cols() != DefaultWidth || mat.Rows() != DefaultHeight {
			t.Logf("frame is %dx%d; the camera may not support %dx%d", mat.Cols(), mat.Rows(), DefaultWidth, DefaultHeight)
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}

func TestCamera_ReadFrame_NotOpened(t *testing.T) {
	cam := NewCamera(DefaultCameraConfig(), nil)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestCamera_Close_NotOpened(t *testing.T) {
	cam := NewCamera(DefaultCameraConfig(), nil)

	if err := cam.Close(); err != nil {
		t.Errorf("Close() on an unopened camera should return nil, got: %v", err)
	}
}
