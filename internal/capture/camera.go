// Package capture reads frames from a camera and decides when they are worth
// running through hand detection.
package capture

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Default camera settings.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a closed camera.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrames is returned by MockCamera once playback is exhausted.
	ErrNoFrames = errors.New("no more frames")
)

// Camera is a frame source. ReadFrame returns a Mat the caller must close.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// CameraConfig selects the device and requested resolution.
type CameraConfig struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

// DefaultCameraConfig returns the settings for device 0 at idle rate.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		FPS:    IdleFPS,
	}
}

type deviceCamera struct {
	cfg CameraConfig
	log *zap.Logger

	mu      sync.Mutex
	capture *gocv.VideoCapture
}

// NewCamera returns a Camera for a local video device. The device is opened
// lazily by Open.
func NewCamera(cfg CameraConfig, log *zap.Logger) Camera {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = DefaultWidth, DefaultHeight
	}
	if cfg.FPS <= 0 {
		cfg.FPS = IdleFPS
	}
	return &deviceCamera{cfg: cfg, log: log}
}

func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.cfg.DeviceID)
	if err != nil {
		return errors.Wrapf(err, "open camera %d", c.cfg.DeviceID)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.cfg.FPS))
	c.capture = capture

	c.log.Info("camera opened",
		zap.Int("device", c.cfg.DeviceID),
		zap.Float64("width", capture.Get(gocv.VideoCaptureFrameWidth)),
		zap.Float64("height", capture.Get(gocv.VideoCaptureFrameHeight)),
	)
	return nil
}

func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return errors.Wrap(err, "close camera")
}

func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.Errorf("read frame from camera %d", c.cfg.DeviceID)
	}
	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}
	return &mat, nil
}

// SetFPS ignores values <= 0.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg.FPS = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.FPS
}

func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
