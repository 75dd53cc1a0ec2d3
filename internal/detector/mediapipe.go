package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ErrServiceNotFound is returned when no MediaPipe service script exists.
var ErrServiceNotFound = errors.New("mediapipe service script not found")

// idleShutdown is how long the landmark service may sit unused before it is
// stopped. The motion gate keeps it idle whenever nobody is in front of the
// camera.
const idleShutdown = 30 * time.Second

// MediaPipeDetector runs landmark inference in a Python MediaPipe process.
// Frames go out as length-prefixed JPEG; each frame is answered by one JSON
// line of normalised landmarks.
type MediaPipeDetector struct {
	config Config
	log    *zap.Logger
	paths  ServicePaths

	mu        sync.Mutex
	svc       *service
	idleTimer *time.Timer
}

// NewMediaPipeDetector locates the service script. The process itself is
// started lazily on the first frame.
func NewMediaPipeDetector(config Config, log *zap.Logger) (*MediaPipeDetector, error) {
	if log == nil {
		log = zap.NewNop()
	}
	paths := LocateService()
	if paths.Script == "" {
		return nil, ErrServiceNotFound
	}
	return &MediaPipeDetector{config: config, log: log, paths: paths}, nil
}

// Detect returns the hands in frame, in pixel coordinates, most confident
// first as reported by the service.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, errors.Wrap(err, "encode frame")
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.svc == nil {
		svc, err := startService(d.paths, d.config)
		if err != nil {
			return nil, err
		}
		d.svc = svc
		d.log.Info("mediapipe service started", zap.String("python", d.paths.Python), zap.String("script", d.paths.Script))
	}

	hands, err := d.svc.roundTrip(buf.GetBytes())
	if err != nil {
		// A broken pipe leaves the service unusable; the next frame restarts it.
		d.log.Warn("mediapipe service failed, restarting on next frame", zap.Error(err))
		d.stopLocked()
		return nil, err
	}
	d.armIdleTimer()

	out := make([]HandLandmarks, 0, len(hands))
	for _, h := range hands {
		lm, ok := h.landmarks()
		if !ok {
			d.log.Debug("dropping partial hand", zap.Int("points", len(h.Points)))
			continue
		}
		out = append(out, lm.Scale(float64(frame.Cols()), float64(frame.Rows())))
	}
	return filterHands(out, d.config), nil
}

// Close stops the service process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

func (d *MediaPipeDetector) stopLocked() error {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.svc == nil {
		return nil
	}
	err := d.svc.stop()
	d.svc = nil
	return err
}

func (d *MediaPipeDetector) armIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.stopLocked(); err != nil {
			d.log.Warn("mediapipe idle shutdown", zap.Error(err))
			return
		}
		d.log.Info("mediapipe service stopped after idle period")
	})
}

// service is one running landmark process.
type service struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *bufio.Reader
}

func startService(paths ServicePaths, cfg Config) (*service, error) {
	cmd := exec.Command(paths.Python, paths.Script,
		"--max-hands", strconv.Itoa(cfg.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(cfg.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(cfg.MinTrackingConf, 'f', -1, 64),
	)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "create stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "create stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "start mediapipe service")
	}
	return &service{cmd: cmd, stdin: stdin, out: bufio.NewReader(stdout)}, nil
}

func (s *service) roundTrip(jpeg []byte) ([]wireHand, error) {
	if err := writeFrame(s.stdin, jpeg); err != nil {
		return nil, err
	}
	return readHands(s.out)
}

// stop closes stdin, which tells the service to exit, and reaps it.
func (s *service) stop() error {
	s.stdin.Close()
	return s.cmd.Wait()
}

// writeFrame sends one frame: a big-endian uint32 length, then the bytes.
func writeFrame(w io.Writer, jpeg []byte) error {
	if uint64(len(jpeg)) > math.MaxUint32 {
		return errors.Errorf("frame of %d bytes is too large", len(jpeg))
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(jpeg)))
	if _, err := w.Write(header[:]); err != nil {
		return errors.Wrap(err, "write frame length")
	}
	if _, err := w.Write(jpeg); err != nil {
		return errors.Wrap(err, "write frame")
	}
	return nil
}

// readHands reads the service's answer for one frame.
func readHands(r *bufio.Reader) ([]wireHand, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, errors.Wrap(err, "read landmarks")
	}
	var resp struct {
		Hands []wireHand `json:"hands"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, errors.Wrap(err, "parse landmarks")
	}
	if resp.Error != "" {
		return nil, errors.Errorf("mediapipe service: %s", resp.Error)
	}
	return resp.Hands, nil
}

// wireHand is one hand as sent by the service, normalised to [0,1].
type wireHand struct {
	Points     []wirePoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type wirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// landmarks converts a complete hand; partial hands report false.
func (h wireHand) landmarks() (HandLandmarks, bool) {
	if len(h.Points) != NumLandmarks {
		return HandLandmarks{}, false
	}
	lm := HandLandmarks{Handedness: Handedness(h.Handedness), Score: h.Score}
	for i, p := range h.Points {
		lm.Points[i] = Point3D{X: p.X, Y: p.Y, Z: p.Z}
	}
	return lm, true
}
