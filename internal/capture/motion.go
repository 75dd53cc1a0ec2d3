package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// blurKernel is the Gaussian kernel applied before differencing.
	blurKernel = 21
	// pixelDelta is the grey-level change that marks a pixel as moved.
	pixelDelta = 25
)

// MotionDetector compares each frame with the previous one. Motion is
// reported when more than threshold percent of the pixels changed.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector returns a detector with threshold in percent of pixels.
// Non-positive thresholds fall back to 1%.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = 1.0
	}
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect reports whether frame differs from the previous frame and by how
// much. The first frame after construction or Reset only primes the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)

	if !m.primed || m.prev.Rows() != blurred.Rows() || m.prev.Cols() != blurred.Cols() {
		m.swap(blurred)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)
	gocv.Threshold(diff, &diff, pixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	m.swap(blurred)

	return changed > m.threshold, changed
}

// swap takes ownership of next as the new baseline.
func (m *MotionDetector) swap(next gocv.Mat) {
	m.prev.Close()
	m.prev = next
}

// Reset drops the baseline so the next frame primes it again.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swap(gocv.NewMat())
	m.primed = false
}

// Close releases the baseline. The detector may be reused afterwards.
func (m *MotionDetector) Close() {
	m.Reset()
}

// SetThreshold ignores values <= 0.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Threshold returns the change percentage that counts as motion.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}
