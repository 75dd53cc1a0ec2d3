package control

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
)

// AnchorFilter smooths the raw palm center before it reaches the tracker
// and dispatcher.
type AnchorFilter interface {
	Apply(p detector.Point3D) detector.Point3D
	Reset()
}

// NewAnchorFilter returns the filter registered under name.
func NewAnchorFilter(name string) (AnchorFilter, error) {
	switch name {
	case "", config.AnchorFilterNone:
		return Passthrough{}, nil
	case config.AnchorFilterKalman:
		return NewKalmanFilter(), nil
	}
	return nil, errors.Wrapf(config.ErrInvalid, "unknown anchor filter %q", name)
}

// Passthrough returns points unchanged.
type Passthrough struct{}

func (Passthrough) Apply(p detector.Point3D) detector.Point3D { return p }
func (Passthrough) Reset()                                    {}

// Kalman filter parameters for a palm center sampled once per frame.
const (
	kalmanDt       = 1.0
	kalmanStdDevA  = 2.0
	kalmanStdDevMx = 4.0
	kalmanStdDevMy = 4.0
)

// KalmanFilter tracks the palm center with a constant-acceleration 2D
// Kalman filter. Depth passes through unfiltered.
type KalmanFilter struct {
	kf *kalman_filter.Kalman2D
}

// NewKalmanFilter returns a filter that initializes on its first point.
func NewKalmanFilter() *KalmanFilter {
	return &KalmanFilter{}
}

// Apply feeds p to the filter and returns the estimated position.
func (f *KalmanFilter) Apply(p detector.Point3D) detector.Point3D {
	if f.kf == nil {
		f.kf = kalman_filter.NewKalman2D(kalmanDt, 0, 0, kalmanStdDevA, kalmanStdDevMx, kalmanStdDevMy,
			kalman_filter.WithState2D(p.X, p.Y))
		return p
	}

	f.kf.Predict()
	if err := f.kf.Update(p.X, p.Y); err != nil {
		// A singular innovation matrix leaves the state unusable; start over.
		f.kf = nil
		return p
	}
	x, y := f.kf.GetState()
	return detector.Point3D{X: x, Y: y, Z: p.Z}
}

// Reset discards the filter state. The next point re-initializes it.
func (f *KalmanFilter) Reset() {
	f.kf = nil
}
