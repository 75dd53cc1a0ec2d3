// Package control runs the per-frame gesture core for one camera source:
// finger extraction, classification, hold tracking and dispatch.
package control

import (
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
)

// Config parameterizes a Pipeline.
type Config struct {
	Thresholds      gesture.Thresholds
	HoldThreshold   time.Duration
	Dispatch        dispatch.Config
	AnchorFilter    string
	HandLostTimeout time.Duration
}

// ConfigFrom extracts the pipeline settings from the application config.
func ConfigFrom(c config.Config) Config {
	return Config{
		Thresholds: gesture.Thresholds{
			Pinch:       c.PinchThreshold,
			ThumbMargin: c.ThumbMargin,
		},
		HoldThreshold:   c.HoldThreshold.Std(),
		Dispatch:        dispatch.ConfigFrom(c),
		AnchorFilter:    c.AnchorFilter,
		HandLostTimeout: c.HandLostTimeout.Std(),
	}
}

// Result is the outcome of one frame.
type Result struct {
	State      gesture.State
	Actions    []dispatch.Action
	Transition *dispatch.Transition
}

// Snapshot is a read-only view of the pipeline after the last frame.
type Snapshot struct {
	Time        time.Time       `json:"time"`
	HandVisible bool            `json:"hand_visible"`
	Gesture     gesture.Gesture `json:"gesture"`
	Held        bool            `json:"held"`
	Confidence  float64         `json:"confidence"`
	Anchor      gesture.Anchor  `json:"anchor"`
	Dispatch    dispatch.Status `json:"dispatch"`
}

// Pipeline owns the mutable gesture state of a single source. It is not
// safe for concurrent use; give each source its own Pipeline.
type Pipeline struct {
	cfg        Config
	log        *zap.Logger
	classifier *gesture.Classifier
	tracker    *gesture.Tracker
	dispatcher *dispatch.Dispatcher
	filter     AnchorFilter

	lastSeen time.Time
	released bool
	snapshot Snapshot
}

// New builds a pipeline, failing fast on invalid thresholds or bindings.
func New(cfg Config, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}

	classifier, err := gesture.NewClassifier(cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	tracker, err := gesture.NewTracker(cfg.HoldThreshold)
	if err != nil {
		return nil, err
	}
	dispatcher, err := dispatch.New(cfg.Dispatch, log.Named("dispatch"))
	if err != nil {
		return nil, err
	}
	filter, err := NewAnchorFilter(cfg.AnchorFilter)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:        cfg,
		log:        log,
		classifier: classifier,
		tracker:    tracker,
		dispatcher: dispatcher,
		filter:     filter,
		released:   true,
	}
	p.snapshot.Dispatch = dispatcher.Status()
	return p, nil
}

// Process runs one hand observation through the core. frame is the real
// camera resolution the landmarks are expressed in.
func (p *Pipeline) Process(hand *detector.HandLandmarks, frame dispatch.Size, now time.Time) Result {
	p.lastSeen = now
	p.released = false

	palm := p.filter.Apply(hand.PalmCenter())
	g := p.classifier.Classify(gesture.Extract(hand))
	state := p.tracker.Update(g, hand.Score, palm, hand.Box, now)

	before := p.dispatcher.Mode().Name()
	actions := p.dispatcher.Dispatch(state, dispatch.Point{X: palm.X, Y: palm.Y}, frame, now)

	p.snapshot = Snapshot{
		Time:        now,
		HandVisible: true,
		Gesture:     state.Gesture,
		Held:        state.Held,
		Confidence:  state.Confidence,
		Anchor:      state.Anchor,
		Dispatch:    p.dispatcher.Status(),
	}

	return Result{
		State:      state,
		Actions:    actions,
		Transition: p.transition(before),
	}
}

// HandLost is called for frames without a hand. Once the hand has been gone
// for HandLostTimeout the active mode is released, so a held button is never
// left pressed, and the hold memory is cleared.
func (p *Pipeline) HandLost(now time.Time) Result {
	p.snapshot.Time = now
	p.snapshot.HandVisible = false

	if p.released || now.Sub(p.lastSeen) < p.cfg.HandLostTimeout {
		return Result{}
	}
	p.log.Debug("hand lost", zap.Duration("after", now.Sub(p.lastSeen)))
	return p.Release(now)
}

// Release forces the active mode to exit and clears the hold memory. It is
// used when tracking is lost, when detection is switched off and when the
// pipeline is replaced.
func (p *Pipeline) Release(now time.Time) Result {
	p.released = true
	p.snapshot.Time = now

	before := p.dispatcher.Mode().Name()
	actions := p.dispatcher.Release()
	p.tracker.Reset()
	p.filter.Reset()

	p.snapshot.Gesture = gesture.None
	p.snapshot.Held = false
	p.snapshot.Dispatch = p.dispatcher.Status()

	return Result{Actions: actions, Transition: p.transition(before)}
}

// Snapshot returns the state after the last processed frame.
func (p *Pipeline) Snapshot() Snapshot {
	return p.snapshot
}

func (p *Pipeline) transition(before string) *dispatch.Transition {
	after := p.dispatcher.Mode().Name()
	if after == before {
		return nil
	}
	return &dispatch.Transition{From: before, To: after}
}
