// Package app wires the camera, the gesture core and the executor plugins
// into a running application.
package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/journal"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/speech"
	"github.com/ayusman/mudra/internal/store"
)

// ActionQueueSize is the capacity of the channel between the capture loop
// and the executor loop.
const ActionQueueSize = 32

// speechTimeout bounds one utterance of the external TTS command.
const speechTimeout = 10 * time.Second

// EventRetention is how long journal events are kept in the store.
const EventRetention = 30 * 24 * time.Hour

// ActionRunner performs device actions. *plugin.Runner is the production
// implementation.
type ActionRunner interface {
	Run(ctx context.Context, actions []dispatch.Action)
}

// Config holds the collaborators of an App. Only Settings is required.
type Config struct {
	// Settings are the defaults, file and environment layers. Settings
	// persisted in Store are applied on top.
	Settings config.Config
	Store    *store.Store

	// Nil collaborators are built from Settings.
	Camera   capture.Camera
	Detector detector.Detector
	Speaker  speech.Speaker
	Runner   ActionRunner
	// Sink receives journal events in addition to Store and Redis.
	Sink journal.Sink
}

// Status is the externally visible state of the app.
type Status struct {
	Enabled  bool             `json:"enabled"`
	Running  bool             `json:"running"`
	Active   bool             `json:"active"`
	FPS      int              `json:"fps"`
	Session  string           `json:"session"`
	Dropped  uint64           `json:"dropped_batches"`
	Snapshot control.Snapshot `json:"snapshot"`
}

// outcome is one frame's result handed to the executor loop.
type outcome struct {
	result control.Result
	time   time.Time
}

// App runs one capture loop that owns the gesture pipeline and one executor
// loop that performs the resulting actions.
type App struct {
	base  config.Config
	store *store.Store
	log   *zap.Logger

	camera   capture.Camera
	motion   *capture.MotionDetector
	gate     *capture.Gate
	detector detector.Detector
	preview  *capture.Preview
	plugins  *plugin.Manager
	runner   ActionRunner
	speaker  speech.Speaker
	journal  *journal.Journal

	reloadMu sync.Mutex
	reload   chan *control.Pipeline
	actions  chan outcome
	dropped  atomic.Uint64

	mu       sync.RWMutex
	cfg      config.Config
	table    gesture.ActionTable
	enabled  bool
	running  bool
	active   bool
	fps      int
	snapshot control.Snapshot
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New builds an App and its first pipeline. It fails when the persisted
// settings or bindings do not produce a valid configuration.
func New(cfg Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := cfg.Settings
	if err := s.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		base:    s,
		store:   cfg.Store,
		log:     log,
		camera:  cfg.Camera,
		motion:  capture.NewMotionDetector(s.MotionThreshold),
		gate:    capture.NewGate(),
		preview: capture.NewPreview(),
		speaker: cfg.Speaker,
		runner:  cfg.Runner,
		reload:  make(chan *control.Pipeline, 1),
		fps:     capture.IdleFPS,
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(capture.CameraConfig{
			DeviceID: s.CameraID,
			Width:    capture.DefaultWidth,
			Height:   capture.DefaultHeight,
			FPS:      capture.IdleFPS,
		}, log.Named("camera"))
	}

	a.detector = cfg.Detector
	if a.detector == nil {
		dcfg := detector.Config{
			MaxHands:        s.MaxHands,
			MinConfidence:   s.MinDetectionConfidence,
			MinTrackingConf: s.MinTrackingConfidence,
		}
		if mp, err := detector.NewMediaPipeDetector(dcfg, log.Named("mediapipe")); err == nil {
			a.detector = mp
			log.Info("using MediaPipe hand detection")
		} else {
			log.Warn("MediaPipe not available, using mock detector", zap.Error(err))
			a.detector = detector.NewMockDetector()
		}
	}

	if a.speaker == nil {
		var synth speech.Synthesizer = speech.LogSynthesizer{Log: log.Named("speech")}
		if s.SpeechEnabled && s.SpeechCommand != "" {
			synth = speech.CommandSynthesizer{Command: s.SpeechCommand, Timeout: speechTimeout}
		}
		a.speaker = speech.NewQueue(synth, log.Named("speech"))
	}

	a.plugins = plugin.NewManager(s.PluginDir, log.Named("plugin"))
	if err := a.plugins.Discover(); err != nil {
		log.Warn("plugin discovery failed", zap.String("dir", s.PluginDir), zap.Error(err))
	}
	if a.runner == nil {
		a.runner = plugin.NewRunner(a.plugins, plugin.NewExecutor(plugin.DefaultTimeout), a.speaker, log.Named("runner"))
	}

	a.journal = journal.New(a.sinks(cfg.Sink), log.Named("journal"))

	if err := a.Reload(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) sinks(extra journal.Sink) journal.Multi {
	var sinks journal.Multi
	if a.store != nil {
		sinks = append(sinks, journal.NewStoreSink(a.store))
	}
	if addr := a.base.RedisAddr; addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if rs, err := journal.NewRedisSink(ctx, addr, journal.DefaultChannel); err != nil {
			a.log.Warn("redis journal disabled", zap.Error(err))
		} else {
			sinks = append(sinks, rs)
		}
	}
	if extra != nil {
		sinks = append(sinks, extra)
	}
	return sinks
}

// Reload recomputes the effective configuration from the base settings, the
// persisted settings and the persisted bindings, and hands a fresh pipeline
// to the capture loop. The running pipeline is released first, so no
// button stays pressed across a reload.
func (a *App) Reload() error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	cfg, table, err := a.effective()
	if err != nil {
		return err
	}

	pcfg := control.ConfigFrom(cfg)
	pcfg.Dispatch.Actions = table
	p, err := control.New(pcfg, a.log.Named("control"))
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.cfg = cfg
	a.table = table
	a.snapshot = p.Snapshot()
	a.mu.Unlock()
	a.motion.SetThreshold(cfg.MotionThreshold)

	select {
	case <-a.reload:
	default:
	}
	a.reload <- p
	return nil
}

func (a *App) effective() (config.Config, gesture.ActionTable, error) {
	cfg := a.base
	table := gesture.DefaultActions()
	if a.store == nil {
		return cfg, table, nil
	}

	settings, err := a.store.Settings().All()
	if err != nil {
		return cfg, nil, err
	}
	if err := cfg.ApplySettings(settings); err != nil {
		return cfg, nil, errors.Wrap(err, "persisted settings")
	}

	bindings, err := a.store.Bindings().List()
	if err != nil {
		return cfg, nil, err
	}
	overrides := make(map[gesture.Gesture]gesture.Command, len(bindings))
	for _, b := range bindings {
		g, err := gesture.Parse(b.Gesture)
		if err != nil {
			return cfg, nil, errors.Wrap(err, "persisted binding")
		}
		overrides[g] = gesture.Command(b.Command)
	}
	table, err = table.WithOverrides(overrides)
	if err != nil {
		return cfg, nil, errors.Wrap(err, "persisted bindings")
	}
	return cfg, table, nil
}

// Start opens the camera and launches the capture and executor loops.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return nil
	}
	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.gate.FPS())

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.actions = make(chan outcome, ActionQueueSize)
	a.running = true

	now := time.Now()
	if a.store != nil {
		if n, err := a.store.Events().Prune(now.Add(-EventRetention)); err != nil {
			a.log.Warn("pruning events", zap.Error(err))
		} else if n > 0 {
			a.log.Info("pruned old events", zap.Int64("count", n))
		}
	}
	a.journal.Start(ctx, now)

	a.wg.Add(2)
	go a.captureLoop(ctx, a.actions)
	go a.executeLoop(context.WithoutCancel(ctx), a.actions)

	a.log.Info("detection pipeline started", zap.String("session", a.journal.Session()))
	return nil
}

// Stop halts both loops, releases any held button and closes every
// collaborator. The App cannot be restarted.
func (a *App) Stop() {
	a.mu.Lock()
	running := a.running
	cancel := a.cancel
	a.running = false
	a.mu.Unlock()

	if running {
		cancel()
		a.wg.Wait()
		a.journal.Stop(context.Background(), time.Now())
	}

	if err := a.camera.Close(); err != nil {
		a.log.Warn("closing camera", zap.Error(err))
	}
	a.motion.Close()
	if err := a.detector.Close(); err != nil {
		a.log.Warn("closing detector", zap.Error(err))
	}
	if err := a.journal.Close(); err != nil {
		a.log.Warn("closing journal", zap.Error(err))
	}

	ctx, cancelFlush := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelFlush()
	if err := a.speaker.Flush(ctx); err != nil && !errors.Is(err, speech.ErrClosed) {
		a.log.Warn("speech not flushed", zap.Error(err))
	}
	a.speaker.Close()

	a.log.Info("detection pipeline stopped")
}

// SetEnabled switches gesture control on or off. Switching off releases
// the active mode.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled reports whether gesture control is on.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Status returns a copy of the current state.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Status{
		Enabled:  a.enabled,
		Running:  a.running,
		Active:   a.active,
		FPS:      a.fps,
		Session:  a.journal.Session(),
		Dropped:  a.dropped.Load(),
		Snapshot: a.snapshot,
	}
}

// Config returns the effective configuration.
func (a *App) Config() config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Actions returns the effective gesture bindings.
func (a *App) Actions() gesture.ActionTable {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.table
}

// Preview returns the live JPEG preview.
func (a *App) Preview() *capture.Preview {
	return a.preview
}

// Plugins returns the plugin manager.
func (a *App) Plugins() *plugin.Manager {
	return a.plugins
}

// Session returns the journal session ID.
func (a *App) Session() string {
	return a.journal.Session()
}
