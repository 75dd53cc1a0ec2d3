package dispatch

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
)

// Config parameterizes a Dispatcher.
type Config struct {
	Cursor CursorConfig

	ClickCooldown  time.Duration
	ScrollCooldown time.Duration
	VoiceCooldown  time.Duration
	ScrollAmount   int

	VolumeSensitivity float64
	InitialVolume     int
	MaxVolumeSteps    int

	// Actions binds gestures to commands. Nil uses gesture.DefaultActions.
	Actions gesture.ActionTable
}

// ConfigFrom extracts the dispatcher settings from the application config.
func ConfigFrom(c config.Config) Config {
	return Config{
		Cursor: CursorConfig{
			Screen:    Size{Width: float64(c.ScreenWidth), Height: float64(c.ScreenHeight)},
			Margin:    float64(c.ScreenMargin),
			Inset:     c.ActiveZoneInset,
			Smoothing: c.CursorSmoothing,
			MaxSpeed:  c.MaxCursorSpeed,
		},
		ClickCooldown:     c.ClickCooldown.Std(),
		ScrollCooldown:    c.ScrollCooldown.Std(),
		VoiceCooldown:     c.VoiceCooldown.Std(),
		ScrollAmount:      c.ScrollAmount,
		VolumeSensitivity: c.VolumeSensitivity,
		InitialVolume:     c.InitialVolume,
		MaxVolumeSteps:    c.MaxVolumeSteps,
	}
}

// DefaultConfig returns the reference dispatcher settings.
func DefaultConfig() Config {
	return ConfigFrom(config.Default())
}

// Validate checks c and wraps config.ErrInvalid on failure.
func (c Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.Wrapf(config.ErrInvalid, format, args...)
	}

	cur := c.Cursor
	switch {
	case !config.Finite(cur.Margin) || !config.Finite(cur.Inset) || !config.Finite(cur.Smoothing) || !config.Finite(cur.MaxSpeed):
		return invalid("cursor settings must be finite numbers")
	case !config.Finite(cur.Screen.Width) || !config.Finite(cur.Screen.Height):
		return invalid("screen size must be finite, got %vx%v", cur.Screen.Width, cur.Screen.Height)
	case !config.Finite(c.VolumeSensitivity):
		return invalid("volume sensitivity must be a finite number, got %v", c.VolumeSensitivity)
	case cur.Margin < 0:
		return invalid("screen margin must not be negative, got %v", cur.Margin)
	case cur.Screen.Width <= 2*cur.Margin || cur.Screen.Height <= 2*cur.Margin:
		return invalid("screen %vx%v too small for margin %v", cur.Screen.Width, cur.Screen.Height, cur.Margin)
	case cur.Inset < 0 || cur.Inset >= 0.5:
		return invalid("active zone inset must be in [0, 0.5), got %v", cur.Inset)
	case cur.Smoothing < 0 || cur.Smoothing >= 1:
		return invalid("cursor smoothing must be in [0, 1), got %v", cur.Smoothing)
	case cur.MaxSpeed < 0:
		return invalid("max cursor speed must not be negative, got %v", cur.MaxSpeed)
	case c.ClickCooldown < 0 || c.ScrollCooldown < 0 || c.VoiceCooldown < 0:
		return invalid("cooldowns must not be negative")
	case c.ScrollAmount < 1:
		return invalid("scroll amount must be positive, got %d", c.ScrollAmount)
	case c.VolumeSensitivity <= 0:
		return invalid("volume sensitivity must be positive, got %v", c.VolumeSensitivity)
	case c.InitialVolume < 0 || c.InitialVolume > 100:
		return invalid("initial volume must be in [0, 100], got %d", c.InitialVolume)
	case c.MaxVolumeSteps < 1:
		return invalid("max volume steps must be positive, got %d", c.MaxVolumeSteps)
	}
	if c.Actions != nil {
		if err := c.Actions.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Status is a point-in-time view of the dispatcher.
type Status struct {
	Mode          string    `json:"mode"`
	Volume        int       `json:"volume"`
	Cursor        *Point    `json:"cursor,omitempty"`
	CooldownUntil time.Time `json:"cooldown_until"`
}

// Dispatcher is the mode state machine. It is owned by one pipeline and is
// not safe for concurrent use.
type Dispatcher struct {
	cfg     Config
	actions gesture.ActionTable
	log     *zap.Logger

	cursor        *CursorMapper
	mode          Mode
	cooldownUntil time.Time
	volume        int
}

// New validates cfg and returns an idle Dispatcher.
func New(cfg Config, log *zap.Logger) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	actions := cfg.Actions
	if actions == nil {
		actions = gesture.DefaultActions()
	}

	return &Dispatcher{
		cfg:     cfg,
		actions: actions,
		log:     log,
		cursor:  NewCursorMapper(cfg.Cursor),
		mode:    Idle{},
		volume:  cfg.InitialVolume,
	}, nil
}

// Dispatch consumes one frame and returns the actions to execute, in order.
// palm is the raw palm center in the camera frame and frame is the real
// camera resolution.
//
// Active modes are exited first, so a new mode's entry is always evaluated
// from Idle within the same frame.
func (d *Dispatcher) Dispatch(state gesture.State, palm Point, frame Size, now time.Time) []Action {
	cmd := d.actions.Command(state.Gesture)

	out := d.exitMode(cmd, state.Held)
	if !state.Held || cmd == "" {
		return out
	}

	switch cmd {
	case gesture.CommandMove:
		out = append(out, d.move(palm, frame))

	case gesture.CommandDrag:
		if _, ok := d.mode.(Dragging); !ok {
			d.enter(Dragging{}, state.Gesture)
			out = append(out, PointerDown())
		}
		out = append(out, d.move(palm, frame))

	case gesture.CommandSelect:
		if _, ok := d.mode.(Selecting); !ok {
			start, ok := d.cursor.Position()
			if !ok {
				start = d.cursor.Target(palm, frame)
			}
			d.enter(Selecting{Start: start}, state.Gesture)
			out = append(out, PointerDown())
		} else {
			out = append(out, d.move(palm, frame))
		}

	case gesture.CommandVolume:
		out = append(out, d.adjustVolume(palm.Y, state.Gesture)...)

	case gesture.CommandLeftClick:
		out = d.fire(out, PointerClick(ButtonLeft), d.cfg.ClickCooldown, now)
	case gesture.CommandRightClick:
		out = d.fire(out, PointerClick(ButtonRight), d.cfg.ClickCooldown, now)
	case gesture.CommandMiddleClick:
		out = d.fire(out, PointerClick(ButtonMiddle), d.cfg.ClickCooldown, now)
	case gesture.CommandScrollUp:
		out = d.fire(out, ScrollUp(d.cfg.ScrollAmount), d.cfg.ScrollCooldown, now)
	case gesture.CommandScrollDown:
		out = d.fire(out, ScrollDown(d.cfg.ScrollAmount), d.cfg.ScrollCooldown, now)
	case gesture.CommandVoice:
		out = d.fire(out, VoiceActivate(), d.cfg.VoiceCooldown, now)
	case gesture.CommandConfirm:
		out = d.fire(out, KeyPress(KeyEnter), d.cfg.ClickCooldown, now)
	case gesture.CommandMute:
		out = d.fire(out, VolumeMute(), d.cfg.ClickCooldown, now)
	}
	return out
}

// Release leaves any active mode, releasing a held button. It is used when
// the hand disappears from view.
func (d *Dispatcher) Release() []Action {
	var out []Action
	switch m := d.mode.(type) {
	case Dragging, Selecting:
		out = append(out, PointerUp())
	case VolumeAdjust:
		d.log.Info("volume set", zap.Int("volume", d.volume), zap.Float64("reference_y", m.ReferenceY))
	}
	if _, idle := d.mode.(Idle); !idle {
		d.log.Info("mode released", zap.String("mode", d.mode.Name()))
		d.mode = Idle{}
	}
	d.cursor.Reset()
	return out
}

// Mode returns the current mode.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// Volume returns the tracked system volume in [0,100].
func (d *Dispatcher) Volume() int {
	return d.volume
}

// Status returns a snapshot of the dispatcher state.
func (d *Dispatcher) Status() Status {
	s := Status{
		Mode:          d.mode.Name(),
		Volume:        d.volume,
		CooldownUntil: d.cooldownUntil,
	}
	if p, ok := d.cursor.Position(); ok {
		s.Cursor = &p
	}
	return s
}

// exitMode leaves the active mode when the frame no longer sustains it.
// Dragging ends as soon as the drag gesture is gone; volume and selection
// end when their gesture is no longer held.
func (d *Dispatcher) exitMode(cmd gesture.Command, held bool) []Action {
	switch m := d.mode.(type) {
	case Dragging:
		if cmd != gesture.CommandDrag {
			d.leave()
			return []Action{PointerUp()}
		}
	case VolumeAdjust:
		if cmd != gesture.CommandVolume || !held {
			d.log.Info("volume set", zap.Int("volume", d.volume), zap.Float64("reference_y", m.ReferenceY))
			d.leave()
		}
	case Selecting:
		if cmd != gesture.CommandSelect || !held {
			d.leave()
			return []Action{PointerUp()}
		}
	}
	return nil
}

func (d *Dispatcher) enter(m Mode, g gesture.Gesture) {
	d.log.Info("mode entered", zap.String("mode", m.Name()), zap.Stringer("gesture", g))
	d.mode = m
}

func (d *Dispatcher) leave() {
	d.log.Info("mode exited", zap.String("mode", d.mode.Name()))
	d.mode = Idle{}
}

func (d *Dispatcher) move(palm Point, frame Size) Action {
	x, y := d.cursor.Move(palm, frame)
	return PointerMove(x, y)
}

// fire appends a discrete action if the shared cooldown has elapsed and
// restarts the cooldown.
func (d *Dispatcher) fire(out []Action, a Action, cooldown time.Duration, now time.Time) []Action {
	if now.Before(d.cooldownUntil) {
		return out
	}
	d.cooldownUntil = now.Add(cooldown)
	d.log.Debug("discrete action", zap.Stringer("action", a))
	return append(out, a)
}

// adjustVolume enters volume mode on the first held frame, capturing the
// reference height. Later frames convert the rise since the reference into
// volume change and emit at most MaxVolumeSteps key steps. The reference
// moves only when the volume value changes.
func (d *Dispatcher) adjustVolume(palmY float64, g gesture.Gesture) []Action {
	m, ok := d.mode.(VolumeAdjust)
	if !ok {
		d.enter(VolumeAdjust{ReferenceY: palmY}, g)
		return nil
	}

	change := int((m.ReferenceY - palmY) / d.cfg.VolumeSensitivity)
	next := d.volume + change
	if next < 0 {
		next = 0
	} else if next > 100 {
		next = 100
	}
	diff := next - d.volume
	if diff == 0 {
		return nil
	}

	step, n := VolumeUp(), diff
	if diff < 0 {
		step, n = VolumeDown(), -diff
	}
	if n > d.cfg.MaxVolumeSteps {
		n = d.cfg.MaxVolumeSteps
	}
	out := make([]Action, n)
	for i := range out {
		out[i] = step
	}

	d.volume = next
	d.mode = VolumeAdjust{ReferenceY: palmY}
	return out
}
