package plugin

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/dispatch"
)

// Plugin names the runner routes to.
const (
	PointerPlugin  = "pointer"
	SystemPlugin   = "system-control"
	KeyboardPlugin = "keyboard"
)

// VoiceAnnouncement is spoken when voice command mode is requested.
const VoiceAnnouncement = "Voice command mode activated"

// Announcer queues text for speech.
type Announcer interface {
	Enqueue(text string)
}

// Runner executes device actions through plugins. Failures are logged and
// dropped; the gesture core never sees them.
type Runner struct {
	plugins  *Manager
	executor *Executor
	speaker  Announcer
	onVoice  func()
	log      *zap.Logger
}

// NewRunner returns a Runner. speaker may be nil.
func NewRunner(plugins *Manager, executor *Executor, speaker Announcer, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		plugins:  plugins,
		executor: executor,
		speaker:  speaker,
		log:      log,
	}
}

// OnVoice installs a hook called after a voice activation is announced.
func (r *Runner) OnVoice(fn func()) {
	r.onVoice = fn
}

// Run executes a batch in order. Runs of consecutive pointer moves collapse
// to the last one.
func (r *Runner) Run(ctx context.Context, actions []dispatch.Action) {
	for i, a := range actions {
		if a.Kind == dispatch.KindPointerMove && i+1 < len(actions) && actions[i+1].Kind == dispatch.KindPointerMove {
			continue
		}
		if err := r.Execute(ctx, a); err != nil {
			r.log.Warn("action failed", zap.Stringer("action", a), zap.Error(err))
		}
	}
}

// Execute performs a single action.
func (r *Runner) Execute(ctx context.Context, a dispatch.Action) error {
	if a.Kind == dispatch.KindVoiceActivate {
		r.log.Info("voice command mode activated")
		if r.speaker != nil {
			r.speaker.Enqueue(VoiceAnnouncement)
		}
		if r.onVoice != nil {
			r.onVoice()
		}
		return nil
	}

	name, req, err := Route(a)
	if err != nil {
		return err
	}
	p, err := r.plugins.Get(name)
	if err != nil {
		return err
	}
	if !p.Manifest.Supports(req.Action) {
		return errors.Errorf("plugin %s does not support %s", name, req.Action)
	}

	resp, err := r.executor.Execute(ctx, p, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.Errorf("plugin %s: %s", name, resp.Error)
	}
	return nil
}

type pointerParams struct {
	X         int    `json:"x,omitempty"`
	Y         int    `json:"y,omitempty"`
	Button    string `json:"button,omitempty"`
	Direction string `json:"direction,omitempty"`
	Amount    int    `json:"amount,omitempty"`
}

type keystrokeParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// Route maps an action to the plugin and request that perform it.
func Route(a dispatch.Action) (string, *Request, error) {
	var (
		action string
		params pointerParams
	)
	switch a.Kind {
	case dispatch.KindPointerMove:
		action, params = "move", pointerParams{X: a.X, Y: a.Y}
	case dispatch.KindPointerDown:
		action, params = "down", pointerParams{Button: string(a.Button)}
	case dispatch.KindPointerUp:
		action, params = "up", pointerParams{Button: string(a.Button)}
	case dispatch.KindPointerClick:
		action, params = "click", pointerParams{Button: string(a.Button)}
	case dispatch.KindScrollUp:
		action, params = "scroll", pointerParams{Direction: "up", Amount: a.Amount}
	case dispatch.KindScrollDown:
		action, params = "scroll", pointerParams{Direction: "down", Amount: a.Amount}
	case dispatch.KindVolumeUp:
		return SystemPlugin, &Request{Action: "volume-up"}, nil
	case dispatch.KindVolumeDown:
		return SystemPlugin, &Request{Action: "volume-down"}, nil
	case dispatch.KindVolumeMute:
		return SystemPlugin, &Request{Action: "volume-mute"}, nil
	case dispatch.KindKeyPress:
		raw, err := json.Marshal(keystrokeParams{Key: a.Key})
		if err != nil {
			return "", nil, errors.Wrap(err, "encode keystroke params")
		}
		return KeyboardPlugin, &Request{Action: "keystroke", Params: raw}, nil
	default:
		return "", nil, errors.Errorf("no plugin handles %s", a.Kind)
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return "", nil, errors.Wrap(err, "encode pointer params")
	}
	return PointerPlugin, &Request{Action: action, Params: raw}, nil
}
