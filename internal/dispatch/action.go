// Package dispatch turns per-frame gesture states into device actions. It
// owns the mode state machine (idle, dragging, volume, selection), the
// shared cooldown and the cursor mapping. It performs no I/O.
package dispatch

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies a device action.
type Kind int

const (
	KindPointerMove Kind = iota + 1
	KindPointerDown
	KindPointerUp
	KindPointerClick
	KindScrollUp
	KindScrollDown
	KindVolumeUp
	KindVolumeDown
	KindVoiceActivate
	KindVolumeMute
	KindKeyPress
)

var kindNames = map[Kind]string{
	KindPointerMove:   "pointer_move",
	KindPointerDown:   "pointer_down",
	KindPointerUp:     "pointer_up",
	KindPointerClick:  "pointer_click",
	KindScrollUp:      "scroll_up",
	KindScrollDown:    "scroll_down",
	KindVolumeUp:      "volume_up",
	KindVolumeDown:    "volume_down",
	KindVoiceActivate: "voice_activate",
	KindVolumeMute:    "volume_mute",
	KindKeyPress:      "key_press",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return errors.Errorf("unknown action kind %q", text)
}

// Button is a pointer button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// KeyEnter is the key pressed by the confirm command.
const KeyEnter = "enter"

// Action is one device instruction for the executor. Only the fields
// relevant to Kind are set.
type Action struct {
	Kind   Kind   `json:"kind"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	Button Button `json:"button,omitempty"`
	Amount int    `json:"amount,omitempty"`
	Key    string `json:"key,omitempty"`
}

// PointerMove moves the pointer to absolute screen coordinates.
func PointerMove(x, y int) Action { return Action{Kind: KindPointerMove, X: x, Y: y} }

// PointerDown presses the left button.
func PointerDown() Action { return Action{Kind: KindPointerDown, Button: ButtonLeft} }

// PointerUp releases the left button.
func PointerUp() Action { return Action{Kind: KindPointerUp, Button: ButtonLeft} }

// PointerClick clicks b at the current pointer position.
func PointerClick(b Button) Action { return Action{Kind: KindPointerClick, Button: b} }

// ScrollUp scrolls up by n notches.
func ScrollUp(n int) Action { return Action{Kind: KindScrollUp, Amount: n} }

// ScrollDown scrolls down by n notches.
func ScrollDown(n int) Action { return Action{Kind: KindScrollDown, Amount: n} }

// VolumeUp raises system volume by one step.
func VolumeUp() Action { return Action{Kind: KindVolumeUp} }

// VolumeDown lowers system volume by one step.
func VolumeDown() Action { return Action{Kind: KindVolumeDown} }

// VoiceActivate signals that voice command mode was requested.
func VoiceActivate() Action { return Action{Kind: KindVoiceActivate} }

// VolumeMute toggles system mute.
func VolumeMute() Action { return Action{Kind: KindVolumeMute} }

// KeyPress presses and releases a named key.
func KeyPress(key string) Action { return Action{Kind: KindKeyPress, Key: key} }

// Discrete reports whether a is a one-shot action rather than part of a
// continuous stream of pointer moves.
func (a Action) Discrete() bool {
	return a.Kind != KindPointerMove
}

func (a Action) String() string {
	switch a.Kind {
	case KindPointerMove:
		return fmt.Sprintf("%s(%d,%d)", a.Kind, a.X, a.Y)
	case KindPointerClick:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Button)
	case KindScrollUp, KindScrollDown:
		return fmt.Sprintf("%s(%d)", a.Kind, a.Amount)
	case KindKeyPress:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Key)
	}
	return a.Kind.String()
}

// MovesOnly reports whether every action in the batch is a pointer move.
// Such batches may be dropped under back-pressure since the next frame
// supersedes them.
func MovesOnly(actions []Action) bool {
	for _, a := range actions {
		if a.Discrete() {
			return false
		}
	}
	return true
}
