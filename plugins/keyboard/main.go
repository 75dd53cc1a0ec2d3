// Package main provides a keyboard plugin. It sends keystrokes and
// shortcuts via xdotool on Linux and AppleScript on macOS.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// KeystrokeParams defines parameters for keystroke and shortcut actions.
type KeystrokeParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// backend sends one key press with optional modifiers.
type backend interface {
	press(key string, modifiers []string) error
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	b, err := platformBackend()
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	if err := handle(b, req.Action, req.Params); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}
	writeSuccessResponse()
}

func handle(b backend, action string, params json.RawMessage) error {
	if action != "keystroke" && action != "shortcut" {
		return errors.Errorf("unknown action: %s", action)
	}

	var p KeystrokeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errors.Wrap(err, "parse params")
	}
	if p.Key == "" {
		return errors.New("key is required")
	}
	if action == "shortcut" && len(p.Modifiers) == 0 {
		return errors.New("shortcut needs at least one modifier")
	}
	return b.press(strings.ToLower(p.Key), p.Modifiers)
}

func platformBackend() (backend, error) {
	switch runtime.GOOS {
	case "linux":
		return xdotool{}, nil
	case "darwin":
		return appleScript{}, nil
	}
	return nil, errors.Errorf("keyboard control is not supported on %s", runtime.GOOS)
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "%s: %s", name, output)
	}
	return nil
}

type xdotool struct{}

var (
	xdotoolKeys = map[string]string{
		"enter":     "Return",
		"return":    "Return",
		"tab":       "Tab",
		"escape":    "Escape",
		"space":     "space",
		"backspace": "BackSpace",
		"up":        "Up",
		"down":      "Down",
		"left":      "Left",
		"right":     "Right",
	}
	xdotoolModifiers = map[string]string{
		"command": "super",
		"cmd":     "super",
		"option":  "alt",
		"alt":     "alt",
		"control": "ctrl",
		"ctrl":    "ctrl",
		"shift":   "shift",
	}
)

// chord builds an xdotool key chord such as "ctrl+shift+Return".
func (xdotool) chord(key string, modifiers []string) (string, error) {
	parts := make([]string, 0, len(modifiers)+1)
	for _, m := range modifiers {
		mod, ok := xdotoolModifiers[strings.ToLower(m)]
		if !ok {
			return "", errors.Errorf("unknown modifier %q", m)
		}
		parts = append(parts, mod)
	}
	if named, ok := xdotoolKeys[key]; ok {
		key = named
	}
	return strings.Join(append(parts, key), "+"), nil
}

func (x xdotool) press(key string, modifiers []string) error {
	chord, err := x.chord(key, modifiers)
	if err != nil {
		return err
	}
	return run("xdotool", "key", chord)
}

type appleScript struct{}

var (
	// keyCodes are macOS virtual key codes for keys that keystroke cannot type.
	keyCodes = map[string]int{
		"enter":     36,
		"return":    36,
		"tab":       48,
		"space":     49,
		"backspace": 51,
		"escape":    53,
		"left":      123,
		"right":     124,
		"down":      125,
		"up":        126,
	}
	appleModifiers = map[string]string{
		"command": "command down",
		"cmd":     "command down",
		"option":  "option down",
		"alt":     "option down",
		"control": "control down",
		"ctrl":    "control down",
		"shift":   "shift down",
	}
)

// script generates the System Events command for key and modifiers.
func (appleScript) script(key string, modifiers []string) (string, error) {
	var press string
	if code, ok := keyCodes[key]; ok {
		press = fmt.Sprintf("key code %d", code)
	} else {
		press = fmt.Sprintf("keystroke %q", key)
	}

	mods := make([]string, 0, len(modifiers))
	for _, m := range modifiers {
		mod, ok := appleModifiers[strings.ToLower(m)]
		if !ok {
			return "", errors.Errorf("unknown modifier %q", m)
		}
		mods = append(mods, mod)
	}
	if len(mods) > 0 {
		press += " using {" + strings.Join(mods, ", ") + "}"
	}
	return `tell application "System Events" to ` + press, nil
}

func (a appleScript) press(key string, modifiers []string) error {
	script, err := a.script(key, modifiers)
	if err != nil {
		return err
	}
	return run("osascript", "-e", script)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
