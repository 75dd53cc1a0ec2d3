// Package main provides a system control plugin. It steps and mutes the
// output volume via AppleScript on macOS and pactl on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"

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

// volumeStep is the percentage changed per volume-up or volume-down.
const volumeStep = 2

// actionHandler defines a function type for handling specific actions.
type actionHandler func() error

func handlers(goos string) map[string]actionHandler {
	switch goos {
	case "darwin":
		return map[string]actionHandler{
			"volume-up":   func() error { return runAppleScript(fmt.Sprintf(setVolumeScript, "+", volumeStep)) },
			"volume-down": func() error { return runAppleScript(fmt.Sprintf(setVolumeScript, "-", volumeStep)) },
			"volume-mute": func() error { return runAppleScript(toggleMuteScript) },
		}
	case "linux":
		return map[string]actionHandler{
			"volume-up":   func() error { return pactl("set-sink-volume", fmt.Sprintf("+%d%%", volumeStep)) },
			"volume-down": func() error { return pactl("set-sink-volume", fmt.Sprintf("-%d%%", volumeStep)) },
			"volume-mute": func() error { return pactl("set-sink-mute", "toggle") },
		}
	}
	return nil
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := handlers(runtime.GOOS)[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	if err := handler(); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}
	writeSuccessResponse()
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

const (
	setVolumeScript  = `set volume output volume ((output volume of (get volume settings)) %s %d)`
	toggleMuteScript = `set volume output muted (not (output muted of (get volume settings)))`
)

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	output, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "osascript: %s", output)
	}
	return nil
}

func pactl(args ...string) error {
	args = append([]string{args[0], "@DEFAULT_SINK@"}, args[1:]...)
	output, err := exec.Command("pactl", args...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "pactl: %s", output)
	}
	return nil
}
