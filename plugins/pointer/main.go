// Package main provides a pointer plugin. It moves the pointer, presses
// buttons and scrolls via xdotool on Linux and cliclick on macOS.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"

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

// Params carries the pointer action arguments.
type Params struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Button    string `json:"button"`
	Direction string `json:"direction"`
	Amount    int    `json:"amount"`
}

// backend issues pointer commands for one platform.
type backend interface {
	move(x, y int) error
	down(button string) error
	up(button string) error
	click(button string) error
	scroll(direction string, amount int) error
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var params Params
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid params: %v", err))
			return
		}
	}

	b, err := platformBackend()
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	if err := handle(b, req.Action, params); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}
	writeSuccessResponse()
}

func handle(b backend, action string, p Params) error {
	if p.Button == "" {
		p.Button = "left"
	}
	switch action {
	case "move":
		return b.move(p.X, p.Y)
	case "down":
		return b.down(p.Button)
	case "up":
		return b.up(p.Button)
	case "click":
		return b.click(p.Button)
	case "scroll":
		if p.Direction != "up" && p.Direction != "down" {
			return errors.Errorf("scroll direction %q must be up or down", p.Direction)
		}
		if p.Amount <= 0 {
			p.Amount = 1
		}
		return b.scroll(p.Direction, p.Amount)
	}
	return errors.Errorf("unknown action: %s", action)
}

func platformBackend() (backend, error) {
	switch runtime.GOOS {
	case "linux":
		return xdotool{}, nil
	case "darwin":
		return cliclick{}, nil
	}
	return nil, errors.Errorf("pointer control is not supported on %s", runtime.GOOS)
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "%s: %s", name, output)
	}
	return nil
}

type xdotool struct{}

var xdotoolButtons = map[string]string{"left": "1", "middle": "2", "right": "3"}

func (xdotool) button(name string) (string, error) {
	if b, ok := xdotoolButtons[name]; ok {
		return b, nil
	}
	return "", errors.Errorf("unknown button %q", name)
}

func (xdotool) move(x, y int) error {
	return run("xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y))
}

func (x xdotool) down(button string) error {
	b, err := x.button(button)
	if err != nil {
		return err
	}
	return run("xdotool", "mousedown", b)
}

func (x xdotool) up(button string) error {
	b, err := x.button(button)
	if err != nil {
		return err
	}
	return run("xdotool", "mouseup", b)
}

func (x xdotool) click(button string) error {
	b, err := x.button(button)
	if err != nil {
		return err
	}
	return run("xdotool", "click", b)
}

// Wheel buttons 4 and 5 scroll up and down.
func (xdotool) scroll(direction string, amount int) error {
	wheel := "5"
	if direction == "up" {
		wheel = "4"
	}
	return run("xdotool", "click", "--repeat", strconv.Itoa(amount), wheel)
}

type cliclick struct{}

func (cliclick) move(x, y int) error {
	return run("cliclick", fmt.Sprintf("m:%d,%d", x, y))
}

func (cliclick) down(button string) error {
	if button != "left" {
		return errors.Errorf("cliclick can only hold the left button")
	}
	return run("cliclick", "dd:.")
}

func (cliclick) up(button string) error {
	if button != "left" {
		return errors.Errorf("cliclick can only hold the left button")
	}
	return run("cliclick", "du:.")
}

func (cliclick) click(button string) error {
	switch button {
	case "left":
		return run("cliclick", "c:.")
	case "right":
		return run("cliclick", "rc:.")
	}
	return errors.Errorf("cliclick cannot click the %s button", button)
}

// cliclick has no wheel support; arrow keys stand in for scrolling.
func (cliclick) scroll(direction string, amount int) error {
	key := "arrow-down"
	if direction == "up" {
		key = "arrow-up"
	}
	args := make([]string, 0, amount)
	for i := 0; i < amount; i++ {
		args = append(args, "kp:"+key)
	}
	return run("cliclick", args...)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
