package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single plugin invocation.
const DefaultTimeout = 2 * time.Second

// Executor runs plugin executables, one process per request.
type Executor struct {
	timeout time.Duration
}

// NewExecutor returns an Executor with the given per-call timeout. A
// non-positive timeout selects DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Timeout returns the per-call timeout.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Execute sends req to the plugin on stdin and decodes its stdout as a
// Response. A response with Success=false is not an error.
func (e *Executor) Execute(ctx context.Context, p *Plugin, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal plugin request")
	}

	cmd := exec.CommandContext(ctx, p.Executable)
	cmd.Dir = p.Path
	cmd.Stdin = bytes.NewReader(reqJSON)
	// Children of a killed plugin may hold stdout open.
	cmd.WaitDelay = 500 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, errors.Errorf("plugin %s timeout after %s", p.Manifest.Name, e.timeout)
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Wrapf(err, "plugin %s failed: %s", p.Manifest.Name, msg)
		}
		return nil, errors.Wrapf(err, "plugin %s failed", p.Manifest.Name)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, errors.Wrapf(err, "parse plugin %s response %q", p.Manifest.Name, stdout.String())
	}
	return &resp, nil
}
