package plugin

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ayusman/mudra/internal/dispatch"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		action  dispatch.Action
		plugin  string
		request string
		params  string
	}{
		{dispatch.PointerMove(120, 340), PointerPlugin, "move", `{"x":120,"y":340}`},
		{dispatch.PointerDown(), PointerPlugin, "down", `{"button":"left"}`},
		{dispatch.PointerUp(), PointerPlugin, "up", `{"button":"left"}`},
		{dispatch.PointerClick(dispatch.ButtonRight), PointerPlugin, "click", `{"button":"right"}`},
		{dispatch.ScrollUp(3), PointerPlugin, "scroll", `{"direction":"up","amount":3}`},
		{dispatch.ScrollDown(2), PointerPlugin, "scroll", `{"direction":"down","amount":2}`},
		{dispatch.VolumeUp(), SystemPlugin, "volume-up", ``},
		{dispatch.VolumeDown(), SystemPlugin, "volume-down", ``},
		{dispatch.VolumeMute(), SystemPlugin, "volume-mute", ``},
		{dispatch.KeyPress(dispatch.KeyEnter), KeyboardPlugin, "keystroke", `{"key":"enter"}`},
	}

	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			name, req, err := Route(tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.plugin, name)
			assert.Equal(t, tt.request, req.Action)
			if tt.params == "" {
				assert.Empty(t, req.Params)
			} else {
				assert.JSONEq(t, tt.params, string(req.Params))
			}
		})
	}

	_, _, err := Route(dispatch.VoiceActivate())
	assert.Error(t, err)
}

type recordingAnnouncer struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingAnnouncer) Enqueue(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

// installRecorder installs a plugin that appends each request to a log file
// and answers success.
func installRecorder(t *testing.T, root, name string, actions []string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins are not supported on Windows")
	}

	logPath := filepath.Join(root, name+".log")
	dir := writeManifest(t, root, Manifest{Name: name, Executable: "run.sh", Actions: actions})
	script := "#!/bin/sh\ncat >> " + logPath + "\necho >> " + logPath + "\necho '{\"success\":true}'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755))
	return logPath
}

func readRequests(t *testing.T, path string) []Request {
	t.Helper()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	defer f.Close()

	var out []Request
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var req Request
		require.NoError(t, json.Unmarshal(sc.Bytes(), &req))
		out = append(out, req)
	}
	require.NoError(t, sc.Err())
	return out
}

func newTestRunner(t *testing.T) (*Runner, string, string, *recordingAnnouncer) {
	root := t.TempDir()
	pointerLog := installRecorder(t, root, PointerPlugin, []string{"move", "down", "up", "click", "scroll"})
	systemLog := installRecorder(t, root, SystemPlugin, []string{"volume-up", "volume-down"})

	mgr := NewManager(root, zaptest.NewLogger(t))
	require.NoError(t, mgr.Discover())

	speaker := &recordingAnnouncer{}
	r := NewRunner(mgr, NewExecutor(5*time.Second), speaker, zaptest.NewLogger(t))
	return r, pointerLog, systemLog, speaker
}

func TestRunner_Run(t *testing.T) {
	r, pointerLog, systemLog, speaker := newTestRunner(t)

	voiced := 0
	r.OnVoice(func() { voiced++ })

	r.Run(context.Background(), []dispatch.Action{
		dispatch.PointerMove(10, 10),
		dispatch.PointerMove(20, 20),
		dispatch.PointerDown(),
		dispatch.PointerMove(30, 30),
		dispatch.VolumeUp(),
		dispatch.VoiceActivate(),
	})

	pointer := readRequests(t, pointerLog)
	require.Len(t, pointer, 3, "consecutive moves collapse to the last")
	assert.Equal(t, "move", pointer[0].Action)
	assert.JSONEq(t, `{"x":20,"y":20}`, string(pointer[0].Params))
	assert.Equal(t, "down", pointer[1].Action)
	assert.Equal(t, "move", pointer[2].Action)
	assert.JSONEq(t, `{"x":30,"y":30}`, string(pointer[2].Params))

	system := readRequests(t, systemLog)
	require.Len(t, system, 1)
	assert.Equal(t, "volume-up", system[0].Action)

	assert.Equal(t, []string{VoiceAnnouncement}, speaker.texts)
	assert.Equal(t, 1, voiced)
}

func TestRunner_Execute_Errors(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, Manifest{Name: SystemPlugin, Executable: "run.sh", Actions: []string{"volume-mute"}})

	mgr := NewManager(root, nil)
	require.NoError(t, mgr.Discover())
	r := NewRunner(mgr, NewExecutor(time.Second), nil, zaptest.NewLogger(t))

	err := r.Execute(context.Background(), dispatch.PointerClick(dispatch.ButtonLeft))
	assert.ErrorIs(t, err, ErrPluginNotFound)

	err = r.Execute(context.Background(), dispatch.VolumeDown())
	assert.ErrorContains(t, err, "does not support volume-down")

	// No speaker installed: voice activation still succeeds.
	assert.NoError(t, r.Execute(context.Background(), dispatch.VoiceActivate()))
}
