package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

// installRecorder installs a shell plugin under the given name that appends
// every request it receives to a log file.
func installRecorder(t *testing.T, pluginDir, name string) string {
	t.Helper()
	dir := filepath.Join(pluginDir, name)
	require.NoError(t, os.MkdirAll(dir, 0755))

	logPath := filepath.Join(dir, "requests.log")
	script := "#!/bin/sh\ncat >> " + logPath + "\necho >> " + logPath + "\necho '{\"success\": true}'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755))

	manifest, err := json.Marshal(plugin.Manifest{Name: name, Version: "0.0.1", Executable: "run.sh"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, plugin.ManifestFile), manifest, 0644))
	return logPath
}

func requests(t *testing.T, logPath string) []plugin.Request {
	t.Helper()
	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	var out []plugin.Request
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var req plugin.Request
		if json.Unmarshal([]byte(line), &req) == nil {
			out = append(out, req)
		}
	}
	return out
}

func hasAction(reqs []plugin.Request, action string) bool {
	for _, r := range reqs {
		if r.Action == action {
			return true
		}
	}
	return false
}

func TestE2E_BindingDrivesPlugin(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins are not supported on Windows")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	require.NoError(t, err)
	defer s.Close()

	settings := config.Default()
	settings.DataDir = tmpDir
	settings.PluginDir = filepath.Join(tmpDir, "plugins")
	settings.SpeechEnabled = false
	logPath := installRecorder(t, settings.PluginDir, plugin.PointerPlugin)

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer white.Close()

	mockDetector := detector.NewMockDetector()
	mockDetector.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})

	application, err := app.New(app.Config{
		Settings: settings,
		Store:    s,
		Camera:   capture.NewMockCamera([]*gocv.Mat{&black, &white}, true),
		Detector: mockDetector,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	srv := server.New(server.Config{Store: s, App: application})
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	t.Run("BindFistToClick", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/bindings", "application/json",
			strings.NewReader(`{"gesture": "fist", "command": "left_click"}`))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("FistClicks", func(t *testing.T) {
		application.SetEnabled(true)
		require.NoError(t, application.Start())

		require.Eventually(t, func() bool {
			return hasAction(requests(t, logPath), "click")
		}, 5*time.Second, 25*time.Millisecond, "pointer plugin never received a click")
		assert.False(t, hasAction(requests(t, logPath), "down"), "fist is no longer bound to drag")

		application.Stop()
	})

	t.Run("EventsJournaled", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/events?limit=100")
		require.NoError(t, err)
		defer resp.Body.Close()

		var listed struct {
			Events []store.Event `json:"events"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))

		kinds := map[string]int{}
		for _, e := range listed.Events {
			kinds[e.Kind]++
			assert.Equal(t, application.Session(), e.SessionID)
		}
		assert.Positive(t, kinds["action"])
		assert.Equal(t, 2, kinds["session"], "start and stop")
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
