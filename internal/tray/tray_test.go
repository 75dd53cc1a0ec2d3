package tray

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
)

func status(enabled bool, g gesture.Gesture, mode string, volume int) app.Status {
	return app.Status{
		Enabled: enabled,
		Snapshot: control.Snapshot{
			Gesture:  g,
			Dispatch: dispatch.Status{Mode: mode, Volume: volume},
		},
	}
}

func TestLabelsFor(t *testing.T) {
	l := labelsFor(status(true, gesture.Pinch, "volume", 64), labels{})
	assert.Equal(t, labels{
		toggle:  "● Enabled",
		gesture: "Last: pinch",
		mode:    "Mode: volume",
		volume:  "Volume: 64%",
	}, l)

	// The last gesture sticks once the hand is gone.
	l = labelsFor(status(false, gesture.None, "", 64), l)
	assert.Equal(t, "○ Disabled", l.toggle)
	assert.Equal(t, "Last: pinch", l.gesture)
	assert.Equal(t, "Mode: idle", l.mode)

	assert.Equal(t, "Last: none", labelsFor(status(true, gesture.None, "idle", 50), labels{}).gesture)
}

func TestUpdate_BeforeReady(t *testing.T) {
	tr := New(false)
	assert.False(t, tr.IsEnabled())

	tr.Update(status(true, gesture.Fist, "dragging", 50))
	assert.True(t, tr.IsEnabled())
	assert.Equal(t, "Last: fist", tr.last.gesture)
}
