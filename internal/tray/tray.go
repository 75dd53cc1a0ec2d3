// Package tray provides the system tray menu of mudra.
package tray

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
)

// PollInterval is how often the menu is refreshed from the app status.
const PollInterval = 250 * time.Millisecond

// StatusSource provides the status shown in the menu. *app.App implements it.
type StatusSource interface {
	Status() app.Status
}

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onSettings func()
	onQuit     func()
	enabled    bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
	menuMode        *systray.MenuItem
	menuVolume      *systray.MenuItem

	last labels
}

// labels are the texts of the status lines.
type labels struct {
	toggle, gesture, mode, volume string
}

// New creates a new Tray showing the given enabled state.
func New(enabled bool) *Tray {
	return &Tray{
		enabled: enabled,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application and refreshes it from src until
// ctx is done. It blocks until systray.Quit is called and must run on the
// main goroutine.
func (t *Tray) Run(ctx context.Context, src StatusSource) {
	systray.Run(func() {
		t.onReady()
		go t.watch(ctx, src)
	}, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra hand gesture control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleLabel(t.enabled), "Toggle gesture control")
	systray.AddSeparator()

	t.menuLastGesture = systray.AddMenuItem("Last: none", "Last detected gesture")
	t.menuLastGesture.Disable()
	t.menuMode = systray.AddMenuItem("Mode: idle", "Current control mode")
	t.menuMode.Disable()
	t.menuVolume = systray.AddMenuItem("Volume: -", "Volume tracked by the volume gesture")
	t.menuVolume.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// watch polls src and updates the status lines.
func (t *Tray) watch(ctx context.Context, src StatusSource) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			systray.Quit()
			return
		case <-ticker.C:
			t.Update(src.Status())
		}
	}
}

// Update refreshes the menu from st. Only changed lines are retitled.
func (t *Tray) Update(st app.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = st.Enabled
	next := labelsFor(st, t.last)
	if t.menuToggle == nil {
		t.last = next
		return
	}
	if next.toggle != t.last.toggle {
		t.menuToggle.SetTitle(next.toggle)
	}
	if next.gesture != t.last.gesture {
		t.menuLastGesture.SetTitle(next.gesture)
	}
	if next.mode != t.last.mode {
		t.menuMode.SetTitle(next.mode)
	}
	if next.volume != t.last.volume {
		t.menuVolume.SetTitle(next.volume)
	}
	t.last = next
}

// labelsFor formats the status lines. The last gesture sticks while no
// hand is visible.
func labelsFor(st app.Status, prev labels) labels {
	l := labels{
		toggle:  toggleLabel(st.Enabled),
		gesture: prev.gesture,
		mode:    "Mode: " + st.Snapshot.Dispatch.Mode,
		volume:  fmt.Sprintf("Volume: %d%%", st.Snapshot.Dispatch.Volume),
	}
	if st.Snapshot.Dispatch.Mode == "" {
		l.mode = "Mode: idle"
	}
	if g := st.Snapshot.Gesture; g != gesture.None {
		l.gesture = "Last: " + g.String()
	}
	if l.gesture == "" {
		l.gesture = "Last: none"
	}
	return l
}

func toggleLabel(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	t.last.toggle = toggleLabel(enabled)
	t.menuToggle.SetTitle(t.last.toggle)

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
