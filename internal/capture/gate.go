package capture

import "time"

// Frame rates and the stillness period of the motion gate.
const (
	IdleFPS     = 5
	ActiveFPS   = 15
	IdleTimeout = 2 * time.Second
)

// Gate switches capture between an idle rate and an active rate. Motion
// activates it; IdleTimeout without motion puts it back to idle. Hand
// detection only runs while the gate is active.
type Gate struct {
	idleFPS     int
	activeFPS   int
	idleTimeout time.Duration

	active     bool
	lastMotion time.Time
}

// NewGate returns an idle gate with the default rates.
func NewGate() *Gate {
	return &Gate{
		idleFPS:     IdleFPS,
		activeFPS:   ActiveFPS,
		idleTimeout: IdleTimeout,
	}
}

// Observe records whether motion was seen at now. It returns true when the
// gate changed state; the new rate is then available from FPS.
func (g *Gate) Observe(motion bool, now time.Time) bool {
	if motion {
		g.lastMotion = now
		if !g.active {
			g.active = true
			return true
		}
		return false
	}
	if g.active && now.Sub(g.lastMotion) > g.idleTimeout {
		g.active = false
		return true
	}
	return false
}

// Hold keeps the gate active as if motion were seen at now. A tracked hand
// that stays still must not drop capture back to idle.
func (g *Gate) Hold(now time.Time) {
	if g.active {
		g.lastMotion = now
	}
}

// Active reports whether frames should go through detection.
func (g *Gate) Active() bool {
	return g.active
}

// FPS returns the capture rate for the current state.
func (g *Gate) FPS() int {
	if g.active {
		return g.activeFPS
	}
	return g.idleFPS
}

// Interval returns the ticker period for the current state.
func (g *Gate) Interval() time.Duration {
	return time.Second / time.Duration(g.FPS())
}
