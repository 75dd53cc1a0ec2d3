package dispatch

// Mode is the dispatcher's exclusive interaction mode. The set of
// implementations is closed, so at most one of dragging, volume adjust or
// selection can be active.
type Mode interface {
	Name() string
	mode()
}

// Idle is the resting mode: discrete gestures fire from here.
type Idle struct{}

// Dragging holds the left button while the drag gesture is held.
type Dragging struct{}

// VolumeAdjust maps vertical palm motion to volume steps. ReferenceY is the
// palm height at entry or at the last volume change.
type VolumeAdjust struct {
	ReferenceY float64
}

// Selecting holds the left button for a text selection that began at Start.
type Selecting struct {
	Start Point
}

func (Idle) Name() string         { return "idle" }
func (Dragging) Name() string     { return "dragging" }
func (VolumeAdjust) Name() string { return "volume" }
func (Selecting) Name() string    { return "selecting" }

func (Idle) mode()         {}
func (Dragging) mode()     {}
func (VolumeAdjust) mode() {}
func (Selecting) mode()    {}

// Transition records a change of mode.
type Transition struct {
	From string `json:"from"`
	To   string `json:"to"`
}
