package gesture

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrIncompleteTable is returned when an action table lacks an entry for a gesture.
	ErrIncompleteTable = errors.New("action table incomplete")
	// ErrUnknownCommand is returned for a command token the dispatcher cannot execute.
	ErrUnknownCommand = errors.New("unknown command")
)

// Category groups actions by the device they drive.
type Category string

const (
	CategoryPointer  Category = "pointer"
	CategoryKeyboard Category = "keyboard"
	CategorySystem   Category = "system"
)

// Command is the behaviour token a gesture is bound to.
type Command string

const (
	CommandMove        Command = "move"
	CommandDrag        Command = "drag"
	CommandLeftClick   Command = "left_click"
	CommandRightClick  Command = "right_click"
	CommandMiddleClick Command = "middle_click"
	CommandScrollUp    Command = "scroll_up"
	CommandScrollDown  Command = "scroll_down"
	CommandVolume      Command = "volume"
	CommandVoice       Command = "voice_activate"
	CommandSelect      Command = "select"
	CommandConfirm     Command = "confirm"
	CommandMute        Command = "mute"
)

type commandInfo struct {
	category   Category
	continuous bool
}

var commands = map[Command]commandInfo{
	CommandMove:        {CategoryPointer, true},
	CommandDrag:        {CategoryPointer, true},
	CommandLeftClick:   {CategoryPointer, false},
	CommandRightClick:  {CategoryPointer, false},
	CommandMiddleClick: {CategoryPointer, false},
	CommandScrollUp:    {CategoryPointer, false},
	CommandScrollDown:  {CategoryPointer, false},
	CommandVolume:      {CategorySystem, true},
	CommandVoice:       {CategorySystem, false},
	CommandSelect:      {CategoryPointer, true},
	CommandConfirm:     {CategoryKeyboard, false},
	CommandMute:        {CategorySystem, false},
}

// Commands returns every known command, sorted.
func Commands() []Command {
	out := make([]Command, 0, len(commands))
	for c := range commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	_, ok := commands[c]
	return ok
}

// Continuous reports whether c streams every held frame instead of firing once.
func (c Command) Continuous() bool { return commands[c].continuous }

// Category returns the device category c drives.
func (c Command) Category() Category { return commands[c].category }

// ActionSpec describes what a gesture does. Continuous actions stream every
// frame while the gesture is held; discrete ones fire once per activation
// and are rate limited by the dispatcher cooldown.
type ActionSpec struct {
	Gesture     Gesture  `json:"gesture"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Command     Command  `json:"command"`
	Continuous  bool     `json:"continuous"`
}

// ActionTable maps every actionable gesture to its ActionSpec.
type ActionTable map[Gesture]ActionSpec

// DefaultActions returns the built-in gesture bindings.
func DefaultActions() ActionTable {
	specs := []struct {
		g          Gesture
		name, desc string
		cmd        Command
	}{
		{OpenPalm, "Cursor Mode", "Move cursor following palm position", CommandMove},
		{Fist, "Drag Mode", "Click and drag while fist is held", CommandDrag},
		{Point, "Left Click", "Single left click when gesture detected", CommandLeftClick},
		{Peace, "Right Click", "Right click when peace sign shown", CommandRightClick},
		{ThumbsUp, "Scroll Up", "Scroll up while thumb up is held", CommandScrollUp},
		{ThumbsDown, "Scroll Down", "Scroll down while thumb down is held", CommandScrollDown},
		{Pinch, "Volume Control", "Pinch and move the hand up or down to change volume", CommandVolume},
		{ThreeFingers, "Middle Click", "Middle click for opening links in new tab", CommandMiddleClick},
		{Rock, "Voice Activate", "Activate voice command mode", CommandVoice},
		{OkSign, "Text Select", "Hold to press and drag a text selection", CommandSelect},
	}

	table := make(ActionTable, len(specs))
	for _, s := range specs {
		table[s.g] = ActionSpec{
			Gesture:     s.g,
			Name:        s.name,
			Description: s.desc,
			Category:    s.cmd.Category(),
			Command:     s.cmd,
			Continuous:  s.cmd.Continuous(),
		}
	}
	return table
}

// Validate reports every actionable gesture missing from the table and any
// command the dispatcher would not understand.
func (t ActionTable) Validate() error {
	var missing []string
	for _, g := range All() {
		spec, ok := t[g]
		if !ok || spec.Command == "" {
			missing = append(missing, g.String())
			continue
		}
		if !spec.Command.Valid() {
			return errors.Wrapf(ErrUnknownCommand, "%s bound to %q", g, spec.Command)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrIncompleteTable, "missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Lookup returns the ActionSpec bound to g.
func (t ActionTable) Lookup(g Gesture) (ActionSpec, bool) {
	spec, ok := t[g]
	return spec, ok
}

// Command returns the command bound to g, or "" when g has none.
func (t ActionTable) Command(g Gesture) Command {
	return t[g].Command
}

// WithOverrides returns a copy of the table with commands replaced from
// overrides. Category and continuity follow the new command. The result is
// validated before it is returned.
func (t ActionTable) WithOverrides(overrides map[Gesture]Command) (ActionTable, error) {
	out := make(ActionTable, len(t))
	for g, spec := range t {
		out[g] = spec
	}
	for g, cmd := range overrides {
		spec, ok := out[g]
		if !ok {
			return nil, errors.Errorf("cannot bind %s: gesture has no action", g)
		}
		spec.Command = cmd
		spec.Category = cmd.Category()
		spec.Continuous = cmd.Continuous()
		out[g] = spec
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Sorted returns the specs ordered by gesture.
func (t ActionTable) Sorted() []ActionSpec {
	out := make([]ActionSpec, 0, len(t))
	for _, spec := range t {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gesture < out[j].Gesture })
	return out
}
