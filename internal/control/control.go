// Package control gates keyboard-driven playback control. While control mode
// is on and no modal is open, a fixed key table maps to playback actions.
package control

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/subplay/internal/cue"
	"github.com/jwulff/subplay/internal/timecode"
	"github.com/jwulff/subplay/internal/transcript"
)

// SettingKey is the settings key under which control mode is persisted.
const SettingKey = "control_mode"

// Action is one thing a bound key can do.
type Action int

const (
	NavigatePrevious Action = iota
	NavigateNext
	RepeatCurrent
	TogglePlayPause
	ToggleSubtitles
	ToggleMute
	VolumeUp
	VolumeDown
	EditCurrent
)

var actionNames = [...]string{
	"navigate-previous",
	"navigate-next",
	"repeat-current",
	"toggle-play-pause",
	"toggle-subtitles",
	"toggle-mute",
	"volume-up",
	"volume-down",
	"edit-current",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

// KeyMap is the control-mode binding table.
type KeyMap struct {
	Previous  key.Binding
	Next      key.Binding
	Repeat    key.Binding
	PlayPause key.Binding
	Subtitles key.Binding
	Mute      key.Binding
	VolUp     key.Binding
	VolDown   key.Binding
	Edit      key.Binding
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Previous:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev")),
		Next:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		Repeat:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		PlayPause: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Subtitles: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "subs")),
		Mute:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		VolUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "vol up")),
		VolDown:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "vol down")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	}
}

// ShortHelp lists the bindings for a help footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Previous, k.Next, k.Repeat, k.PlayPause, k.Subtitles, k.Mute, k.VolUp, k.VolDown, k.Edit}
}

// FullHelp groups the bindings for an expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Previous, k.Next, k.Repeat},
		{k.PlayPause, k.Subtitles, k.Mute},
		{k.VolUp, k.VolDown, k.Edit},
	}
}

func (k KeyMap) table() []struct {
	binding key.Binding
	action  Action
} {
	return []struct {
		binding key.Binding
		action  Action
	}{
		{k.Previous, NavigatePrevious},
		{k.Next, NavigateNext},
		{k.Repeat, RepeatCurrent},
		{k.PlayPause, TogglePlayPause},
		{k.Subtitles, ToggleSubtitles},
		{k.Mute, ToggleMute},
		{k.VolUp, VolumeUp},
		{k.VolDown, VolumeDown},
		{k.Edit, EditCurrent},
	}
}

// Gate decides whether key events drive playback.
type Gate struct {
	keys      KeyMap
	enabled   bool
	modalOpen bool
}

// NewGate returns a Gate using keys, initially enabled or not.
func NewGate(keys KeyMap, enabled bool) Gate {
	return Gate{keys: keys, enabled: enabled}
}

// Enabled reports whether control mode is on.
func (g Gate) Enabled() bool { return g.enabled }

// SetEnabled turns control mode on or off.
func (g *Gate) SetEnabled(on bool) { g.enabled = on }

// Toggle flips control mode and returns the new state.
func (g *Gate) Toggle() bool {
	g.enabled = !g.enabled
	return g.enabled
}

// ModalOpen reports whether an edit dialog currently owns the keyboard.
func (g Gate) ModalOpen() bool { return g.modalOpen }

// OpenModal disables the gate until CloseModal.
func (g *Gate) OpenModal() { g.modalOpen = true }

// CloseModal re-enables the gate.
func (g *Gate) CloseModal() { g.modalOpen = false }

// Keys returns the binding table.
func (g Gate) Keys() KeyMap { return g.keys }

// Resolve maps a key to an action. When ok is true the key is consumed and
// must not fall through to other handlers.
func (g Gate) Resolve(msg tea.KeyMsg) (Action, bool) {
	if !g.enabled || g.modalOpen {
		return 0, false
	}
	for _, b := range g.keys.table() {
		if key.Matches(msg, b.binding) {
			return b.action, true
		}
	}
	return 0, false
}

// EditTarget picks the entry to edit at playback time t: the first active
// entry, else the most recently started one. Its StartTime is rewritten to t
// so a later save captures the pause point.
func EditTarget(engine cue.Engine, t float64) (transcript.Entry, bool) {
	var target transcript.Entry
	if active := engine.ActiveEntries(t); len(active) > 0 {
		target = active[0]
	} else if i, ok := engine.ActiveIndex(t); ok {
		target = engine.At(i)
	} else {
		return transcript.Entry{}, false
	}
	target.StartTime = timecode.FormatSeconds(t)
	return target, true
}
