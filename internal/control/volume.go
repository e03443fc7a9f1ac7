package control

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// VolumeDebounce is how long volume steps coalesce before being applied.
const VolumeDebounce = 250 * time.Millisecond

// VolumeCommitMsg carries a debounced volume level.
type VolumeCommitMsg struct {
	tag   int
	Level float64
}

// Volume tracks the desired volume and debounces changes to it.
type Volume struct {
	level float64
	muted bool
	tag   int
}

// NewVolume returns a Volume at level, clamped to [0, 100].
func NewVolume(level float64) Volume {
	return Volume{level: clamp(level)}
}

// Level returns the current desired level.
func (v Volume) Level() float64 { return v.level }

// Muted reports whether mute is on.
func (v Volume) Muted() bool { return v.muted }

// ToggleMute flips mute and returns the new state. Mute is applied
// immediately; only level changes are debounced.
func (v *Volume) ToggleMute() bool {
	v.muted = !v.muted
	return v.muted
}

// Step changes the level by delta and restarts the debounce timer.
func (v *Volume) Step(delta float64) tea.Cmd {
	v.level = clamp(v.level + delta)
	v.tag++
	tag, level := v.tag, v.level
	return tea.Tick(VolumeDebounce, func(time.Time) tea.Msg {
		return VolumeCommitMsg{tag: tag, Level: level}
	})
}

// Commit returns the level to apply when msg is the latest step. Older
// commits were superseded and report false.
func (v Volume) Commit(msg VolumeCommitMsg) (float64, bool) {
	if msg.tag != v.tag {
		return 0, false
	}
	return msg.Level, true
}

func clamp(level float64) float64 {
	switch {
	case level < 0:
		return 0
	case level > 100:
		return 100
	}
	return level
}
