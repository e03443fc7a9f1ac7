// Package scroll arbitrates between automatic follow-the-playhead scrolling
// and manual scrolling. A manual scroll suppresses auto-scroll for a fixed
// cooldown; every further manual scroll restarts the cooldown.
package scroll

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Cooldown is how long auto-scroll stays suppressed after a manual scroll.
const Cooldown = 1000 * time.Millisecond

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// ExpiredMsg is delivered when a suppression window ends. Only the message
// carrying the latest tag clears suppression.
type ExpiredMsg struct {
	id  int
	tag int
}

// Coordinator tracks the suppression window.
type Coordinator struct {
	id         int
	tag        int
	suppressed bool
	stopped    bool
}

// New returns a Coordinator with suppression off.
func New() Coordinator {
	return Coordinator{id: nextID()}
}

// Suppressed reports whether a manual scroll is still within its cooldown.
func (c Coordinator) Suppressed() bool { return c.suppressed }

// UserScrolled starts, or restarts, the suppression window. The returned
// command must be run for suppression to end.
func (c *Coordinator) UserScrolled() tea.Cmd {
	if c.stopped {
		return nil
	}
	c.suppressed = true
	c.tag++
	id, tag := c.id, c.tag
	return tea.Tick(Cooldown, func(time.Time) tea.Msg {
		return ExpiredMsg{id: id, tag: tag}
	})
}

// Update clears suppression when the latest window expires. Expiries from
// restarted windows, other coordinators, or after Stop are ignored.
func (c Coordinator) Update(msg tea.Msg) Coordinator {
	m, ok := msg.(ExpiredMsg)
	if !ok || c.stopped || m.id != c.id || m.tag != c.tag {
		return c
	}
	c.suppressed = false
	return c
}

// ShouldAutoScroll reports whether the view may scroll the active entry into
// view: something is active, nobody is scrolling, and playback is running.
func (c Coordinator) ShouldAutoScroll(hasActive, playing bool) bool {
	return hasActive && !c.suppressed && playing
}

// Stop tears the coordinator down. Pending expiries become no-ops.
func (c *Coordinator) Stop() {
	c.stopped = true
	c.tag++
}
