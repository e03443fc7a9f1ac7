// Package session holds the live state of one playback session: the selected
// media, the transcript, and the latest playback position.
package session

import (
	"github.com/jwulff/subplay/internal/cue"
	"github.com/jwulff/subplay/internal/transcript"
)

// Ticket identifies the selection a storage request was issued for.
type Ticket struct {
	Key string
	Gen int
}

// Session is owned by the host and handed to components by reference.
type Session struct {
	selection string
	gen       int
	position  float64
	playing   bool
	engine    cue.Engine
}

// New returns an empty session with nothing selected.
func New() *Session {
	return &Session{}
}

// Selection returns the selected media key, or "" for none.
func (s *Session) Selection() string { return s.selection }

// Select makes key the current selection and invalidates tickets issued for
// earlier selections.
func (s *Session) Select(key string) Ticket {
	s.selection = key
	s.gen++
	return Ticket{Key: key, Gen: s.gen}
}

// Clear drops the selection and the transcript.
func (s *Session) Clear() {
	s.selection = ""
	s.gen++
	s.engine = cue.NewEngine(nil)
	s.position = 0
	s.playing = false
}

// Ticket returns a ticket for the current selection.
func (s *Session) Ticket() Ticket {
	return Ticket{Key: s.selection, Gen: s.gen}
}

// Current reports whether a response issued under t may still be applied.
func (s *Session) Current(t Ticket) bool {
	return t.Gen == s.gen && t.Key == s.selection
}

// SetEntries replaces the transcript.
func (s *Session) SetEntries(entries []transcript.Entry) {
	s.engine = cue.NewEngine(entries)
}

// Engine returns the sync engine over the current transcript.
func (s *Session) Engine() cue.Engine { return s.engine }

// Position returns the latest delivered playback time in seconds.
func (s *Session) Position() float64 { return s.position }

// Playing reports whether the player is running.
func (s *Session) Playing() bool { return s.playing }

// OnProgress records a playback position from the player.
func (s *Session) OnProgress(seconds float64) { s.position = seconds }

// OnPlay records that playback started.
func (s *Session) OnPlay() { s.playing = true }

// OnPause records that playback paused.
func (s *Session) OnPause() { s.playing = false }

// Active returns the entries active at the current position.
func (s *Session) Active() []transcript.Entry {
	return s.engine.ActiveEntries(s.position)
}

// ActiveIndex resolves the current position with the nearest-preceding
// fallback.
func (s *Session) ActiveIndex() (int, bool) {
	return s.engine.ActiveIndex(s.position)
}
