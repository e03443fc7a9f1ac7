package app

import (
	"github.com/jwulff/subplay/internal/db"
	"github.com/jwulff/subplay/internal/session"
	"github.com/jwulff/subplay/internal/transcript"
)

// LibraryLoadedMsg carries the stored media listing.
type LibraryLoadedMsg struct {
	Items []db.MediaSummary
	Err   error
}

// SessionLoadedMsg carries the transcript and playable path for a selection.
type SessionLoadedMsg struct {
	Ticket    session.Ticket
	Entries   []transcript.Entry
	HasRecord bool
	MediaPath string
	Err       error
}

// PlayerStartedMsg is sent when a player is attached for a selection.
type PlayerStartedMsg struct {
	Ticket session.Ticket
	Player Player
	Events EventSource
}

// PlayerErrorMsg reports a failed player launch or command.
type PlayerErrorMsg struct {
	Err error
}

// ProgressMsg carries a playback position from the player.
type ProgressMsg struct {
	Seconds float64
	src     EventSource
}

// PlayMsg signals that playback started.
type PlayMsg struct{ src EventSource }

// PauseMsg signals that playback paused.
type PauseMsg struct{ src EventSource }

// PlayerEndedMsg signals that the player finished or exited.
type PlayerEndedMsg struct {
	Err error
	src EventSource
}

// playerIdleMsg is an event the model ignores; reading continues.
type playerIdleMsg struct{ src EventSource }

// TranscriptSavedMsg reports the result of persisting a transcript. Prior
// is what the session showed before Entries were applied.
type TranscriptSavedMsg struct {
	Ticket  session.Ticket
	Entries []transcript.Entry
	Prior   []transcript.Entry
	Err     error
}

// MediaDeletedMsg reports the result of deleting a media key.
type MediaDeletedMsg struct {
	Key string
	Err error
}

// ClipboardReadMsg carries clipboard text for import.
type ClipboardReadMsg struct {
	Text string
	Err  error
}

// ShareCopiedMsg reports a share link written to the clipboard.
type ShareCopiedMsg struct {
	URL string
	Err error
}

// ControlModeLoadedMsg carries the persisted control-mode setting.
type ControlModeLoadedMsg struct {
	Enabled bool
}

// settingSavedMsg reports a failed settings write; success is silent.
type settingSavedMsg struct {
	Err error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
