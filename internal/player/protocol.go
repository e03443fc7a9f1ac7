// Package player drives mpv over its JSON IPC socket. Commands and events are
// newline-delimited JSON.
package player

import "encoding/json"

// Observed property ids.
const (
	propTimePos = 1
	propPause   = 2
)

// Command is sent from the client to mpv.
type Command struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

// Response is returned by mpv for a command with the same request id.
type Response struct {
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID int             `json:"request_id"`
}

// OK reports whether mpv accepted the command.
func (r Response) OK() bool { return r.Error == "success" }

// Event is pushed by mpv to connected clients.
type Event struct {
	Event string          `json:"event"`
	ID    int             `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Progress returns the playback position carried by a time-pos change.
func (e Event) Progress() (float64, bool) {
	if e.Event != "property-change" || e.Name != "time-pos" || !e.hasData() {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return 0, false
	}
	return v, true
}

// PauseState returns the paused flag carried by a pause change.
func (e Event) PauseState() (paused bool, ok bool) {
	if e.Event != "property-change" || e.Name != "pause" || !e.hasData() {
		return false, false
	}
	if err := json.Unmarshal(e.Data, &paused); err != nil {
		return false, false
	}
	return paused, true
}

func (e Event) hasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}

// EndOfFile reports whether the event signals the end of playback.
func (e Event) EndOfFile() bool {
	return e.Event == "end-file" || e.Event == "shutdown"
}

// line is used to tell events and responses apart on the wire.
type line struct {
	Event     string `json:"event"`
	RequestID *int   `json:"request_id"`
}
