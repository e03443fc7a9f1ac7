// Package cue resolves playback time against a transcript: which entries are
// active, which entry was most recently started, and where navigation lands.
package cue

import (
	"fmt"

	"github.com/jwulff/subplay/internal/timecode"
	"github.com/jwulff/subplay/internal/transcript"
)

// Direction is an index-relative navigation request.
type Direction int

const (
	Previous Direction = iota
	Next
	Repeat
)

func (d Direction) String() string {
	switch d {
	case Previous:
		return "previous"
	case Next:
		return "next"
	case Repeat:
		return "repeat"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Command asks the media host to seek. Resume is always true: seeking
// un-pauses playback.
type Command struct {
	Seconds float64
	Resume  bool
}

// Engine holds an immutable transcript.
type Engine struct {
	entries []transcript.Entry
}

// NewEngine creates an Engine over entries. The slice is not copied.
func NewEngine(entries []transcript.Entry) Engine {
	return Engine{entries: entries}
}

// Entries returns the transcript in display order.
func (e Engine) Entries() []transcript.Entry { return e.entries }

// Len returns the number of entries.
func (e Engine) Len() int { return len(e.entries) }

// At returns the entry at index i.
func (e Engine) At(i int) transcript.Entry { return e.entries[i] }

// ActiveEntries returns every entry whose interval contains t, inclusive on
// both ends, in display order.
func (e Engine) ActiveEntries(t float64) []transcript.Entry {
	var out []transcript.Entry
	for _, entry := range e.entries {
		if entry.Contains(t) {
			out = append(out, entry)
		}
	}
	return out
}

// ContainingIndex returns the index of the first entry containing t.
func (e Engine) ContainingIndex(t float64) (int, bool) {
	for i, entry := range e.entries {
		if entry.Contains(t) {
			return i, true
		}
	}
	return -1, false
}

// LatestStartedIndex returns the highest index whose start is at or before t.
func (e Engine) LatestStartedIndex(t float64) (int, bool) {
	for i := len(e.entries) - 1; i >= 0; i-- {
		start, ok := e.entries[i].Start()
		if ok && start <= t {
			return i, true
		}
	}
	return -1, false
}

// ActiveIndex returns ContainingIndex, falling back to LatestStartedIndex.
// ok is false when t precedes every entry.
func (e Engine) ActiveIndex(t float64) (int, bool) {
	if i, ok := e.ContainingIndex(t); ok {
		return i, true
	}
	return e.LatestStartedIndex(t)
}

// SeekTo builds a seek command for an entry start timestamp.
func SeekTo(startTime string) (Command, error) {
	seconds, err := timecode.ParseTimestamp(startTime)
	if err != nil {
		return Command{}, fmt.Errorf("seek: %w", err)
	}
	return Command{Seconds: seconds, Resume: true}, nil
}

// Navigate resolves dir relative to t. ok is false for boundary moves,
// nothing active to repeat, or a target with a malformed start.
func (e Engine) Navigate(dir Direction, t float64) (Command, bool) {
	var target transcript.Entry
	switch dir {
	case Previous:
		i, ok := e.ActiveIndex(t)
		if !ok || i-1 < 0 {
			return Command{}, false
		}
		target = e.entries[i-1]
	case Next:
		i, ok := e.ActiveIndex(t)
		if !ok {
			// Nothing reached yet; the first entry is next.
			i = -1
		}
		if i+1 >= len(e.entries) {
			return Command{}, false
		}
		target = e.entries[i+1]
	case Repeat:
		active := e.ActiveEntries(t)
		if len(active) == 0 {
			return Command{}, false
		}
		target = active[0]
	default:
		return Command{}, false
	}

	cmd, err := SeekTo(target.StartTime)
	if err != nil {
		return Command{}, false
	}
	return cmd, true
}
