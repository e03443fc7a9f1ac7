// Package transcript parses subtitle tracks into ordered entries and writes
// them back out.
package transcript

import (
	"strconv"
	"strings"

	"github.com/jwulff/subplay/internal/timecode"
)

// Entry is one timestamped subtitle unit.
type Entry struct {
	ID        int    `json:"id"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Text      string `json:"text"`
}

// Start returns the start offset in seconds. ok is false when StartTime is
// malformed.
func (e Entry) Start() (float64, bool) {
	v, err := timecode.ParseTimestamp(e.StartTime)
	return v, err == nil
}

// End returns the end offset in seconds. ok is false when EndTime is
// malformed.
func (e Entry) End() (float64, bool) {
	v, err := timecode.ParseTimestamp(e.EndTime)
	return v, err == nil
}

// Contains reports whether t lies inside [start, end]. Malformed ranges never
// contain anything.
func (e Entry) Contains(t float64) bool {
	start, ok := e.Start()
	if !ok {
		return false
	}
	end, ok := e.End()
	if !ok {
		return false
	}
	return start <= t && t <= end
}

// Result is the output of Parse.
type Result struct {
	Entries []Entry
	// Dropped counts non-empty blocks that had fewer than three lines.
	Dropped int
}

// Parse splits raw subtitle text into entries. Short blocks are dropped and
// counted; timestamps are not validated here.
func Parse(raw string) Result {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var res Result
	for _, block := range strings.Split(raw, "\n\n") {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 3 {
			res.Dropped++
			continue
		}

		id, _ := strconv.Atoi(strings.TrimSpace(lines[0]))
		var start, end string
		if before, after, found := strings.Cut(lines[1], "-->"); found {
			start, end = strings.TrimSpace(before), strings.TrimSpace(after)
		} else {
			start = strings.TrimSpace(lines[1])
		}

		res.Entries = append(res.Entries, Entry{
			ID:        id,
			StartTime: start,
			EndTime:   end,
			Text:      strings.Join(lines[2:], "\n"),
		})
	}
	return res
}

// Format renders entries as subtitle text, the inverse of Parse.
func Format(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strconv.Itoa(e.ID))
		b.WriteString("\n")
		b.WriteString(e.StartTime)
		b.WriteString(" --> ")
		b.WriteString(e.EndTime)
		b.WriteString("\n")
		b.WriteString(e.Text)
	}
	return b.String()
}

// ReplaceByID returns a copy of entries with the first entry whose ID matches
// e.ID replaced by e.
func ReplaceByID(entries []Entry, e Entry) ([]Entry, bool) {
	out := make([]Entry, len(entries))
	copy(out, entries)
	for i := range out {
		if out[i].ID == e.ID {
			out[i] = e
			return out, true
		}
	}
	return out, false
}
