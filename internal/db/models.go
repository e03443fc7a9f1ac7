// Package db persists media files and their transcripts in a local SQLite
// database.
package db

import (
	"time"

	"github.com/jwulff/subplay/internal/transcript"
)

// MediaRecord is a stored media file. Key is derived from the file name and
// is the foreign key of the associated transcript.
type MediaRecord struct {
	Key          string
	Name         string
	LastModified time.Time
	Type         string
	Size         int64
}

// MediaSummary is one row of the media listing.
type MediaSummary struct {
	Key  string
	Name string
	Size int64
	Type string
}

// TranscriptRecord is the full transcript stored for one media key.
type TranscriptRecord struct {
	VideoKey string
	Entries  []transcript.Entry
	SavedAt  time.Time
}
