package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jwulff/subplay/internal/transcript"
)

// Store provides read-write access to the subplay SQLite database.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, _ = os.UserHomeDir()
	}
	return filepath.Join(dir, "subplay", "subplay.sqlite")
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageErr("open database", "", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	return open(dsn)
}

// OpenMemory opens a private in-memory database.
func OpenMemory() (*Store, error) {
	return open(":memory:")
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("open database", "", err)
	}
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageErr("ping database", "", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// MediaKey derives the stable storage key for a media file name.
func MediaKey(filename string) (string, error) {
	key := strings.TrimSpace(filepath.Base(filename))
	if key == "" || key == "." || key == ".." || key == string(filepath.Separator) {
		return "", fmt.Errorf("media key: empty file name %q", filename)
	}
	return key, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveMedia reads the file at path and stores it under its derived key.
func (s *Store) SaveMedia(ctx context.Context, path string) (MediaRecord, error) {
	return s.ImportMedia(ctx, path, nil)
}

// ImportMedia stores the file at path and, when entries is non-nil, its
// transcript. Both rows are written in one transaction.
func (s *Store) ImportMedia(ctx context.Context, path string, entries []transcript.Entry) (MediaRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return MediaRecord{}, storageErr("save media", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return MediaRecord{}, storageErr("save media", path, err)
	}
	rec, err := newMediaRecord(filepath.Base(path), data, info.ModTime())
	if err != nil {
		return MediaRecord{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MediaRecord{}, storageErr("save media", rec.Key, err)
	}
	defer tx.Rollback()

	if err := upsertMedia(ctx, tx, rec, data); err != nil {
		return MediaRecord{}, err
	}
	if entries != nil {
		if err := upsertTranscript(ctx, tx, rec.Key, entries); err != nil {
			return MediaRecord{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return MediaRecord{}, storageErr("save media", rec.Key, err)
	}
	return rec, nil
}

// SaveMediaBlob stores data under the key derived from name, replacing any
// previous blob with that key.
func (s *Store) SaveMediaBlob(ctx context.Context, name string, data []byte, modTime time.Time) (MediaRecord, error) {
	rec, err := newMediaRecord(name, data, modTime)
	if err != nil {
		return MediaRecord{}, err
	}
	if err := upsertMedia(ctx, s.db, rec, data); err != nil {
		return MediaRecord{}, err
	}
	return rec, nil
}

func newMediaRecord(name string, data []byte, modTime time.Time) (MediaRecord, error) {
	key, err := MediaKey(name)
	if err != nil {
		return MediaRecord{}, storageErr("save media", name, err)
	}
	return MediaRecord{
		Key:          key,
		Name:         key,
		LastModified: modTime,
		Type:         detectType(key, data),
		Size:         int64(len(data)),
	}, nil
}

func upsertMedia(ctx context.Context, ex execer, rec MediaRecord, data []byte) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO videos ("key", name, blob, lastModified, type, size)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT("key") DO UPDATE SET
			name = excluded.name,
			blob = excluded.blob,
			lastModified = excluded.lastModified,
			type = excluded.type,
			size = excluded.size
	`, rec.Key, rec.Name, data, unixFromTime(rec.LastModified), rec.Type, rec.Size)
	if err != nil {
		return storageErr("save media", rec.Key, err)
	}
	return nil
}

// LoadMedia writes the stored blob for key into cacheDir and returns the
// path a player can open. ErrNotFound when key has no blob.
func (s *Store) LoadMedia(ctx context.Context, key, cacheDir string) (string, error) {
	var data []byte
	var lastModified float64
	err := s.db.QueryRowContext(ctx,
		`SELECT blob, lastModified FROM videos WHERE "key" = ?`, key,
	).Scan(&data, &lastModified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storageErr("load media", key, ErrNotFound)
		}
		return "", storageErr("load media", key, err)
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", storageErr("load media", key, err)
	}
	dst := filepath.Join(cacheDir, key)
	if cached, err := os.ReadFile(dst); err == nil && bytes.Equal(cached, data) {
		return dst, nil
	}
	if err := writeFileAtomic(dst, data); err != nil {
		return "", storageErr("load media", key, err)
	}
	mod := timeFromUnix(lastModified)
	_ = os.Chtimes(dst, mod, mod)
	return dst, nil
}

// ListMedia returns every stored media file, ordered by name.
func (s *Store) ListMedia(ctx context.Context) ([]MediaSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT "key", name, size, type
		FROM videos
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, storageErr("list media", "", err)
	}
	defer rows.Close()

	var out []MediaSummary
	for rows.Next() {
		var m MediaSummary
		if err := rows.Scan(&m.Key, &m.Name, &m.Size, &m.Type); err != nil {
			return nil, storageErr("list media", "", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list media", "", err)
	}
	return out, nil
}

// SaveTranscript replaces the transcript stored for key.
func (s *Store) SaveTranscript(ctx context.Context, key string, entries []transcript.Entry) error {
	return upsertTranscript(ctx, s.db, key, entries)
}

func upsertTranscript(ctx context.Context, ex execer, key string, entries []transcript.Entry) error {
	if entries == nil {
		entries = []transcript.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return storageErr("save transcript", key, err)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO subtitles (videoKey, entries, savedAt)
		VALUES (?, ?, ?)
		ON CONFLICT(videoKey) DO UPDATE SET
			entries = excluded.entries,
			savedAt = excluded.savedAt
	`, key, string(data), unixFromTime(time.Now()))
	if err != nil {
		return storageErr("save transcript", key, err)
	}
	return nil
}

// LoadTranscript returns the transcript stored for key, or nil if none.
func (s *Store) LoadTranscript(ctx context.Context, key string) (*TranscriptRecord, error) {
	var raw string
	var savedAt float64
	err := s.db.QueryRowContext(ctx,
		`SELECT entries, savedAt FROM subtitles WHERE videoKey = ?`, key,
	).Scan(&raw, &savedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("load transcript", key, err)
	}

	rec := &TranscriptRecord{VideoKey: key, SavedAt: timeFromUnix(savedAt)}
	if err := json.Unmarshal([]byte(raw), &rec.Entries); err != nil {
		return nil, storageErr("load transcript", key, err)
	}
	return rec, nil
}

// DeleteMedia removes the media row and its transcript in one transaction,
// then the copy LoadMedia left in cacheDir, if any. Deleting an absent key
// is not an error.
func (s *Store) DeleteMedia(ctx context.Context, key, cacheDir string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("delete media", key, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subtitles WHERE videoKey = ?`, key); err != nil {
		return storageErr("delete media", key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE "key" = ?`, key); err != nil {
		return storageErr("delete media", key, err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("delete media", key, err)
	}

	if cacheDir == "" {
		return nil
	}
	if _, err := MediaKey(key); err != nil || filepath.Base(key) != key {
		return nil
	}
	if err := os.Remove(filepath.Join(cacheDir, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return storageErr("delete media", key, err)
	}
	return nil
}

// Setting returns a persisted UI setting.
func (s *Store) Setting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE "key" = ?`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, storageErr("read setting", key, err)
	}
	return v, true, nil
}

// SetSetting persists a UI setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings ("key", value) VALUES (?, ?)
		ON CONFLICT("key") DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return storageErr("write setting", key, err)
	}
	return nil
}

// mediaTypes covers extensions the system MIME table often lacks.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

func detectType(name string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".subplay-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
