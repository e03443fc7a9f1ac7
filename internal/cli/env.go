package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jwulff/subplay/internal/config"
	"github.com/jwulff/subplay/internal/db"
	"github.com/jwulff/subplay/internal/transcript"
)

func configDefault() string { return config.DefaultPath() }

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// setupLogging sends slog output to path; the terminal belongs to the UI.
func setupLogging(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return func() { f.Close() }, nil
}

// openEnv loads config, logging and the store for a subcommand.
func openEnv(cmd *cobra.Command) (*config.Config, *db.Store, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	closeLog, err := setupLogging(cfg.LogPath)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := db.Open(cfg.DBPath)
	if err != nil {
		closeLog()
		return nil, nil, nil, err
	}
	return cfg, store, func() {
		store.Close()
		closeLog()
	}, nil
}

// readSubtitles parses a subtitle file, refusing one with no usable entries.
func readSubtitles(path string) ([]transcript.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	res := transcript.Parse(string(data))
	if res.Dropped > 0 {
		slog.Warn("cli: malformed subtitle blocks dropped", "file", path, "count", res.Dropped)
	}
	if len(res.Entries) == 0 {
		return nil, fmt.Errorf("%s: no subtitle entries found", path)
	}
	return res.Entries, nil
}

// importPair stores media and, when subsPath is set, its transcript, as
// one write.
func importPair(ctx context.Context, store *db.Store, mediaPath, subsPath string) (db.MediaRecord, int, error) {
	var entries []transcript.Entry
	if subsPath != "" {
		var err error
		if entries, err = readSubtitles(subsPath); err != nil {
			return db.MediaRecord{}, 0, err
		}
	}

	rec, err := store.ImportMedia(ctx, mediaPath, entries)
	if err != nil {
		return db.MediaRecord{}, 0, err
	}
	slog.Info("cli: media imported", "key", rec.Key, "size", rec.Size, "entries", len(entries))
	return rec, len(entries), nil
}
