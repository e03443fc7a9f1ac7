package cli

import (
	"fmt"
	"log/slog"
	"os/exec"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jwulff/subplay/internal/app"
	"github.com/jwulff/subplay/internal/share"
	"github.com/jwulff/subplay/internal/transcript"
)

func runTUI(cmd *cobra.Command, args []string) error {
	subsPath, _ := cmd.Flags().GetString("subs")
	link, _ := cmd.Flags().GetString("url")

	cfg, store, closeEnv, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv()

	var opts app.Options
	switch {
	case len(args) == 1:
		rec, _, err := importPair(cmd.Context(), store, args[0], subsPath)
		if err != nil {
			return err
		}
		opts.InitialKey = rec.Key
	case subsPath != "":
		if opts.InitialEntries, err = readSubtitles(subsPath); err != nil {
			return err
		}
	}

	if link != "" && opts.InitialKey == "" {
		if opts, err = optionsFromLink(link, opts); err != nil {
			return err
		}
	}

	deps := app.Deps{
		Store:         store,
		Clipboard:     app.SystemClipboard{},
		CacheDir:      cfg.CacheDir,
		ShareBaseURL:  cfg.ShareBaseURL,
		VolumeStep:    cfg.VolumeStep,
		InitialVolume: cfg.InitialVolume,
	}
	if _, err := exec.LookPath(cfg.MpvPath); err != nil {
		slog.Warn("cli: player not found, transcript only", "mpv", cfg.MpvPath, "err", err)
	} else {
		deps.Launcher = app.MpvLauncher{MpvPath: cfg.MpvPath, CacheDir: cfg.CacheDir}
	}

	slog.Info("cli: starting ui", "version", Version, "initial_key", opts.InitialKey)
	p := tea.NewProgram(app.New(deps, opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// optionsFromLink opens either URL state form. A session key wins over a
// fragment token when a link carries both.
func optionsFromLink(link string, opts app.Options) (app.Options, error) {
	loc, err := share.ParseLocation(link)
	if err == nil && loc.VideoKey != "" {
		opts.InitialKey = loc.VideoKey
		return opts, nil
	}

	raw, err := share.ResolveText(link)
	if err != nil {
		return opts, err
	}
	res := transcript.Parse(raw)
	if len(res.Entries) == 0 {
		return opts, fmt.Errorf("%w: link holds no subtitle entries", share.ErrDecode)
	}
	opts.InitialEntries = res.Entries
	return opts, nil
}
