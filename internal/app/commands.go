package app

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/subplay/internal/control"
	"github.com/jwulff/subplay/internal/db"
	"github.com/jwulff/subplay/internal/session"
	"github.com/jwulff/subplay/internal/share"
	"github.com/jwulff/subplay/internal/transcript"
)

// storeTimeout bounds each storage request issued from the UI.
const storeTimeout = 10 * time.Second

func loadLibraryCmd(store *db.Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		items, err := store.ListMedia(ctx)
		return LibraryLoadedMsg{Items: items, Err: err}
	}
}

// loadSessionCmd reads the transcript and materializes the media for the
// selection in ticket. A key with no stored blob loads transcript-only.
func loadSessionCmd(store *db.Store, cacheDir string, ticket session.Ticket) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		msg := SessionLoadedMsg{Ticket: ticket}
		rec, err := store.LoadTranscript(ctx, ticket.Key)
		if err != nil {
			msg.Err = err
			return msg
		}
		if rec != nil {
			msg.Entries = rec.Entries
			msg.HasRecord = true
		}

		path, err := store.LoadMedia(ctx, ticket.Key, cacheDir)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			msg.Err = err
			return msg
		}
		msg.MediaPath = path
		return msg
	}
}

func launchPlayerCmd(launcher Launcher, ticket session.Ticket, mediaPath string, volume float64) tea.Cmd {
	return func() tea.Msg {
		// The player outlives this command; it is stopped through Close.
		p, events, err := launcher.Launch(context.Background(), mediaPath, volume)
		if err != nil {
			return PlayerErrorMsg{Err: err}
		}
		return PlayerStartedMsg{Ticket: ticket, Player: p, Events: events}
	}
}

// readEventCmd reads the next media event and converts it to a message.
func readEventCmd(src EventSource) tea.Cmd {
	return func() tea.Msg {
		ev, err := src.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			return PlayerEndedMsg{Err: err, src: src}
		}
		if seconds, ok := ev.Progress(); ok {
			return ProgressMsg{Seconds: seconds, src: src}
		}
		if paused, ok := ev.PauseState(); ok {
			if paused {
				return PauseMsg{src: src}
			}
			return PlayMsg{src: src}
		}
		if ev.EndOfFile() {
			return PauseMsg{src: src}
		}
		return playerIdleMsg{src: src}
	}
}

// playerCmd runs f against p off the update loop.
func playerCmd(p Player, f func(Player) error) tea.Cmd {
	return func() tea.Msg {
		if err := f(p); err != nil {
			return PlayerErrorMsg{Err: err}
		}
		return nil
	}
}

func saveTranscriptCmd(store *db.Store, ticket session.Ticket, entries, prior []transcript.Entry) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return TranscriptSavedMsg{
			Ticket:  ticket,
			Entries: entries,
			Prior:   prior,
			Err:     store.SaveTranscript(ctx, ticket.Key, entries),
		}
	}
}

func deleteMediaCmd(store *db.Store, cacheDir, key string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return MediaDeletedMsg{Key: key, Err: store.DeleteMedia(ctx, key, cacheDir)}
	}
}

func readClipboardCmd(cb Clipboard) tea.Cmd {
	return func() tea.Msg {
		text, err := cb.ReadAll()
		return ClipboardReadMsg{Text: text, Err: err}
	}
}

func copyShareCmd(cb Clipboard, baseURL, raw string) tea.Cmd {
	return func() tea.Msg {
		link, err := share.FragmentURL(baseURL, raw)
		if err != nil {
			return ShareCopiedMsg{Err: err}
		}
		if err := cb.WriteAll(link); err != nil {
			return ShareCopiedMsg{Err: err}
		}
		return ShareCopiedMsg{URL: link}
	}
}

func loadControlModeCmd(store *db.Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		value, ok, err := store.Setting(ctx, control.SettingKey)
		if err != nil || !ok {
			return ControlModeLoadedMsg{}
		}
		on, _ := strconv.ParseBool(value)
		return ControlModeLoadedMsg{Enabled: on}
	}
}

func saveControlModeCmd(store *db.Store, on bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return settingSavedMsg{Err: store.SetSetting(ctx, control.SettingKey, strconv.FormatBool(on))}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}
