package app

import (
	"context"
	"errors"

	"github.com/jwulff/subplay/internal/player"
)

// Player is the command side of an attached media player.
type Player interface {
	Seek(seconds float64) error
	Play() error
	Pause() error
	SetVolume(level float64) error
	SetMute(muted bool) error
	SetSubtitleVisibility(visible bool) error
	Close() error
}

// EventSource delivers media events from an attached player.
type EventSource interface {
	ReadEvent() (player.Event, error)
}

// Launcher starts a player for a playable media path.
type Launcher interface {
	Launch(ctx context.Context, mediaPath string, volume float64) (Player, EventSource, error)
}

// MpvLauncher starts mpv and attaches over its IPC socket with two
// connections: one for commands, one for observed property events.
type MpvLauncher struct {
	MpvPath  string
	CacheDir string
}

// Launch implements Launcher.
func (l MpvLauncher) Launch(ctx context.Context, mediaPath string, volume float64) (Player, EventSource, error) {
	proc, err := player.Launch(ctx, player.LaunchConfig{
		MpvPath:    l.MpvPath,
		MediaPath:  mediaPath,
		SocketPath: player.SocketPath(l.CacheDir),
		Volume:     volume,
	})
	if err != nil {
		return nil, nil, err
	}
	client, err := player.Connect(proc.SocketPath())
	if err != nil {
		proc.Stop()
		return nil, nil, err
	}
	events, err := player.Connect(proc.SocketPath())
	if err != nil {
		client.Close()
		proc.Stop()
		return nil, nil, err
	}
	if err := events.ObserveProgress(); err != nil {
		events.Close()
		client.Close()
		proc.Stop()
		return nil, nil, err
	}
	return &mpvPlayer{Client: client, events: events, proc: proc}, events, nil
}

type mpvPlayer struct {
	*player.Client
	events *player.Client
	proc   *player.Process
}

func (p *mpvPlayer) Close() error {
	return errors.Join(p.Client.Close(), p.events.Close(), p.proc.Stop())
}
