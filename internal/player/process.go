package player

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// LaunchConfig describes how to start mpv.
type LaunchConfig struct {
	MpvPath    string
	MediaPath  string
	SocketPath string
	Volume     float64
	// Wait bounds how long Launch waits for the IPC socket to appear.
	Wait time.Duration
}

// Process is a running mpv instance.
type Process struct {
	cmd        *exec.Cmd
	socketPath string
	done       chan error
}

// Launch starts mpv paused on the media file and waits for its IPC socket.
func Launch(ctx context.Context, cfg LaunchConfig) (*Process, error) {
	if cfg.Wait <= 0 {
		cfg.Wait = 5 * time.Second
	}
	if _, err := exec.LookPath(cfg.MpvPath); err != nil {
		return nil, fmt.Errorf("find player %q: %w", cfg.MpvPath, err)
	}
	_ = os.Remove(cfg.SocketPath)

	cmd := exec.CommandContext(ctx, cfg.MpvPath,
		"--input-ipc-server="+cfg.SocketPath,
		"--pause",
		"--keep-open=yes",
		"--force-window=yes",
		"--really-quiet",
		"--volume="+strconv.FormatFloat(cfg.Volume, 'f', 0, 64),
		cfg.MediaPath,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start player: %w", err)
	}

	p := &Process{cmd: cmd, socketPath: cfg.SocketPath, done: make(chan error, 1)}
	go func() { p.done <- cmd.Wait() }()

	deadline := time.NewTimer(cfg.Wait)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if _, err := os.Stat(cfg.SocketPath); err == nil {
			return p, nil
		}
		select {
		case err := <-p.done:
			return nil, fmt.Errorf("player exited before ipc was ready: %v", err)
		case <-deadline.C:
			p.Stop()
			return nil, fmt.Errorf("player ipc socket %s not ready after %s", cfg.SocketPath, cfg.Wait)
		case <-tick.C:
		}
	}
}

// SocketPath returns the IPC socket of this process.
func (p *Process) SocketPath() string { return p.socketPath }

// Stop kills mpv and removes its socket.
func (p *Process) Stop() error {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = os.Remove(p.socketPath)
	return nil
}
