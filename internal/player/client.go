package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
)

// SocketPath returns the IPC socket path for a player instance.
func SocketPath(cacheDir string) string {
	return filepath.Join(cacheDir, fmt.Sprintf("mpv-%d.sock", os.Getpid()))
}

// Client communicates with mpv over a Unix socket.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	mu      sync.Mutex
	nextID  int
}

// Connect dials the mpv IPC socket.
func Connect(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to player: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer

	return &Client{conn: conn, scanner: scanner}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SendCommand sends a command and waits for its response. Events that
// arrive in between are discarded; subscribe on a separate connection.
func (c *Client) SendCommand(args ...any) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	cmd := Command{Command: args, RequestID: c.nextID}
	data, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, fmt.Errorf("marshal command: %w", err)
	}

	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		return Response{}, fmt.Errorf("write command: %w", err)
	}

	for {
		if !c.scanner.Scan() {
			if err := c.scanner.Err(); err != nil {
				return Response{}, fmt.Errorf("read response: %w", err)
			}
			return Response{}, fmt.Errorf("connection closed")
		}

		var l line
		if err := json.Unmarshal(c.scanner.Bytes(), &l); err != nil {
			return Response{}, fmt.Errorf("unmarshal response: %w", err)
		}
		if l.Event != "" || l.RequestID == nil || *l.RequestID != cmd.RequestID {
			continue
		}

		var resp Response
		if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
			return Response{}, fmt.Errorf("unmarshal response: %w", err)
		}
		if !resp.OK() {
			return resp, fmt.Errorf("player command %v: %s", args[0], resp.Error)
		}
		return resp, nil
	}
}

// ReadEvent reads the next event line, skipping command responses. Blocks
// until data arrives.
func (c *Client) ReadEvent() (Event, error) {
	for {
		if !c.scanner.Scan() {
			if err := c.scanner.Err(); err != nil {
				return Event{}, fmt.Errorf("read event: %w", err)
			}
			return Event{}, fmt.Errorf("connection closed")
		}

		var ev Event
		if err := json.Unmarshal(c.scanner.Bytes(), &ev); err != nil {
			return Event{}, fmt.Errorf("unmarshal event: %w", err)
		}
		if ev.Event == "" {
			continue
		}
		return ev, nil
	}
}

// ObserveProgress subscribes this connection to position and pause changes.
func (c *Client) ObserveProgress() error {
	if _, err := c.SendCommand("observe_property", propTimePos, "time-pos"); err != nil {
		return err
	}
	_, err := c.SendCommand("observe_property", propPause, "pause")
	return err
}

// Seek moves playback to an absolute position.
func (c *Client) Seek(seconds float64) error {
	_, err := c.SendCommand("seek", seconds, "absolute")
	return err
}

// Play resumes playback.
func (c *Client) Play() error {
	_, err := c.SendCommand("set_property", "pause", false)
	return err
}

// Pause pauses playback.
func (c *Client) Pause() error {
	_, err := c.SendCommand("set_property", "pause", true)
	return err
}

// SetVolume sets the volume, 0-100.
func (c *Client) SetVolume(level float64) error {
	_, err := c.SendCommand("set_property", "volume", level)
	return err
}

// SetMute mutes or unmutes audio.
func (c *Client) SetMute(muted bool) error {
	_, err := c.SendCommand("set_property", "mute", muted)
	return err
}

// SetSubtitleVisibility shows or hides the player's own subtitle rendering.
func (c *Client) SetSubtitleVisibility(visible bool) error {
	_, err := c.SendCommand("set_property", "sub-visibility", visible)
	return err
}
