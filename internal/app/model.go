package app

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/subplay/internal/control"
	"github.com/jwulff/subplay/internal/cue"
	"github.com/jwulff/subplay/internal/db"
	"github.com/jwulff/subplay/internal/scroll"
	"github.com/jwulff/subplay/internal/session"
	"github.com/jwulff/subplay/internal/share"
	"github.com/jwulff/subplay/internal/timecode"
	"github.com/jwulff/subplay/internal/transcript"
)

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusLibrary PanelFocus = iota
	FocusTranscript
)

// Deps are the collaborators the model drives. Store is required; a nil
// Launcher runs transcript-only.
type Deps struct {
	Store         *db.Store
	Launcher      Launcher
	Clipboard     Clipboard
	CacheDir      string
	ShareBaseURL  string
	VolumeStep    float64
	InitialVolume float64
}

// Options seed the first screen.
type Options struct {
	// InitialKey is selected on start, as if chosen from the library.
	InitialKey string
	// InitialEntries is an unsaved transcript to show, e.g. from a link.
	InitialEntries []transcript.Entry
}

// editor is the state of the edit-entry modal.
type editor struct {
	entry transcript.Entry
	start textinput.Model
	text  textarea.Model
	focus int
	err   string
}

// Model is the root bubbletea model for the subplay TUI.
type Model struct {
	deps Deps
	keys KeyMap
	help help.Model

	// Playback session
	session *session.Session
	gate    control.Gate
	volume  control.Volume
	scroll  scroll.Coordinator

	// Attached player, nil when none
	player           Player
	events           EventSource
	subtitlesVisible bool

	// Library
	library       []db.MediaSummary
	selectedMedia int
	confirmDelete string
	inFlight      map[string]bool

	// Edit modal
	editing bool
	editor  editor

	// UI state
	focusedPanel     PanelFocus
	width            int
	height           int
	transcriptScroll int
	initialKey       string

	// Errors
	errorMessage   string
	errorTransient bool

	// Status
	statusText string
}

// New creates a Model with nothing selected.
func New(deps Deps, opts Options) Model {
	if deps.Clipboard == nil {
		deps.Clipboard = SystemClipboard{}
	}
	if deps.VolumeStep <= 0 {
		deps.VolumeStep = 5
	}

	m := Model{
		deps:             deps,
		keys:             DefaultKeyMap(),
		help:             help.New(),
		session:          session.New(),
		gate:             control.NewGate(control.DefaultKeyMap(), false),
		volume:           control.NewVolume(deps.InitialVolume),
		scroll:           scroll.New(),
		subtitlesVisible: true,
		inFlight:         make(map[string]bool),
		focusedPanel:     FocusLibrary,
		initialKey:       opts.InitialKey,
		statusText:       "Select media or press p to paste subtitles",
	}
	if len(opts.InitialEntries) > 0 {
		m.session.SetEntries(opts.InitialEntries)
		m.focusedPanel = FocusTranscript
		m.statusText = fmt.Sprintf("Loaded %d entries", len(opts.InitialEntries))
	}
	return m
}

// Init loads the library and the persisted control mode, and opens the
// initial selection if one was given.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		loadLibraryCmd(m.deps.Store),
		loadControlModeCmd(m.deps.Store),
	}
	if m.initialKey != "" {
		ticket := m.session.Select(m.initialKey)
		cmds = append(cmds, loadSessionCmd(m.deps.Store, m.deps.CacheDir, ticket))
	}
	return tea.Batch(cmds...)
}

// Session exposes the playback session, mainly for tests.
func (m Model) Session() *session.Session { return m.session }

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.editing {
			m.editor.text.SetWidth(m.editorWidth())
		}
		return m, nil

	case LibraryLoadedMsg:
		if msg.Err != nil {
			return m, m.setError(fmt.Errorf("load library: %w", msg.Err))
		}
		m.library = msg.Items
		if m.selectedMedia >= len(m.library) {
			m.selectedMedia = max(0, len(m.library)-1)
		}
		return m, nil

	case SessionLoadedMsg:
		if !m.session.Current(msg.Ticket) {
			slog.Debug("app: stale session load dropped", "key", msg.Ticket.Key)
			return m, nil
		}
		if msg.Err != nil {
			return m, m.setError(fmt.Errorf("open %s: %w", msg.Ticket.Key, msg.Err))
		}
		m.session.SetEntries(msg.Entries)
		m.transcriptScroll = 0
		switch {
		case !msg.HasRecord:
			m.statusText = "No subtitles saved; press p to paste"
		default:
			m.statusText = fmt.Sprintf("Opened %s", msg.Ticket.Key)
		}
		if msg.MediaPath == "" || m.deps.Launcher == nil {
			return m, nil
		}
		return m, launchPlayerCmd(m.deps.Launcher, msg.Ticket, msg.MediaPath, m.volume.Level())

	case PlayerStartedMsg:
		if !m.session.Current(msg.Ticket) {
			slog.Debug("app: stale player closed", "key", msg.Ticket.Key)
			if err := msg.Player.Close(); err != nil {
				slog.Warn("app: close stale player", "err", err)
			}
			return m, nil
		}
		m.player, m.events = msg.Player, msg.Events
		slog.Info("app: player attached", "key", msg.Ticket.Key)
		cmds := []tea.Cmd{readEventCmd(m.events)}
		if m.volume.Muted() {
			cmds = append(cmds, m.playerDo(func(p Player) error { return p.SetMute(true) }))
		}
		if !m.subtitlesVisible {
			cmds = append(cmds, m.playerDo(func(p Player) error { return p.SetSubtitleVisibility(false) }))
		}
		return m, tea.Batch(cmds...)

	case PlayerErrorMsg:
		return m, m.setError(fmt.Errorf("player: %w", msg.Err))

	case ProgressMsg:
		if msg.src != m.events {
			return m, nil
		}
		m.session.OnProgress(msg.Seconds)
		m.followActive()
		return m, readEventCmd(m.events)

	case PlayMsg:
		if msg.src != m.events {
			return m, nil
		}
		m.session.OnPlay()
		m.followActive()
		return m, readEventCmd(m.events)

	case PauseMsg:
		if msg.src != m.events {
			return m, nil
		}
		m.session.OnPause()
		return m, readEventCmd(m.events)

	case playerIdleMsg:
		if msg.src != m.events {
			return m, nil
		}
		return m, readEventCmd(m.events)

	case PlayerEndedMsg:
		if msg.src != m.events {
			return m, nil
		}
		m.detachPlayer()
		m.session.OnPause()
		m.statusText = "Player closed"
		if msg.Err != nil {
			return m, m.setError(fmt.Errorf("player: %w", msg.Err))
		}
		return m, nil

	case scroll.ExpiredMsg:
		m.scroll = m.scroll.Update(msg)
		m.followActive()
		return m, nil

	case control.VolumeCommitMsg:
		level, ok := m.volume.Commit(msg)
		if !ok {
			return m, nil
		}
		return m, m.playerDo(func(p Player) error { return p.SetVolume(level) })

	case TranscriptSavedMsg:
		delete(m.inFlight, msg.Ticket.Key)
		if msg.Err != nil {
			// Roll back unless something newer has replaced the entries.
			if m.session.Current(msg.Ticket) && slices.Equal(m.session.Engine().Entries(), msg.Entries) {
				m.session.SetEntries(msg.Prior)
				m.transcriptScroll = min(m.transcriptScroll, m.maxTranscriptScroll())
				m.statusText = ""
			}
			return m, m.setError(fmt.Errorf("save transcript: %w", msg.Err))
		}
		if m.session.Current(msg.Ticket) {
			m.statusText = "Transcript saved"
		}
		return m, nil

	case MediaDeletedMsg:
		delete(m.inFlight, msg.Key)
		if msg.Err != nil {
			return m, m.setError(fmt.Errorf("delete %s: %w", msg.Key, msg.Err))
		}
		if m.session.Selection() == msg.Key {
			m.detachPlayer()
			m.session.Clear()
			m.transcriptScroll = 0
		}
		m.statusText = fmt.Sprintf("Deleted %s", msg.Key)
		return m, loadLibraryCmd(m.deps.Store)

	case ClipboardReadMsg:
		return m.importText(msg)

	case ShareCopiedMsg:
		if msg.Err != nil {
			return m, m.setError(fmt.Errorf("copy link: %w", msg.Err))
		}
		m.statusText = "Link copied"
		slog.Info("app: share link copied", "length", len(msg.URL))
		return m, nil

	case ControlModeLoadedMsg:
		m.gate.SetEnabled(msg.Enabled)
		return m, nil

	case settingSavedMsg:
		if msg.Err != nil {
			return m, m.setError(fmt.Errorf("save control mode: %w", msg.Err))
		}
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	if m.editing {
		return m.updateEditor(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit
	}
	if m.editing {
		return m.handleEditKey(msg)
	}
	if key.Matches(msg, m.keys.Quit) {
		m.shutdown()
		return m, tea.Quit
	}

	if m.confirmDelete != "" {
		target := m.confirmDelete
		m.confirmDelete = ""
		if !key.Matches(msg, m.keys.Confirm) {
			m.statusText = "Delete cancelled"
			return m, nil
		}
		m.inFlight[target] = true
		m.statusText = fmt.Sprintf("Deleting %s...", target)
		return m, deleteMediaCmd(m.deps.Store, m.deps.CacheDir, target)
	}

	if action, ok := m.gate.Resolve(msg); ok {
		return m.handleAction(action)
	}

	switch {
	case key.Matches(msg, m.keys.ControlMode):
		on := m.gate.Toggle()
		if on {
			m.statusText = "Control mode on"
		} else {
			m.statusText = "Control mode off"
		}
		return m, saveControlModeCmd(m.deps.Store, on)

	case key.Matches(msg, m.keys.Focus):
		if m.focusedPanel == FocusLibrary {
			m.focusedPanel = FocusTranscript
		} else {
			m.focusedPanel = FocusLibrary
		}
		return m, nil

	case key.Matches(msg, m.keys.Paste):
		return m, readClipboardCmd(m.deps.Clipboard)

	case key.Matches(msg, m.keys.Share):
		entries := m.session.Engine().Entries()
		if len(entries) == 0 {
			return m, m.setError(errors.New("no transcript to share"))
		}
		return m, copyShareCmd(m.deps.Clipboard, m.deps.ShareBaseURL, transcript.Format(entries))
	}

	if m.focusedPanel == FocusLibrary {
		return m.handleLibraryKey(msg)
	}
	return m.handleTranscriptKey(msg)
}

func (m Model) handleLibraryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selectedMedia > 0 {
			m.selectedMedia--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selectedMedia < len(m.library)-1 {
			m.selectedMedia++
		}
	case key.Matches(msg, m.keys.Select):
		item, ok := m.highlighted()
		if !ok {
			return m, nil
		}
		if m.inFlight[item.Key] {
			m.statusText = fmt.Sprintf("%s is busy", item.Name)
			return m, nil
		}
		return m, m.selectMedia(item.Key)
	case key.Matches(msg, m.keys.Delete):
		item, ok := m.highlighted()
		if !ok {
			return m, nil
		}
		if m.inFlight[item.Key] {
			m.statusText = fmt.Sprintf("%s is busy", item.Name)
			return m, nil
		}
		m.confirmDelete = item.Key
		m.statusText = fmt.Sprintf("Delete %s? y to confirm", item.Name)
	}
	return m, nil
}

func (m Model) handleTranscriptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := max(1, m.transcriptVisibleLines()-1)
	switch {
	case key.Matches(msg, m.keys.Up):
		return m, m.scrollTranscript(-1)
	case key.Matches(msg, m.keys.Down):
		return m, m.scrollTranscript(1)
	case key.Matches(msg, m.keys.PageUp):
		return m, m.scrollTranscript(-page)
	case key.Matches(msg, m.keys.PageDown):
		return m, m.scrollTranscript(page)
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.editing || !tea.MouseEvent(msg).IsWheel() {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return m, m.scrollTranscript(-3)
	case tea.MouseButtonWheelDown:
		return m, m.scrollTranscript(3)
	}
	return m, nil
}

// handleAction runs a control-mode action.
func (m Model) handleAction(action control.Action) (tea.Model, tea.Cmd) {
	slog.Debug("app: control action", "action", action.String())
	switch action {
	case control.NavigatePrevious:
		return m, m.navigate(cue.Previous)
	case control.NavigateNext:
		return m, m.navigate(cue.Next)
	case control.RepeatCurrent:
		return m, m.navigate(cue.Repeat)

	case control.TogglePlayPause:
		if m.session.Playing() {
			m.session.OnPause()
			return m, m.playerDo(Player.Pause)
		}
		if m.player == nil {
			return m, nil
		}
		m.session.OnPlay()
		return m, m.playerDo(Player.Play)

	case control.ToggleSubtitles:
		m.subtitlesVisible = !m.subtitlesVisible
		visible := m.subtitlesVisible
		return m, m.playerDo(func(p Player) error { return p.SetSubtitleVisibility(visible) })

	case control.ToggleMute:
		muted := m.volume.ToggleMute()
		return m, m.playerDo(func(p Player) error { return p.SetMute(muted) })

	case control.VolumeUp:
		return m, m.volume.Step(m.deps.VolumeStep)
	case control.VolumeDown:
		return m, m.volume.Step(-m.deps.VolumeStep)

	case control.EditCurrent:
		return m.openEditor()
	}
	return m, nil
}

// navigate resolves dir against the latest position and seeks there.
func (m *Model) navigate(dir cue.Direction) tea.Cmd {
	c, ok := m.session.Engine().Navigate(dir, m.session.Position())
	if !ok {
		return nil
	}
	if m.player == nil {
		// Transcript-only: the cursor is the position.
		m.session.OnProgress(c.Seconds)
		if idx, ok := m.session.Engine().ContainingIndex(c.Seconds); ok {
			m.scrollToEntry(idx)
		}
		return nil
	}
	return m.playerDo(func(p Player) error {
		if err := p.Seek(c.Seconds); err != nil {
			return err
		}
		if c.Resume {
			return p.Play()
		}
		return nil
	})
}

// selectMedia switches the session to key and loads it.
func (m *Model) selectMedia(key string) tea.Cmd {
	m.detachPlayer()
	ticket := m.session.Select(key)
	m.session.SetEntries(nil)
	m.session.OnProgress(0)
	m.session.OnPause()
	m.transcriptScroll = 0
	m.focusedPanel = FocusTranscript
	m.statusText = fmt.Sprintf("Loading %s...", key)
	return loadSessionCmd(m.deps.Store, m.deps.CacheDir, ticket)
}

// importText replaces the transcript with clipboard content. Nothing changes
// when the clipboard is unusable.
func (m Model) importText(msg ClipboardReadMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		if !errors.Is(msg.Err, ErrClipboardUnavailable) {
			msg.Err = fmt.Errorf("%w: %v", ErrClipboardUnavailable, msg.Err)
		}
		return m, m.setError(msg.Err)
	}
	if strings.TrimSpace(msg.Text) == "" {
		return m, m.setError(ErrClipboardUnavailable)
	}

	raw, err := share.ResolveText(msg.Text)
	if err != nil {
		return m, m.setError(fmt.Errorf("import: %w", err))
	}
	res := transcript.Parse(raw)
	if res.Dropped > 0 {
		slog.Warn("app: malformed subtitle blocks dropped", "count", res.Dropped)
	}
	if len(res.Entries) == 0 {
		return m, m.setError(errors.New("import: no subtitle entries found"))
	}

	prior := m.session.Engine().Entries()
	m.session.SetEntries(res.Entries)
	m.transcriptScroll = 0
	m.statusText = fmt.Sprintf("Imported %d entries", len(res.Entries))
	key := m.session.Selection()
	if key == "" {
		return m, nil
	}
	m.inFlight[key] = true
	return m, saveTranscriptCmd(m.deps.Store, m.session.Ticket(), res.Entries, prior)
}

// openEditor pauses playback and opens the modal on the entry at the
// current position.
func (m Model) openEditor() (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.session.Playing() {
		m.session.OnPause()
		cmd = m.playerDo(Player.Pause)
	}
	target, ok := control.EditTarget(m.session.Engine(), m.session.Position())
	if !ok {
		m.statusText = "Nothing to edit at this position"
		return m, cmd
	}

	start := textinput.New()
	start.Prompt = ""
	start.CharLimit = 12
	start.SetValue(target.StartTime)
	start.Focus()

	text := textarea.New()
	text.ShowLineNumbers = false
	text.SetWidth(m.editorWidth())
	text.SetHeight(4)
	text.SetValue(target.Text)
	text.Blur()

	m.editor = editor{entry: target, start: start, text: text}
	m.editing = true
	m.gate.OpenModal()
	return m, tea.Batch(cmd, textinput.Blink)
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeEditor()
		m.statusText = "Edit cancelled"
		return m, nil
	case "ctrl+s":
		return m.saveEdit()
	case "tab", "shift+tab":
		if m.editor.focus == 0 {
			m.editor.focus = 1
			m.editor.start.Blur()
			return m, m.editor.text.Focus()
		}
		m.editor.focus = 0
		m.editor.text.Blur()
		return m, m.editor.start.Focus()
	}
	return m.updateEditor(msg)
}

func (m Model) updateEditor(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.editor.focus == 0 {
		m.editor.start, cmd = m.editor.start.Update(msg)
	} else {
		m.editor.text, cmd = m.editor.text.Update(msg)
	}
	return m, cmd
}

func (m Model) saveEdit() (tea.Model, tea.Cmd) {
	start := strings.TrimSpace(m.editor.start.Value())
	if _, err := timecode.ParseTimestamp(start); err != nil {
		m.editor.err = "start time must look like 00:00:00,000"
		return m, nil
	}
	text := strings.TrimSpace(m.editor.text.Value())
	if text == "" {
		m.editor.err = "text is empty"
		return m, nil
	}

	entry := m.editor.entry
	entry.StartTime = start
	entry.Text = text
	m.closeEditor()

	updated, ok := transcript.ReplaceByID(m.session.Engine().Entries(), entry)
	if !ok {
		return m, m.setError(fmt.Errorf("entry %d no longer exists", entry.ID))
	}
	prior := m.session.Engine().Entries()
	m.session.SetEntries(updated)
	m.statusText = fmt.Sprintf("Entry %d updated", entry.ID)

	key := m.session.Selection()
	if key == "" {
		return m, nil
	}
	m.inFlight[key] = true
	return m, saveTranscriptCmd(m.deps.Store, m.session.Ticket(), updated, prior)
}

func (m *Model) closeEditor() {
	m.editing = false
	m.editor = editor{}
	m.gate.CloseModal()
}

// followActive scrolls the first active entry into view when the scroll
// coordinator allows it.
func (m *Model) followActive() {
	idx, ok := m.session.Engine().ContainingIndex(m.session.Position())
	if !m.scroll.ShouldAutoScroll(ok, m.session.Playing()) {
		return
	}
	m.scrollToEntry(idx)
}

// scrollToEntry centres entry i in the transcript panel.
func (m *Model) scrollToEntry(i int) {
	_, starts := m.transcriptLayout(m.transcriptPanelWidth())
	if i < 0 || i >= len(starts) {
		return
	}
	visible := m.transcriptVisibleLines() - 1
	m.transcriptScroll = min(max(0, starts[i]-visible/2), m.maxTranscriptScroll())
}

// scrollTranscript moves the transcript by delta lines on behalf of the
// user, suppressing auto-scroll for the cooldown.
func (m *Model) scrollTranscript(delta int) tea.Cmd {
	m.transcriptScroll = min(max(0, m.transcriptScroll+delta), m.maxTranscriptScroll())
	return m.scroll.UserScrolled()
}

func (m Model) highlighted() (db.MediaSummary, bool) {
	if m.selectedMedia < 0 || m.selectedMedia >= len(m.library) {
		return db.MediaSummary{}, false
	}
	return m.library[m.selectedMedia], true
}

// playerDo runs f against the attached player, if any.
func (m Model) playerDo(f func(Player) error) tea.Cmd {
	if m.player == nil {
		return nil
	}
	return playerCmd(m.player, f)
}

func (m *Model) detachPlayer() {
	if m.player == nil {
		return
	}
	if err := m.player.Close(); err != nil {
		slog.Warn("app: close player", "err", err)
	}
	m.player, m.events = nil, nil
}

func (m *Model) shutdown() {
	m.scroll.Stop()
	m.detachPlayer()
}

func (m *Model) setError(err error) tea.Cmd {
	slog.Error("app: operation failed", "err", err)
	m.errorMessage = err.Error()
	m.errorTransient = true
	return clearTransientErrorCmd()
}
