package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/subplay/internal/control"
	"github.com/jwulff/subplay/internal/db"
	"github.com/jwulff/subplay/internal/player"
	"github.com/jwulff/subplay/internal/share"
	"github.com/jwulff/subplay/internal/timecode"
	"github.com/jwulff/subplay/internal/transcript"
)

type fakePlayer struct {
	seeks   []float64
	plays   int
	pauses  int
	volumes []float64
	muted   bool
	subs    *bool
	closed  bool
}

func (p *fakePlayer) Seek(s float64) error      { p.seeks = append(p.seeks, s); return nil }
func (p *fakePlayer) Play() error               { p.plays++; return nil }
func (p *fakePlayer) Pause() error              { p.pauses++; return nil }
func (p *fakePlayer) SetVolume(v float64) error { p.volumes = append(p.volumes, v); return nil }
func (p *fakePlayer) SetMute(m bool) error      { p.muted = m; return nil }
func (p *fakePlayer) Close() error              { p.closed = true; return nil }

func (p *fakePlayer) SetSubtitleVisibility(v bool) error {
	p.subs = &v
	return nil
}

type fakeEvents struct{ n int }

func (*fakeEvents) ReadEvent() (player.Event, error) { return player.Event{}, errors.New("unused") }

type fakeClipboard struct {
	text    string
	err     error
	written string
}

func (c *fakeClipboard) ReadAll() (string, error) { return c.text, c.err }
func (c *fakeClipboard) WriteAll(s string) error  { c.written = s; return c.err }

func newTestModel(t *testing.T) Model {
	t.Helper()
	store, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	m := New(Deps{
		Store:         store,
		Clipboard:     &fakeClipboard{},
		CacheDir:      t.TempDir(),
		ShareBaseURL:  "https://subplay.app/",
		VolumeStep:    5,
		InitialVolume: 50,
	}, Options{})
	m.width = 100
	m.height = 30
	return m
}

func sampleEntries(n int) []transcript.Entry {
	entries := make([]transcript.Entry, n)
	for i := range entries {
		entries[i] = transcript.Entry{
			ID:        i + 1,
			StartTime: formatAt(i * 2),
			EndTime:   formatAt(i*2 + 1),
			Text:      "line " + string(rune('a'+i%26)),
		}
	}
	return entries
}

func formatAt(sec int) string {
	return timecode.FormatSeconds(float64(sec))
}

// run executes cmd, following batches, and returns the leaf messages.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, run(c)...)
	}
	return out
}

// attach gives m a fake player as if one had started for the current selection.
func attach(m Model) (Model, *fakePlayer, *fakeEvents) {
	p, ev := &fakePlayer{}, &fakeEvents{}
	updated, _ := m.Update(PlayerStartedMsg{Ticket: m.session.Ticket(), Player: p, Events: ev})
	return updated.(Model), p, ev
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestNewModel(t *testing.T) {
	m := newTestModel(t)
	if m.focusedPanel != FocusLibrary {
		t.Error("new model should focus the library")
	}
	if m.gate.Enabled() {
		t.Error("control mode should start off")
	}
	if !m.subtitlesVisible {
		t.Error("subtitles should start visible")
	}
	if m.session.Selection() != "" {
		t.Errorf("selection = %q, want none", m.session.Selection())
	}
}

func TestNewModelWithInitialEntries(t *testing.T) {
	m := New(Deps{}, Options{InitialEntries: sampleEntries(3)})
	if m.session.Engine().Len() != 3 {
		t.Errorf("entries = %d, want 3", m.session.Engine().Len())
	}
	if m.focusedPanel != FocusTranscript {
		t.Error("initial transcript should take focus")
	}
}

func TestTabTogglesFocus(t *testing.T) {
	m := newTestModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focusedPanel != FocusTranscript {
		t.Error("tab should focus transcript")
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focusedPanel != FocusLibrary {
		t.Error("tab again should focus library")
	}
}

func TestStaleSessionLoadDropped(t *testing.T) {
	m := newTestModel(t)
	old := m.session.Select("a.mp4")
	m.session.Select("b.mp4")

	updated, cmd := m.Update(SessionLoadedMsg{Ticket: old, Entries: sampleEntries(2), HasRecord: true})
	m = updated.(Model)

	if m.session.Engine().Len() != 0 {
		t.Errorf("stale load applied %d entries", m.session.Engine().Len())
	}
	if cmd != nil {
		t.Error("stale load should not launch anything")
	}
}

func TestSessionLoadApplied(t *testing.T) {
	m := newTestModel(t)
	ticket := m.session.Select("a.mp4")

	updated, _ := m.Update(SessionLoadedMsg{Ticket: ticket, Entries: sampleEntries(2), HasRecord: true})
	m = updated.(Model)

	if m.session.Engine().Len() != 2 {
		t.Errorf("entries = %d, want 2", m.session.Engine().Len())
	}
}

func TestSessionLoadErrorKeepsState(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(2))
	ticket := m.session.Ticket()

	updated, _ := m.Update(SessionLoadedMsg{Ticket: ticket, Err: db.ErrStorage})
	m = updated.(Model)

	if m.errorMessage == "" {
		t.Error("storage failure should be reported")
	}
	if m.session.Engine().Len() != 2 {
		t.Error("storage failure should leave the transcript alone")
	}
}

func TestStalePlayerClosed(t *testing.T) {
	m := newTestModel(t)
	old := m.session.Select("a.mp4")
	m.session.Select("b.mp4")

	p := &fakePlayer{}
	updated, _ := m.Update(PlayerStartedMsg{Ticket: old, Player: p, Events: &fakeEvents{}})
	m = updated.(Model)

	if !p.closed {
		t.Error("player for a superseded selection should be closed")
	}
	if m.player != nil {
		t.Error("stale player should not be attached")
	}
}

func TestProgressFromAttachedPlayer(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(60))
	m, _, ev := attach(m)

	updated, _ := m.Update(PlayMsg{src: ev})
	m = updated.(Model)
	updated, cmd := m.Update(ProgressMsg{Seconds: 100.5, src: ev})
	m = updated.(Model)

	if m.session.Position() != 100.5 {
		t.Errorf("position = %v, want 100.5", m.session.Position())
	}
	if !m.session.Playing() {
		t.Error("session should be playing")
	}
	if m.transcriptScroll == 0 {
		t.Error("transcript should follow the active entry")
	}
	if cmd == nil {
		t.Error("event reading should continue")
	}
}

func TestProgressFromDetachedPlayerIgnored(t *testing.T) {
	m := newTestModel(t)
	m, _, _ = attach(m)

	updated, cmd := m.Update(ProgressMsg{Seconds: 42, src: &fakeEvents{}})
	m = updated.(Model)

	if m.session.Position() != 0 {
		t.Errorf("position = %v, want 0", m.session.Position())
	}
	if cmd != nil {
		t.Error("reading should stop for a detached source")
	}
}

func TestUserScrollSuppressesFollow(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(60))
	m, _, ev := attach(m)
	m.focusedPanel = FocusTranscript

	updated, _ := m.Update(PlayMsg{src: ev})
	m = updated.(Model)
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if cmd == nil {
		t.Fatal("user scroll should start the cooldown")
	}
	if !m.scroll.Suppressed() {
		t.Fatal("user scroll should suppress auto-scroll")
	}

	updated, _ = m.Update(ProgressMsg{Seconds: 100.5, src: ev})
	m = updated.(Model)
	if m.transcriptScroll != 1 {
		t.Errorf("transcriptScroll = %d, want 1 while suppressed", m.transcriptScroll)
	}
}

func TestControlKeysIgnoredWhenDisabled(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(3))
	m, p, _ := attach(m)

	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	run(cmd)
	if len(p.seeks) != 0 {
		t.Errorf("seeks = %v, want none with control mode off", p.seeks)
	}
}

func TestControlModeNavigation(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(3))
	m, p, _ := attach(m)

	m, cmd := press(t, m, runes("c"))
	if !m.gate.Enabled() {
		t.Fatal("c should enable control mode")
	}
	if msg := cmd(); msg.(settingSavedMsg).Err != nil {
		t.Fatalf("persist control mode: %v", msg.(settingSavedMsg).Err)
	}

	m.session.OnProgress(2.5)
	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if cmd == nil {
		t.Fatal("next should produce a seek")
	}
	cmd()
	if len(p.seeks) != 1 || p.seeks[0] != 4 {
		t.Errorf("seeks = %v, want [4]", p.seeks)
	}
	if p.plays != 1 {
		t.Errorf("plays = %d, want 1 (seek resumes)", p.plays)
	}
}

func TestControlModePersisted(t *testing.T) {
	m := newTestModel(t)
	m, cmd := press(t, m, runes("c"))
	cmd()

	msg := loadControlModeCmd(m.deps.Store)()
	if !msg.(ControlModeLoadedMsg).Enabled {
		t.Error("control mode should load back as enabled")
	}
}

func TestTranscriptOnlyNavigationMovesCursor(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(3))
	m.gate.SetEnabled(true)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.session.Position() != 2 {
		t.Errorf("position = %v, want 2", m.session.Position())
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.session.Position() != 0 {
		t.Errorf("position = %v, want 0", m.session.Position())
	}
}

func TestVolumeDebounceAppliesLatest(t *testing.T) {
	m := newTestModel(t)
	m.gate.SetEnabled(true)
	m, p, _ := attach(m)

	m, first := press(t, m, runes("+"))
	m, _ = press(t, m, runes("+"))
	m, last := press(t, m, runes("+"))

	for _, cmd := range []tea.Cmd{first, last} {
		updated, apply := m.Update(cmd())
		m = updated.(Model)
		run(apply)
	}
	if len(p.volumes) != 1 || p.volumes[0] != 65 {
		t.Errorf("volumes = %v, want [65]", p.volumes)
	}
}

func TestMuteAppliedImmediately(t *testing.T) {
	m := newTestModel(t)
	m.gate.SetEnabled(true)
	m, p, _ := attach(m)

	_, cmd := press(t, m, runes("m"))
	cmd()
	if !p.muted {
		t.Error("mute should reach the player")
	}
}

func TestEditOpensPausesAndGatesKeys(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(3))
	m.gate.SetEnabled(true)
	m, p, _ := attach(m)
	m.session.OnPlay()
	m.session.OnProgress(2.5)

	m, cmd := press(t, m, runes("e"))
	if !m.editing {
		t.Fatal("e should open the editor")
	}
	if m.session.Playing() {
		t.Error("editing should pause playback")
	}
	run(cmd)
	if p.pauses != 1 {
		t.Errorf("pauses = %d, want 1", p.pauses)
	}
	if got := m.editor.start.Value(); got != "00:00:02,500" {
		t.Errorf("start = %q, want pause point", got)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if len(p.seeks) != 0 {
		t.Error("control keys must not act while the editor is open")
	}
}

func TestEditSavePersists(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()
	rec, err := m.deps.Store.SaveMediaBlob(ctx, "clip.mp4", []byte("data"), time.Now())
	if err != nil {
		t.Fatalf("SaveMediaBlob: %v", err)
	}
	m.session.Select(rec.Key)
	m.session.SetEntries(sampleEntries(3))
	m.session.OnProgress(2.5)
	m.gate.SetEnabled(true)

	m, _ = press(t, m, runes("e"))
	m.editor.text.SetValue("edited")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	if m.editing {
		t.Error("save should close the editor")
	}
	if m.gate.ModalOpen() {
		t.Error("save should reopen the gate")
	}
	got := m.session.Engine().At(1)
	if got.Text != "edited" || got.StartTime != "00:00:02,500" {
		t.Errorf("entry = %+v", got)
	}
	if cmd == nil {
		t.Fatal("save should persist")
	}
	updated, _ := m.Update(cmd())
	m = updated.(Model)
	if m.errorMessage != "" {
		t.Fatalf("save error: %s", m.errorMessage)
	}

	stored, err := m.deps.Store.LoadTranscript(ctx, rec.Key)
	if err != nil || stored == nil {
		t.Fatalf("LoadTranscript = %v, %v", stored, err)
	}
	if stored.Entries[1].Text != "edited" {
		t.Errorf("stored text = %q", stored.Entries[1].Text)
	}
}

func TestEditSaveFailureRestoresEntry(t *testing.T) {
	m := newTestModel(t)
	m.session.Select("clip.mp4")
	m.session.SetEntries(sampleEntries(3))
	m.session.OnProgress(2.5)
	m.gate.SetEnabled(true)
	m.deps.Store.Close()

	m, _ = press(t, m, runes("e"))
	m.editor.text.SetValue("edited")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd == nil {
		t.Fatal("save should persist")
	}
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	if m.errorMessage == "" {
		t.Error("storage failure should be reported")
	}
	if got := m.session.Engine().At(1); got != sampleEntries(3)[1] {
		t.Errorf("entry = %+v, want the unsaved edit rolled back", got)
	}
	if m.inFlight["clip.mp4"] {
		t.Error("failed save should release the key")
	}
}

func TestImportSaveFailureRestoresTranscript(t *testing.T) {
	m := newTestModel(t)
	m.session.Select("clip.mp4")
	m.session.SetEntries(sampleEntries(2))
	m.deps.Store.Close()

	srt := "1\n00:00:01,000 --> 00:00:02,000\nfresh\n"
	m2, cmd := m.Update(ClipboardReadMsg{Text: srt})
	m = m2.(Model)
	if m.session.Engine().Len() != 1 {
		t.Fatalf("entries = %d, want the import applied while saving", m.session.Engine().Len())
	}
	if cmd == nil {
		t.Fatal("import should persist")
	}
	m2, _ = m.Update(cmd())
	m = m2.(Model)

	if m.session.Engine().Len() != 2 || m.session.Engine().At(0).Text != "line a" {
		t.Errorf("entries = %+v, want the previous transcript", m.session.Engine().Entries())
	}
}

func TestFailedSaveKeepsNewerEdit(t *testing.T) {
	m := newTestModel(t)
	ticket := m.session.Select("clip.mp4")
	prior := sampleEntries(2)
	saved := sampleEntries(3)
	newer := sampleEntries(4)
	m.session.SetEntries(newer)

	updated, _ := m.Update(TranscriptSavedMsg{Ticket: ticket, Entries: saved, Prior: prior, Err: db.ErrStorage})
	m = updated.(Model)

	if m.session.Engine().Len() != 4 {
		t.Errorf("entries = %d, a stale failure must not roll back newer entries", m.session.Engine().Len())
	}
}

func TestEditRejectsBadStart(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(3))
	m.session.OnProgress(0.5)
	m.gate.SetEnabled(true)

	m, _ = press(t, m, runes("e"))
	m.editor.start.SetValue("soon")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	if !m.editing {
		t.Error("bad start should keep the editor open")
	}
	if m.editor.err == "" {
		t.Error("bad start should be explained")
	}
}

func TestEditCancel(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(3))
	m.session.OnProgress(0.5)
	m.gate.SetEnabled(true)

	m, _ = press(t, m, runes("e"))
	m.editor.text.SetValue("discarded")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.editing || m.gate.ModalOpen() {
		t.Error("esc should close the editor")
	}
	if m.session.Engine().At(0).Text != "line a" {
		t.Errorf("text = %q, want unchanged", m.session.Engine().At(0).Text)
	}
}

func TestClipboardUnavailable(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(2))

	for _, msg := range []ClipboardReadMsg{
		{Err: errors.New("no xclip")},
		{Text: "   "},
	} {
		updated, _ := m.Update(msg)
		got := updated.(Model)
		if !strings.Contains(got.errorMessage, ErrClipboardUnavailable.Error()) {
			t.Errorf("errorMessage = %q", got.errorMessage)
		}
		if got.session.Engine().Len() != 2 {
			t.Error("failed import should leave the transcript alone")
		}
	}
}

func TestClipboardImportToken(t *testing.T) {
	m := newTestModel(t)
	raw := transcript.Format(sampleEntries(4))
	token, err := share.Encode(raw)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	updated, cmd := m.Update(ClipboardReadMsg{Text: token})
	m = updated.(Model)

	if m.session.Engine().Len() != 4 {
		t.Errorf("entries = %d, want 4", m.session.Engine().Len())
	}
	if cmd != nil {
		t.Error("nothing selected, nothing to save")
	}
}

func TestShareCopiesLink(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(2))
	cb := m.deps.Clipboard.(*fakeClipboard)

	_, cmd := press(t, m, runes("y"))
	msg := cmd().(ShareCopiedMsg)
	if msg.Err != nil {
		t.Fatalf("share: %v", msg.Err)
	}
	if cb.written != msg.URL || !strings.HasPrefix(msg.URL, "https://subplay.app/") {
		t.Errorf("written = %q, url = %q", cb.written, msg.URL)
	}

	loc, err := share.ParseLocation(msg.URL)
	if err != nil {
		t.Fatalf("ParseLocation: %v", err)
	}
	raw, err := share.Decode(loc.Token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := transcript.Parse(raw).Entries; len(got) != 2 {
		t.Errorf("round trip entries = %d, want 2", len(got))
	}
}

func TestDeleteRequiresConfirm(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()
	rec, err := m.deps.Store.SaveMediaBlob(ctx, "clip.mp4", []byte("data"), time.Now())
	if err != nil {
		t.Fatalf("SaveMediaBlob: %v", err)
	}
	updated, _ := m.Update(loadLibraryCmd(m.deps.Store)())
	m = updated.(Model)

	m, _ = press(t, m, runes("d"))
	m, cmd := press(t, m, runes("n"))
	if cmd != nil || m.confirmDelete != "" {
		t.Fatal("anything but y should cancel")
	}

	m, _ = press(t, m, runes("d"))
	m, cmd = press(t, m, runes("y"))
	if cmd == nil {
		t.Fatal("y should delete")
	}
	if !m.inFlight[rec.Key] {
		t.Error("delete should mark the key busy")
	}
	updated, _ = m.Update(cmd())
	m = updated.(Model)
	if m.inFlight[rec.Key] {
		t.Error("finished delete should clear busy")
	}

	items, err := m.deps.Store.ListMedia(ctx)
	if err != nil {
		t.Fatalf("ListMedia: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want 0", len(items))
	}
}

func TestDeleteSelectedClearsSession(t *testing.T) {
	m := newTestModel(t)
	m.session.Select("clip.mp4")
	m.session.SetEntries(sampleEntries(2))
	m, p, _ := attach(m)

	updated, _ := m.Update(MediaDeletedMsg{Key: "clip.mp4"})
	m = updated.(Model)

	if m.session.Selection() != "" || m.session.Engine().Len() != 0 {
		t.Error("deleting the selection should clear the session")
	}
	if !p.closed || m.player != nil {
		t.Error("deleting the selection should detach the player")
	}
}

func TestToggleSubtitlesHidesPanel(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(2))
	m.gate.SetEnabled(true)
	m, p, _ := attach(m)

	m, cmd := press(t, m, runes("s"))
	cmd()
	if m.subtitlesVisible {
		t.Error("s should hide subtitles")
	}
	if p.subs == nil || *p.subs {
		t.Error("player subtitles should be hidden")
	}
	if !strings.Contains(m.View(), "Subtitles hidden") {
		t.Error("view should say subtitles are hidden")
	}
}

func TestScrollExpiryResumesFollow(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(2))
	m.focusedPanel = FocusTranscript

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if !m.scroll.Suppressed() {
		t.Fatal("expected suppression")
	}
	updated, _ := m.Update(cmd())
	m = updated.(Model)
	if m.scroll.Suppressed() {
		t.Error("cooldown expiry should resume follow")
	}
}

func TestClearTransientError(t *testing.T) {
	m := newTestModel(t)
	m.errorMessage = "boom"
	m.errorTransient = true

	updated, _ := m.Update(ClearTransientErrorMsg{})
	if got := updated.(Model).errorMessage; got != "" {
		t.Errorf("errorMessage = %q, want cleared", got)
	}
}

func TestControlKeyTableSurfacesInFooter(t *testing.T) {
	m := newTestModel(t)
	m.gate.SetEnabled(true)
	if !strings.Contains(m.View(), control.DefaultKeyMap().Repeat.Help().Desc) {
		t.Error("footer should list control keys when control mode is on")
	}
}

func TestViewRendersWithSize(t *testing.T) {
	m := newTestModel(t)
	m.session.SetEntries(sampleEntries(5))

	view := m.View()
	if !strings.Contains(view, "SUBPLAY") || !strings.Contains(view, "LIBRARY") {
		t.Errorf("view missing panels:\n%s", view)
	}
	if !strings.Contains(view, "line a") {
		t.Error("view should list transcript entries")
	}
}

func TestViewWithoutSize(t *testing.T) {
	m := New(Deps{}, Options{})
	if view := m.View(); view != "Initializing..." {
		t.Errorf("view without size = %q, want 'Initializing...'", view)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("the quick brown fox", 9)
	want := []string{"the quick", "brown fox"}
	if len(got) != len(want) {
		t.Fatalf("wrapText = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}
