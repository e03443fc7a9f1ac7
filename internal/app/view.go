package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jwulff/subplay/internal/timecode"
	"github.com/jwulff/subplay/internal/ui"
)

// timestampWidth is the visible width of "00:00:00,000 ".
const timestampWidth = 13

func (m Model) maxTranscriptScroll() int {
	lines, _ := m.transcriptLayout(m.transcriptPanelWidth())
	contentHeight := m.transcriptVisibleLines() - 1
	return max(0, len(lines)-contentHeight)
}

// transcriptVisibleLines is the height of the panel area, header included.
func (m Model) transcriptVisibleLines() int {
	// header, status bar, two dividers, footer
	h := m.height - 5
	if m.errorMessage != "" {
		h--
	}
	return max(3, h)
}

func (m Model) libraryPanelWidth() int {
	w := m.width / 3
	return min(max(w, 20), 40)
}

func (m Model) transcriptPanelWidth() int {
	return max(20, m.width-m.libraryPanelWidth()-1)
}

func (m Model) editorWidth() int {
	return max(20, min(m.width-8, 70))
}

// transcriptLayout wraps every entry to width and returns the display
// lines plus the first line index of each entry.
func (m Model) transcriptLayout(width int) ([]string, []int) {
	engine := m.session.Engine()
	position := m.session.Position()

	textWidth := max(10, width-timestampWidth-2)
	indent := strings.Repeat(" ", timestampWidth)

	var lines []string
	starts := make([]int, 0, engine.Len())
	for _, e := range engine.Entries() {
		starts = append(starts, len(lines))
		active := e.Contains(position)

		tsStyle, textStyle := ui.TimestampStyle, lipgloss.NewStyle()
		if active {
			tsStyle, textStyle = ui.ActiveTimestampStyle, ui.ActiveEntryStyle
		}
		wrapped := wrapText(e.Text, textWidth)
		lines = append(lines, tsStyle.Render(e.StartTime)+" "+textStyle.Render(wrapped[0]))
		for _, wl := range wrapped[1:] {
			lines = append(lines, indent+textStyle.Render(wl))
		}
	}
	return lines, starts
}

// View renders the model.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.editing {
		sections = append(sections, m.renderEditor())
	} else {
		sections = append(sections, m.renderMainContent())
	}

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("SUBPLAY")

	var current string
	if key := m.session.Selection(); key != "" {
		name := key
		for _, item := range m.library {
			if item.Key == key {
				name = item.Name
				break
			}
		}
		current = ui.DimStyle.Render(" — " + name)
	}

	var badge string
	if m.gate.Enabled() {
		badge = " " + ui.ControlBadgeStyle.Render(" CONTROL ")
	}
	return title + current + badge
}

func (m Model) renderStatusBar() string {
	var dot string
	if m.session.Playing() {
		dot = ui.PlayingDotStyle.Render("▶ PLAY")
	} else {
		dot = ui.PausedDotStyle.Render("❚❚ PAUSE")
	}

	position := ui.StatusStyle.Render("  " + timecode.FormatSeconds(m.session.Position()))
	if i, ok := m.session.ActiveIndex(); ok {
		position += ui.DimStyle.Render(fmt.Sprintf("  #%d/%d", i+1, m.session.Engine().Len()))
	}
	volume := "  " + renderVolume(m.volume.Level(), m.volume.Muted())

	var subs string
	if !m.subtitlesVisible {
		subs = ui.StatusStyle.Render("  subs off")
	}

	var status string
	if m.statusText != "" {
		status = ui.DimStyle.Render("  " + m.statusText)
	}
	return dot + position + volume + subs + status
}

func renderVolume(level float64, muted bool) string {
	if muted {
		return ui.VolumeEmptyStyle.Render("VOL muted")
	}
	const barLen = 10
	filled := int(level / 100 * barLen)

	var bar strings.Builder
	for i := 0; i < barLen; i++ {
		if i < filled {
			bar.WriteString(ui.VolumeFilledStyle.Render("█"))
		} else {
			bar.WriteString(ui.VolumeEmptyStyle.Render("░"))
		}
	}
	return ui.StatusStyle.Render("VOL ") + bar.String() + ui.StatusStyle.Render(fmt.Sprintf(" %3.0f", level))
}

func (m Model) renderMainContent() string {
	libraryW := m.libraryPanelWidth()
	transcriptW := m.transcriptPanelWidth()
	contentH := m.transcriptVisibleLines()

	libraryLines := strings.Split(m.renderLibraryPanel(libraryW, contentH), "\n")
	transcriptLines := strings.Split(m.renderTranscriptPanel(transcriptW, contentH), "\n")

	divider := ui.DividerStyle.Render("│")
	rows := make([]string, 0, contentH)
	for i := 0; i < contentH; i++ {
		left := strings.Repeat(" ", libraryW)
		if i < len(libraryLines) {
			left = libraryLines[i]
		}
		right := ""
		if i < len(transcriptLines) {
			right = transcriptLines[i]
		}
		rows = append(rows, left+divider+right)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderLibraryPanel(width, height int) string {
	title := fmt.Sprintf("LIBRARY (%d)", len(m.library))
	var header string
	if m.focusedPanel == FocusLibrary {
		header = ui.PanelTitleActiveStyle.Render(title)
	} else {
		header = ui.PanelTitleStyle.Render(title)
	}

	lines := []string{header}
	if len(m.library) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No media yet"))
		lines = append(lines, ui.DimStyle.Render("  subplay import <media> <subs>"))
	}

	// Keep the highlighted row visible.
	offset := max(0, m.selectedMedia-(height-2))
	for i := offset; i < len(m.library); i++ {
		item := m.library[i]
		marker := "  "
		switch {
		case m.inFlight[item.Key]:
			marker = "… "
		case item.Key == m.session.Selection():
			marker = "▶ "
		}

		var line string
		if i == m.selectedMedia && m.focusedPanel == FocusLibrary {
			line = ui.SelectedStyle.Render("> " + item.Name)
		} else {
			line = marker + item.Name
		}
		lines = append(lines, truncateToWidth(line, width))
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	for i, l := range lines {
		lines[i] = padRight(l, width)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTranscriptPanel(width, height int) string {
	var badge string
	if m.scroll.Suppressed() {
		badge = ui.ManualBadgeStyle.Render(" MANUAL")
	} else {
		badge = ui.FollowBadgeStyle.Render(" FOLLOW")
	}

	var header string
	if m.focusedPanel == FocusTranscript {
		header = ui.PanelTitleActiveStyle.Render("TRANSCRIPT") + badge
	} else {
		header = ui.PanelTitleStyle.Render("TRANSCRIPT") + badge
	}

	lines := []string{header}
	contentHeight := height - 1

	switch {
	case !m.subtitlesVisible:
		lines = append(lines, "", ui.DimStyle.Render("  Subtitles hidden"))
	case m.session.Engine().Len() == 0:
		lines = append(lines, "", ui.DimStyle.Render("  No transcript. Press p to paste subtitles"))
	default:
		display, _ := m.transcriptLayout(width)
		start := min(m.transcriptScroll, max(0, len(display)-contentHeight))
		end := min(start+contentHeight, len(display))
		for i := start; i < end; i++ {
			lines = append(lines, " "+display[i])
		}
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderEditor() string {
	e := m.editor
	var b strings.Builder
	b.WriteString(ui.PanelTitleActiveStyle.Render(fmt.Sprintf("EDIT ENTRY %d", e.entry.ID)))
	b.WriteString("\n\n")
	b.WriteString(ui.ModalLabelStyle.Render("Start "))
	b.WriteString(e.start.View())
	b.WriteString(ui.DimStyle.Render("  ends " + e.entry.EndTime))
	b.WriteString("\n\n")
	b.WriteString(ui.ModalLabelStyle.Render("Text"))
	b.WriteString("\n")
	b.WriteString(e.text.View())
	if e.err != "" {
		b.WriteString("\n")
		b.WriteString(ui.ErrorTextStyle.Render(e.err))
	}

	box := ui.ModalBorderStyle.Render(b.String())
	return lipgloss.Place(m.width, m.transcriptVisibleLines(), lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	if m.editing {
		return m.help.ShortHelpView([]key.Binding{
			key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "field")),
			key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		})
	}
	bindings := m.keys.ShortHelp()
	if m.gate.Enabled() {
		bindings = append(m.gate.Keys().ShortHelp(), bindings...)
	}
	return m.help.ShortHelpView(bindings)
}

// Helpers

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:max(0, width-1)]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
