package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/theakshaypant/crmcal/internal/calview"
	"github.com/theakshaypant/crmcal/internal/core"
	"github.com/theakshaypant/crmcal/internal/util"
)

const (
	// day header + 3 events + overflow marker
	weekCellLines = 5
	// day number + 2 events + overflow marker
	monthCellLines = 4
)

func (m Model) renderCalendar() string {
	switch m.view.Mode {
	case calview.ModeDay:
		if m.compactMode {
			return m.renderListPanel()
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, m.renderListPanel(), " ", m.renderDetailPanel())
	case calview.ModeMonth:
		return m.withDetail(m.renderMonthGrid())
	default:
		return m.withDetail(m.renderWeekGrid())
	}
}

// withDetail stacks the selected event's details under a grid when there
// is room for them.
func (m Model) withDetail(grid string) string {
	if m.detailView.Height < 2 {
		return grid
	}
	return lipgloss.JoinVertical(lipgloss.Left, grid, m.renderDetailPanel())
}

func (m Model) columnWidth() int {
	return max((m.width-4)/7, 8)
}

func (m Model) renderWeekGrid() string {
	colW := m.columnWidth()
	cols := make([]string, len(m.cells))
	for i, c := range m.cells {
		style := CellStyle
		if i == m.focus {
			style = FocusedCellStyle
		}
		label := c.Date.Time(time.UTC).Format("Mon 2")
		cols[i] = style.Render(m.renderCell(c, i, label, colW-2, weekCellLines))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderMonthGrid() string {
	colW := m.columnWidth()

	var header []string
	for _, d := range calview.VisibleDates(calview.ModeWeek, m.view.Anchor) {
		header = append(header, WeekdayStyle.Width(colW).Render(d.Time(time.UTC).Format("Mon")))
	}
	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top, header...)}

	sep := lipgloss.NewStyle().Foreground(dimColor).Render(strings.Repeat("─", colW*7))
	for start := 0; start+7 <= len(m.cells); start += 7 {
		var cols []string
		for i := start; i < start+7; i++ {
			c := m.cells[i]
			cell := m.renderCell(c, i, fmt.Sprintf("%d", c.Date.Day), colW-1, monthCellLines)
			cols = append(cols, lipgloss.NewStyle().Width(colW).Render(cell))
		}
		rows = append(rows, sep, lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderCell draws one day: its label, the events that fit the mode's
// limit and the overflow marker.
func (m Model) renderCell(c calview.Cell, idx int, label string, width, lines int) string {
	focused := idx == m.focus

	labelStyle := DayNumberStyle
	switch {
	case c.Today:
		labelStyle = TodayNumberStyle
	case focused && m.view.Mode == calview.ModeMonth:
		labelStyle = SelectedItemStyle
	case !c.InMonth:
		labelStyle = OutOfMonthStyle
	}
	rows := []string{labelStyle.Render(label)}

	for j, e := range c.Shown {
		text := e.Title
		if !e.IsAllDay() && m.view.Mode == calview.ModeWeek {
			text = calview.FormatEventTime(e) + " " + e.Title
		}
		text = util.TruncateText(text, width)
		switch {
		case focused && j == m.selected:
			rows = append(rows, SelectedItemStyle.Render(text))
		case !c.InMonth:
			rows = append(rows, OutOfMonthStyle.Render(text))
		default:
			rows = append(rows, NormalItemStyle.Render(text))
		}
	}
	if more := c.OverflowLabel(m.view.Mode); more != "" {
		rows = append(rows, OverflowStyle.Render(more))
	}

	return lipgloss.NewStyle().Width(width).Height(lines).MaxHeight(lines).Render(strings.Join(rows, "\n"))
}

func (m Model) renderListPanel() string {
	events := m.focusedEvents()
	if len(events) == 0 {
		return ListPanelStyle.Width(m.listWidth).Height(m.contentHeight).Render(
			lipgloss.NewStyle().Foreground(mutedColor).Render("No events"),
		)
	}

	// Add scroll indicator if list is scrollable
	scrollInfo := ""
	if m.viewportReady && m.listView.TotalLineCount() > m.listView.Height {
		scrollInfo = lipgloss.NewStyle().
			Foreground(mutedColor).
			Render(fmt.Sprintf(" (%d/%d)", m.selected+1, len(events)))
	}

	header := lipgloss.NewStyle().
		Foreground(primaryColor).
		Bold(true).
		Render("Events") + scrollInfo

	return ListPanelStyle.Width(m.listWidth).Height(m.contentHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, m.listView.View()),
	)
}

func (m Model) renderListItem(e core.Event, selected bool, maxWidth int) string {
	timeStyled := TimeStyle.Render(calview.FormatEventTime(e))

	// Time (9) + gap
	avail := max(maxWidth-10, 10)
	title := e.Title
	loc := ""
	if e.Location != "" {
		loc = " · " + e.Location
	}
	if ansi.StringWidth(title) > avail {
		title = util.TruncateText(title, avail)
		loc = ""
	} else if loc != "" {
		loc = util.TruncateText(loc, avail-ansi.StringWidth(title))
	}

	status := ""
	if e.InProgress(m.now()) {
		status = " ●"
	}

	if selected {
		return SelectedItemStyle.Render(timeStyled + " " + title + loc + status)
	}
	return timeStyled + " " + NormalItemStyle.Render(title) + LocationStyle.Render(loc) + status
}

// updateContent refreshes the list and detail viewports.
func (m *Model) updateContent() {
	if !m.viewportReady {
		return
	}

	if m.view.Mode == calview.ModeDay {
		var items []string
		for i, e := range m.focusedEvents() {
			items = append(items, m.renderListItem(e, i == m.selected, m.listView.Width))
		}
		m.listView.SetContent(strings.Join(items, "\n"))
	}

	e, ok := m.selectedEvent()
	if !ok {
		m.detailView.SetContent("")
		return
	}
	m.detailView.SetContent(m.renderEventDetail(e, m.detailView.Width))
}

// scrollListToSelection scrolls the list viewport to keep the selected item visible
func (m *Model) scrollListToSelection() {
	if !m.viewportReady || m.view.Mode != calview.ModeDay {
		return
	}
	top := m.selected
	if top < m.listView.YOffset {
		m.listView.SetYOffset(top)
	}
	if top+1 > m.listView.YOffset+m.listView.Height {
		m.listView.SetYOffset(top + 1 - m.listView.Height)
	}
}

func (m Model) renderEventDetail(e core.Event, width int) string {
	var lines []string

	lines = append(lines, TitleStyle.Render(ansi.Wordwrap(e.Title, width, "")))
	lines = append(lines, renderField("🕐 When", formatWhen(e)))
	if !e.IsAllDay() {
		if d := e.Duration(); d > 0 {
			lines = append(lines, renderField("⏱  Duration", formatDuration(d)))
		}
	}
	if e.Location != "" {
		lines = append(lines, renderWrappedField("📍 Location", e.Location, width))
	}
	if e.ExternalLink != "" {
		labelWidth := lipgloss.Width(LabelStyle.Render("🔗 Open")) + 1
		display := util.TruncateText(e.ExternalLink, width-labelWidth)
		lines = append(lines, renderField("🔗 Open", util.MakeHyperlink(e.ExternalLink, LinkStyle.Render(display))))
	}

	if status := m.eventStatus(e); status != "" {
		lines = append(lines, "", status)
	}

	if e.Description != "" {
		desc := util.DescriptionText(e.Description, width)
		lines = append(lines, "", LabelStyle.Render("📝 Notes"), ValueStyle.Render(ansi.Wordwrap(desc, width, "")))
	}
	return strings.Join(lines, "\n")
}

func (m Model) eventStatus(e core.Event) string {
	if e.IsAllDay() {
		return ""
	}
	start, ok1 := e.Start.Time()
	end, ok2 := e.End.Time()
	if !ok1 || !ok2 {
		return ""
	}
	now := m.now()
	switch {
	case end.Before(now):
		return lipgloss.NewStyle().Foreground(mutedColor).Italic(true).
			Render(fmt.Sprintf("✓ Ended %s ago", formatDuration(now.Sub(end))))
	case e.InProgress(now):
		return InProgressStyle.Render(fmt.Sprintf("IN PROGRESS • %s remaining", formatDuration(end.Sub(now))))
	default:
		return lipgloss.NewStyle().Foreground(accentColor).
			Render(fmt.Sprintf("Starts in %s", formatDuration(start.Sub(now))))
	}
}

func (m Model) renderDetailPanel() string {
	width := m.detailWidth
	if m.view.Mode != calview.ModeDay {
		width = m.width - 6
	}
	if _, ok := m.selectedEvent(); !ok {
		return DetailPanelStyle.Width(width).Render(
			lipgloss.NewStyle().Foreground(mutedColor).Render("No event selected"),
		)
	}

	// Add scroll indicator if content is scrollable
	scrollInfo := ""
	if m.viewportReady && m.detailView.TotalLineCount() > m.detailView.Height {
		scrollInfo = lipgloss.NewStyle().
			Foreground(mutedColor).
			Render(fmt.Sprintf(" (%d%%)", int(m.detailView.ScrollPercent()*100)))
	}

	header := lipgloss.NewStyle().
		Foreground(primaryColor).
		Bold(true).
		Render("Event Details") + scrollInfo

	return DetailPanelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, m.detailView.View()),
	)
}

// Helper functions
func renderField(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

// renderWrappedField renders a label-value field, word-wrapping the value
// to fit within maxWidth. Continuation lines are indented to align with the value.
func renderWrappedField(label, value string, maxWidth int) string {
	labelRendered := LabelStyle.Render(label)
	labelWidth := lipgloss.Width(labelRendered) + 1
	valueWidth := max(maxWidth-labelWidth, 10)
	wrapLines := strings.Split(ansi.Wordwrap(value, valueWidth, ""), "\n")
	indent := strings.Repeat(" ", labelWidth)
	for i := 1; i < len(wrapLines); i++ {
		wrapLines[i] = indent + wrapLines[i]
	}
	return labelRendered + " " + ValueStyle.Render(strings.Join(wrapLines, "\n"))
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%dd %dh", days, hours)
		}
		return fmt.Sprintf("%dd", days)
	}
	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", minutes)
}

// formatWhen renders the event's span in the offset the provider wrote.
func formatWhen(e core.Event) string {
	start, ok := e.Start.Time()
	if !ok {
		return ""
	}
	if e.IsAllDay() {
		return start.Format("Mon, Jan 2") + " (All Day)"
	}
	end, ok := e.End.Time()
	if !ok {
		return start.Format("Mon, Jan 2, 3:04 PM")
	}
	if core.DateOf(start) == core.DateOf(end) {
		return fmt.Sprintf("%s, %s - %s",
			start.Format("Mon, Jan 2"),
			start.Format("3:04 PM"),
			end.Format("3:04 PM"))
	}
	return fmt.Sprintf("%s - %s",
		start.Format("Mon, Jan 2 3:04 PM"),
		end.Format("Mon, Jan 2 3:04 PM"))
}
