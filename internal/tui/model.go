package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theakshaypant/crmcal/internal/calclient"
	"github.com/theakshaypant/crmcal/internal/calview"
	"github.com/theakshaypant/crmcal/internal/core"
	"github.com/theakshaypant/crmcal/internal/notify"
)

// ToastDuration is how long a notification stays on screen.
const ToastDuration = 4 * time.Second

// KeyMap defines the keybindings for the TUI
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Open       key.Binding
	Prev       key.Binding
	Next       key.Binding
	Today      key.Binding
	DayView    key.Binding
	WeekView   key.Binding
	MonthView  key.Binding
	FocusNext  key.Binding
	FocusPrev  key.Binding
	Refresh    key.Binding
	Connect    key.Binding
	Disconnect key.Binding
	Quit       key.Binding
	Help       key.Binding
}

var DefaultKeyMap = KeyMap{
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "down")),
	ScrollUp:   key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("ctrl+u", "scroll up")),
	ScrollDown: key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("ctrl+d", "scroll down")),
	Open:       key.NewBinding(key.WithKeys("enter", "v"), key.WithHelp("enter", "open event")),
	Prev:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "previous")),
	Next:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next")),
	Today:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
	DayView:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "day")),
	WeekView:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "week")),
	MonthView:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "month")),
	FocusNext:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next day")),
	FocusPrev:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous day")),
	Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Connect:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
	Disconnect: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "disconnect")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

// Options wires the model to a calendar session.
type Options struct {
	Client *calclient.Client
	// Connect runs the consent round trip, including the local callback
	// listener, and returns once the redirect was handled.
	Connect func(ctx context.Context) error
	// Toasts is the notifier the client was built with.
	Toasts *notify.Channel
	Opener calclient.Opener
	Now    func() time.Time
}

// Model is the Bubble Tea model for the TUI
type Model struct {
	client  *calclient.Client
	connect func(context.Context) error
	toasts  *notify.Channel
	opener  calclient.Opener
	now     func() time.Time
	keys    KeyMap

	snap       calclient.Snapshot
	view       calview.ViewState
	cells      []calview.Cell
	focus      int // index into cells
	selected   int // index into cells[focus].Shown
	busy       int // client operations in flight
	mounted    bool
	connecting bool

	toast    *notify.Notification
	toastSeq int

	width         int
	height        int
	contentHeight int
	listWidth     int
	detailWidth   int
	compactMode   bool
	listView      viewport.Model
	detailView    viewport.Model
	viewportReady bool
	showHelp      bool
}

// NewModel creates a new TUI model showing the current week.
func NewModel(opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Opener == nil {
		opts.Opener = calclient.BrowserOpener
	}
	m := Model{
		client:  opts.Client,
		connect: opts.Connect,
		toasts:  opts.Toasts,
		opener:  opts.Opener,
		now:     opts.Now,
		keys:    DefaultKeyMap,
		snap:    opts.Client.Snapshot(),
		busy:    1,
	}
	m.setView(calview.New(m.now()))
	return m
}

// Messages
type snapshotMsg struct {
	snap    calclient.Snapshot
	mounted bool
	err     error
}

type connectDoneMsg struct {
	snap calclient.Snapshot
	err  error
}

type toastMsg notify.Notification

type toastExpiredMsg int

type tickMsg time.Time

// Commands
func (m Model) mount() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		_, err := client.Mount(context.Background(), nil)
		return snapshotMsg{snap: client.Snapshot(), mounted: true, err: err}
	}
}

func (m Model) run(op func(ctx context.Context) error) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		err := op(context.Background())
		return snapshotMsg{snap: client.Snapshot(), err: err}
	}
}

func (m Model) startConnect() tea.Cmd {
	client, connect := m.client, m.connect
	if connect == nil {
		connect = client.Connect
	}
	return func() tea.Msg {
		err := connect(context.Background())
		return connectDoneMsg{snap: client.Snapshot(), err: err}
	}
}

func waitForToast(c *notify.Channel) tea.Cmd {
	if c == nil {
		return nil
	}
	return func() tea.Msg {
		return toastMsg(<-c.C())
	}
}

func expireToast(seq int) tea.Cmd {
	return tea.Tick(ToastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg(seq)
	})
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) openURL(url string) tea.Cmd {
	opener := m.opener
	return func() tea.Msg {
		_ = opener.Open(url)
		return nil
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.mount(), waitForToast(m.toasts), tickCmd())
}

// setView switches to v and puts the focus on today when it is visible,
// else on the first day of the anchor's month.
func (m *Model) setView(v calview.ViewState) {
	m.view = v
	m.cells = calview.Cells(v, m.snap.Events, m.now())
	m.focus = -1
	for i, c := range m.cells {
		if c.Today {
			m.focus = i
			break
		}
	}
	if m.focus < 0 {
		m.focus = 0
		for i, c := range m.cells {
			if c.InMonth {
				m.focus = i
				break
			}
		}
	}
	m.selected = 0
	m.resize()
	m.updateContent()
}

// rebuild recomputes the cells after the event set changed, keeping focus
// and selection where possible.
func (m *Model) rebuild() {
	m.cells = calview.Cells(m.view, m.snap.Events, m.now())
	if m.focus >= len(m.cells) {
		m.focus = len(m.cells) - 1
	}
	if m.focus < 0 {
		m.focus = 0
	}
	if n := len(m.focusedEvents()); m.selected >= n {
		m.selected = max(n-1, 0)
	}
	m.updateContent()
}

// focusedEvents returns the focused cell's drawn events. Grid cells hide
// their overflow, which is reached through the day view.
func (m Model) focusedEvents() []core.Event {
	if m.focus < len(m.cells) {
		return m.cells[m.focus].Shown
	}
	return nil
}

func (m Model) selectedEvent() (core.Event, bool) {
	events := m.focusedEvents()
	if m.selected < len(events) {
		return events[m.selected], true
	}
	return core.Event{}, false
}

// calculateLayout calculates responsive layout dimensions
func (m *Model) calculateLayout() {
	height := max(m.height, 12)

	// Header: 3 lines, help: 2 lines, padding: 2 lines
	m.contentHeight = max(height-7, 5)

	width := m.width - 4
	m.compactMode = width < 70
	if m.compactMode {
		m.listWidth = max(width, 20)
		m.detailWidth = m.listWidth
		return
	}

	switch {
	case width < 100:
		m.listWidth = width * 45 / 100
	case width < 140:
		m.listWidth = width * 40 / 100
	default:
		m.listWidth = min(width*35/100, 60)
	}
	m.listWidth = max(m.listWidth, 30)
	m.detailWidth = max(width-m.listWidth-1, 30)
}

// gridHeight is the number of lines the week or month grid occupies.
func (m Model) gridHeight() int {
	switch m.view.Mode {
	case calview.ModeWeek:
		return weekCellLines + 2
	case calview.ModeMonth:
		return 1 + len(m.cells)/7*(monthCellLines+1)
	}
	return 0
}

// resize sizes the viewports for the current mode.
func (m *Model) resize() {
	if !m.viewportReady {
		return
	}
	if m.view.Mode == calview.ModeDay {
		m.listView.Width = max(m.listWidth-4, 10)
		m.listView.Height = max(m.contentHeight-3, 1)
		m.detailView.Width = max(m.detailWidth-4, 10)
		m.detailView.Height = max(m.contentHeight-4, 1)
		return
	}
	m.detailView.Width = max(m.width-8, 10)
	m.detailView.Height = max(m.contentHeight-m.gridHeight()-4, 0)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.calculateLayout()
		if !m.viewportReady {
			m.listView = viewport.New(10, 1)
			m.listView.Style = lipgloss.NewStyle()
			m.detailView = viewport.New(10, 1)
			m.detailView.Style = lipgloss.NewStyle()
			m.viewportReady = true
		}
		m.resize()
		m.updateContent()
		return m, nil

	case snapshotMsg:
		m.busy = max(m.busy-1, 0)
		if msg.mounted {
			m.mounted = true
		}
		m.snap = msg.snap
		m.rebuild()
		return m, nil

	case connectDoneMsg:
		m.connecting = false
		m.snap = msg.snap
		m.rebuild()
		return m, nil

	case toastMsg:
		n := notify.Notification(msg)
		m.toast = &n
		m.toastSeq++
		// Pick up fresh state: most notifications follow a state change.
		m.snap = m.client.Snapshot()
		m.rebuild()
		return m, tea.Batch(expireToast(m.toastSeq), waitForToast(m.toasts))

	case toastExpiredMsg:
		if int(msg) == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case tickMsg:
		// Today's highlight and the event countdown move with the clock.
		m.rebuild()
		return m, tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// When help overlay is shown, any key dismisses it
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	}

	if m.snap.State != calclient.Connected {
		if key.Matches(msg, m.keys.Connect) && m.mounted && !m.connecting {
			m.connecting = true
			return m, m.startConnect()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.DayView):
		m.setView(m.view.WithMode(calview.ModeDay))
	case key.Matches(msg, m.keys.WeekView):
		m.setView(m.view.WithMode(calview.ModeWeek))
	case key.Matches(msg, m.keys.MonthView):
		m.setView(m.view.WithMode(calview.ModeMonth))
	case key.Matches(msg, m.keys.Prev):
		m.setView(m.view.Previous())
	case key.Matches(msg, m.keys.Next):
		m.setView(m.view.Next())
	case key.Matches(msg, m.keys.Today):
		m.setView(m.view.Today(m.now()))

	case key.Matches(msg, m.keys.FocusNext):
		m.moveFocus(1)
	case key.Matches(msg, m.keys.FocusPrev):
		m.moveFocus(-1)

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
			m.updateContent()
			m.scrollListToSelection()
			m.detailView.GotoTop()
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.focusedEvents())-1 {
			m.selected++
			m.updateContent()
			m.scrollListToSelection()
			m.detailView.GotoTop()
		}
	case key.Matches(msg, m.keys.ScrollUp):
		m.detailView.ViewUp()
	case key.Matches(msg, m.keys.ScrollDown):
		m.detailView.ViewDown()

	case key.Matches(msg, m.keys.Open):
		if e, ok := m.selectedEvent(); ok && e.ExternalLink != "" {
			return m, m.openURL(e.ExternalLink)
		}

	case key.Matches(msg, m.keys.Refresh):
		m.busy++
		client := m.client
		return m, m.run(func(ctx context.Context) error {
			client.Refresh(ctx)
			return nil
		})

	case key.Matches(msg, m.keys.Disconnect):
		m.busy++
		return m, m.run(m.client.Disconnect)
	}
	return m, nil
}

func (m *Model) moveFocus(delta int) {
	if len(m.cells) == 0 {
		return
	}
	m.focus = (m.focus + delta + len(m.cells)) % len(m.cells)
	m.selected = 0
	m.updateContent()
	m.listView.GotoTop()
	m.detailView.GotoTop()
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch {
	case m.showHelp:
		content = m.renderHelpPanel()
	case !m.mounted:
		content = m.renderCentered("Loading...", mutedColor)
	case m.snap.State != calclient.Connected:
		content = m.renderConnect()
	case m.busy > 0 || m.snap.Loading:
		content = m.renderCentered("Loading events...", mutedColor)
	default:
		content = m.renderCalendar()
	}

	parts := []string{m.renderHeader(), content}
	if m.toast != nil {
		parts = append(parts, m.renderToast(*m.toast))
	}
	parts = append(parts, m.renderHelp())

	return AppStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) renderCentered(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().
		Width(m.width-4).
		Height(m.contentHeight).
		Foreground(color).
		Align(lipgloss.Center, lipgloss.Center).
		Render(text)
}

func (m Model) renderHeader() string {
	title := HeaderStyle.Render("📅 crmcal")
	provider := lipgloss.NewStyle().Foreground(mutedColor).Render(m.client.Provider().Label())
	line := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", provider)
	if p := m.snap.Profile; p != nil && m.snap.State == calclient.Connected {
		who := p.Name
		if p.Email != "" {
			who = fmt.Sprintf("%s <%s>", p.Name, p.Email)
		}
		line = lipgloss.JoinHorizontal(lipgloss.Center, line, "  •  ", ProfileStyle.Render(who))
	}

	if m.snap.State != calclient.Connected {
		return line + "\n"
	}

	var tabs []string
	for _, mode := range calview.Modes {
		label := strings.ToUpper(string(mode[:1])) + string(mode[1:])
		if mode == m.view.Mode {
			tabs = append(tabs, ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, TabStyle.Render(label))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Center, strings.Join(tabs, " "), "   ", ViewLabelStyle.Render(m.view.Label()))
	return lipgloss.JoinVertical(lipgloss.Left, line, row)
}

func (m Model) renderConnect() string {
	label := m.client.Provider().Label()
	var body string
	if m.connecting {
		body = lipgloss.JoinVertical(lipgloss.Center,
			TitleStyle.Render("Connecting "+label),
			ValueStyle.Render("Complete the sign-in in your browser."),
		)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Center,
			TitleStyle.Render("Connect "+label),
			ValueStyle.Render("See your upcoming appointments alongside your clients."),
			"",
			HelpKeyStyle.Render("c")+ValueStyle.Render(" connect"),
		)
	}
	return lipgloss.Place(m.width-4, m.contentHeight, lipgloss.Center, lipgloss.Center, ConnectCardStyle.Render(body))
}

func (m Model) renderToast(n notify.Notification) string {
	style := ToastStyle
	titleColor := secondaryColor
	if n.Variant == notify.VariantDestructive {
		style = DestructiveToastStyle
		titleColor = errorColor
	}
	text := lipgloss.NewStyle().Bold(true).Foreground(titleColor).Render(n.Title)
	if n.Description != "" {
		text += "\n" + ValueStyle.Render(n.Description)
	}
	return style.MaxWidth(m.width - 4).Render(text)
}

func (m Model) renderHelp() string {
	var keys []string
	if m.snap.State != calclient.Connected {
		keys = []string{
			HelpKeyStyle.Render("c") + " connect",
			HelpKeyStyle.Render("?") + " help",
			HelpKeyStyle.Render("q") + " quit",
		}
	} else {
		keys = []string{
			HelpKeyStyle.Render("d/w/m") + " view",
			HelpKeyStyle.Render("←/→") + " move",
			HelpKeyStyle.Render("tab") + " day",
			HelpKeyStyle.Render("↑/↓") + " event",
			HelpKeyStyle.Render("t") + " today",
			HelpKeyStyle.Render("enter") + " open",
			HelpKeyStyle.Render("r") + " refresh",
			HelpKeyStyle.Render("x") + " disconnect",
			HelpKeyStyle.Render("q") + " quit",
		}
	}

	fullLine := strings.Join(keys, "  •  ")
	if lipgloss.Width(fullLine) > m.width-4 {
		return HelpStyle.Render(HelpKeyStyle.Render("?") + " help")
	}
	return HelpStyle.Render(fullLine)
}

func (m Model) renderHelpPanel() string {
	header := lipgloss.NewStyle().
		Foreground(primaryColor).
		Bold(true).
		Render("Keyboard Shortcuts")

	lines := []string{
		"",
		HelpKeyStyle.Render("  c          ") + " Connect calendar",
		HelpKeyStyle.Render("  x          ") + " Disconnect calendar",
		HelpKeyStyle.Render("  d / w / m  ") + " Day, week or month view",
		HelpKeyStyle.Render("  ← / →      ") + " Previous / next period",
		HelpKeyStyle.Render("  t          ") + " Jump to today",
		HelpKeyStyle.Render("  tab        ") + " Focus next day",
		HelpKeyStyle.Render("  shift+tab  ") + " Focus previous day",
		HelpKeyStyle.Render("  ↑ / ↓      ") + " Select event",
		HelpKeyStyle.Render("  ctrl+u/d   ") + " Scroll event details",
		HelpKeyStyle.Render("  enter / v  ") + " Open event in calendar",
		HelpKeyStyle.Render("  r          ") + " Refresh events",
		HelpKeyStyle.Render("  q / ctrl+c ") + " Quit",
		"",
		lipgloss.NewStyle().Foreground(mutedColor).Italic(true).Render("  Press any key to close"),
	}

	return DetailPanelStyle.Width(m.width-6).Height(m.contentHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, strings.Join(lines, "\n")),
	)
}
