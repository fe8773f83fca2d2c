package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#2563EB") // Blue
	secondaryColor = lipgloss.Color("#10B981") // Green
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	dimColor       = lipgloss.Color("#3F3F46")
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	fgColor        = lipgloss.Color("#F9FAFB") // Light

	AppStyle     = lipgloss.NewStyle().Padding(1, 2)
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	ProfileStyle = lipgloss.NewStyle().Foreground(mutedColor)

	// Mode tabs
	TabStyle       = lipgloss.NewStyle().Foreground(mutedColor).Padding(0, 1)
	ActiveTabStyle = lipgloss.NewStyle().Background(primaryColor).Foreground(fgColor).Bold(true).Padding(0, 1)
	ViewLabelStyle = lipgloss.NewStyle().Foreground(fgColor).Bold(true)

	// Day list and detail panels
	ListPanelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(mutedColor).Padding(0, 1)
	DetailPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primaryColor).Padding(0, 1)

	SelectedItemStyle = lipgloss.NewStyle().Background(primaryColor).Foreground(fgColor).Bold(true)
	NormalItemStyle   = lipgloss.NewStyle().Foreground(fgColor)
	TimeStyle         = lipgloss.NewStyle().Foreground(secondaryColor).Width(9)
	LocationStyle     = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)

	// Week and month cells
	CellStyle        = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(dimColor)
	FocusedCellStyle = lipgloss.NewStyle().Border(lipgloss.ThickBorder()).BorderForeground(primaryColor)
	DayNumberStyle   = lipgloss.NewStyle().Foreground(fgColor).Bold(true)
	TodayNumberStyle = lipgloss.NewStyle().Background(accentColor).Foreground(lipgloss.Color("#111827")).Bold(true)
	OutOfMonthStyle  = lipgloss.NewStyle().Foreground(dimColor)
	OverflowStyle    = lipgloss.NewStyle().Foreground(accentColor)
	WeekdayStyle     = lipgloss.NewStyle().Foreground(mutedColor).Bold(true).Align(lipgloss.Center)

	// Detail panel
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).MarginBottom(1)
	LabelStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true).Width(12)
	ValueStyle = lipgloss.NewStyle().Foreground(fgColor)
	LinkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")).Underline(true)

	// Disconnected screen
	ConnectCardStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primaryColor).Padding(1, 4).Align(lipgloss.Center)

	// Toasts
	ToastStyle            = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(secondaryColor).Padding(0, 1)
	DestructiveToastStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(errorColor).Padding(0, 1)

	// Help bar
	HelpStyle    = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1)
	HelpKeyStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)

	InProgressStyle = lipgloss.NewStyle().Background(secondaryColor).Foreground(fgColor).Bold(true).Padding(0, 1)
)
