package explore

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorWarn      = lipgloss.Color("208") // Orange
)

// TitleBar style for the top header.
var TitleBar = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// SelectedRow style for the highlighted result.
var SelectedRow = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// NormalRow style for unselected results.
var NormalRow = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// FallbackRow style for results that fell back to the raw description.
var FallbackRow = lipgloss.NewStyle().
	Foreground(colorWarn).
	Padding(0, 1)

// DetailHeader style for the recipe pane header.
var DetailHeader = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	Padding(0, 1)

// DetailStep style for recipe step lines.
var DetailStep = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 2)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in the status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in the status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// HelpStyle for empty-state messages.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(1, 2)
