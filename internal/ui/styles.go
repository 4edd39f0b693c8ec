package ui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the view.
type Styles struct {
	Title       lipgloss.Style
	Input       lipgloss.Style
	Loading     lipgloss.Style
	Row         lipgloss.Style
	Selected    lipgloss.Style
	Description lipgloss.Style
	Dim         lipgloss.Style
	Status      lipgloss.Style
	StatusError lipgloss.Style
	Help        lipgloss.Style
}

// NewStyles returns the default palette.
func NewStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1),
		Loading:     lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true),
		Row:         lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),
		Selected:    lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Background(lipgloss.Color("238")).Bold(true),
		Description: lipgloss.NewStyle().Foreground(lipgloss.Color("250")).PaddingLeft(3),
		Dim:         lipgloss.NewStyle().Faint(true),
		Status:      lipgloss.NewStyle().Foreground(lipgloss.Color("78")).MarginTop(1),
		StatusError: lipgloss.NewStyle().Foreground(lipgloss.Color("203")).MarginTop(1),
		Help:        lipgloss.NewStyle().Faint(true).MarginTop(1),
	}
}
