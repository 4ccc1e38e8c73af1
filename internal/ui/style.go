package ui

import "github.com/charmbracelet/lipgloss"

var (
	TableGray  = lipgloss.Color("240")
	AccentPink = lipgloss.Color("218")
	AccentTeal = lipgloss.Color("#68b1b1")
	AccentBlue = lipgloss.Color("#6ea4ff")
)

var Title = lipgloss.NewStyle().Inline(true).Bold(true).Foreground(lipgloss.Color("252")).Render
var Help = lipgloss.NewStyle().Inline(true).Foreground(lipgloss.Color("241")).Render
var Good = lipgloss.NewStyle().Inline(true).Foreground(lipgloss.Color("70")).Render
var Bad = lipgloss.NewStyle().Inline(true).Foreground(lipgloss.Color("196")).Render

var TableBase = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(TableGray).
	Render
