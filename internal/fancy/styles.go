// Package fancy holds the lipgloss styles and tree helpers used for terminal output.
package fancy

import "github.com/charmbracelet/lipgloss"

var (
	RootStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	BranchStyle = lipgloss.NewStyle().
			Foreground(ColorDarkGray)

	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	RuntimeStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	ArtifactStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	ValidStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	WarnStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)
)

// stateStyles colors lifecycle states by how far along they are.
var stateStyles = map[string]lipgloss.Style{
	"Running":    ValidStyle,
	"Configured": KeyStyle,
	"Installed":  KeyStyle,
	"Stopped":    WarnStyle,
	"Error":      ErrorStyle,
}

// StateText styles a lifecycle state name.
func StateText(state string) string {
	if s, ok := stateStyles[state]; ok {
		return s.Render(state)
	}
	return InfoStyle.Render(state)
}

func KeyText(text string) string      { return KeyStyle.Render(text) }
func RuntimeText(text string) string  { return RuntimeStyle.Render(text) }
func ArtifactText(text string) string { return ArtifactStyle.Render(text) }
func PathText(text string) string     { return InfoStyle.Render(text) }
func ValidText(text string) string    { return ValidStyle.Render(text) }
func ErrorText(text string) string    { return ErrorStyle.Render(text) }
