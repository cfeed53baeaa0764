package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// UI styles
var (
	bannerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3B82F6")).
		Align(lipgloss.Center).
		Width(64)

	taglineStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Italic(true).
		Align(lipgloss.Center).
		Width(64).
		MarginBottom(1)

	reportStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#6B7280")).
		Padding(0, 2)
)

// DisplayWelcomeBanner shows the welcome banner.
func DisplayWelcomeBanner() {
	banner := `
 ███████╗████████╗ ██████╗  ██████╗██╗  ██╗██████╗ ██╗   ██╗██╗     ███████╗███████╗
 ██╔════╝╚══██╔══╝██╔═══██╗██╔════╝██║ ██╔╝██╔══██╗██║   ██║██║     ██╔════╝██╔════╝
 ███████╗   ██║   ██║   ██║██║     █████╔╝ ██████╔╝██║   ██║██║     ███████╗█████╗
 ╚════██║   ██║   ██║   ██║██║     ██╔═██╗ ██╔═══╝ ██║   ██║██║     ╚════██║██╔══╝
 ███████║   ██║   ╚██████╔╝╚██████╗██║  ██╗██║     ╚██████╔╝███████╗███████║███████╗
 ╚══════╝   ╚═╝    ╚═════╝  ╚═════╝╚═╝  ╚═╝╚═╝      ╚═════╝ ╚══════╝╚══════╝╚══════╝
`
	fmt.Print(bannerStyle.Render(banner))
	fmt.Println()
	fmt.Print(taglineStyle.Render("A-share market data, indicators and trend analysis"))
	fmt.Println()
}
