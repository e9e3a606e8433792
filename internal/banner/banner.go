package banner

import (
	"labload/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
    __          __    __                    __
   / /   ____ _/ /_  / /   ____  ____ _____/ /
  / /   / __ '/ __ \/ /   / __ \/ __ '/ __  / 
 / /___/ /_/ / /_/ / /___/ /_/ / /_/ / /_/ /  
/_____/\__,_/_.___/_____/\____/\__,_/\__,_/   `

	return "\n" + style.Render(ascii) + "\n"
}
