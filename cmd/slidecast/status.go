package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ivlev/slidecast/internal/session"
)

var (
	recStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	pausedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	clockStyle  = lipgloss.NewStyle().Bold(true)
	slideStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// statusLine renders the one-line recorder display.
func statusLine(st session.State, elapsed time.Duration, slide, total int, title string) string {
	var badge string
	switch st {
	case session.Recording:
		badge = recStyle.Render("● REC")
	case session.Paused:
		badge = pausedStyle.Render("❚❚ PAUSED")
	default:
		badge = idleStyle.Render(st.String())
	}
	h := int(elapsed.Hours())
	m := int(elapsed.Minutes()) % 60
	s := int(elapsed.Seconds()) % 60
	clock := clockStyle.Render(fmt.Sprintf("%02d:%02d:%02d", h, m, s))

	pos := fmt.Sprintf("slide %d", slide)
	if total > 0 {
		pos = fmt.Sprintf("slide %d/%d", slide, total)
	}
	if title != "" {
		pos += " " + title
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		badge, "  ", clock, "  ", slideStyle.Render(pos), "  ",
		helpStyle.Render("n next · p prev · x mark · space pause · q stop"))
}
