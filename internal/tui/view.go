package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateAddHabit:
		content = m.form.View()
	case StateConfirmDeactivate:
		content = m.viewConfirmDeactivate()
	default:
		content = m.board.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewHeader(),
		content,
		m.viewStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) viewHeader() string {
	title := titleStyle.Render("streakly")
	points := pointsStyle.Render(fmt.Sprintf("%d pts", m.points))
	stats := m.engine.Stats()
	summary := mutedStyle.Render(fmt.Sprintf("%s · %d habits · best streak %d", m.engine.Today(), stats.TotalHabits, stats.MaxStreak))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, " ", points, "  ", summary) + "\n"
}

func (m Model) viewStatus() string {
	var b strings.Builder
	if m.banner != "" {
		b.WriteString(bannerStyle.Render(m.banner))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewConfirmDeactivate() string {
	msg := fmt.Sprintf("Deactivate %q?\nIts history is kept and it can be reactivated later.\n\n", m.deactivate.Name)
	return dialogStyle.Render(msg + mutedStyle.Render("y: confirm · n/esc: cancel"))
}
