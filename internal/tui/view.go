package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/studyflow/internal/clock"
	"github.com/verte-zerg/studyflow/internal/model"
	"github.com/verte-zerg/studyflow/internal/stats"
)

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.screen {
	case screenSession:
		content = m.renderSession()
	case screenLogForm:
		content = m.renderLogForm()
	case screenSettings:
		content = m.renderSettings()
	default:
		content = m.renderHome()
	}
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderHome() string {
	durations := m.clock.Durations()
	lines := []string{
		titleStyle.Render("StudyFlow"),
		mutedStyle.Render("Ready to focus?"),
		"",
		fmt.Sprintf("%s  manual stopwatch", accentStyle.Render("m")),
		fmt.Sprintf("%s  pomodoro (%s focus / %s break)", accentStyle.Render("p"),
			stats.FormatSpan(int64(durations.FocusSeconds)), stats.FormatSpan(int64(durations.BreakSeconds))),
		fmt.Sprintf("%s  settings", accentStyle.Render("s")),
		fmt.Sprintf("%s  quit", accentStyle.Render("q")),
	}
	if status := m.renderStatus(); status != "" {
		lines = append(lines, "", status)
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderSession() string {
	snap := m.clock.Snapshot()
	header := accentStyle.Render(snap.Mode.Label())
	display := snap.FocusSeconds
	if snap.Mode == model.ModePomodoro {
		display = snap.PhaseRemaining
		if snap.Phase == clock.PhaseBreak {
			header = lipgloss.JoinHorizontal(lipgloss.Top, header, mutedStyle.Render(" · "), breakStyle.Render("Break"))
		} else {
			header = lipgloss.JoinHorizontal(lipgloss.Top, header, mutedStyle.Render(" · "), accentStyle.Render("Focus"))
		}
	}
	style := clockStyle
	state := ""
	if snap.State == clock.StatePaused {
		style = pausedClockStyle
		state = accentStyle.Render("PAUSED")
	}
	lines := []string{
		header,
		style.Render(stats.FormatClock(display)),
		metricsLine(snap),
	}
	if state != "" {
		lines = append(lines, state)
	}
	help := "space: pause  f: finish  x: discard"
	if snap.State == clock.StatePaused {
		help = "space: resume  f: finish  x: discard"
	}
	lines = append(lines, "", mutedStyle.Render(help))
	if status := m.renderStatus(); status != "" {
		lines = append(lines, status)
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func metricsLine(snap clock.Snapshot) string {
	return mutedStyle.Render(fmt.Sprintf("Focus %s · Pause %s · Pauses %d",
		stats.FormatClock(snap.FocusSeconds), stats.FormatClock(snap.PauseSeconds), snap.PauseCount))
}

func (m *Model) renderLogForm() string {
	snap := m.clock.Snapshot()
	body := []string{
		titleStyle.Render("Log session"),
		metricsLine(snap),
		"",
	}
	for _, input := range m.logInputs {
		body = append(body, input.View())
	}
	body = append(body, "", mutedStyle.Render("enter: save  tab: next field  esc: back to session"))
	if m.formError != "" {
		body = append(body, errorStyle.Render(m.formError))
	}
	return modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
}

func (m *Model) renderSettings() string {
	body := []string{titleStyle.Render("Settings"), ""}
	for _, input := range m.settingsInputs {
		body = append(body, input.View())
	}
	body = append(body, "", mutedStyle.Render("enter: save  tab: next field  esc: cancel"))
	if m.formError != "" {
		body = append(body, errorStyle.Render(m.formError))
	}
	return modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	switch m.statusKind {
	case statusError:
		return errorStyle.Render(m.status)
	case statusSuccess:
		return successStyle.Render(m.status)
	default:
		return mutedStyle.Render(m.status)
	}
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Today %s", stats.FormatSpan(m.todayFocus))}
	if m.pendingSave > 0 {
		segments = append(segments, "saving...")
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func modalWidth(width int) int {
	if width <= 0 {
		return 60
	}
	return max(40, min(width-4, 70))
}

func modalInnerWidth(width int) int {
	return max(10, modalWidth(width)-6)
}
