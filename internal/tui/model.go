// Package tui provides the Bubble Tea focus timer interface.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/studyflow/internal/clock"
	"github.com/verte-zerg/studyflow/internal/model"
	"github.com/verte-zerg/studyflow/internal/stats"
)

const (
	defaultTickInterval = time.Second
	saveTimeout         = 5 * time.Second
	maxFieldLength      = 80
)

type screen int

const (
	screenHome screen = iota
	screenSession
	screenLogForm
	screenSettings
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusError
)

// LogStore persists completed sessions and reports today's focus total.
type LogStore interface {
	InsertLog(ctx context.Context, entry model.LogEntry) (int64, error)
	FocusSince(ctx context.Context, since time.Time) (int64, error)
}

// Options configures a timer Model.
type Options struct {
	Clock        *clock.SessionClock
	Store        LogStore
	SaveSettings func(model.TimerConfig) error
	Logger       *slog.Logger
	Now          func() time.Time
	TickInterval time.Duration
}

type tickMsg struct {
	timer clock.Timer
	epoch uint64
}

type logSavedMsg struct {
	entry model.LogEntry
	err   error
}

type settingsSavedMsg struct {
	err error
}

type todayFocusMsg struct {
	seconds int64
	err     error
}

type quitTimeoutMsg struct{}

// Model implements the Bubble Tea focus timer UI.
type Model struct {
	clock        *clock.SessionClock
	store        LogStore
	saveSettings func(model.TimerConfig) error
	logger       *slog.Logger
	now          func() time.Time
	tickInterval time.Duration

	width  int
	height int

	screen    screen
	startedAt time.Time

	logInputs      []textinput.Model
	settingsInputs []textinput.Model
	inputIndex     int
	formError      string

	status      string
	statusKind  statusKind
	todayFocus  int64
	pendingSave int
	quitting    bool
}

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	breakStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4FB0C6")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#73D13D"))
	clockStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	pausedClockStyle = clockStyle.BorderForeground(lipgloss.Color("#C89A3A"))
	modalStyle       = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#C89A3A")).
				Padding(1, 2)
)

// NewModel constructs a timer TUI model.
func NewModel(opts Options) *Model {
	m := &Model{
		clock:        opts.Clock,
		store:        opts.Store,
		saveSettings: opts.SaveSettings,
		logger:       opts.Logger,
		now:          opts.Now,
		tickInterval: opts.TickInterval,
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.tickInterval <= 0 {
		m.tickInterval = defaultTickInterval
	}
	m.logInputs = []textinput.Model{
		newInput("Subject: ", "e.g. Math"),
		newInput("Topic:   ", "e.g. Derivatives"),
	}
	m.settingsInputs = []textinput.Model{
		newInput("Focus (minutes): ", "25"),
		newInput("Break (minutes): ", "5"),
	}
	for i := range m.settingsInputs {
		m.settingsInputs[i].CharLimit = 4
		m.settingsInputs[i].Validate = validateMinutesInput
	}
	return m
}

func newInput(prompt, placeholder string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Placeholder = placeholder
	input.CharLimit = maxFieldLength
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadTodayFocus()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeInputs()
		return m, nil
	case tickMsg:
		return m, m.handleTick(msg)
	case logSavedMsg:
		m.handleLogSaved(msg)
		if m.quitting && m.pendingSave == 0 {
			return m, tea.Quit
		}
		return m, nil
	case quitTimeoutMsg:
		if m.pendingSave > 0 {
			m.logger.Warn("quitting with unsaved session logs", "pending", m.pendingSave)
		}
		return m, tea.Quit
	case settingsSavedMsg:
		if msg.err != nil {
			m.logger.Error("failed to save settings", "error", msg.err)
			m.setError(fmt.Sprintf("Settings applied but not saved: %v", msg.err))
		}
		return m, nil
	case todayFocusMsg:
		if msg.err != nil {
			m.logger.Warn("failed to load today's focus", "error", msg.err)
			return m, nil
		}
		m.todayFocus = msg.seconds
		return m, nil
	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		if msg.Type == tea.KeyCtrlC {
			return m, m.quit()
		}
		switch m.screen {
		case screenSession:
			return m, m.updateSession(msg)
		case screenLogForm:
			return m, m.updateLogForm(msg)
		case screenSettings:
			return m, m.updateSettings(msg)
		default:
			return m, m.updateHome(msg)
		}
	}
	return m, nil
}

// quit stops the tick source and exits once pending saves finish, waiting
// at most saveTimeout.
func (m *Model) quit() tea.Cmd {
	m.clock.Disarm()
	if m.pendingSave == 0 {
		return tea.Quit
	}
	m.quitting = true
	m.setStatus("Finishing save...")
	return tea.Tick(saveTimeout, func(time.Time) tea.Msg {
		return quitTimeoutMsg{}
	})
}

// armTimer schedules the tick source required by the clock's current state.
// It must be called exactly once after every successful transition.
func (m *Model) armTimer() tea.Cmd {
	timer := m.clock.ActiveTimer()
	if timer == clock.TimerNone {
		return nil
	}
	epoch := m.clock.Epoch()
	return tea.Tick(m.tickInterval, func(time.Time) tea.Msg {
		return tickMsg{timer: timer, epoch: epoch}
	})
}

func (m *Model) handleTick(msg tickMsg) tea.Cmd {
	before := m.clock.Snapshot()
	if !m.clock.Deliver(msg.timer, msg.epoch) {
		return nil
	}
	after := m.clock.Snapshot()
	if after.Mode == model.ModePomodoro && after.Phase != before.Phase {
		if after.Phase == clock.PhaseBreak {
			m.setStatus("Break time. Step away for a moment.")
		} else {
			m.setStatus("Back to focus.")
		}
		m.logger.Debug("pomodoro phase switch", "phase", after.Phase.String(), "pause_count", after.PauseCount)
	}
	return m.armTimer()
}

func (m *Model) updateHome(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return m.quit()
	case "m":
		return m.start(m.clock.StartManual)
	case "p":
		return m.start(m.clock.StartPomodoro)
	case "s":
		return m.openSettings()
	}
	return nil
}

func (m *Model) start(fn func() error) tea.Cmd {
	if err := fn(); err != nil {
		m.logger.Warn("start rejected", "error", err)
		return nil
	}
	m.startedAt = m.now()
	m.screen = screenSession
	m.clearStatus()
	m.logger.Info("session started", "mode", string(m.clock.Mode()))
	return m.armTimer()
}

func (m *Model) updateSession(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case " ":
		return m.togglePause()
	case "f", "enter":
		return m.stop()
	case "x":
		m.clock.CancelAndReset()
		m.screen = screenHome
		m.setStatus("Session discarded.")
		m.logger.Info("session discarded")
		return nil
	}
	return nil
}

func (m *Model) togglePause() tea.Cmd {
	var err error
	if m.clock.State() == clock.StateRunning {
		err = m.clock.Pause()
	} else {
		err = m.clock.Resume()
	}
	if err != nil {
		m.logger.Warn("pause toggle rejected", "error", err)
		return nil
	}
	return m.armTimer()
}

func (m *Model) stop() tea.Cmd {
	if err := m.clock.Stop(); err != nil {
		m.logger.Warn("stop rejected", "error", err)
		return nil
	}
	m.screen = screenLogForm
	m.formError = ""
	for i := range m.logInputs {
		m.logInputs[i].SetValue("")
	}
	return tea.Batch(m.armTimer(), m.focusInput(m.logInputs, 0))
}

func (m *Model) updateLogForm(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		if err := m.clock.CancelLog(); err != nil {
			m.logger.Warn("cancel log rejected", "error", err)
			return nil
		}
		m.screen = screenSession
		m.formError = ""
		blurAll(m.logInputs)
		return m.armTimer()
	case tea.KeyEnter:
		return m.commitLog()
	case tea.KeyTab, tea.KeyDown:
		return m.focusInput(m.logInputs, m.inputIndex+1)
	case tea.KeyShiftTab, tea.KeyUp:
		return m.focusInput(m.logInputs, m.inputIndex-1)
	}
	var cmd tea.Cmd
	m.logInputs[m.inputIndex], cmd = m.logInputs[m.inputIndex].Update(msg)
	return cmd
}

func (m *Model) commitLog() tea.Cmd {
	subject := strings.TrimSpace(m.logInputs[0].Value())
	topic := strings.TrimSpace(m.logInputs[1].Value())
	if subject == "" {
		m.formError = "Subject is required."
		return m.focusInput(m.logInputs, 0)
	}
	final, err := m.clock.CommitLog()
	if err != nil {
		m.logger.Warn("commit rejected", "error", err)
		return nil
	}
	entry := model.LogEntry{
		Mode:         final.Mode,
		Subject:      subject,
		Topic:        topic,
		FocusSeconds: final.FocusSeconds,
		PauseSeconds: final.PauseSeconds,
		PauseCount:   final.PauseCount,
		StartedAt:    m.startedAt,
		EndedAt:      m.now(),
	}
	m.screen = screenHome
	m.formError = ""
	blurAll(m.logInputs)
	m.setStatus("Saving session...")
	m.pendingSave++
	return m.saveLog(entry)
}

// saveLog submits the entry off the update loop. Failures are reported
// back as a logSavedMsg and never change the clock.
func (m *Model) saveLog(entry model.LogEntry) tea.Cmd {
	st := m.store
	if st == nil {
		return func() tea.Msg {
			return logSavedMsg{entry: entry, err: fmt.Errorf("no log store configured")}
		}
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		_, err := st.InsertLog(ctx, entry)
		return logSavedMsg{entry: entry, err: err}
	}
}

func (m *Model) handleLogSaved(msg logSavedMsg) {
	if m.pendingSave > 0 {
		m.pendingSave--
	}
	if msg.err != nil {
		m.logger.Error("failed to save session", "error", msg.err, "subject", msg.entry.Subject,
			"focus_seconds", msg.entry.FocusSeconds)
		m.setError(fmt.Sprintf("Failed to save session: %v", msg.err))
		return
	}
	m.logger.Info("session saved", "subject", msg.entry.Subject, "mode", string(msg.entry.Mode),
		"focus_seconds", msg.entry.FocusSeconds, "pause_seconds", msg.entry.PauseSeconds,
		"pause_count", msg.entry.PauseCount)
	if !msg.entry.EndedAt.Before(stats.StartOfDay(m.now())) {
		m.todayFocus += int64(msg.entry.FocusSeconds)
	}
	m.setSuccess(fmt.Sprintf("Saved %s of %s.", stats.FormatClock(msg.entry.FocusSeconds), msg.entry.Subject))
}

func (m *Model) loadTodayFocus() tea.Cmd {
	st := m.store
	if st == nil {
		return nil
	}
	since := stats.StartOfDay(m.now())
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		seconds, err := st.FocusSince(ctx, since)
		return todayFocusMsg{seconds: seconds, err: err}
	}
}

func (m *Model) openSettings() tea.Cmd {
	if m.clock.State() != clock.StateIdle {
		return nil
	}
	durations := m.clock.Durations()
	m.settingsInputs[0].SetValue(strconv.Itoa(durations.FocusSeconds / 60))
	m.settingsInputs[1].SetValue(strconv.Itoa(durations.BreakSeconds / 60))
	m.screen = screenSettings
	m.formError = ""
	return m.focusInput(m.settingsInputs, 0)
}

func (m *Model) updateSettings(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.screen = screenHome
		m.formError = ""
		blurAll(m.settingsInputs)
		return nil
	case tea.KeyEnter:
		return m.applySettings()
	case tea.KeyTab, tea.KeyDown:
		return m.focusInput(m.settingsInputs, m.inputIndex+1)
	case tea.KeyShiftTab, tea.KeyUp:
		return m.focusInput(m.settingsInputs, m.inputIndex-1)
	}
	var cmd tea.Cmd
	m.settingsInputs[m.inputIndex], cmd = m.settingsInputs[m.inputIndex].Update(msg)
	return cmd
}

func (m *Model) applySettings() tea.Cmd {
	focus, err := parseMinutes(m.settingsInputs[0].Value())
	if err != nil {
		m.formError = fmt.Sprintf("Focus: %v", err)
		return nil
	}
	brk, err := parseMinutes(m.settingsInputs[1].Value())
	if err != nil {
		m.formError = fmt.Sprintf("Break: %v", err)
		return nil
	}
	cfg := model.TimerConfig{FocusSeconds: focus * 60, BreakSeconds: brk * 60}
	if err := m.clock.SetDurations(cfg); err != nil {
		m.formError = err.Error()
		return nil
	}
	m.screen = screenHome
	m.formError = ""
	blurAll(m.settingsInputs)
	m.setStatus(fmt.Sprintf("Pomodoro set to %dm focus / %dm break.", focus, brk))
	m.logger.Info("timer settings changed", "focus_minutes", focus, "break_minutes", brk)

	save := m.saveSettings
	if save == nil {
		return nil
	}
	return func() tea.Msg {
		return settingsSavedMsg{err: save(cfg)}
	}
}

func parseMinutes(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("value is required")
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("use a whole number of minutes > 0")
	}
	return n, nil
}

func validateMinutesInput(value string) error {
	for _, r := range value {
		if r < '0' || r > '9' {
			return fmt.Errorf("digits only")
		}
	}
	return nil
}

func (m *Model) focusInput(inputs []textinput.Model, idx int) tea.Cmd {
	count := len(inputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.inputIndex = idx
	var cmd tea.Cmd
	for i := range inputs {
		if i == idx {
			cmd = inputs[i].Focus()
		} else {
			inputs[i].Blur()
		}
	}
	return cmd
}

func blurAll(inputs []textinput.Model) {
	for i := range inputs {
		inputs[i].Blur()
	}
}

func (m *Model) resizeInputs() {
	width := modalInnerWidth(m.width)
	for _, inputs := range [][]textinput.Model{m.logInputs, m.settingsInputs} {
		for i := range inputs {
			inputs[i].Width = max(10, width-lipgloss.Width(inputs[i].Prompt)-1)
		}
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusKind = statusInfo
}

func (m *Model) setSuccess(s string) {
	m.status = s
	m.statusKind = statusSuccess
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusKind = statusError
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusKind = statusInfo
}
