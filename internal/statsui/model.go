// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/studyflow/internal/model"
	"github.com/verte-zerg/studyflow/internal/stats"
	"github.com/verte-zerg/studyflow/internal/store"
)

const (
	tabOverview = iota
	tabSubjects
	tabHistory
)

const defaultTrendWindow = 5

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	sparkStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

// Options configures the stats UI.
type Options struct {
	Filter      model.LogFilter
	TrendWindow int
	Now         func() time.Time
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	store  *store.Store
	filter model.LogFilter
	window int
	now    func() time.Time

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	overview  viewport.Model
	subjects  tablePane
	history   tablePane

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

type tablePane struct {
	table  table.Model
	layout tableLayout
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
}

// NewModel constructs a stats UI model.
func NewModel(st *store.Store, opts Options) *Model {
	m := &Model{
		store:  st,
		filter: opts.Filter,
		window: opts.TrendWindow,
		now:    opts.Now,
		tabs:   []string{"Overview", "Subjects", "History"},
	}
	if m.window < 1 {
		m.window = defaultTrendWindow
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.overview = viewport.New(0, 0)
	m.subjects.table = newTable(subjectColumns(), 0, 1)
	m.history.table = newTable(historyColumns(), 0, 1)
	m.initInputs()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.window = nextTrendWindow(m.window)
			m.renderTabContents()
			return m, nil
		case "-":
			m.window = prevTrendWindow(m.window)
			m.renderTabContents()
			return m, nil
		case "r":
			m.refreshReport()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if pane := m.activePane(); pane != nil {
				pane.table.GotoTop()
			} else {
				m.overview.GotoTop()
			}
			return m, nil
		case "G", "end":
			if pane := m.activePane(); pane != nil {
				pane.table.GotoBottom()
			} else {
				m.overview.GotoBottom()
			}
			return m, nil
		default:
			var cmd tea.Cmd
			if pane := m.activePane(); pane != nil {
				pane.table, cmd = pane.table.Update(msg)
				return m, cmd
			}
			m.overview, cmd = m.overview.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) activePane() *tablePane {
	switch m.activeTab {
	case tabSubjects:
		return &m.subjects
	case tabHistory:
		return &m.history
	default:
		return nil
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Subject: "),
		newFilterInput("Mode (manual/pomodoro): "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
	}
	m.setInputsFromFilter()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromFilter() {
	m.filterInputs[0].SetValue(m.filter.Subject)
	m.filterInputs[1].SetValue(string(m.filter.Mode))
	if m.filter.Since != nil {
		m.filterInputs[2].SetValue(m.filter.Since.Format("2006-01-02"))
	} else {
		m.filterInputs[2].SetValue("")
	}
	if m.filter.Last > 0 {
		m.filterInputs[3].SetValue(strconv.Itoa(m.filter.Last))
	} else {
		m.filterInputs[3].SetValue("")
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(1, lipgloss.Height(activeNavStyle.Render("X")))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.overview.Width = m.width
	m.overview.Height = bodyHeight
	m.subjects.setSize(m.width, bodyHeight)
	m.history.setSize(m.width, bodyHeight)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	m.subjects.table.Blur()
	m.history.table.Blur()
	if pane := m.activePane(); pane != nil {
		pane.table.Focus()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	return headerStyle.Render(truncateLine(filterSummary(m.filter, m.window), m.width))
}

func filterSummary(filter model.LogFilter, window int) string {
	subject := filter.Subject
	if subject == "" {
		subject = "any"
	}
	mode := string(filter.Mode)
	if mode == "" {
		mode = "any"
	}
	since := "any"
	if filter.Since != nil {
		since = filter.Since.Format("2006-01-02")
	}
	last := "all"
	if filter.Last > 0 {
		last = strconv.Itoa(filter.Last)
	}
	return fmt.Sprintf("Filter: subject=%s  mode=%s  since=%s  last=%s  trend=%d", subject, mode, since, last, window)
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Trend: -/=  Filter: /  Reload: r  Quit: q"
	return headerStyle.Render(help)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filter (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if pane := m.activePane(); pane != nil {
		if len(m.report.Logs) == 0 {
			return fitLines("No sessions found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(pane.table.View()), m.width, height)
	}
	return fitLines(m.overview.View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.store, m.filter)
	if err != nil {
		m.errMsg = err.Error()
		m.overview.SetContent("Failed to load stats.")
		return
	}
	m.errMsg = ""
	m.report = report
	_, bodyHeight, _ := m.layoutHeights()
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.subjects.setRows(subjectRows(report.Subjects, report.Summary.FocusSeconds, m.now()), width, bodyHeight)
	m.history.setRows(historyRows(report.Logs, m.now()), width, bodyHeight)
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if m.errMsg != "" {
		m.overview.SetContent("Failed to load stats.")
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.overview.SetContent(renderOverview(m.report, m.window, width))
}

func renderOverview(report stats.Report, window, width int) string {
	if len(report.Logs) == 0 {
		return "No sessions found."
	}
	parts := []string{renderSummaryCards(report.Summary, width)}
	if bars := stats.DailyBars(report.Days, width); len(bars) > 0 {
		parts = append(parts, cardTitleStyle.Render("Focus per day")+"\n"+strings.Join(bars, "\n"))
	}
	if len(report.Logs) > 1 {
		series := stats.MovingAverage(stats.FocusSeries(report.Logs), window)
		spark := stats.Sparkline(series)
		if len(spark) > width {
			spark = spark[len(spark)-width:]
		}
		parts = append(parts, cardTitleStyle.Render(fmt.Sprintf("Focus trend (moving avg %d)", window))+"\n"+sparkStyle.Render(spark))
	}
	return strings.TrimRight(strings.Join(parts, "\n\n"), "\n")
}

func renderSummaryCards(summary stats.Summary, width int) string {
	cards := []string{
		metricCard("Sessions", humanize.Comma(int64(summary.Sessions))),
		metricCard("Focus", stats.FormatSpan(summary.FocusSeconds)),
		metricCard("Avg Focus", stats.FormatSpan(int64(summary.AvgFocus))),
		metricCard("Longest", stats.FormatSpan(int64(summary.LongestFocus))),
		metricCard("Pauses", humanize.Comma(summary.PauseCount)),
		metricCard("Focus Ratio", fmt.Sprintf("%.0f%%", summary.FocusRatio*100)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func subjectColumns() []table.Column {
	return []table.Column{
		{Title: "Subject", Width: 20},
		{Title: "Sessions", Width: 8},
		{Title: "Focus", Width: 8},
		{Title: "Pause", Width: 8},
		{Title: "Pauses", Width: 6},
		{Title: "Share", Width: 6},
		{Title: "Last", Width: 14},
	}
}

func subjectRows(aggs []model.SubjectAggregate, totalFocus int64, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(aggs))
	for _, agg := range aggs {
		share := 0.0
		if totalFocus > 0 {
			share = float64(agg.FocusSeconds) / float64(totalFocus) * 100
		}
		rows = append(rows, table.Row{
			agg.Subject,
			strconv.Itoa(agg.Sessions),
			stats.FormatSpan(agg.FocusSeconds),
			stats.FormatSpan(agg.PauseSeconds),
			strconv.FormatInt(agg.PauseCount, 10),
			fmt.Sprintf("%.0f%%", share),
			humanize.RelTime(agg.LastEndedAt, now, "ago", "from now"),
		})
	}
	return rows
}

func historyColumns() []table.Column {
	return []table.Column{
		{Title: "UID", Width: 8},
		{Title: "Ended", Width: 14},
		{Title: "Mode", Width: 8},
		{Title: "Subject", Width: 16},
		{Title: "Topic", Width: 20},
		{Title: "Focus", Width: 8},
		{Title: "Pause", Width: 8},
		{Title: "Pauses", Width: 6},
	}
}

// historyRows lists sessions newest first.
func historyRows(logs []model.LogEntry, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		entry := logs[i]
		rows = append(rows, table.Row{
			stats.ShortUID(entry.UID),
			humanize.RelTime(entry.EndedAt, now, "ago", "from now"),
			string(entry.Mode),
			entry.Subject,
			entry.Topic,
			stats.FormatClock(entry.FocusSeconds),
			stats.FormatClock(entry.PauseSeconds),
			strconv.Itoa(entry.PauseCount),
		})
	}
	return rows
}

func newTable(columns []table.Column, width, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(tableStyles())
	return t
}

func (p *tablePane) setRows(rows []table.Row, width, height int) {
	p.table.SetRows(rows)
	p.layout.rowCount = len(rows)
	p.layout.width = 0
	p.setSize(width, height)
}

func (p *tablePane) setSize(width, height int) {
	viewportHeight := max(1, height-1)
	if p.layout.width == width && p.layout.height == viewportHeight {
		return
	}
	p.layout.width = width
	p.layout.height = viewportHeight
	p.table.SetWidth(width)
	p.table.SetHeight(viewportHeight)
	viewportHeight = p.adjustHeight(height)
	if p.layout.height != viewportHeight {
		p.layout.height = viewportHeight
		p.table.SetHeight(viewportHeight)
	}
}

func (p *tablePane) adjustHeight(bodyHeight int) int {
	target := max(1, bodyHeight)
	height := p.table.Height()
	for i := 0; i < 2; i++ {
		viewHeight := lipgloss.Height(p.table.View())
		if viewHeight == target {
			return height
		}
		height = max(1, height+target-viewHeight)
		p.table.SetHeight(height)
	}
	return height
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromFilter()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		filter, err := parseFilter(m.filterInputs)
		if err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filter = filter
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func parseFilter(inputs []textinput.Model) (model.LogFilter, error) {
	var filter model.LogFilter
	filter.Subject = strings.TrimSpace(inputs[0].Value())

	mode, err := model.ParseMode(inputs[1].Value())
	if err != nil {
		return model.LogFilter{}, err
	}
	filter.Mode = mode

	if sinceInput := strings.TrimSpace(inputs[2].Value()); sinceInput != "" {
		parsed, err := time.ParseInLocation("2006-01-02", sinceInput, time.Local)
		if err != nil {
			return model.LogFilter{}, fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		filter.Since = &parsed
	}

	if lastInput := strings.TrimSpace(inputs[3].Value()); lastInput != "" {
		parsed, err := strconv.Atoi(lastInput)
		if err != nil || parsed < 0 {
			return model.LogFilter{}, fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		filter.Last = parsed
	}
	return filter, nil
}

func nextTrendWindow(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevTrendWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
