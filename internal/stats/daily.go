package stats

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/verte-zerg/studyflow/internal/model"
)

const (
	barChar             = "█"
	minBarWidth         = 10
	terminalWidthBackup = 80
)

// DailyTotals groups focus time by the local calendar day a session ended.
// Days are returned in ascending order; days without sessions are omitted.
func DailyTotals(logs []model.LogEntry, loc *time.Location) []model.DayTotal {
	if loc == nil {
		loc = time.Local
	}
	byDay := map[time.Time]*model.DayTotal{}
	for _, entry := range logs {
		ended := entry.EndedAt.In(loc)
		day := time.Date(ended.Year(), ended.Month(), ended.Day(), 0, 0, 0, 0, loc)
		total, ok := byDay[day]
		if !ok {
			total = &model.DayTotal{Day: day}
			byDay[day] = total
		}
		total.FocusSeconds += int64(entry.FocusSeconds)
		total.Sessions++
	}
	out := make([]model.DayTotal, 0, len(byDay))
	for _, total := range byDay {
		out = append(out, *total)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Day.Before(out[j].Day)
	})
	return out
}

// StartOfDay returns local midnight for t.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// RenderDaily prints a horizontal bar per day. A non-positive width uses
// the terminal width.
func RenderDaily(w io.Writer, days []model.DayTotal, width int) error {
	if len(days) == 0 {
		return nil
	}
	if width <= 0 {
		width = TerminalWidth()
	}
	if _, err := fmt.Fprintln(w, "Focus per day"); err != nil {
		return err
	}
	for _, line := range DailyBars(days, width) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// DailyBars renders one line per day scaled to fit width columns.
func DailyBars(days []model.DayTotal, width int) []string {
	if len(days) == 0 {
		return nil
	}
	var maxFocus int64
	labels := make([]string, len(days))
	labelWidth := 0
	for i, day := range days {
		if day.FocusSeconds > maxFocus {
			maxFocus = day.FocusSeconds
		}
		labels[i] = FormatSpan(day.FocusSeconds)
		labelWidth = max(labelWidth, len(labels[i]))
	}
	const dateWidth = len("2006-01-02")
	barWidth := max(minBarWidth, width-dateWidth-labelWidth-3)
	lines := make([]string, 0, len(days))
	for i, day := range days {
		n := 0
		if maxFocus > 0 {
			n = int(float64(day.FocusSeconds) / float64(maxFocus) * float64(barWidth))
		}
		if n == 0 && day.FocusSeconds > 0 {
			n = 1
		}
		bar := strings.Repeat(barChar, n) + strings.Repeat(" ", barWidth-n)
		lines = append(lines, fmt.Sprintf("%s %s %*s", day.Day.Format("2006-01-02"), bar, labelWidth, labels[i]))
	}
	return lines
}

// TerminalWidth returns the stdout width, or a fallback when stdout is not a
// terminal.
func TerminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return terminalWidthBackup
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
