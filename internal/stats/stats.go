// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/studyflow/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary holds totals across a set of study sessions.
type Summary struct {
	Sessions     int
	FocusSeconds int64
	PauseSeconds int64
	PauseCount   int64
	AvgFocus     float64
	LongestFocus int
	FocusRatio   float64
}

// Summarize computes totals for the given sessions.
func Summarize(logs []model.LogEntry) Summary {
	var s Summary
	for _, entry := range logs {
		s.Sessions++
		s.FocusSeconds += int64(entry.FocusSeconds)
		s.PauseSeconds += int64(entry.PauseSeconds)
		s.PauseCount += int64(entry.PauseCount)
		if entry.FocusSeconds > s.LongestFocus {
			s.LongestFocus = entry.FocusSeconds
		}
	}
	if s.Sessions > 0 {
		s.AvgFocus = float64(s.FocusSeconds) / float64(s.Sessions)
	}
	if total := s.FocusSeconds + s.PauseSeconds; total > 0 {
		s.FocusRatio = float64(s.FocusSeconds) / float64(total)
	}
	return s
}

// FormatClock formats seconds as HH:MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// FormatSpan formats seconds compactly, e.g. "1h05m" or "12m".
func FormatSpan(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%ds", seconds)
}

// FocusSeries returns focus minutes per session in order.
func FocusSeries(logs []model.LogEntry) []float64 {
	out := make([]float64, len(logs))
	for i, entry := range logs {
		out[i] = float64(entry.FocusSeconds) / 60
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary block for sessions.
func RenderSummary(w io.Writer, logs []model.LogEntry) error {
	if len(logs) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	s := Summarize(logs)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", s.Sessions),
		fmt.Sprintf("Focus: %s", FormatClock(int(s.FocusSeconds))),
		fmt.Sprintf("Pause: %s (%d pauses)", FormatClock(int(s.PauseSeconds)), s.PauseCount),
		fmt.Sprintf("Avg focus: %s", FormatClock(int(math.Round(s.AvgFocus)))),
		fmt.Sprintf("Longest focus: %s", FormatClock(s.LongestFocus)),
		fmt.Sprintf("Focus ratio: %.1f%%", s.FocusRatio*100),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderSubjectTable prints per-subject totals.
func RenderSubjectTable(w io.Writer, aggs []model.SubjectAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No subjects found.")
		return err
	}
	headers := []string{"Subject", "Sessions", "Focus", "Pause", "Pauses", "Share"}
	var total int64
	for _, agg := range aggs {
		total += agg.FocusSeconds
	}
	rows := make([][]string, 0, len(aggs))
	for _, agg := range aggs {
		share := 0.0
		if total > 0 {
			share = float64(agg.FocusSeconds) / float64(total) * 100
		}
		rows = append(rows, []string{
			agg.Subject,
			fmt.Sprintf("%d", agg.Sessions),
			FormatClock(int(agg.FocusSeconds)),
			FormatClock(int(agg.PauseSeconds)),
			fmt.Sprintf("%d", agg.PauseCount),
			fmt.Sprintf("%.1f%%", share),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true})
}

// RenderLogTable prints one row per session.
func RenderLogTable(w io.Writer, logs []model.LogEntry) error {
	if len(logs) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	headers := []string{"UID", "Ended", "Mode", "Subject", "Topic", "Focus", "Pause", "Pauses"}
	rows := make([][]string, 0, len(logs))
	for _, entry := range logs {
		rows = append(rows, []string{
			ShortUID(entry.UID),
			entry.EndedAt.Format("2006-01-02 15:04"),
			entry.Mode.Label(),
			entry.Subject,
			entry.Topic,
			FormatClock(entry.FocusSeconds),
			FormatClock(entry.PauseSeconds),
			fmt.Sprintf("%d", entry.PauseCount),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{5: true, 6: true, 7: true})
}

// ShortUID returns the first block of a uid for display.
func ShortUID(uid string) string {
	if i := strings.IndexByte(uid, '-'); i > 0 {
		return uid[:i]
	}
	return uid
}

func writeTable(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool) error {
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
