package statsui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/studyflow/internal/model"
	"github.com/verte-zerg/studyflow/internal/store"
)

func seededStore(t *testing.T, now time.Time) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "studyflow.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	entries := []model.LogEntry{
		{UID: "aaaa0001", Mode: model.ModeManual, Subject: "Math", Topic: "Limits", FocusSeconds: 1500, PauseSeconds: 60, PauseCount: 1},
		{UID: "bbbb0002", Mode: model.ModePomodoro, Subject: "Physics", Topic: "Optics", FocusSeconds: 3000, PauseSeconds: 600, PauseCount: 2},
		{UID: "cccc0003", Mode: model.ModeManual, Subject: "Math", Topic: "Series", FocusSeconds: 900},
	}
	for i, entry := range entries {
		entry.EndedAt = now.Add(time.Duration(i-len(entries)) * time.Hour)
		entry.StartedAt = entry.EndedAt.Add(-time.Hour)
		if _, err := st.InsertLog(context.Background(), entry); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return st
}

func TestModelLoadsReport(t *testing.T) {
	now := time.Now()
	m := NewModel(seededStore(t, now), Options{Now: func() time.Time { return now }})
	if m.errMsg != "" {
		t.Fatalf("unexpected error: %s", m.errMsg)
	}
	if got := len(m.report.Logs); got != 3 {
		t.Fatalf("expected 3 logs, got %d", got)
	}
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	view := m.View()
	if !strings.Contains(view, "Overview") || !strings.Contains(view, "Sessions") {
		t.Fatalf("overview missing content:\n%s", view)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabSubjects {
		t.Fatalf("expected subjects tab, got %d", m.activeTab)
	}
	if !strings.Contains(m.View(), "Physics") {
		t.Fatalf("subjects tab missing Physics")
	}
}

func TestHistoryRowsNewestFirst(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	logs := []model.LogEntry{
		{UID: "old", Subject: "A", EndedAt: now.Add(-2 * time.Hour)},
		{UID: "new", Subject: "B", EndedAt: now.Add(-time.Minute)},
	}
	rows := historyRows(logs, now)
	if rows[0][0] != "new" || rows[1][0] != "old" {
		t.Fatalf("unexpected order: %v", rows)
	}
	if !strings.HasSuffix(rows[1][1], "ago") {
		t.Fatalf("expected relative time, got %q", rows[1][1])
	}
}

func TestParseFilter(t *testing.T) {
	inputs := make([]textinput.Model, 4)
	for i := range inputs {
		inputs[i] = textinput.New()
	}
	inputs[0].SetValue(" Math ")
	inputs[1].SetValue("p")
	inputs[2].SetValue("2026-01-02")
	inputs[3].SetValue("10")
	filter, err := parseFilter(inputs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter.Subject != "Math" || filter.Mode != model.ModePomodoro || filter.Last != 10 {
		t.Fatalf("unexpected filter: %+v", filter)
	}
	if filter.Since == nil || filter.Since.Day() != 2 {
		t.Fatalf("unexpected since: %v", filter.Since)
	}

	inputs[1].SetValue("sprint")
	if _, err := parseFilter(inputs); err == nil {
		t.Fatalf("expected mode error")
	}
	inputs[1].SetValue("")
	inputs[2].SetValue("yesterday")
	if _, err := parseFilter(inputs); err == nil {
		t.Fatalf("expected date error")
	}
	inputs[2].SetValue("")
	inputs[3].SetValue("-1")
	if _, err := parseFilter(inputs); err == nil {
		t.Fatalf("expected last error")
	}
}

func TestFilterSummaryDefaults(t *testing.T) {
	got := filterSummary(model.LogFilter{}, 5)
	want := "Filter: subject=any  mode=any  since=any  last=all  trend=5"
	if got != want {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestTrendWindowSteps(t *testing.T) {
	if got := nextTrendWindow(1); got != 5 {
		t.Fatalf("next(1) = %d", got)
	}
	if got := nextTrendWindow(7); got != 10 {
		t.Fatalf("next(7) = %d", got)
	}
	if got := prevTrendWindow(5); got != 1 {
		t.Fatalf("prev(5) = %d", got)
	}
	if got := prevTrendWindow(12); got != 10 {
		t.Fatalf("prev(12) = %d", got)
	}
}

func TestFitLinesPadsAndTruncates(t *testing.T) {
	out := fitLines("a\nb\nc", 3, 2)
	if out != "a  \nb  " {
		t.Fatalf("unexpected output %q", out)
	}
	if got := truncateLine("abcdefgh", 6); got != "abc..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateLine("数学数学数学", 7); got != "数学..." {
		t.Fatalf("unexpected wide truncation %q", got)
	}
	if got := truncateLine("数学", 4); got != "数学" {
		t.Fatalf("fitting wide text must be kept, got %q", got)
	}
}

func TestSubjectsFollowLastFilter(t *testing.T) {
	now := time.Now()
	filter := model.LogFilter{Last: 1}
	m := NewModel(seededStore(t, now), Options{Filter: filter, Now: func() time.Time { return now }})
	rows := m.subjects.table.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 subject row, got %d", len(rows))
	}
	if rows[0][0] != "Math" || rows[0][1] != "1" || rows[0][5] != "100%" {
		t.Fatalf("unexpected subject row: %v", rows[0])
	}
}
