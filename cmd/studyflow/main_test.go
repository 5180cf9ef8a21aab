package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/studyflow/internal/config"
	"github.com/verte-zerg/studyflow/internal/model"
	"github.com/verte-zerg/studyflow/internal/stats"
)

func sampleLogs() []model.LogEntry {
	ended := time.Date(2026, 4, 2, 18, 30, 0, 0, time.UTC)
	return []model.LogEntry{{
		ID:           7,
		UID:          "0f8fad5b-d9cb-469f-a165-70867728950e",
		Mode:         model.ModePomodoro,
		Subject:      "Chemistry",
		Topic:        "Stoichiometry",
		FocusSeconds: 3000,
		PauseSeconds: 600,
		PauseCount:   2,
		StartedAt:    ended.Add(-time.Hour),
		EndedAt:      ended,
	}}
}

func TestTimerConfigConvertsMinutes(t *testing.T) {
	cfg, err := timerConfig(50, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FocusSeconds != 3000 || cfg.BreakSeconds != 600 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if _, err := timerConfig(0, 5); err == nil {
		t.Fatalf("expected error for zero focus")
	}
	if _, err := timerConfig(25, -1); err == nil {
		t.Fatalf("expected error for negative break")
	}
}

func TestApplyIntConfigRespectsChangedFlags(t *testing.T) {
	var focus int
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&focus, "focus", 25, "")
	fromFile := 40

	applyIntConfig(cmd, "focus", &focus, &fromFile)
	if focus != 40 {
		t.Fatalf("expected config value, got %d", focus)
	}

	if err := cmd.Flags().Set("focus", "15"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	applyIntConfig(cmd, "focus", &focus, &fromFile)
	if focus != 15 {
		t.Fatalf("explicit flag must win, got %d", focus)
	}

	applyIntConfig(cmd, "focus", &focus, nil)
	if focus != 15 {
		t.Fatalf("nil config must not change value")
	}
}

func TestBuildFilter(t *testing.T) {
	filter, err := buildFilter(" Math ", "pomodoro", "2026-02-03", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter.Subject != "Math" || filter.Mode != model.ModePomodoro || filter.Last != 4 {
		t.Fatalf("unexpected filter: %+v", filter)
	}
	if filter.Since == nil || filter.Since.Month() != time.February {
		t.Fatalf("unexpected since: %v", filter.Since)
	}
	if _, err := buildFilter("", "weekly", "", 0); err == nil {
		t.Fatalf("expected mode error")
	}
	if _, err := buildFilter("", "", "02/03/2026", 0); err == nil {
		t.Fatalf("expected since error")
	}
	if _, err := buildFilter("", "", "", -1); err == nil {
		t.Fatalf("expected last error")
	}
}

func TestWriteLogsFormats(t *testing.T) {
	logs := sampleLogs()

	var buf bytes.Buffer
	if err := writeLogs(&buf, logs, "json"); err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if decoded[0]["subject"] != "Chemistry" || decoded[0]["focus_seconds"] != float64(3000) {
		t.Fatalf("unexpected json: %s", buf.String())
	}
	if _, ok := decoded[0]["ID"]; ok {
		t.Fatalf("internal id must not be exported")
	}

	buf.Reset()
	if err := writeLogs(&buf, logs, "yaml"); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var fromYAML []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if fromYAML[0]["mode"] != "pomodoro" || fromYAML[0]["pause_count"] != 2 {
		t.Fatalf("unexpected yaml: %s", buf.String())
	}

	buf.Reset()
	if err := writeLogs(&buf, logs, "table"); err != nil {
		t.Fatalf("table: %v", err)
	}
	if !strings.Contains(buf.String(), "Chemistry") || !strings.Contains(buf.String(), stats.ShortUID(logs[0].UID)) {
		t.Fatalf("unexpected table: %s", buf.String())
	}

	buf.Reset()
	if err := writeLogs(&buf, nil, "json"); err != nil {
		t.Fatalf("empty json: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", buf.String())
	}

	if err := writeLogs(&buf, logs, "csv"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestWritePlainStats(t *testing.T) {
	logs := sampleLogs()
	report := stats.Report{
		Logs: logs,
		Subjects: []model.SubjectAggregate{{
			Subject: "Chemistry", Sessions: 1, FocusSeconds: 3000, PauseSeconds: 600, PauseCount: 2,
			LastEndedAt: logs[0].EndedAt,
		}},
		Days:    stats.DailyTotals(logs, time.UTC),
		Summary: stats.Summarize(logs),
	}
	var buf bytes.Buffer
	if err := writePlainStats(&buf, report, 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, needle := range []string{"Focus per day", "2026-04-02", "Chemistry"} {
		if !strings.Contains(out, needle) {
			t.Fatalf("output missing %q:\n%s", needle, out)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLogLevel(input); got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewLoggerWritesToConfiguredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "studyflow.log")
	level := "debug"
	logger, closeLog, err := newLogger(config.LogConfig{Level: &level, File: &path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debug("hello", "k", "v")
	closeLog()
}

func TestDefaultConfigTemplateHasSections(t *testing.T) {
	tmpl := defaultConfigTemplate()
	if !strings.Contains(tmpl, "[timer]") || !strings.Contains(tmpl, "[log]") {
		t.Fatalf("template missing sections:\n%s", tmpl)
	}
}

func TestLogErrlnWritesLineToStderr(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	orig := os.Stderr
	os.Stderr = w
	logErrln("Created config:", "/tmp/config.toml")
	os.Stderr = orig
	if err := w.Close(); err != nil {
		t.Fatalf("close pipe: %v", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read pipe: %v", err)
	}
	if string(out) != "Created config: /tmp/config.toml\n" {
		t.Fatalf("unexpected stderr %q", out)
	}
}
