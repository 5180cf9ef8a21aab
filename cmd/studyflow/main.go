// Package main provides the CLI entrypoint for studyflow.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/studyflow/internal/clock"
	"github.com/verte-zerg/studyflow/internal/config"
	"github.com/verte-zerg/studyflow/internal/model"
	"github.com/verte-zerg/studyflow/internal/stats"
	"github.com/verte-zerg/studyflow/internal/statsui"
	"github.com/verte-zerg/studyflow/internal/store"
	"github.com/verte-zerg/studyflow/internal/tui"
)

const (
	defaultFocusMinutes = 25
	defaultBreakMinutes = 5
	defaultLogLevel     = "info"
	defaultTrendWindow  = 5
	defaultLogLast      = 20
)

var (
	timerFocus int
	timerBreak int

	statsSubject string
	statsMode    string
	statsSince   string
	statsLast    int
	statsTrend   int
	statsPlain   bool

	logLast   int
	logFormat string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "studyflow",
		Short:         "TUI study timer with manual and Pomodoro modes",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTimerCmd,
	}

	rootCmd.Flags().IntVar(&timerFocus, "focus", defaultFocusMinutes, "Pomodoro focus phase in minutes")
	rootCmd.Flags().IntVar(&timerBreak, "break", defaultBreakMinutes, "Pomodoro break phase in minutes")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newLogCmd())
	rootCmd.AddCommand(newSubjectsCmd())

	return rootCmd
}

func runTimerCmd(cmd *cobra.Command, _ []string) error {
	configPath := config.DefaultConfigPath()
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "focus", &timerFocus, fileCfg.Timer.FocusMinutes)
	applyIntConfig(cmd, "break", &timerBreak, fileCfg.Timer.BreakMinutes)

	timerCfg, err := timerConfig(timerFocus, timerBreak)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(fileCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer closeLog()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	sessionClock, err := clock.New(timerCfg)
	if err != nil {
		return fmt.Errorf("failed to create clock: %w", err)
	}

	logger.Info("starting timer", "focus_minutes", timerFocus, "break_minutes", timerBreak)
	m := tui.NewModel(tui.Options{
		Clock:  sessionClock,
		Store:  st,
		Logger: logger,
		SaveSettings: func(cfg model.TimerConfig) error {
			return config.SaveTimer(configPath, cfg.FocusSeconds/60, cfg.BreakSeconds/60)
		},
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func timerConfig(focusMinutes, breakMinutes int) (model.TimerConfig, error) {
	if focusMinutes <= 0 {
		return model.TimerConfig{}, fmt.Errorf("--focus must be > 0")
	}
	if breakMinutes <= 0 {
		return model.TimerConfig{}, fmt.Errorf("--break must be > 0")
	}
	return model.TimerConfig{FocusSeconds: focusMinutes * 60, BreakSeconds: breakMinutes * 60}, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		logErrln("Created config:", path)
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show study stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSubject, "subject", "", "subject filter (case-insensitive)")
	cmd.Flags().StringVar(&statsMode, "mode", "", "mode filter (manual or pomodoro)")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsTrend, "trend-window", defaultTrendWindow, "moving average window for the focus trend")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print plain text instead of opening the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	filter, err := buildFilter(statsSubject, statsMode, statsSince, statsLast)
	if err != nil {
		return err
	}
	if statsTrend < 1 {
		return fmt.Errorf("--trend-window must be >= 1")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if statsPlain {
		report, err := stats.BuildReport(cmd.Context(), st, filter)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		return writePlainStats(cmd.OutOrStdout(), report, stats.TerminalWidth())
	}

	m := statsui.NewModel(st, statsui.Options{Filter: filter, TrendWindow: statsTrend})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func writePlainStats(w io.Writer, report stats.Report, width int) error {
	if err := stats.RenderSummary(w, report.Logs); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(report.Logs) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderDaily(w, report.Days, width); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderSubjectTable(w, report.Subjects); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List logged study sessions",
		Args:  cobra.NoArgs,
		RunE:  runLogCmd,
	}
	cmd.Flags().IntVar(&logLast, "last", defaultLogLast, "show the last N sessions (0 for all)")
	cmd.Flags().StringVar(&logFormat, "format", "table", "output format: table, json or yaml")
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <uid>",
		Short: "Delete a logged session by uid prefix",
		Args:  cobra.ExactArgs(1),
		RunE:  runLogRmCmd,
	})
	return cmd
}

func runLogCmd(cmd *cobra.Command, _ []string) error {
	if logLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	logs, err := st.ListLogs(cmd.Context(), model.LogFilter{Last: logLast})
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	return writeLogs(cmd.OutOrStdout(), logs, logFormat)
}

func writeLogs(w io.Writer, logs []model.LogEntry, format string) error {
	if logs == nil {
		logs = []model.LogEntry{}
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "table":
		if len(logs) == 0 {
			_, err := fmt.Fprintln(w, "No sessions found.")
			return err
		}
		return stats.RenderLogTable(w, logs)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(logs); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(logs); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (use table, json or yaml)", format)
	}
}

func runLogRmCmd(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	entry, err := st.DeleteLog(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s: %s (%s focus)\n",
		stats.ShortUID(entry.UID), entry.Subject, stats.FormatClock(entry.FocusSeconds))
	return err
}

func newSubjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "Show focus totals per subject",
		Args:  cobra.NoArgs,
		RunE:  runSubjectsCmd,
	}
}

func runSubjectsCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	aggs, err := st.SubjectTotals(cmd.Context(), model.LogFilter{})
	if err != nil {
		return fmt.Errorf("failed to load subjects: %w", err)
	}
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
		return err
	}
	return stats.RenderSubjectTable(cmd.OutOrStdout(), aggs)
}

func buildFilter(subject, mode, since string, last int) (model.LogFilter, error) {
	filter := model.LogFilter{Subject: strings.TrimSpace(subject)}
	parsedMode, err := model.ParseMode(mode)
	if err != nil {
		return model.LogFilter{}, fmt.Errorf("invalid --mode value: %w", err)
	}
	filter.Mode = parsedMode
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.LogFilter{}, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	if last < 0 {
		return model.LogFilter{}, fmt.Errorf("--last must be >= 0")
	}
	filter.Last = last
	return filter, nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# studyflow configuration
# Uncomment a value to enable it. CLI flags override config values.
# The settings screen rewrites the [timer] section.

[timer]
# focus-minutes = %d      # Pomodoro focus phase
# break-minutes = %d       # Pomodoro break phase

[log]
# level = %q          # debug, info, warn or error
# file = %q
`,
		defaultFocusMinutes,
		defaultBreakMinutes,
		defaultLogLevel,
		config.DefaultLogPath(),
	)
}

// newLogger opens the diagnostic log file. Stdout belongs to the TUI.
func newLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	level := defaultLogLevel
	if cfg.Level != nil {
		level = strings.ToLower(strings.TrimSpace(*cfg.Level))
	}
	path := config.DefaultLogPath()
	if cfg.File != nil && strings.TrimSpace(*cfg.File) != "" {
		path = strings.TrimSpace(*cfg.File)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: parseLogLevel(level)}))
	closeFn := func() {
		if err := file.Close(); err != nil {
			logErrf("failed to close log file: %v\n", err)
		}
	}
	return logger, closeFn, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
