// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Mode is the timing mode of a study session.
type Mode string

const (
	// ModeManual counts focus time up like a stopwatch.
	ModeManual Mode = "manual"
	// ModePomodoro alternates focus and break phases on a countdown.
	ModePomodoro Mode = "pomodoro"
)

// ParseMode parses a mode name. An empty string yields an empty mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "manual", "m":
		return ModeManual, nil
	case "pomodoro", "p":
		return ModePomodoro, nil
	default:
		return "", fmt.Errorf("unknown mode %q (use manual or pomodoro)", s)
	}
}

// Label returns a display name for the mode.
func (m Mode) Label() string {
	switch m {
	case ModeManual:
		return "Manual"
	case ModePomodoro:
		return "Pomodoro"
	default:
		return string(m)
	}
}

// TimerConfig holds the Pomodoro phase lengths in seconds.
type TimerConfig struct {
	FocusSeconds int
	BreakSeconds int
}

// LogEntry is a completed study session as handed to the log sink.
type LogEntry struct {
	ID           int64     `json:"-" yaml:"-"`
	UID          string    `json:"uid" yaml:"uid"`
	Mode         Mode      `json:"mode" yaml:"mode"`
	Subject      string    `json:"subject" yaml:"subject"`
	Topic        string    `json:"topic" yaml:"topic"`
	FocusSeconds int       `json:"focus_seconds" yaml:"focus_seconds"`
	PauseSeconds int       `json:"pause_seconds" yaml:"pause_seconds"`
	PauseCount   int       `json:"pause_count" yaml:"pause_count"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at"`
	EndedAt      time.Time `json:"ended_at" yaml:"ended_at"`
}

// LogFilter narrows the sessions returned for reporting.
type LogFilter struct {
	Subject string
	Mode    Mode
	Since   *time.Time
	Last    int
}

// SubjectAggregate totals sessions for one subject.
type SubjectAggregate struct {
	Subject      string
	Sessions     int
	FocusSeconds int64
	PauseSeconds int64
	PauseCount   int64
	LastEndedAt  time.Time
}

// DayTotal holds the focus seconds logged on one local calendar day.
type DayTotal struct {
	Day          time.Time
	FocusSeconds int64
	Sessions     int
}
