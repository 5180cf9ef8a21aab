// Package clock implements the study session timing state machine.
package clock

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/studyflow/internal/model"
)

var (
	// ErrInvalidTransition indicates an operation that is not valid in the current state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInvalidDuration indicates a non-positive phase duration.
	ErrInvalidDuration = errors.New("phase duration must be > 0")
	// ErrNotIdle indicates a configuration change while a session is active.
	ErrNotIdle = errors.New("session in progress")
)

// State is the run state of the clock.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Phase is the current Pomodoro phase.
type Phase int

const (
	PhaseFocus Phase = iota
	PhaseBreak
)

func (p Phase) String() string {
	if p == PhaseBreak {
		return "break"
	}
	return "focus"
}

// Timer identifies which periodic tick source should be armed.
type Timer int

const (
	// TimerNone means no tick source is armed.
	TimerNone Timer = iota
	// TimerRunning drives Tick once per second while running.
	TimerRunning
	// TimerPaused drives PausedTick once per second during a manual pause.
	TimerPaused
)

// Snapshot is a read-only copy of the clock's metrics.
type Snapshot struct {
	State          State
	Mode           model.Mode
	Phase          Phase
	Ending         bool
	FocusSeconds   int
	PauseSeconds   int
	PauseCount     int
	PhaseRemaining int
	FocusPhase     int
	BreakPhase     int
}

// SessionClock owns one study session at a time. It is not safe for
// concurrent use; callers drive it from a single goroutine.
type SessionClock struct {
	state  State
	mode   model.Mode
	phase  Phase
	ending bool

	focusSeconds   int
	pauseSeconds   int
	pauseCount     int
	phaseRemaining int

	focusPhase int
	breakPhase int

	epoch uint64
}

// New returns an idle clock with the given phase durations in seconds.
func New(cfg model.TimerConfig) (*SessionClock, error) {
	if err := validateDurations(cfg); err != nil {
		return nil, err
	}
	c := &SessionClock{
		focusPhase: cfg.FocusSeconds,
		breakPhase: cfg.BreakSeconds,
	}
	c.reset()
	return c, nil
}

// SetDurations changes the phase durations. Only allowed while idle.
func (c *SessionClock) SetDurations(cfg model.TimerConfig) error {
	if c.state != StateIdle {
		return ErrNotIdle
	}
	if err := validateDurations(cfg); err != nil {
		return err
	}
	c.focusPhase = cfg.FocusSeconds
	c.breakPhase = cfg.BreakSeconds
	c.phaseRemaining = c.focusPhase
	return nil
}

// Durations returns the configured phase durations.
func (c *SessionClock) Durations() model.TimerConfig {
	return model.TimerConfig{FocusSeconds: c.focusPhase, BreakSeconds: c.breakPhase}
}

// StartManual begins a stopwatch session.
func (c *SessionClock) StartManual() error {
	if c.state != StateIdle {
		return c.reject("start manual")
	}
	c.reset()
	c.mode = model.ModeManual
	c.transition(StateRunning)
	return nil
}

// StartPomodoro begins a countdown session in the focus phase.
func (c *SessionClock) StartPomodoro() error {
	if c.state != StateIdle {
		return c.reject("start pomodoro")
	}
	c.reset()
	c.mode = model.ModePomodoro
	c.phase = PhaseFocus
	c.phaseRemaining = c.focusPhase
	c.transition(StateRunning)
	return nil
}

// Pause suspends a running session. Only manual pauses are counted.
func (c *SessionClock) Pause() error {
	if c.state != StateRunning {
		return c.reject("pause")
	}
	if c.mode == model.ModeManual {
		c.pauseCount++
	}
	c.transition(StatePaused)
	return nil
}

// Resume continues a paused session.
func (c *SessionClock) Resume() error {
	if c.state != StatePaused || c.ending {
		return c.reject("resume")
	}
	c.transition(StateRunning)
	return nil
}

// Stop freezes the session and marks it as ending until the log entry is
// committed or cancelled.
func (c *SessionClock) Stop() error {
	if c.state == StateIdle || c.ending {
		return c.reject("stop")
	}
	c.ending = true
	c.transition(StatePaused)
	return nil
}

// CancelLog abandons the log entry and returns to the running session with
// its accumulators untouched.
func (c *SessionClock) CancelLog() error {
	if !c.ending {
		return c.reject("cancel log")
	}
	c.ending = false
	c.transition(StateRunning)
	return nil
}

// CommitLog ends the session, returning its final metrics, and resets the
// clock to idle.
func (c *SessionClock) CommitLog() (Snapshot, error) {
	if !c.ending {
		return Snapshot{}, c.reject("commit log")
	}
	final := c.Snapshot()
	c.reset()
	c.transition(StateIdle)
	return final, nil
}

// CancelAndReset abandons the session without logging. It is valid from any
// state.
func (c *SessionClock) CancelAndReset() {
	c.reset()
	c.transition(StateIdle)
}

// Tick advances a running session by one second.
func (c *SessionClock) Tick() error {
	if c.state != StateRunning {
		return c.reject("tick")
	}
	if c.mode == model.ModeManual {
		c.focusSeconds++
		return nil
	}
	if c.phase == PhaseFocus {
		c.focusSeconds++
	} else {
		c.pauseSeconds++
	}
	if c.phaseRemaining > 0 {
		c.phaseRemaining--
	}
	if c.phaseRemaining > 0 {
		return nil
	}
	if c.phase == PhaseFocus {
		c.phase = PhaseBreak
		c.phaseRemaining = c.breakPhase
		c.pauseCount++
		return nil
	}
	c.phase = PhaseFocus
	c.phaseRemaining = c.focusPhase
	return nil
}

// PausedTick accumulates one second of manual pause time.
func (c *SessionClock) PausedTick() error {
	if c.ActiveTimer() != TimerPaused {
		return c.reject("paused tick")
	}
	c.pauseSeconds++
	return nil
}

// ActiveTimer reports which tick source the current state requires.
func (c *SessionClock) ActiveTimer() Timer {
	switch {
	case c.state == StateRunning:
		return TimerRunning
	case c.state == StatePaused && c.mode == model.ModeManual && !c.ending:
		return TimerPaused
	default:
		return TimerNone
	}
}

// Epoch identifies the current arming of the tick source. It changes on
// every state transition and on Disarm.
func (c *SessionClock) Epoch() uint64 {
	return c.epoch
}

// Deliver applies a tick armed for timer at epoch. Ticks from an earlier
// epoch or for a timer that is no longer active are dropped and Deliver
// returns false.
func (c *SessionClock) Deliver(timer Timer, epoch uint64) bool {
	if epoch != c.epoch || timer == TimerNone || timer != c.ActiveTimer() {
		return false
	}
	var err error
	if timer == TimerRunning {
		err = c.Tick()
	} else {
		err = c.PausedTick()
	}
	return err == nil
}

// Disarm invalidates any outstanding tick without changing state. Used on
// teardown.
func (c *SessionClock) Disarm() {
	c.epoch++
}

// State returns the run state.
func (c *SessionClock) State() State {
	return c.state
}

// Mode returns the mode of the current or last started session.
func (c *SessionClock) Mode() model.Mode {
	return c.mode
}

// Ending reports whether Stop was called and the log entry is pending.
func (c *SessionClock) Ending() bool {
	return c.ending
}

// Snapshot returns a copy of the current metrics.
func (c *SessionClock) Snapshot() Snapshot {
	return Snapshot{
		State:          c.state,
		Mode:           c.mode,
		Phase:          c.phase,
		Ending:         c.ending,
		FocusSeconds:   c.focusSeconds,
		PauseSeconds:   c.pauseSeconds,
		PauseCount:     c.pauseCount,
		PhaseRemaining: c.phaseRemaining,
		FocusPhase:     c.focusPhase,
		BreakPhase:     c.breakPhase,
	}
}

func (c *SessionClock) transition(next State) {
	c.state = next
	c.epoch++
}

func (c *SessionClock) reset() {
	c.ending = false
	c.focusSeconds = 0
	c.pauseSeconds = 0
	c.pauseCount = 0
	c.phase = PhaseFocus
	c.phaseRemaining = c.focusPhase
}

func (c *SessionClock) reject(op string) error {
	if c.ending {
		return fmt.Errorf("%w: %s while ending session", ErrInvalidTransition, op)
	}
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, op, c.state)
}

func validateDurations(cfg model.TimerConfig) error {
	if cfg.FocusSeconds <= 0 || cfg.BreakSeconds <= 0 {
		return fmt.Errorf("%w: focus=%d break=%d", ErrInvalidDuration, cfg.FocusSeconds, cfg.BreakSeconds)
	}
	return nil
}
