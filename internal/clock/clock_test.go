package clock

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/studyflow/internal/model"
)

func newTestClock(t *testing.T, focus, brk int) *SessionClock {
	t.Helper()
	c, err := New(model.TimerConfig{FocusSeconds: focus, BreakSeconds: brk})
	require.NoError(t, err)
	return c
}

func tickN(t *testing.T, c *SessionClock, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, c.Tick())
	}
}

func pausedTickN(t *testing.T, c *SessionClock, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, c.PausedTick())
	}
}

func TestNewRejectsNonPositiveDurations(t *testing.T) {
	_, err := New(model.TimerConfig{FocusSeconds: 0, BreakSeconds: 60})
	require.ErrorIs(t, err, ErrInvalidDuration)
	_, err = New(model.TimerConfig{FocusSeconds: 60, BreakSeconds: -1})
	require.ErrorIs(t, err, ErrInvalidDuration)
}

func TestNewStartsIdle(t *testing.T) {
	c := newTestClock(t, 1500, 300)
	snap := c.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.Equal(t, PhaseFocus, snap.Phase)
	require.Equal(t, 1500, snap.PhaseRemaining)
	require.Equal(t, TimerNone, c.ActiveTimer())
}

func TestPomodoroPhaseAlternation(t *testing.T) {
	c := newTestClock(t, 2, 1)
	require.NoError(t, c.StartPomodoro())

	tickN(t, c, 2)
	snap := c.Snapshot()
	require.Equal(t, PhaseBreak, snap.Phase)
	require.Equal(t, 1, snap.PhaseRemaining)
	require.Equal(t, 1, snap.PauseCount)
	require.Equal(t, 2, snap.FocusSeconds)

	tickN(t, c, 1)
	snap = c.Snapshot()
	require.Equal(t, PhaseFocus, snap.Phase)
	require.Equal(t, 2, snap.PhaseRemaining)
	require.Equal(t, 1, snap.PauseSeconds)
	require.Equal(t, 1, snap.PauseCount)
}

func TestManualSessionStopThenCancelLog(t *testing.T) {
	c := newTestClock(t, 1500, 300)
	require.NoError(t, c.StartManual())
	tickN(t, c, 5)
	require.Equal(t, 5, c.Snapshot().FocusSeconds)

	require.NoError(t, c.Pause())
	require.Equal(t, 1, c.Snapshot().PauseCount)
	pausedTickN(t, c, 3)
	require.Equal(t, 3, c.Snapshot().PauseSeconds)

	require.NoError(t, c.Resume())
	tickN(t, c, 2)
	require.Equal(t, 7, c.Snapshot().FocusSeconds)

	require.NoError(t, c.Stop())
	require.True(t, c.Ending())
	require.Equal(t, StatePaused, c.State())
	require.NoError(t, c.CancelLog())

	snap := c.Snapshot()
	require.Equal(t, StateRunning, snap.State)
	require.False(t, snap.Ending)
	require.Equal(t, 7, snap.FocusSeconds)
	require.Equal(t, 3, snap.PauseSeconds)
	require.Equal(t, 1, snap.PauseCount)
}

func TestStopThenCommitResetsToIdle(t *testing.T) {
	c := newTestClock(t, 3, 2)
	require.NoError(t, c.StartPomodoro())
	tickN(t, c, 4)
	require.NoError(t, c.Stop())

	final, err := c.CommitLog()
	require.NoError(t, err)
	require.Equal(t, model.ModePomodoro, final.Mode)
	require.Equal(t, 3, final.FocusSeconds)
	require.Equal(t, 1, final.PauseSeconds)
	require.Equal(t, 1, final.PauseCount)

	snap := c.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.Zero(t, snap.FocusSeconds)
	require.Zero(t, snap.PauseSeconds)
	require.Zero(t, snap.PauseCount)
	require.Equal(t, PhaseFocus, snap.Phase)
	require.Equal(t, 3, snap.PhaseRemaining)
}

func TestPomodoroPauseIsNotCounted(t *testing.T) {
	c := newTestClock(t, 10, 5)
	require.NoError(t, c.StartPomodoro())
	tickN(t, c, 3)
	require.NoError(t, c.Pause())
	require.Zero(t, c.Snapshot().PauseCount)
	require.Equal(t, TimerNone, c.ActiveTimer())
	require.ErrorIs(t, c.PausedTick(), ErrInvalidTransition)
	require.Zero(t, c.Snapshot().PauseSeconds)

	require.NoError(t, c.Resume())
	snap := c.Snapshot()
	require.Equal(t, 7, snap.PhaseRemaining)
	require.Equal(t, 3, snap.FocusSeconds)
}

func TestInvalidTransitionsDoNotMutate(t *testing.T) {
	c := newTestClock(t, 10, 5)
	before := c.Snapshot()

	require.ErrorIs(t, c.Pause(), ErrInvalidTransition)
	require.ErrorIs(t, c.Resume(), ErrInvalidTransition)
	require.ErrorIs(t, c.Stop(), ErrInvalidTransition)
	require.ErrorIs(t, c.CancelLog(), ErrInvalidTransition)
	require.ErrorIs(t, c.Tick(), ErrInvalidTransition)
	require.ErrorIs(t, c.PausedTick(), ErrInvalidTransition)
	_, err := c.CommitLog()
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, before, c.Snapshot())

	require.NoError(t, c.StartManual())
	tickN(t, c, 2)
	running := c.Snapshot()
	require.ErrorIs(t, c.StartManual(), ErrInvalidTransition)
	require.ErrorIs(t, c.StartPomodoro(), ErrInvalidTransition)
	require.ErrorIs(t, c.Resume(), ErrInvalidTransition)
	require.ErrorIs(t, c.PausedTick(), ErrInvalidTransition)
	require.Equal(t, running, c.Snapshot())
}

func TestEndingBlocksPauseResumeAndPausedTicks(t *testing.T) {
	c := newTestClock(t, 10, 5)
	require.NoError(t, c.StartManual())
	tickN(t, c, 2)
	require.NoError(t, c.Stop())

	require.Equal(t, TimerNone, c.ActiveTimer())
	require.ErrorIs(t, c.Resume(), ErrInvalidTransition)
	require.ErrorIs(t, c.Pause(), ErrInvalidTransition)
	require.ErrorIs(t, c.Stop(), ErrInvalidTransition)
	require.ErrorIs(t, c.PausedTick(), ErrInvalidTransition)
	require.Zero(t, c.Snapshot().PauseCount)
}

func TestStopFromPausedThenCancelLogRuns(t *testing.T) {
	c := newTestClock(t, 10, 5)
	require.NoError(t, c.StartManual())
	require.NoError(t, c.Pause())
	pausedTickN(t, c, 2)
	require.NoError(t, c.Stop())
	require.NoError(t, c.CancelLog())

	snap := c.Snapshot()
	require.Equal(t, StateRunning, snap.State)
	require.Equal(t, 2, snap.PauseSeconds)
	require.Equal(t, 1, snap.PauseCount)
}

func TestCancelAndResetFromAnyState(t *testing.T) {
	setups := map[string]func(c *SessionClock){
		"idle": func(*SessionClock) {},
		"running manual": func(c *SessionClock) {
			_ = c.StartManual()
			_ = c.Tick()
		},
		"paused manual": func(c *SessionClock) {
			_ = c.StartManual()
			_ = c.Pause()
			_ = c.PausedTick()
		},
		"pomodoro break": func(c *SessionClock) {
			_ = c.StartPomodoro()
			for i := 0; i < 4; i++ {
				_ = c.Tick()
			}
		},
		"ending": func(c *SessionClock) {
			_ = c.StartPomodoro()
			_ = c.Tick()
			_ = c.Stop()
		},
	}
	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			c := newTestClock(t, 3, 2)
			setup(c)
			c.CancelAndReset()
			c.CancelAndReset()
			snap := c.Snapshot()
			require.Equal(t, StateIdle, snap.State)
			require.False(t, snap.Ending)
			require.Zero(t, snap.FocusSeconds)
			require.Zero(t, snap.PauseSeconds)
			require.Zero(t, snap.PauseCount)
			require.Equal(t, PhaseFocus, snap.Phase)
			require.Equal(t, 3, snap.PhaseRemaining)
			require.Equal(t, TimerNone, c.ActiveTimer())
		})
	}
}

func TestSetDurationsOnlyWhileIdle(t *testing.T) {
	c := newTestClock(t, 10, 5)
	require.NoError(t, c.SetDurations(model.TimerConfig{FocusSeconds: 20, BreakSeconds: 4}))
	require.Equal(t, 20, c.Snapshot().PhaseRemaining)

	require.ErrorIs(t, c.SetDurations(model.TimerConfig{FocusSeconds: 0, BreakSeconds: 4}), ErrInvalidDuration)

	require.NoError(t, c.StartPomodoro())
	require.ErrorIs(t, c.SetDurations(model.TimerConfig{FocusSeconds: 30, BreakSeconds: 4}), ErrNotIdle)
	require.Equal(t, model.TimerConfig{FocusSeconds: 20, BreakSeconds: 4}, c.Durations())
}

func TestActiveTimerFollowsState(t *testing.T) {
	c := newTestClock(t, 10, 5)
	require.Equal(t, TimerNone, c.ActiveTimer())
	require.NoError(t, c.StartManual())
	require.Equal(t, TimerRunning, c.ActiveTimer())
	require.NoError(t, c.Pause())
	require.Equal(t, TimerPaused, c.ActiveTimer())
	require.NoError(t, c.Resume())
	require.Equal(t, TimerRunning, c.ActiveTimer())
	require.NoError(t, c.Stop())
	require.Equal(t, TimerNone, c.ActiveTimer())
	require.NoError(t, c.CancelLog())
	require.Equal(t, TimerRunning, c.ActiveTimer())
}

func TestDeliverDropsStaleTicks(t *testing.T) {
	c := newTestClock(t, 10, 5)
	require.NoError(t, c.StartManual())
	runEpoch := c.Epoch()
	require.True(t, c.Deliver(TimerRunning, runEpoch))
	require.Equal(t, 1, c.Snapshot().FocusSeconds)

	require.NoError(t, c.Pause())
	pauseEpoch := c.Epoch()
	require.NotEqual(t, runEpoch, pauseEpoch)

	// A running tick armed before the pause must not fire.
	require.False(t, c.Deliver(TimerRunning, runEpoch))
	require.False(t, c.Deliver(TimerRunning, pauseEpoch))
	require.True(t, c.Deliver(TimerPaused, pauseEpoch))
	require.Equal(t, 1, c.Snapshot().FocusSeconds)
	require.Equal(t, 1, c.Snapshot().PauseSeconds)

	require.NoError(t, c.Resume())
	require.False(t, c.Deliver(TimerPaused, pauseEpoch))
	require.Equal(t, 1, c.Snapshot().PauseSeconds)

	c.Disarm()
	require.False(t, c.Deliver(TimerRunning, c.Epoch()-1))
	require.True(t, c.Deliver(TimerRunning, c.Epoch()))
	require.False(t, c.Deliver(TimerNone, c.Epoch()))
}

func TestAccumulatorsMonotonicUnderRandomOperations(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	c := newTestClock(t, 3, 2)
	prev := c.Snapshot()
	for i := 0; i < 5000; i++ {
		reset := false
		switch rnd.Intn(10) {
		case 0:
			reset = c.StartManual() == nil
		case 1:
			reset = c.StartPomodoro() == nil
		case 2:
			_ = c.Pause()
		case 3:
			_ = c.Resume()
		case 4:
			_ = c.Stop()
		case 5:
			_ = c.CancelLog()
		case 6:
			if rnd.Intn(4) == 0 {
				_, err := c.CommitLog()
				reset = err == nil
			}
		case 7:
			_ = c.PausedTick()
		default:
			_ = c.Tick()
		}
		snap := c.Snapshot()
		require.GreaterOrEqual(t, snap.FocusSeconds, 0)
		require.GreaterOrEqual(t, snap.PauseSeconds, 0)
		require.GreaterOrEqual(t, snap.PauseCount, 0)
		require.LessOrEqual(t, snap.PhaseRemaining, 3)
		if !reset {
			require.GreaterOrEqual(t, snap.FocusSeconds, prev.FocusSeconds)
			require.GreaterOrEqual(t, snap.PauseSeconds, prev.PauseSeconds)
			require.GreaterOrEqual(t, snap.PauseCount, prev.PauseCount)
		}
		if snap.Mode == model.ModePomodoro && snap.State == StatePaused {
			require.Equal(t, prev.PauseSeconds, snap.PauseSeconds)
		}
		prev = snap
	}
}

func TestManualPauseCountPerPause(t *testing.T) {
	c := newTestClock(t, 3, 2)
	require.NoError(t, c.StartManual())
	for i := 1; i <= 4; i++ {
		tickN(t, c, 5)
		require.NoError(t, c.Pause())
		require.Equal(t, i, c.Snapshot().PauseCount)
		require.NoError(t, c.Resume())
	}
	require.Zero(t, c.Snapshot().PauseSeconds)
}
