package session

import (
	"testing"
	"time"
)

// fakeClock drives the monitor's debounce window deterministically.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMonitor(warnAt, limit int) (*FocusMonitor, *fakeClock) {
	clock := newFakeClock()
	m := NewFocusMonitor(warnAt, limit, 800*time.Millisecond)
	m.now = clock.now
	return m, clock
}

func TestFocusHiddenBlurPairCountsOnce(t *testing.T) {
	m, clock := newTestMonitor(2, 3)

	// A single alt-tab typically fires both signals within milliseconds.
	out := m.Observe(SignalHidden)
	if !out.Counted || out.Switches != 1 {
		t.Fatalf("hidden: got %+v, want counted with 1 switch", out)
	}
	clock.advance(5 * time.Millisecond)
	out = m.Observe(SignalBlur)
	if out.Counted {
		t.Fatalf("blur inside debounce window counted: %+v", out)
	}
	if m.Switches() != 1 {
		t.Fatalf("got %d switches, want 1", m.Switches())
	}
}

func TestFocusSpacedEventsEachCount(t *testing.T) {
	m, clock := newTestMonitor(10, 20)

	for i := 1; i <= 4; i++ {
		out := m.Observe(SignalBlur)
		if !out.Counted {
			t.Fatalf("event %d outside debounce window not counted", i)
		}
		if out.Switches != i {
			t.Fatalf("got %d switches after event %d", out.Switches, i)
		}
		clock.advance(time.Second)
	}
}

func TestFocusRepeatedHiddenNotATransition(t *testing.T) {
	m, clock := newTestMonitor(10, 20)

	m.Observe(SignalHidden)
	clock.advance(time.Second)
	out := m.Observe(SignalHidden)
	if out.Counted {
		t.Fatal("hidden while already hidden counted as a switch")
	}
	if m.Switches() != 1 {
		t.Fatalf("got %d switches, want 1", m.Switches())
	}
}

func TestFocusVisibleEnablesNextHidden(t *testing.T) {
	m, clock := newTestMonitor(10, 20)

	m.Observe(SignalHidden)
	clock.advance(time.Second)
	m.Observe(SignalVisible)
	out := m.Observe(SignalHidden)
	if !out.Counted || out.Switches != 2 {
		t.Fatalf("hidden after visible: got %+v, want counted with 2 switches", out)
	}
}

func TestFocusRecoverySignalsNeverDecrease(t *testing.T) {
	m, clock := newTestMonitor(10, 20)

	m.Observe(SignalBlur)
	clock.advance(time.Second)
	m.Observe(SignalVisible)
	m.Observe(SignalFocus)
	if m.Switches() != 1 {
		t.Fatalf("recovery signals changed the count to %d", m.Switches())
	}
}

func TestFocusWarningAndLimitThresholds(t *testing.T) {
	m, clock := newTestMonitor(2, 3)

	out := m.Observe(SignalBlur)
	if out.Warning || out.LimitExceeded {
		t.Fatalf("first switch flagged thresholds: %+v", out)
	}

	clock.advance(time.Second)
	out = m.Observe(SignalBlur)
	if !out.Warning {
		t.Fatalf("second switch did not warn: %+v", out)
	}
	if out.LimitExceeded {
		t.Fatalf("second switch exceeded limit: %+v", out)
	}

	clock.advance(time.Second)
	out = m.Observe(SignalBlur)
	if out.Warning {
		t.Fatalf("warning fired twice: %+v", out)
	}
	if !out.LimitExceeded {
		t.Fatalf("third switch did not exceed limit: %+v", out)
	}

	// Further switches are counted but no longer cross thresholds.
	clock.advance(time.Second)
	out = m.Observe(SignalBlur)
	if out.Warning || out.LimitExceeded {
		t.Fatalf("thresholds re-fired on fourth switch: %+v", out)
	}
	if out.Switches != 4 {
		t.Fatalf("got %d switches, want 4", out.Switches)
	}
}

func TestFocusUnknownSignalIgnored(t *testing.T) {
	m, _ := newTestMonitor(2, 3)
	out := m.Observe(Signal("resize"))
	if out.Counted || m.Switches() != 0 {
		t.Fatalf("unknown signal affected the monitor: %+v", out)
	}
}
