package session

import "time"

// Signal is one raw platform focus/visibility transition reported by the
// client.
type Signal string

const (
	SignalHidden  Signal = "hidden"
	SignalVisible Signal = "visible"
	SignalBlur    Signal = "blur"
	SignalFocus   Signal = "focus"
)

// FocusOutcome describes the effect of one observed signal.
type FocusOutcome struct {
	Counted       bool
	Switches      int
	Warning       bool // the warn threshold was crossed by this event
	LimitExceeded bool // the switch limit was crossed by this event
}

// FocusMonitor counts distinct switch events from hidden/blur transitions.
// The debounce is keyed on the wall-clock time of the last recorded event,
// never per signal type, so the hidden+blur pair fired by a single alt-tab
// counts once. The switch counter only ever increases.
//
// Not safe for concurrent use; the session loop serializes all observations.
type FocusMonitor struct {
	debounce time.Duration
	warnAt   int
	limit    int

	switches     int
	hidden       bool
	lastRecorded time.Time
	warned       bool
	exceeded     bool

	now func() time.Time
}

// NewFocusMonitor creates a monitor that warns at warnAt switches and
// reports the limit exceeded at limit switches.
func NewFocusMonitor(warnAt, limit int, debounce time.Duration) *FocusMonitor {
	return &FocusMonitor{
		debounce: debounce,
		warnAt:   warnAt,
		limit:    limit,
		now:      time.Now,
	}
}

// Observe records one platform signal and reports its effect.
func (m *FocusMonitor) Observe(sig Signal) FocusOutcome {
	switch sig {
	case SignalVisible:
		m.hidden = false
		return m.outcome(false)
	case SignalFocus:
		return m.outcome(false)
	case SignalHidden:
		wasHidden := m.hidden
		m.hidden = true
		if wasHidden {
			// Not a transition, the page was already hidden.
			return m.outcome(false)
		}
		return m.record()
	case SignalBlur:
		return m.record()
	default:
		return m.outcome(false)
	}
}

func (m *FocusMonitor) record() FocusOutcome {
	now := m.now()
	if !m.lastRecorded.IsZero() && now.Sub(m.lastRecorded) <= m.debounce {
		return m.outcome(false)
	}
	m.lastRecorded = now
	m.switches++

	out := m.outcome(true)
	if !m.warned && m.switches >= m.warnAt {
		m.warned = true
		out.Warning = true
	}
	if !m.exceeded && m.switches >= m.limit {
		m.exceeded = true
		out.LimitExceeded = true
	}
	return out
}

func (m *FocusMonitor) outcome(counted bool) FocusOutcome {
	return FocusOutcome{Counted: counted, Switches: m.switches}
}

// Switches returns the current switch count.
func (m *FocusMonitor) Switches() int {
	return m.switches
}
