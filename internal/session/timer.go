package session

import (
	"sync"
	"time"
)

// TimerEventKind identifies a countdown event.
type TimerEventKind int

const (
	TimerTick TimerEventKind = iota
	TimerLowTime
	TimerExpired
)

// TimerEvent is one countdown notification. Remaining is in seconds.
type TimerEvent struct {
	Kind      TimerEventKind
	Remaining int
}

// Timer is a per-second countdown seeded from the test's time limit. It emits
// TimerLowTime exactly once when remaining drops below 20% of the original
// duration and TimerExpired exactly once at zero, after which it stops. After
// Stop returns, no further event is delivered.
type Timer struct {
	total    int
	interval time.Duration

	events  chan TimerEvent
	stop    chan struct{}
	done    chan struct{}
	started bool
	once    sync.Once
}

// NewTimer creates a countdown over durationSeconds, ticking once per second.
func NewTimer(durationSeconds int) *Timer {
	return newTimer(durationSeconds, time.Second)
}

func newTimer(durationSeconds int, interval time.Duration) *Timer {
	return &Timer{
		total:    durationSeconds,
		interval: interval,
		// Unbuffered: once Stop returns, no event can still be delivered.
		events: make(chan TimerEvent),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Events returns the countdown event stream.
func (t *Timer) Events() <-chan TimerEvent {
	return t.events
}

// Start launches the countdown goroutine.
func (t *Timer) Start() {
	t.started = true
	go t.run()
}

func (t *Timer) run() {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	remaining := t.total
	// Ceiling division keeps "below 20%" exact for durations not divisible
	// by five.
	lowAt := (t.total + 4) / 5
	lowFired := false

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			remaining--
			if remaining < 0 {
				return
			}
			if !t.send(TimerEvent{Kind: TimerTick, Remaining: remaining}) {
				return
			}
			if !lowFired && remaining > 0 && remaining < lowAt {
				lowFired = true
				if !t.send(TimerEvent{Kind: TimerLowTime, Remaining: remaining}) {
					return
				}
			}
			if remaining == 0 {
				t.send(TimerEvent{Kind: TimerExpired, Remaining: 0})
				return
			}
		}
	}
}

// send delivers an event unless the timer is stopped first.
func (t *Timer) send(ev TimerEvent) bool {
	select {
	case t.events <- ev:
		return true
	case <-t.stop:
		return false
	}
}

// Stop cancels the countdown and waits for the underlying ticker to be
// released. Safe to call more than once and from any goroutine.
func (t *Timer) Stop() {
	t.once.Do(func() { close(t.stop) })
	if t.started {
		<-t.done
	}
}
