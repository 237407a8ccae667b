package session

import (
	"testing"
	"time"
)

func collectTimerEvents(t *testing.T, tm *Timer) []TimerEvent {
	t.Helper()
	var events []TimerEvent
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-tm.Events():
			events = append(events, ev)
			if ev.Kind == TimerExpired {
				return events
			}
		case <-deadline:
			t.Fatalf("timer did not expire, got %d events", len(events))
		}
	}
}

func TestTimerCountdown(t *testing.T) {
	tm := newTimer(10, time.Millisecond)
	tm.Start()
	defer tm.Stop()

	events := collectTimerEvents(t, tm)

	var ticks []int
	lowTimes := 0
	expires := 0
	for _, ev := range events {
		switch ev.Kind {
		case TimerTick:
			ticks = append(ticks, ev.Remaining)
		case TimerLowTime:
			lowTimes++
			if ev.Remaining != 1 {
				t.Errorf("low-time fired at %d seconds, want 1", ev.Remaining)
			}
		case TimerExpired:
			expires++
			if ev.Remaining != 0 {
				t.Errorf("expired with %d seconds remaining", ev.Remaining)
			}
		}
	}

	if len(ticks) != 10 {
		t.Fatalf("got %d ticks, want 10", len(ticks))
	}
	for i, remaining := range ticks {
		if want := 9 - i; remaining != want {
			t.Errorf("tick %d reported %d remaining, want %d", i, remaining, want)
		}
	}
	if lowTimes != 1 {
		t.Errorf("low-time fired %d times, want exactly once", lowTimes)
	}
	if expires != 1 {
		t.Errorf("expired fired %d times, want exactly once", expires)
	}
}

func TestTimerLowTimeNonDivisibleDuration(t *testing.T) {
	// 20% of 11 seconds is 2.2, so the warning belongs at 2 remaining, not 1.
	tm := newTimer(11, time.Millisecond)
	tm.Start()
	defer tm.Stop()

	lowTimes := 0
	for _, ev := range collectTimerEvents(t, tm) {
		if ev.Kind == TimerLowTime {
			lowTimes++
			if ev.Remaining != 2 {
				t.Errorf("low-time fired at %d seconds, want 2", ev.Remaining)
			}
		}
	}
	if lowTimes != 1 {
		t.Errorf("low-time fired %d times, want exactly once", lowTimes)
	}
}

func TestTimerShortDurationSkipsLowTime(t *testing.T) {
	// With a 4-second limit the 20% mark sits below one whole second, so no
	// positive remaining qualifies; the expiry event already covers zero.
	tm := newTimer(4, time.Millisecond)
	tm.Start()
	defer tm.Stop()

	for _, ev := range collectTimerEvents(t, tm) {
		if ev.Kind == TimerLowTime {
			t.Fatal("low-time fired for a duration too short to have one")
		}
	}
}

func TestTimerStopDeliversNothingAfter(t *testing.T) {
	tm := newTimer(1000, time.Millisecond)
	tm.Start()

	// Let it tick at least once, then cancel.
	select {
	case <-tm.Events():
	case <-time.After(time.Second):
		t.Fatal("timer never ticked")
	}
	tm.Stop()

	time.Sleep(20 * time.Millisecond)
	select {
	case ev := <-tm.Events():
		t.Fatalf("received %v after Stop returned", ev)
	default:
	}
}

func TestTimerStopIdempotent(t *testing.T) {
	tm := newTimer(100, time.Millisecond)
	tm.Start()
	tm.Stop()
	tm.Stop()
}

func TestTimerStopBeforeStart(t *testing.T) {
	tm := NewTimer(60)
	tm.Stop()
}
