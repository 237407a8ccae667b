package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeSubmitter struct {
	mu      sync.Mutex
	calls   int
	answers []map[string]string
	reasons []string
	errs    []error // per-call errors; calls beyond the slice succeed
	result  interface{}
	unblock chan struct{} // when set, Submit blocks until it is closed
}

func (f *fakeSubmitter) Submit(ctx context.Context, answers map[string]string, reason string) (interface{}, error) {
	if f.unblock != nil {
		<-f.unblock
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.calls
	f.calls++
	cp := make(map[string]string, len(answers))
	for k, v := range answers {
		cp[k] = v
	}
	f.answers = append(f.answers, cp)
	f.reasons = append(f.reasons, reason)
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	return f.result, nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSubmitter) call(i int) (map[string]string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answers[i], f.reasons[i]
}

func newTestSession(t *testing.T, cfg Config, sub Submitter) *Session {
	t.Helper()
	if cfg.TestID == "" {
		cfg.TestID = "3f1a0c9e-1111-4e0e-9a51-2f4d8a7b6c5d"
	}
	if cfg.UserID == 0 {
		cfg.UserID = 42
	}
	if cfg.QuestionCount == 0 {
		cfg.QuestionCount = 5
	}
	if cfg.DurationSeconds == 0 {
		cfg.DurationSeconds = 3600
	}
	if cfg.FocusWarnThreshold == 0 {
		cfg.FocusWarnThreshold = 2
	}
	if cfg.FocusSwitchLimit == 0 {
		cfg.FocusSwitchLimit = 3
	}
	if cfg.FocusDebounce == 0 {
		cfg.FocusDebounce = time.Nanosecond
	}
	if cfg.tickInterval == 0 {
		cfg.tickInterval = 5 * time.Millisecond
	}

	s := New(cfg, NewFullscreenGate(zerolog.Nop()), sub, zerolog.Nop())
	t.Cleanup(s.Close)
	return s
}

func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state is %s, want %s", s.State(), want)
}

// waitEvent consumes the event stream until an event of the given kind
// arrives.
func waitEvent(t *testing.T, s *Session, kind EventKind) Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatalf("event stream closed while waiting for %s", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event within deadline", kind)
		}
	}
}

func startInProgress(t *testing.T, s *Session) {
	t.Helper()
	s.Start(context.Background())
	waitState(t, s, StateInProgress)
}

func TestSessionManualSubmitLifecycle(t *testing.T) {
	sub := &fakeSubmitter{result: "graded"}
	s := newTestSession(t, Config{}, sub)

	if s.State() != StateLoading {
		t.Fatalf("new session in state %s, want %s", s.State(), StateLoading)
	}

	startInProgress(t, s)

	s.SetAnswer(0, "A")
	s.SetAnswer(2, "C")
	s.SetAnswer(0, "B") // changed answer wins
	s.RequestSubmit()

	ev := waitEvent(t, s, EventResult)
	if ev.Result != "graded" {
		t.Fatalf("result event carries %v", ev.Result)
	}
	waitState(t, s, StateSubmitted)

	if sub.callCount() != 1 {
		t.Fatalf("submitter called %d times, want 1", sub.callCount())
	}
	answers, reason := sub.call(0)
	if reason != "" {
		t.Errorf("manual submission carried reason %q", reason)
	}
	if answers["0"] != "B" || answers["2"] != "C" || len(answers) != 2 {
		t.Errorf("submitted answers %v", answers)
	}
}

func TestSessionAnswersOutsideInProgressIgnored(t *testing.T) {
	sub := &fakeSubmitter{}
	s := newTestSession(t, Config{QuestionCount: 3}, sub)

	s.SetAnswer(0, "A") // still Loading
	startInProgress(t, s)
	s.SetAnswer(-1, "A")
	s.SetAnswer(3, "A")
	s.SetAnswer(1, "B")
	s.RequestSubmit()
	waitState(t, s, StateSubmitted)

	answers, _ := sub.call(0)
	if len(answers) != 1 || answers["1"] != "B" {
		t.Fatalf("submitted answers %v, want only question 1", answers)
	}
}

func TestSessionNavigateClamps(t *testing.T) {
	s := newTestSession(t, Config{QuestionCount: 4}, &fakeSubmitter{})
	startInProgress(t, s)

	index := func() int {
		ch := make(chan int, 1)
		s.do(func() { ch <- s.index })
		return <-ch
	}

	s.Navigate(2)
	if got := index(); got != 2 {
		t.Fatalf("index %d after +2, want 2", got)
	}
	s.Navigate(10)
	if got := index(); got != 3 {
		t.Fatalf("index %d after overshoot, want 3", got)
	}
	s.Navigate(-10)
	if got := index(); got != 0 {
		t.Fatalf("index %d after undershoot, want 0", got)
	}
}

func TestSessionTimeExpiryAutoSubmits(t *testing.T) {
	sub := &fakeSubmitter{}
	s := newTestSession(t, Config{DurationSeconds: 3, tickInterval: time.Millisecond}, sub)
	startInProgress(t, s)
	s.SetAnswer(0, "A")

	waitState(t, s, StateSubmitted)

	answers, reason := sub.call(0)
	if reason != ReasonTimeExpired {
		t.Fatalf("reason %q, want %q", reason, ReasonTimeExpired)
	}
	if answers["0"] != "A" {
		t.Fatalf("expiry submitted %v, want the answers present at expiry", answers)
	}
}

func TestSessionLowTimeEmittedOnce(t *testing.T) {
	sub := &fakeSubmitter{}
	s := newTestSession(t, Config{DurationSeconds: 10, tickInterval: time.Millisecond}, sub)
	startInProgress(t, s)

	lowTimes := 0
	for ev := range s.Events() {
		if ev.Kind == EventLowTime {
			lowTimes++
		}
		if ev.Kind == EventResult {
			break
		}
	}
	if lowTimes != 1 {
		t.Fatalf("low-time emitted %d times, want exactly once", lowTimes)
	}
}

func TestSessionFocusLimitAutoSubmits(t *testing.T) {
	sub := &fakeSubmitter{}
	s := newTestSession(t, Config{}, sub)
	startInProgress(t, s)

	for i := 0; i < 3; i++ {
		s.ObserveFocus(SignalBlur)
		time.Sleep(2 * time.Millisecond)
	}

	warning := waitEvent(t, s, EventFocusWarning)
	if warning.SwitchCount != 2 {
		t.Errorf("warning at %d switches, want 2", warning.SwitchCount)
	}

	waitState(t, s, StateSubmitted)
	_, reason := sub.call(0)
	if reason != ReasonFocusLimit {
		t.Fatalf("reason %q, want %q", reason, ReasonFocusLimit)
	}
}

func TestSessionSimultaneousTriggersSubmitOnce(t *testing.T) {
	sub := &fakeSubmitter{unblock: make(chan struct{})}
	s := newTestSession(t, Config{DurationSeconds: 2, tickInterval: time.Millisecond}, sub)
	startInProgress(t, s)

	// Pile on manual triggers while the timer races toward expiry, then let
	// the single dispatched call finish.
	for i := 0; i < 5; i++ {
		s.RequestSubmit()
	}
	waitState(t, s, StateSubmitting)
	s.RequestSubmit()
	time.Sleep(10 * time.Millisecond)
	close(sub.unblock)

	waitState(t, s, StateSubmitted)
	time.Sleep(20 * time.Millisecond)
	if sub.callCount() != 1 {
		t.Fatalf("submitter called %d times, want exactly 1", sub.callCount())
	}
}

func TestSessionManualFailureReturnsToInProgress(t *testing.T) {
	sub := &fakeSubmitter{errs: []error{errors.New("network down")}}
	s := newTestSession(t, Config{}, sub)
	startInProgress(t, s)

	s.RequestSubmit()
	ev := waitEvent(t, s, EventError)
	if ev.Error == "" {
		t.Fatal("error event without a message")
	}
	waitState(t, s, StateInProgress)

	// The candidate can try again.
	s.RequestSubmit()
	waitState(t, s, StateSubmitted)
	if sub.callCount() != 2 {
		t.Fatalf("submitter called %d times, want 2", sub.callCount())
	}
}

func TestSessionAutoFailureRetriesOnceThenErrors(t *testing.T) {
	sub := &fakeSubmitter{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	s := newTestSession(t, Config{DurationSeconds: 2, tickInterval: time.Millisecond}, sub)
	startInProgress(t, s)

	ev := waitEvent(t, s, EventError)
	if ev.Reason != ReasonTimeExpired {
		t.Errorf("error event reason %q, want %q", ev.Reason, ReasonTimeExpired)
	}
	waitState(t, s, StateErrored)
	if sub.callCount() != 2 {
		t.Fatalf("submitter called %d times, want original attempt plus one retry", sub.callCount())
	}
}

func TestSessionAutoRetrySucceeds(t *testing.T) {
	sub := &fakeSubmitter{errs: []error{errors.New("timeout")}, result: "graded"}
	s := newTestSession(t, Config{DurationSeconds: 2, tickInterval: time.Millisecond}, sub)
	startInProgress(t, s)
	s.SetAnswer(1, "D")

	waitState(t, s, StateSubmitted)
	if sub.callCount() != 2 {
		t.Fatalf("submitter called %d times, want 2", sub.callCount())
	}
	first, _ := sub.call(0)
	second, _ := sub.call(1)
	if first["1"] != "D" || second["1"] != "D" {
		t.Fatalf("retry did not reuse the original snapshot: %v then %v", first, second)
	}
}

func TestSessionExpiryDuringFailedManualSubmitForcesResubmit(t *testing.T) {
	sub := &fakeSubmitter{
		errs:    []error{errors.New("network down")},
		unblock: make(chan struct{}),
		result:  "graded",
	}
	s := newTestSession(t, Config{DurationSeconds: 30, tickInterval: time.Millisecond}, sub)
	startInProgress(t, s)

	// Manual submission wins the dispatch, then the clock runs out while the
	// call is still outstanding.
	s.RequestSubmit()
	waitState(t, s, StateSubmitting)
	time.Sleep(60 * time.Millisecond)
	close(sub.unblock)

	waitState(t, s, StateSubmitted)
	if sub.callCount() != 2 {
		t.Fatalf("submitter called %d times, want failed manual plus forced expiry", sub.callCount())
	}
	_, reason := sub.call(1)
	if reason != ReasonTimeExpired {
		t.Fatalf("forced submission reason %q, want %q", reason, ReasonTimeExpired)
	}
}

func TestSessionFocusLimitDuringFailedManualSubmitForcesResubmit(t *testing.T) {
	sub := &fakeSubmitter{
		errs:    []error{errors.New("network down")},
		unblock: make(chan struct{}),
		result:  "graded",
	}
	s := newTestSession(t, Config{}, sub)
	startInProgress(t, s)

	s.RequestSubmit()
	waitState(t, s, StateSubmitting)

	// Spend the whole switch budget while the manual call is in flight.
	for i := 0; i < 3; i++ {
		s.ObserveFocus(SignalBlur)
		time.Sleep(2 * time.Millisecond)
	}
	close(sub.unblock)

	waitState(t, s, StateSubmitted)
	if sub.callCount() != 2 {
		t.Fatalf("submitter called %d times, want failed manual plus forced resubmission", sub.callCount())
	}
	_, reason := sub.call(1)
	if reason != ReasonFocusLimit {
		t.Fatalf("forced submission reason %q, want %q", reason, ReasonFocusLimit)
	}
}

func TestSessionFocusObservedWhileSubmitting(t *testing.T) {
	sub := &fakeSubmitter{unblock: make(chan struct{})}
	s := newTestSession(t, Config{}, sub)
	startInProgress(t, s)

	s.RequestSubmit()
	waitState(t, s, StateSubmitting)

	s.ObserveFocus(SignalBlur)
	time.Sleep(2 * time.Millisecond)
	s.ObserveFocus(SignalBlur)

	ev := waitEvent(t, s, EventFocusWarning)
	if ev.SwitchCount != 2 {
		t.Fatalf("warning at %d switches, want 2", ev.SwitchCount)
	}

	close(sub.unblock)
	waitState(t, s, StateSubmitted)
	if sub.callCount() != 1 {
		t.Fatalf("focus limit during submission dispatched %d calls, want 1", sub.callCount())
	}
}

func TestSessionCloseEndsEventStream(t *testing.T) {
	s := newTestSession(t, Config{}, &fakeSubmitter{})
	startInProgress(t, s)
	s.Close()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-s.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event stream not closed after Close")
		}
	}
}
