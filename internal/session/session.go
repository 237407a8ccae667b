package session

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultFocusWarnAt  = 2
	defaultFocusLimit   = 3
	defaultDebounce     = 800 * time.Millisecond
	submitCallTimeout   = 30 * time.Second
	eventBufferCapacity = 64
)

// Submitter dispatches one grading call. The returned value is opaque to the
// engine and forwarded to the client as the session's terminal result.
type Submitter interface {
	Submit(ctx context.Context, answers map[string]string, reason string) (interface{}, error)
}

// Config seeds one proctored session.
type Config struct {
	TestID             string
	UserID             int
	QuestionCount      int
	DurationSeconds    int
	FocusWarnThreshold int
	FocusSwitchLimit   int
	FocusDebounce      time.Duration

	tickInterval time.Duration // tests only
}

// Session walks one candidate through a timed assessment. All state is owned
// by a single loop goroutine: timer events, focus signals, and user actions
// are serialized onto it, so no two triggers are ever processed
// concurrently. The submission guard still backstops duplicate dispatch,
// since the grading call itself runs off-loop.
type Session struct {
	cfg       Config
	gate      *FullscreenGate
	submitter Submitter
	log       zerolog.Logger

	cmds   chan func()
	events chan Event
	done   chan struct{}
	once   sync.Once

	// Loop-owned state. published mirrors state for lock-free snapshots.
	state       State
	published   atomic.Value
	answers     map[string]string
	index       int
	timer       *Timer
	focus       *FocusMonitor
	guard       Guard
	pending     map[string]string // answer snapshot of the in-flight attempt
	pendingWhy  string
	autoRetried bool
	timeExpired bool
}

// New creates a session in Loading state and starts its event loop.
func New(cfg Config, gate *FullscreenGate, submitter Submitter, log zerolog.Logger) *Session {
	if cfg.FocusWarnThreshold <= 0 {
		cfg.FocusWarnThreshold = defaultFocusWarnAt
	}
	if cfg.FocusSwitchLimit <= 0 {
		cfg.FocusSwitchLimit = defaultFocusLimit
	}
	if cfg.FocusDebounce <= 0 {
		cfg.FocusDebounce = defaultDebounce
	}
	if cfg.tickInterval <= 0 {
		cfg.tickInterval = time.Second
	}

	s := &Session{
		cfg:       cfg,
		gate:      gate,
		submitter: submitter,
		log: log.With().
			Str("component", "session").
			Str("test_id", cfg.TestID).
			Int("user_id", cfg.UserID).
			Logger(),
		cmds:    make(chan func(), 16),
		events:  make(chan Event, eventBufferCapacity),
		done:    make(chan struct{}),
		state:   StateLoading,
		answers: make(map[string]string),
		focus:   NewFocusMonitor(cfg.FocusWarnThreshold, cfg.FocusSwitchLimit, cfg.FocusDebounce),
	}
	s.published.Store(StateLoading)
	go s.run()
	return s
}

// Events returns the outbound event stream.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Start moves the session out of Loading once the test payload has been
// delivered, and begins the exclusive-mode acquisition.
func (s *Session) Start(ctx context.Context) {
	s.do(func() {
		if s.state != StateLoading {
			return
		}
		s.setState(StateFullscreenRequired, "")
		go func() {
			grant := s.gate.RequestExclusiveMode(ctx)
			s.do(func() { s.handleGrant(grant) })
		}()
	})
}

// SetAnswer records the candidate's selected option for a question index.
func (s *Session) SetAnswer(index int, option string) {
	s.do(func() {
		if s.state != StateInProgress {
			return
		}
		if index < 0 || index >= s.cfg.QuestionCount {
			return
		}
		s.answers[strconv.Itoa(index)] = option
	})
}

// Navigate moves the current question index by delta, clamped to
// [0, question count).
func (s *Session) Navigate(delta int) {
	s.do(func() {
		if s.state != StateInProgress {
			return
		}
		s.index += delta
		if s.index < 0 {
			s.index = 0
		}
		if s.index >= s.cfg.QuestionCount {
			s.index = s.cfg.QuestionCount - 1
		}
	})
}

// RequestSubmit is the manual submission trigger.
func (s *Session) RequestSubmit() {
	s.do(func() { s.triggerSubmit("", false) })
}

// ObserveFocus feeds one platform focus/visibility signal into the monitor.
// Signals keep being observed while a submission is outstanding; they only
// stop mattering in a terminal state.
func (s *Session) ObserveFocus(sig Signal) {
	s.do(func() {
		if s.state.Terminal() {
			return
		}
		out := s.focus.Observe(sig)
		if !out.Counted {
			return
		}
		s.log.Debug().Int("switches", out.Switches).Msg("Switch event recorded")
		if out.Warning {
			s.emit(Event{Kind: EventFocusWarning, SwitchCount: out.Switches})
		}
		if out.LimitExceeded {
			s.triggerSubmit(ReasonFocusLimit, true)
		}
	})
}

// NotifyFullscreenChange records an exclusive-mode change observed after the
// gate resolved. Exits never force a submission.
func (s *Session) NotifyFullscreenChange(active bool) {
	s.gate.NotifyModeChange(active)
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	return s.published.Load().(State)
}

// Close tears the session down: the timer is canceled and the loop exits. An
// already-dispatched grading call is not canceled; its response is ignored.
func (s *Session) Close() {
	s.once.Do(func() { close(s.done) })
}

// ─── Event loop ────────────────────────────────────────────────────────────

func (s *Session) run() {
	defer func() {
		if s.timer != nil {
			s.timer.Stop()
		}
		close(s.events)
	}()

	for {
		var ticks <-chan TimerEvent
		if s.timer != nil {
			ticks = s.timer.Events()
		}

		select {
		case <-s.done:
			return
		case fn := <-s.cmds:
			fn()
		case ev := <-ticks:
			s.handleTimerEvent(ev)
		}
	}
}

// do schedules fn onto the loop; dropped once the session is closed.
func (s *Session) do(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.done:
	}
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		// Slow consumer: drop rather than stall the loop.
		s.log.Warn().Str("event", string(ev.Kind)).Msg("Event buffer full, dropping")
	}
}

func (s *Session) setState(next State, reason string) {
	s.state = next
	s.published.Store(next)
	s.emit(Event{Kind: EventState, State: next, Reason: reason})
}

func (s *Session) handleGrant(grant Grant) {
	if s.state != StateFullscreenRequired {
		return
	}
	if grant.Err != nil {
		s.log.Warn().Err(grant.Err).Msg("Exclusive mode failed open")
	} else if grant.API != "" {
		s.log.Debug().Str("api", grant.API).Msg("Exclusive mode granted")
	}

	s.setState(StateInProgress, "")
	s.timer = newTimer(s.cfg.DurationSeconds, s.cfg.tickInterval)
	s.timer.Start()
}

func (s *Session) handleTimerEvent(ev TimerEvent) {
	switch ev.Kind {
	case TimerTick:
		s.emit(Event{Kind: EventTick, RemainingSeconds: ev.Remaining})
	case TimerLowTime:
		s.emit(Event{Kind: EventLowTime, RemainingSeconds: ev.Remaining})
	case TimerExpired:
		// The timer goroutine exits after this event, so the expiry is
		// latched: if the trigger loses to an in-flight submission it is
		// replayed when that submission fails.
		s.timeExpired = true
		s.triggerSubmit(ReasonTimeExpired, true)
	}
}

// triggerSubmit collapses concurrent triggers into at most one dispatched
// grading call, using whatever answer map exists at trigger time.
func (s *Session) triggerSubmit(reason string, auto bool) {
	if !s.guard.TryAcquire() {
		return
	}
	if s.state != StateInProgress {
		s.guard.Release()
		return
	}

	snapshot := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		snapshot[k] = v
	}
	s.pending = snapshot
	s.pendingWhy = reason
	s.autoRetried = false

	s.setState(StateSubmitting, reason)
	go s.dispatch(snapshot, reason, auto)
}

// dispatch runs the grading call off-loop and posts the outcome back. The
// guard is released before the outcome is posted so a retry scheduled by
// finishSubmit can always re-acquire it.
func (s *Session) dispatch(answers map[string]string, reason string, auto bool) {
	ctx, cancel := context.WithTimeout(context.Background(), submitCallTimeout)
	defer cancel()

	result, err := s.submitter.Submit(ctx, answers, reason)
	s.guard.Release()
	s.do(func() { s.finishSubmit(result, err, auto) })
}

func (s *Session) finishSubmit(result interface{}, err error, auto bool) {
	if s.state != StateSubmitting {
		return
	}

	if err == nil {
		s.setState(StateSubmitted, s.pendingWhy)
		s.emit(Event{Kind: EventResult, Result: result, Reason: s.pendingWhy})
		s.stopTimer()
		return
	}

	if auto {
		if !s.autoRetried {
			// One bounded retry. The server-side upsert is idempotent, so a
			// duplicate delivery overwrites with identical data.
			s.autoRetried = true
			s.log.Warn().Err(err).Msg("Auto-submission failed, retrying once")
			if s.guard.TryAcquire() {
				go s.dispatch(s.pending, s.pendingWhy, true)
			}
			return
		}
		s.log.Error().Err(err).Msg("Auto-submission failed after retry")
		s.setState(StateErrored, s.pendingWhy)
		s.emit(Event{Kind: EventError, Error: err.Error(), Reason: s.pendingWhy})
		s.stopTimer()
		return
	}

	// A failed manual submission is not terminal: the session returns to
	// InProgress and the candidate may resubmit. A time or switch budget
	// spent while the call was outstanding must not be lost, though — the
	// expired timer and the monitor's limit latch fire only once, so their
	// triggers are replayed here.
	s.log.Warn().Err(err).Msg("Manual submission failed")
	s.setState(StateInProgress, "")
	s.emit(Event{Kind: EventError, Error: err.Error()})

	if s.timeExpired {
		s.triggerSubmit(ReasonTimeExpired, true)
		return
	}
	if s.focus.Switches() >= s.cfg.FocusSwitchLimit {
		s.triggerSubmit(ReasonFocusLimit, true)
	}
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
