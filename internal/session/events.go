package session

// State enumerates the session lifecycle. Submitted and Errored are terminal.
type State string

const (
	StateLoading            State = "LOADING"
	StateFullscreenRequired State = "FULLSCREEN_REQUIRED"
	StateInProgress         State = "IN_PROGRESS"
	StateSubmitting         State = "SUBMITTING"
	StateSubmitted          State = "SUBMITTED"
	StateErrored            State = "ERRORED"
)

// Terminal reports whether no transition leaves the state.
func (s State) Terminal() bool {
	return s == StateSubmitted || s == StateErrored
}

// Auto-submission reasons, surfaced verbatim to the candidate.
const (
	ReasonTimeExpired = "Time expired"
	ReasonFocusLimit  = "Multiple tab/app switches detected"
)

// EventKind identifies an outbound session event.
type EventKind string

const (
	EventState        EventKind = "state"
	EventTick         EventKind = "tick"
	EventLowTime      EventKind = "low_time"
	EventFocusWarning EventKind = "focus_warning"
	EventResult       EventKind = "result"
	EventError        EventKind = "error"
)

// Event is one notification from the session engine to its client.
type Event struct {
	Kind             EventKind   `json:"event"`
	State            State       `json:"state,omitempty"`
	RemainingSeconds int         `json:"remaining_seconds,omitempty"`
	SwitchCount      int         `json:"switch_count,omitempty"`
	Reason           string      `json:"reason,omitempty"`
	Error            string      `json:"error,omitempty"`
	Result           interface{} `json:"result,omitempty"`
}
