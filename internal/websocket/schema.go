package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionStart             Action = "start"
	ActionFullscreenGranted Action = "fullscreen_granted"
	ActionFullscreenExited  Action = "fullscreen_exited"
	ActionAnswer            Action = "answer"
	ActionNavigate          Action = "navigate"
	ActionFocus             Action = "focus"
	ActionSubmit            Action = "submit"
	ActionPing              Action = "ping"
)

// ClientMessage is one inbound session action. Fields beyond Action are
// action-specific; unused ones stay at their zero value.
type ClientMessage struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`            // answer
	Option string `json:"option"`           // answer
	Delta  int    `json:"delta"`            // navigate
	Signal string `json:"signal,omitempty"` // focus: hidden|visible|blur|focus
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTest  Event = "test"
	EventError Event = "error"
	EventPong  Event = "pong"
)

// TestResponse delivers the candidate payload right after the upgrade.
type TestResponse struct {
	Event Event       `json:"event"`
	Test  interface{} `json:"test"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
