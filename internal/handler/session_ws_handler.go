package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepexam/prepexam-backend/internal/config"
	"github.com/prepexam/prepexam-backend/internal/middleware"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/service"
	"github.com/prepexam/prepexam-backend/internal/session"
	ws "github.com/prepexam/prepexam-backend/internal/websocket"
)

const fullscreenGrantTimeout = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// SessionWSHandler runs proctored test sessions over WebSocket. The session
// engine lives server-side; the client only renders state and reports
// platform signals (visibility, focus, fullscreen changes).
type SessionWSHandler struct {
	cfg            *config.Config
	rdb            *redis.Client
	catalogService *service.CatalogService
	gradingService *service.GradingService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewSessionWSHandler creates a new SessionWSHandler.
func NewSessionWSHandler(
	cfg *config.Config,
	rdb *redis.Client,
	catalogService *service.CatalogService,
	gradingService *service.GradingService,
	log zerolog.Logger,
) *SessionWSHandler {
	return &SessionWSHandler{
		cfg:            cfg,
		rdb:            rdb,
		catalogService: catalogService,
		gradingService: gradingService,
		log:            log.With().Str("component", "session_ws_handler").Logger(),
		upgrader:       buildUpgrader(cfg.AllowedOrigins),
	}
}

// clientFullscreen bridges the engine's exclusive-mode request to the
// connected client: the request resolves when the client reports the grant,
// or errors on timeout. The gate fails open in both cases.
type clientFullscreen struct {
	granted chan struct{}
	once    sync.Once
}

func newClientFullscreen() *clientFullscreen {
	return &clientFullscreen{granted: make(chan struct{})}
}

func (a *clientFullscreen) Name() string { return "client" }

func (a *clientFullscreen) RequestFullscreen(ctx context.Context) error {
	select {
	case <-a.granted:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *clientFullscreen) grant() {
	a.once.Do(func() { close(a.granted) })
}

// gradingSubmitter adapts the grading service to the engine's Submitter.
type gradingSubmitter struct {
	svc    *service.GradingService
	userID int
	testID uuid.UUID
}

func (g *gradingSubmitter) Submit(ctx context.Context, answers map[string]string, reason string) (interface{}, error) {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	return g.svc.Submit(ctx, g.userID, g.testID, model.AnswerMap(answers), reasonPtr)
}

// SessionStream godoc
// WS /ws/v1/tests/:test_id/session?token=...
// Upgrades to WebSocket and drives a full proctored session: countdown,
// switch counting, and exactly-once submission.
func (h *SessionWSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid test ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	payload, err := h.catalogService.GetTestPayload(c.Request.Context(), testID)
	if err != nil {
		ws.WriteError(conn, "test is not available")
		return
	}

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("test_id", testID.String()).
		Logger()

	fs := newClientFullscreen()
	gate := session.NewFullscreenGate(wsLog, fs)
	submitter := &gradingSubmitter{svc: h.gradingService, userID: claims.UserID, testID: testID}

	sess := session.New(session.Config{
		TestID:             testID.String(),
		UserID:             claims.UserID,
		QuestionCount:      len(payload.Questions),
		DurationSeconds:    payload.DurationMinutes * 60,
		FocusWarnThreshold: h.cfg.FocusWarnThreshold,
		FocusSwitchLimit:   h.cfg.FocusSwitchLimit,
		FocusDebounce:      h.cfg.FocusDebounce,
	}, gate, submitter, wsLog)
	defer sess.Close()

	// The client sees the payload before any state event.
	if err := ws.WriteTyped(conn, ws.TestResponse{Event: ws.EventTest, Test: payload}); err != nil {
		return
	}

	// Single writer: session events and read-loop replies share one goroutine
	// so conn writes never interleave.
	outbound := make(chan interface{}, 16)
	go func() {
		for {
			select {
			case ev, ok := <-sess.Events():
				if !ok {
					return
				}
				if err := ws.WriteTyped(conn, ev); err != nil {
					return
				}
			case v := <-outbound:
				if err := ws.WriteTyped(conn, v); err != nil {
					return
				}
			}
		}
	}()

	grantCtx, cancelGrant := context.WithTimeout(context.Background(), fullscreenGrantTimeout)
	defer cancelGrant()

	wsLog.Info().Msg("Candidate connected")

	for {
		var msg ws.ClientMessage
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionStart:
			sess.Start(grantCtx)
		case ws.ActionFullscreenGranted:
			fs.grant()
		case ws.ActionFullscreenExited:
			sess.NotifyFullscreenChange(false)
			h.enqueueProctorEvent(claims.UserID, testID, "fullscreen_exit", "")
		case ws.ActionAnswer:
			sess.SetAnswer(msg.Index, msg.Option)
		case ws.ActionNavigate:
			sess.Navigate(msg.Delta)
		case ws.ActionFocus:
			sess.ObserveFocus(session.Signal(msg.Signal))
			h.enqueueProctorEvent(claims.UserID, testID, "focus", msg.Signal)
		case ws.ActionSubmit:
			sess.RequestSubmit()
		case ws.ActionPing:
			select {
			case outbound <- ws.PongResponse{Event: ws.EventPong}:
			default:
			}
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			select {
			case outbound <- ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(msg.Action)}:
			default:
			}
		}
	}
}

// enqueueProctorEvent queues a raw platform signal for batch persistence.
// Best effort: a full audit trail never blocks the session itself.
func (h *SessionWSHandler) enqueueProctorEvent(userID int, testID uuid.UUID, kind, signal string) {
	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":     userID,
		"test_id":     testID.String(),
		"kind":        kind,
		"signal":      signal,
		"occurred_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err := h.rdb.RPush(context.Background(), config.WorkerKey.ProctorEventsQueue, payload).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to enqueue proctor event")
	}
}
