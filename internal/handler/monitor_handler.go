package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examplify/examplify-backend/internal/config"
	"github.com/examplify/examplify-backend/internal/middleware"
	"github.com/examplify/examplify-backend/internal/response"
	"github.com/examplify/examplify-backend/internal/service"
	ws "github.com/examplify/examplify-backend/internal/websocket"
)

const monitorPingInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
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

// MonitorHandler streams an exam's live ledger events to its creator. Events
// are published on a Redis channel by the registration flow; this handler
// relays them over a WebSocket, one connection per attached creator.
type MonitorHandler struct {
	rdb         *redis.Client
	examService *service.ExamService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, examService *service.ExamService, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:         rdb,
		examService: examService,
		log:         log.With().Str("component", "monitor_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// MonitorStream godoc
// WS /ws/v1/author/exams/:code/monitor
func (h *MonitorHandler) MonitorStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	code := c.Param("code")

	// Only the creator may watch an exam's roster.
	exam, err := h.examService.GetByAccessCode(c.Request.Context(), code)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if exam.CreatorID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrNotResourceOwner)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	reqCtx := c.Request.Context()

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.ExamMonitorChannel(code))
	defer pubsub.Close()
	events := pubsub.Channel()

	// Drain client frames so pings and close frames are processed; the
	// monitor stream is otherwise server-to-client only.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			var envelope ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &envelope); err != nil {
				return
			}
			if envelope.Action == ws.ActionPing {
				_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			}
		}
	}()

	pingTicker := time.NewTicker(monitorPingInterval)
	defer pingTicker.Stop()

	h.log.Info().Str("code", code).Msg("Creator attached to live monitor")

	for {
		select {
		case <-reqCtx.Done():
			return
		case <-clientGone:
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			if err := ws.WriteRaw(conn, []byte(msg.Payload)); err != nil {
				h.log.Debug().Err(err).Str("code", code).Msg("Monitor write failed, detaching")
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
