package ws

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hoshinoya/ponghub/server/config"
	"github.com/hoshinoya/ponghub/server/model"
	"github.com/hoshinoya/ponghub/server/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler is the Gin handler for GET /ws.
type Handler struct {
	db       *gorm.DB
	hs       *realtime.Handshake
	reg      *realtime.Registry
	disp     *realtime.Dispatcher
	router   *Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket Handler.
// sec.AllowedOrigins controls which WebSocket origins are accepted.
// An empty slice permits all origins (development only).
func NewHandler(
	db *gorm.DB,
	hs *realtime.Handshake,
	reg *realtime.Registry,
	disp *realtime.Dispatcher,
	sec config.SecurityConfig,
	router *Router,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		db:     db,
		hs:     hs,
		reg:    reg,
		disp:   disp,
		router: router,
		logger: logger,
	}
	allowed := sec.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true // dev mode: allow all
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// ServeWS handles GET /ws?token=<jwt>. The handshake must resolve the token
// to a known user before the connection is upgraded and registered; a
// failed handshake rejects the connection, never a fallback to an anonymous
// session.
func (h *Handler) ServeWS(c *gin.Context) {
	userID, username, err := h.hs.Resolve(c.Request.Context(), c.Query("token"))
	if err != nil {
		if errors.Is(err, realtime.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", zap.Error(err))
		return
	}

	sess := realtime.NewSession(userID, username, conn, h.logger)
	h.reg.Register(sess)
	h.setPresence(sess, model.StatusOnline)

	h.readPump(sess)
}

// readPump reads messages from the WebSocket connection and dispatches them.
func (h *Handler) readPump(s *realtime.Session) {
	defer func() {
		h.handleDisconnect(s)
	}()

	s.SetReadDeadline()
	s.Conn.SetPongHandler(func(string) error {
		s.SetReadDeadline()
		return nil
	})

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close",
					zap.Int64("user_id", s.UserID),
					zap.Error(err))
			}
			return
		}
		// Reset read deadline on any message (heartbeat or otherwise).
		s.SetReadDeadline()
		h.router.Dispatch(s, raw)
	}
}

// handleDisconnect cleans up after the connection closes. The deregister is
// guarded: if this session was already displaced by a reconnect, the newer
// registration stays and no offline transition is announced.
func (h *Handler) handleDisconnect(s *realtime.Session) {
	s.Close()

	if !h.reg.DeregisterSession(s) {
		h.logger.Debug("disconnect of displaced session ignored",
			zap.Int64("user_id", s.UserID))
		return
	}
	h.setPresence(s, model.StatusOffline)
	h.logger.Info("user disconnected", zap.Int64("user_id", s.UserID))
}

// setPresence persists the user's status and announces the change to every
// other connected user. Both steps are best-effort.
func (h *Handler) setPresence(s *realtime.Session, status int) {
	if err := h.db.Model(&model.User{}).
		Where("id = ?", s.UserID).
		Update("status", status).Error; err != nil {
		h.logger.Warn("presence status update failed",
			zap.Int64("user_id", s.UserID), zap.Error(err))
	}

	payload, err := json.Marshal(presencePayload{
		UserID:   s.UserID,
		Username: s.Username,
		Status:   status,
	})
	if err != nil {
		return
	}
	h.disp.BroadcastExcept(s.UserID, &realtime.Event{
		Kind:    realtime.EventPresenceChange,
		From:    s.UserID,
		Payload: payload,
	})
}

type presencePayload struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Status   int    `json:"status"`
}
