package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hoshinoya/ponghub/server/model"
	"github.com/hoshinoya/ponghub/server/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PresenceHandlers processes inbound presence and invite messages.
type PresenceHandlers struct {
	db     *gorm.DB
	disp   *realtime.Dispatcher
	logger *zap.Logger
}

// NewPresenceHandlers creates a new PresenceHandlers.
func NewPresenceHandlers(db *gorm.DB, disp *realtime.Dispatcher, logger *zap.Logger) *PresenceHandlers {
	return &PresenceHandlers{db: db, disp: disp, logger: logger}
}

// RegisterHandlers registers all message handlers on the router.
func (ph *PresenceHandlers) RegisterHandlers(r *Router) {
	r.On("ping", ph.HandlePing)
	r.On("status_update", ph.HandleStatusUpdate)
	r.On("game_invite", ph.HandleGameInvite)
}

// HandlePing answers a client heartbeat with a pong carrying both clocks.
func (ph *PresenceHandlers) HandlePing(_ context.Context, s *realtime.Session, payload json.RawMessage) error {
	var req struct {
		ClientTS int64 `json:"client_ts"`
	}
	_ = json.Unmarshal(payload, &req)

	data, _ := json.Marshal(map[string]int64{
		"client_ts": req.ClientTS,
		"server_ts": time.Now().UnixMilli(),
	})
	s.Send(&realtime.Packet{Type: "pong", Payload: data})
	return nil
}

// HandleStatusUpdate switches the sender between online and in-game and
// announces the change to everyone else.
func (ph *PresenceHandlers) HandleStatusUpdate(ctx context.Context, s *realtime.Session, payload json.RawMessage) error {
	var req struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decode status_update: %w", err)
	}
	if req.Status != model.StatusOnline && req.Status != model.StatusInGame {
		return fmt.Errorf("status_update: invalid status %d", req.Status)
	}

	if err := ph.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", s.UserID).
		Update("status", req.Status).Error; err != nil {
		return fmt.Errorf("status_update: %w", err)
	}

	data, _ := json.Marshal(map[string]interface{}{
		"user_id":  s.UserID,
		"username": s.Username,
		"status":   req.Status,
	})
	ph.disp.BroadcastExcept(s.UserID, &realtime.Event{
		Kind:    realtime.EventPresenceChange,
		From:    s.UserID,
		Payload: data,
	})
	return nil
}

// HandleGameInvite routes an invitation to one or more users. Offline
// targets simply miss it; invites are transient and never persisted.
func (ph *PresenceHandlers) HandleGameInvite(_ context.Context, s *realtime.Session, payload json.RawMessage) error {
	var req struct {
		Targets []int64 `json:"targets"`
		Mode    string  `json:"mode"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decode game_invite: %w", err)
	}
	if len(req.Targets) == 0 {
		return fmt.Errorf("game_invite: no targets")
	}

	data, _ := json.Marshal(map[string]interface{}{
		"from_user_id": s.UserID,
		"username":     s.Username,
		"mode":         req.Mode,
	})
	ph.disp.NotifyMany(req.Targets, &realtime.Event{
		Kind:    realtime.EventGameInvite,
		From:    s.UserID,
		Payload: data,
	})
	return nil
}
