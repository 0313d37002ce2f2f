package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hoshinoya/ponghub/server/audit"
	"github.com/hoshinoya/ponghub/server/friends"
	mw "github.com/hoshinoya/ponghub/server/middleware"
	"github.com/hoshinoya/ponghub/server/model"
	"github.com/hoshinoya/ponghub/server/notify"
	"github.com/hoshinoya/ponghub/server/realtime"
	"gorm.io/gorm"
)

// FriendsHandler handles the relationship REST endpoints. Mutations go
// through the friends service; on success the handler also records a
// persisted notification and pushes the realtime event to the counterpart.
type FriendsHandler struct {
	db       *gorm.DB
	svc      *friends.Service
	reg      *realtime.Registry
	disp     *realtime.Dispatcher
	notif    *notify.Service
	auditSvc *audit.Service
}

// NewFriendsHandler creates a new FriendsHandler.
func NewFriendsHandler(
	db *gorm.DB,
	svc *friends.Service,
	reg *realtime.Registry,
	disp *realtime.Dispatcher,
	notif *notify.Service,
	auditSvc *audit.Service,
) *FriendsHandler {
	return &FriendsHandler{db: db, svc: svc, reg: reg, disp: disp, notif: notif, auditSvc: auditSvc}
}

// friendEventPayload is the wire payload for friend_* events and the
// persisted notification body.
type friendEventPayload struct {
	FromUserID int64  `json:"from_user_id"`
	Username   string `json:"username,omitempty"`
	Message    string `json:"message,omitempty"`
}

// List handles GET /api/friends.
func (h *FriendsHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)

	ids, err := h.svc.ListFriends(c.Request.Context(), userID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	type friendInfo struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Status   int    `json:"status"`
		Online   bool   `json:"online"`
	}
	result := make([]friendInfo, 0, len(ids))
	for _, id := range ids {
		info := friendInfo{ID: id, Online: h.reg.IsOnline(id)}
		var u model.User
		if err := h.db.First(&u, id).Error; err == nil {
			info.Username = u.Username
			info.Status = u.Status
		}
		result = append(result, info)
	}
	c.JSON(http.StatusOK, gin.H{"friends": result})
}

// ListPending handles GET /api/friends/pending: requests I sent, awaiting
// an answer.
func (h *FriendsHandler) ListPending(c *gin.Context) {
	userID := mw.GetUserID(c)
	ids, err := h.svc.ListPending(c.Request.Context(), userID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": emptyIfNil(ids)})
}

// ListWaiting handles GET /api/friends/waiting: requests sent to me,
// awaiting my answer.
func (h *FriendsHandler) ListWaiting(c *gin.Context) {
	userID := mw.GetUserID(c)
	ids, err := h.svc.ListWaiting(c.Request.Context(), userID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"waiting": emptyIfNil(ids)})
}

// Request handles POST /api/friends/request.
func (h *FriendsHandler) Request(c *gin.Context) {
	userID := mw.GetUserID(c)
	start := time.Now()

	var req struct {
		TargetID int64 `json:"target_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.svc.Request(c.Request.Context(), userID, req.TargetID)
	h.logAudit(c, userID, "friends.request", req, msg, err, start)
	if err != nil {
		h.renderError(c, err)
		return
	}

	payload := friendEventPayload{
		FromUserID: userID,
		Username:   h.username(c, userID),
	}
	h.notif.Record(c.Request.Context(), req.TargetID, userID, string(realtime.EventFriendRequest), payload)
	h.push(realtime.EventFriendRequest, req.TargetID, userID, payload)

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// Accept handles POST /api/friends/accept.
func (h *FriendsHandler) Accept(c *gin.Context) {
	userID := mw.GetUserID(c)
	start := time.Now()

	var req struct {
		RequesterID int64 `json:"requester_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.svc.Accept(c.Request.Context(), userID, req.RequesterID)
	h.logAudit(c, userID, "friends.accept", req, msg, err, start)
	if err != nil {
		h.renderError(c, err)
		return
	}

	payload := friendEventPayload{
		FromUserID: userID,
		Username:   h.username(c, userID),
	}
	h.notif.Record(c.Request.Context(), req.RequesterID, userID, string(realtime.EventFriendAccept), payload)
	h.push(realtime.EventFriendAccept, req.RequesterID, userID, payload)

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// Remove handles DELETE /api/friends/:id. The path id is the counterpart
// user; removal works in either direction and also declines a pending
// request.
func (h *FriendsHandler) Remove(c *gin.Context) {
	userID := mw.GetUserID(c)
	start := time.Now()

	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	msg, err := h.svc.Remove(c.Request.Context(), userID, targetID)
	h.logAudit(c, userID, "friends.remove", gin.H{"target_id": targetID}, msg, err, start)
	if err != nil {
		h.renderError(c, err)
		return
	}

	h.push(realtime.EventFriendRemove, targetID, userID, friendEventPayload{FromUserID: userID})

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// push dispatches a friend event; offline targets are a successful no-op.
func (h *FriendsHandler) push(kind realtime.EventKind, target, from int64, payload friendEventPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = h.disp.Notify(&realtime.Event{
		Kind:    kind,
		Target:  target,
		From:    from,
		Payload: data,
	})
}

func (h *FriendsHandler) username(c *gin.Context, userID int64) string {
	var u model.User
	if err := h.db.First(&u, userID).Error; err != nil {
		return ""
	}
	return u.Username
}

func (h *FriendsHandler) logAudit(c *gin.Context, userID int64, action string, req, resp interface{}, err error, start time.Time) {
	if h.auditSvc == nil {
		return
	}
	entry := audit.Entry{
		TraceID:    mw.GetTraceID(c),
		UserID:     &userID,
		Action:     action,
		Request:    req,
		Response:   resp,
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	h.auditSvc.Log(entry)
}

// renderError maps friends service errors to HTTP responses.
func (h *FriendsHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, friends.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, friends.ErrSelfRelation):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	case errors.Is(err, friends.ErrAlreadyRelated), errors.Is(err, friends.ErrAlreadyAccepted):
		c.JSON(http.StatusNotAcceptable, gin.H{"error": err.Error()})
	case errors.Is(err, friends.ErrNoSuchRequest), errors.Is(err, friends.ErrNoSuchRelationship):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
	}
}

func emptyIfNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
