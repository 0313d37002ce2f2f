package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	mw "github.com/hoshinoya/ponghub/server/middleware"
	"github.com/hoshinoya/ponghub/server/notify"
)

// NotificationsHandler exposes persisted notifications, the catch-up path
// for events missed while disconnected.
type NotificationsHandler struct {
	svc *notify.Service
}

// NewNotificationsHandler creates a new NotificationsHandler.
func NewNotificationsHandler(svc *notify.Service) *NotificationsHandler {
	return &NotificationsHandler{svc: svc}
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)
	rows, err := h.svc.ListFor(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": rows})
}

// Ack handles POST /api/notifications/:id/ack. Acknowledged notifications
// are deleted; there is no read/unread state.
func (h *NotificationsHandler) Ack(c *gin.Context) {
	userID := mw.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.svc.Ack(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "acknowledged"})
}
