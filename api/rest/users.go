package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hoshinoya/ponghub/server/model"
	"github.com/hoshinoya/ponghub/server/realtime"
	"gorm.io/gorm"
)

// UsersHandler exposes the user directory.
type UsersHandler struct {
	db  *gorm.DB
	reg *realtime.Registry
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(db *gorm.DB, reg *realtime.Registry) *UsersHandler {
	return &UsersHandler{db: db, reg: reg}
}

// List handles GET /api/users.
func (h *UsersHandler) List(c *gin.Context) {
	var users []model.User
	if err := h.db.Order("username").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var user model.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":   user,
		"online": h.reg.IsOnline(user.ID),
	})
}

// Online handles GET /api/users/online.
func (h *UsersHandler) Online(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"count": h.reg.Count(),
		"ids":   h.reg.Online(),
	})
}
