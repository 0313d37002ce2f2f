package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hoshinoya/ponghub/server/cache"
	"github.com/hoshinoya/ponghub/server/config"
	mw "github.com/hoshinoya/ponghub/server/middleware"
	"github.com/hoshinoya/ponghub/server/model"
	"gorm.io/gorm"
)

// Handshake failures. The caller must reject the connection on either;
// there is no fallback to an anonymous identity.
var (
	ErrAuthenticationFailed = errors.New("realtime: authentication failed")
	ErrUserNotFound         = errors.New("realtime: user not found")
)

const cacheTimeout = 2 * time.Second

// Handshake resolves a connection credential to a user identity before the
// session may be registered.
type Handshake struct {
	db    *gorm.DB
	cache cache.Cache
	sec   config.SecurityConfig
}

// NewHandshake creates a Handshake.
func NewHandshake(db *gorm.DB, c cache.Cache, sec config.SecurityConfig) *Handshake {
	return &Handshake{db: db, cache: c, sec: sec}
}

// Resolve validates token and returns the authenticated user's id and
// username. The session-cache check runs under a bounded wait; a timeout is
// an authentication failure, not a hang.
func (h *Handshake) Resolve(ctx context.Context, token string) (int64, string, error) {
	if token == "" {
		return 0, "", ErrAuthenticationFailed
	}

	claims, err := mw.ParseToken(token, h.sec.JWTSecret)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	if claims.UserID <= 0 {
		return 0, "", ErrAuthenticationFailed
	}

	cacheCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	exists, err := h.cache.Exists(cacheCtx, "session:"+token)
	if err != nil || !exists {
		return 0, "", ErrAuthenticationFailed
	}

	var user model.User
	if err := h.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, "", ErrUserNotFound
		}
		return 0, "", fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return user.ID, user.Username, nil
}
