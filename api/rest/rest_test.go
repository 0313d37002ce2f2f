package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hoshinoya/ponghub/server/cache"
	"github.com/hoshinoya/ponghub/server/config"
	"github.com/hoshinoya/ponghub/server/friends"
	mw "github.com/hoshinoya/ponghub/server/middleware"
	"github.com/hoshinoya/ponghub/server/notify"
	"github.com/hoshinoya/ponghub/server/realtime"
	"github.com/hoshinoya/ponghub/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "rest-test-secret"

func nopLogger() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

// testEnv wires the REST surface over an in-memory DB and local cache the
// same way main does, minus rate limiting and audit.
type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	cache  cache.Cache
	reg    *realtime.Registry
	notif  *notify.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	logger := nopLogger()
	sec := config.SecurityConfig{JWTSecret: testSecret, JWTTTLH: time.Hour}

	reg := realtime.NewRegistry(logger)
	disp := realtime.NewDispatcher(reg, logger)
	friendsSvc := friends.NewService(friends.NewGormStore(db), friends.NewGormDirectory(db), logger)
	notifSvc := notify.NewService(db, logger)

	authH := NewAuthHandler(db, c, sec)
	usersH := NewUsersHandler(db, reg)
	friendsH := NewFriendsHandler(db, friendsSvc, reg, disp, notifSvc, nil)
	notifH := NewNotificationsHandler(notifSvc)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/login", authH.Login)
	api.POST("/auth/logout", mw.Auth(sec, c), authH.Logout)
	api.POST("/auth/refresh", mw.Auth(sec, c), authH.Refresh)

	authed := api.Group("")
	authed.Use(mw.Auth(sec, c))
	authed.GET("/users", usersH.List)
	authed.GET("/users/online", usersH.Online)
	authed.GET("/users/:id", usersH.Get)
	authed.GET("/friends", friendsH.List)
	authed.GET("/friends/pending", friendsH.ListPending)
	authed.GET("/friends/waiting", friendsH.ListWaiting)
	authed.POST("/friends/request", friendsH.Request)
	authed.POST("/friends/accept", friendsH.Accept)
	authed.DELETE("/friends/:id", friendsH.Remove)
	authed.GET("/notifications", notifH.List)
	authed.POST("/notifications/:id/ack", notifH.Ack)

	return &testEnv{router: r, db: db, cache: c, reg: reg, notif: notifSvc}
}

// do performs a request with an optional bearer token and JSON body.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// login authenticates (auto-registering on first call) and returns the
// token and user id.
func (e *testEnv) login(t *testing.T, username, password string) (string, int64) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token  string `json:"token"`
		UserID int64  `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.UserID
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}
