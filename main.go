package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/hoshinoya/ponghub/server/api/rest"
	"github.com/hoshinoya/ponghub/server/api/sse"
	apows "github.com/hoshinoya/ponghub/server/api/ws"
	"github.com/hoshinoya/ponghub/server/audit"
	"github.com/hoshinoya/ponghub/server/cache"
	"github.com/hoshinoya/ponghub/server/config"
	dbadapter "github.com/hoshinoya/ponghub/server/db"
	"github.com/hoshinoya/ponghub/server/friends"
	mw "github.com/hoshinoya/ponghub/server/middleware"
	"github.com/hoshinoya/ponghub/server/model"
	"github.com/hoshinoya/ponghub/server/notify"
	"github.com/hoshinoya/ponghub/server/realtime"
	"github.com/hoshinoya/ponghub/server/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "" {
		logger.Warn("security.jwt_secret is not set; tokens are signed with an empty key")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// Everyone is offline after a restart; the registry starts empty.
	if err := db.Model(&model.User{}).
		Where("status <> ?", model.StatusOffline).
		Update("status", model.StatusOffline).Error; err != nil {
		logger.Warn("presence reset failed", zap.Error(err))
	}

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Core services ----
	registry := realtime.NewRegistry(logger)
	dispatcher := realtime.NewDispatcher(registry, logger)
	handshake := realtime.NewHandshake(db, c, cfg.Security)

	friendsSvc := friends.NewService(
		friends.NewGormStore(db),
		friends.NewGormDirectory(db),
		logger,
	)
	notifySvc := notify.NewService(db, logger)

	// ---- Periodic tasks ----
	if cfg.Notify.RetentionDays > 0 {
		retention := time.Duration(cfg.Notify.RetentionDays) * 24 * time.Hour
		sched.AddTicker("notification_purge", time.Hour, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n, err := notifySvc.PurgeOlderThan(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Error("notification purge failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("notifications purged", zap.Int64("count", n))
			}
		})
	}

	// ---- WS Router ----
	wsRouter := apows.NewRouter(logger)
	ph := apows.NewPresenceHandlers(db, dispatcher, logger)
	ph.RegisterHandlers(wsRouter)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	usersH := apirest.NewUsersHandler(db, registry)
	friendsH := apirest.NewFriendsHandler(db, friendsSvc, registry, dispatcher, notifySvc, auditSvc)
	notifH := apirest.NewNotificationsHandler(notifySvc)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		usersG := api.Group("/users")
		usersG.Use(mw.Auth(cfg.Security, c))
		usersG.GET("", usersH.List)
		usersG.GET("/online", usersH.Online)
		usersG.GET("/:id", usersH.Get)

		friendsG := api.Group("/friends")
		friendsG.Use(mw.Auth(cfg.Security, c))
		friendsG.GET("", friendsH.List)
		friendsG.GET("/pending", friendsH.ListPending)
		friendsG.GET("/waiting", friendsH.ListWaiting)
		friendsG.POST("/request", friendsH.Request)
		friendsG.POST("/accept", friendsH.Accept)
		friendsG.DELETE("/:id", friendsH.Remove)

		notifG := api.Group("/notifications")
		notifG.Use(mw.Auth(cfg.Security, c))
		notifG.GET("", notifH.List)
		notifG.POST("/:id/ack", notifH.Ack)
	}

	// ---- WebSocket ----
	wsH := apows.NewHandler(db, handshake, registry, dispatcher, cfg.Security, wsRouter, logger)
	r.GET("/ws", wsH.ServeWS)

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
