package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"artmarket/backend/internal/api/handler"
	"artmarket/backend/internal/chathub"
	"artmarket/backend/internal/config"
	"artmarket/backend/internal/directory"
	"artmarket/backend/internal/logger"
	"artmarket/backend/internal/models"
	"artmarket/backend/internal/presence"
	"artmarket/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("failed to connect Redis: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Message{}); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	return db, rdb
}

func main() {
	cfg := config.Load()

	zl, err := logger.Init(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	// Each instance carries its own id so Redis fan-out can skip self-echo.
	instanceID := uuid.New().String()

	tracker := presence.NewTracker()
	hub := chathub.NewManagerService(s, tracker, instanceID)

	go hub.Run()
	hub.StartPubSubListener()
	hub.StartSweeper(config.PresenceSweepInterval, config.InactivityThreshold)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	h := handler.NewHandler(hub, s, directory.NewService(s), cfg)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	logger.Log.Info("messaging service listening",
		zap.String("addr", cfg.ListenAddr), zap.String("instance_id", instanceID))
	log.Fatal(server.ListenAndServe())
}
