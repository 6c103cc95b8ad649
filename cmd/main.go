package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"nativeteacher/backend/internal/api/handler"
	"nativeteacher/backend/internal/config"
	"nativeteacher/backend/internal/conversation"
	"nativeteacher/backend/internal/dispatch"
	"nativeteacher/backend/internal/match"
	"nativeteacher/backend/internal/messenger"
	"nativeteacher/backend/internal/models"
	"nativeteacher/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupDependencies opens the process-wide Postgres and Redis handles and
// runs migrations. Connections live for the whole process; nothing opens a
// fresh connection per operation.
func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.UserProfile{},
		&models.Match{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting Native Teacher backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	cfg := config.Load()
	if cfg.PageAccessToken == "" {
		log.Fatal("PAGE_ACCESS_TOKEN is not set!")
	}
	if cfg.VerificationToken == "" {
		log.Fatal("VERIFICATION_TOKEN is not set!")
	}

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	machine := conversation.NewMachine(cfg.Languages)
	engine := match.NewEngine(s)
	client := messenger.NewClient(cfg.PageAccessToken)
	limiter := dispatch.NewLimiterStore(config.SenderEventsPerMinute, config.SenderEventBurst, config.LimiterCleanupPeriod)

	dispatcher := dispatch.NewDispatcher(s, machine, engine, client, client, limiter)

	r := gin.Default()
	h := handler.NewHandler(dispatcher, s, cfg.VerificationToken, cfg.AdminSecret, cfg.JWTSecret)

	r.GET("/webhook", h.VerifyWebhook)
	r.POST("/webhook", h.ReceiveWebhook)
	r.POST("/admin/login", h.AdminLogin)
	r.GET("/admin/stats", h.AdminAuth, h.AdminStats)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Printf("Webhook is listening on :%s", cfg.Port)
	log.Fatal(server.ListenAndServe())
}
