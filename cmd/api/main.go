package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"absensi/internal/activity"
	"absensi/internal/auth"
	"absensi/internal/config"
	"absensi/internal/httpapi"
	"absensi/internal/ledger"
	"absensi/internal/scan"
	"absensi/internal/store"
	"absensi/internal/student"
	"absensi/internal/token"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func run(cfg config.App) error {
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.EnsureSchema(schemaCtx); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	feed := activity.NewFeed(redisClient.Client, "absensi:recent", cfg.ActivityFeedLen)

	codec := token.NewCodec(cfg.QRSigningKey)
	students := student.NewPostgresRepository(db.Client, cfg.StorageTimeout)
	records := ledger.NewService(ledger.NewPostgresRepository(db.Client, cfg.StorageTimeout))
	pipeline := scan.NewService(codec, students, records, feed)
	gate := auth.NewGate(
		auth.NewPostgresUserRepository(db.Client, cfg.StorageTimeout),
		auth.HasherFor(cfg.PasswordHasher),
		cfg.JWTSigningKey, cfg.JWTIssuer, cfg.SessionTTL,
	)

	server := httpapi.New(cfg, db, redisClient, codec, students, records, pipeline, gate, feed)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
