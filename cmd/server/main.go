package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimbly/notification-service/internal/api"
	"github.com/nimbly/notification-service/internal/config"
	"github.com/nimbly/notification-service/internal/mailer"
	"github.com/nimbly/notification-service/internal/repository/postgres"
	"github.com/nimbly/notification-service/internal/repository/rediscache"
	"github.com/nimbly/notification-service/internal/service/suppression"
	"github.com/nimbly/notification-service/internal/snswebhook"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("Nimbly Notification Service (cmd/server)")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Suppression store (PostgreSQL, required)
	if cfg.Database.URL == "" {
		log.Fatal("database.url is not configured (set DATABASE_URL)")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open suppression database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Suppression database ping failed: %v", err)
	}
	pingCancel()
	log.Println("Suppression database connected")

	var repo suppression.Repository = postgres.NewSuppressionRepo(db)

	// Optional Redis cache in front of the store
	if cfg.Redis.Enabled && cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis connection failed (%s): %v — suppression checks go straight to Postgres", cfg.Redis.Addr, err)
			rdb.Close()
		} else {
			repo = rediscache.New(repo, rdb)
			log.Printf("Redis suppression cache enabled: %s", cfg.Redis.Addr)
		}
		pingCancel()
	}

	suppressionSvc := suppression.NewService(repo)

	// Outbound email transport
	var transport mailer.Transport
	switch cfg.Transport.Provider {
	case "smtp":
		transport = mailer.NewSMTPTransport(cfg.SMTP)
		log.Printf("Email transport: SMTP relay %s", cfg.SMTP.Addr())
	default:
		sesTransport, err := mailer.NewSESTransport(ctx, cfg.SES)
		if err != nil {
			log.Fatalf("Failed to initialize SES transport: %v", err)
		}
		transport = sesTransport
		log.Printf("Email transport: SES v2 API (region %s)", cfg.SES.Region)
	}
	mailSvc := mailer.NewService(mailer.NewComposer(cfg.Email), transport, suppressionSvc)

	// SNS delivery-feedback webhook
	var processor *snswebhook.Processor
	if cfg.Webhook.Enabled {
		processor = snswebhook.NewProcessor(suppressionSvc, cfg.Webhook)
		log.Printf("SES webhook enabled at %s (verify_signature=%t, allowed_topics=%d)",
			cfg.Webhook.Path, cfg.Webhook.VerifySignature, len(cfg.Webhook.AllowedTopics))
	} else {
		log.Println("SES webhook disabled")
	}

	handlers := api.NewHandlers(mailSvc, suppressionSvc, processor)
	server := api.NewServer(cfg.Server, handlers, cfg.Webhook)

	addr := fmt.Sprintf("%s:%d", host, port)
	go func() {
		log.Printf("Listening on http://%s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received %s, shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	cancel()
	db.Close()
	log.Println("Server stopped")
}
