package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/logging"
	"github.com/dukerupert/bywater/internal/push"
	"github.com/dukerupert/bywater/internal/server"
)

func main() {
	port := os.Getenv("BYWATER_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("BYWATER_DB_PATH")
	if dbPath == "" {
		dbPath = "bywater.db"
	}

	logger := logging.Setup(os.Getenv("BYWATER_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("BYWATER_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("BYWATER_VAPID_PRIVATE_KEY"),
		Subscriber:      os.Getenv("BYWATER_PUSH_SUBSCRIBER"),
	}

	srv := server.New(db, pushCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.FeedSyncer().Start(ctx)
	defer srv.FeedSyncer().Stop()

	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	} else {
		logger.Info("push reminders disabled, VAPID keys not configured")
	}

	// Periodic cleanup of expired rate limiter entries.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Bywater running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
