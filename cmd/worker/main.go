package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/atelierhq/atelier/internal/config"
	"github.com/atelierhq/atelier/services"
	"github.com/atelierhq/atelier/workers"
)

func main() {
	log.Println("Starting event worker...")

	// Load Config
	configPath := os.Getenv("ATELIER_CONFIG_PATH")

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if config.App.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable (or config) is required")
	}
	if config.App.RedisURL == "" {
		log.Fatal("REDIS_URL environment variable (or config) is required")
	}

	pg, err := sql.Open("postgres", config.App.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	if err := pg.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	opt, err := redis.ParseURL(config.App.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shut down cleanly on interrupt
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("Shutting down event worker...")
		cancel()
	}()

	worker := workers.NewEventWorker(pg, rdb, services.EventsChannel)
	if err := worker.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Event worker stopped: %v", err)
	}
}
