package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bokbank/server/internal/config"
	"github.com/bokbank/server/internal/domain"
	"github.com/bokbank/server/internal/messaging"
	"github.com/bokbank/server/internal/server"
	"github.com/bokbank/server/internal/store"
)

func main() {
	// Load .env if present; real environment variables take precedence.
	_ = godotenv.Load()
	cfg := config.Load()

	registry := store.NewRegistry(cfg.DataDir)
	defer registry.Close()
	log.Printf("partition registry initialized, data dir %s", cfg.DataDir)

	// Event publishing is optional: without a broker URL transfers still
	// work, they just aren't announced.
	var publisher domain.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		p, err := messaging.NewPublisher(cfg.RabbitMQ)
		if err != nil {
			log.Fatalf("failed to connect event publisher: %v", err)
		}
		defer p.Close()
		publisher = p
		log.Printf("event publisher connected, exchange %s", cfg.RabbitMQ.Exchange)
	}

	transferService := domain.NewTransferService(registry, publisher)

	srv := server.New(registry, transferService)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Router(),
	}

	go func() {
		log.Printf("ledger server starting on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := registry.Close(); err != nil {
		log.Printf("registry close: %v", err)
	}
	log.Println("server stopped")
}
