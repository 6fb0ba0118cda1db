package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal-subscription-be/internal/bootstrap"
	"meal-subscription-be/internal/config"
	"meal-subscription-be/internal/server"
	"meal-subscription-be/internal/tracer"
	"meal-subscription-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if cfg.App.JwtSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	shutdownTracer := tracer.InitTracer(cfg.Tracing)
	defer shutdownTracer(context.Background())

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	go container.WebSocketHub.Run(ctx)

	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Printf("Background Consumer Error: %v", err)
	}
	if err := container.NotificationService.Start(); err != nil {
		log.Printf("Notification service not started: %v", err)
	}
	container.ResyncWorker.Start(ctx)
	container.AckService.Start(ctx)

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	container.AckService.Stop()
	container.ResyncWorker.Stop()
	container.PromptDispatcher.Close()

	// last chance to push locally buffered writes
	if n, err := container.Gateway.Resync(shutdownCtx); err != nil {
		log.Printf("Final resync left writes pending: %v", err)
	} else if n > 0 {
		log.Printf("Final resync pushed %d writes", n)
	}
}
