// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atlasschools/finboard-go/internal/application/container"
	"github.com/atlasschools/finboard-go/internal/presentation/http/server"
	"github.com/atlasschools/finboard-go/pkg/config"
)

// Initialize performs the complete startup sequence and blocks until
// shutdown.
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("Initializing dependency injection container...")
	appContainer, err := container.NewContainer()
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer appContainer.Close()

	logger := appContainer.Logger
	logger.Startup().Info("Container initialization complete - switching to channeled logging")

	// Background workers: websocket fan-out and the periodic refresh loop.
	go appContainer.Hub.Run(ctx)
	appContainer.RefreshService.Start(ctx)
	logger.Startup().Info("Background refresh scheduler started", "interval", config.RefreshInterval)

	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start), "port", config.Port)

	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received")

	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Shutdown().Info("Shutdown complete")
	return nil
}

func setupLogging() {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
}
