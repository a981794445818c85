package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskhub/internal/server"
	db "taskhub/repository/db"
	inmemory "taskhub/repository/inmemory"

	"github.com/joho/godotenv"
)

// TaskService is the part of the API surface main cares about.
type TaskService interface {
	Start() error
	Shutdown(ctx context.Context) error
}

func main() {
	log.Println("Starting task service...")

	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] no .env file found; relying on existing environment")
	}

	cfg := server.ReadConfig()

	var userRepo server.UserRepository
	var taskRepo server.TaskRepository

	if err := db.Migration(cfg.DBStr, cfg.MigratePath); err != nil {
		log.Println("[WARN] failed to apply migrations:", err)
	} else {
		log.Println("[SUCCESS] migrations applied")
	}

	dbStorage, err := db.NewStorage(cfg.DBStr)
	if err != nil {
		log.Println("[WARN] database unreachable, falling back to in-memory storage:", err)
		inmem := inmemory.NewStorage()
		userRepo = inmem
		taskRepo = inmem
	} else {
		defer dbStorage.Close()
		userRepo = dbStorage
		taskRepo = dbStorage
	}

	api := server.NewTaskAPI(userRepo, taskRepo, cfg)
	if api == nil {
		log.Fatal("[ERROR] failed to initialize API")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Service listening on %s:%d", cfg.Addr, cfg.Port)
		if err := api.Start(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("[INFO] received signal %v, starting graceful shutdown...", sig)
		if err := HandleShutdown(api, sig); err != nil {
			log.Printf("[ERROR] graceful shutdown failed: %v", err)
		} else {
			log.Println("[SUCCESS] graceful shutdown complete")
		}

	case err := <-serverErr:
		log.Printf("[ERROR] server error: %v", err)
	}

	log.Println("Service stopped")
}

// HandleShutdown drains the server with a bounded timeout.
func HandleShutdown(api TaskService, _ os.Signal) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return api.Shutdown(shutdownCtx)
}
