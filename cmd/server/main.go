package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodconnect/internal/app"
	"foodconnect/internal/config"
	"foodconnect/internal/service"
	"foodconnect/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading, relying on environment variables")
	}

	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// --- Database Connection + Schema ---
	store, err := app.OpenStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// --- Services ---
	jwtUtil := utils.NewJWTUtil(cfg.JWTSecret, cfg.JWTExpHours)
	foodConnect := app.New(store.Repos, jwtUtil, store.Ping)

	if admin := cfg.InitialAdmin; admin != nil {
		user, created, err := foodConnect.Accounts.EnsureAdmin(context.Background(), service.AdminAccount{
			Name:     admin.Name,
			Email:    admin.Email,
			Password: admin.Password,
			City:     admin.City,
		})
		if err != nil {
			log.Fatalf("Failed to bootstrap admin %s: %v", admin.Email, err)
		}
		if created {
			log.Printf("Created admin account %s", user.Email)
		}
	}

	// --- Start Server ---
	srv := &http.Server{
		Addr:    cfg.HTTPAddress(),
		Handler: foodConnect.Router(cfg.CORSOrigins),
	}

	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
