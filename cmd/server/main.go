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

	"virallens-backend/internal/config"
	"virallens-backend/internal/database"
	"virallens-backend/internal/handlers"
	"virallens-backend/internal/middleware"
	"virallens-backend/internal/repository"
	"virallens-backend/internal/router"
	"virallens-backend/internal/services"
)

func main() {
	log.Println("🚀 Starting ViralLens Chat Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Client ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	chatRepo := repository.NewChatRepo(pool)

	// ──── Initialize Services ────
	revoker := services.NewTokenRevoker(redisClient)
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.JWTExpiresIn, userRepo, revoker)
	llmService := services.NewLLMService(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL, cfg.ClientURL, cfg.LLMTimeout)
	authService := services.NewAuthService(userRepo, jwtAuth)
	chatService := services.NewChatService(chatRepo, llmService)
	if cfg.OpenRouterAPIKey == "" {
		log.Println("⚠ OPENROUTER_API_KEY not set, chat replies will degrade")
	} else {
		log.Printf("✓ OpenRouter client initialized (%s)", cfg.OpenRouterModel)
	}

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService, cfg)
	chatHandler := handlers.NewChatHandler(chatService, cfg.IsProduction())

	// ──── Step 5: Start HTTP Server ────
	r := router.New(cfg, jwtAuth, authHandler, chatHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ ViralLens Chat Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  Auth: http://localhost:%s/api/auth", cfg.Port)
	log.Printf("  Chat: http://localhost:%s/api/chat", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
