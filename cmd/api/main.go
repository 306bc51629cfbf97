package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/strovahq/challenge-engine/internal/adapters/cache"
	adapterHTTP "github.com/strovahq/challenge-engine/internal/adapters/handler/http"
	"github.com/strovahq/challenge-engine/internal/adapters/repository"
	"github.com/strovahq/challenge-engine/internal/core/services"
	"github.com/strovahq/challenge-engine/internal/core/workers"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	startTime := time.Now()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	serverPort := getEnv("PORT", "8080")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("Critical: JWT_SECRET is not set")
	}
	jwtIssuer := getEnv("JWT_ISSUER", "challenge-engine")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPass, dbHost, dbPort, dbName)

	log.Println("Connecting to database...")

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		log.Fatalf("Critical: Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Println("Database connected successfully.")

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisClient, err := cache.NewRedisClient(
		getEnv("REDIS_HOST", "localhost"),
		getEnv("REDIS_PORT", "6379"),
		os.Getenv("REDIS_PASSWORD"),
		redisDB,
	)
	if err != nil {
		// The engine recomputes boards on demand; run degraded without
		// the cache and the rate limiter instead of refusing to start.
		log.Printf("Warning: redis unavailable, leaderboard cache disabled: %v", err)
		redisClient = nil
	}

	userRepo := repository.NewPostgresUserRepository(db.DB)
	habitRepo := repository.NewPostgresHabitRepository(db)
	entryRepo := repository.NewPostgresEntryRepository(db)
	challengeRepo := repository.NewPostgresChallengeRepository(db)
	participantRepo := repository.NewPostgresParticipantRepository(db)
	milestoneRepo := repository.NewPostgresMilestoneRepository(db)

	var boardCache services.BoardCache
	var boardInvalidator services.BoardInvalidator
	if redisClient != nil {
		c := cache.NewRedisLeaderboardCache(redisClient)
		boardCache = c
		boardInvalidator = c
	}

	authService := services.NewAuthService(userRepo)
	tokenService := services.NewTokenService(jwtSecret, jwtIssuer, 24*time.Hour, userRepo)
	habitService := services.NewHabitService(habitRepo)
	challengeService := services.NewChallengeService(
		challengeRepo, participantRepo, milestoneRepo, habitRepo, entryRepo, boardInvalidator,
	)
	leaderboardService := services.NewLeaderboardService(challengeRepo, participantRepo, boardCache)
	statsService := services.NewStatsService(habitRepo, entryRepo)

	progressWorker := workers.NewProgressWorker(challengeService)
	entryService := services.NewEntryService(entryRepo, habitRepo, progressWorker)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	progressWorker.Start(workerCtx)

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:      adapterHTTP.NewAuthHandler(authService, tokenService),
		HabitHandler:     adapterHTTP.NewHabitHandler(habitService),
		EntryHandler:     adapterHTTP.NewEntryHandler(entryService),
		ChallengeHandler: adapterHTTP.NewChallengeHandler(challengeService, leaderboardService),
		StatsHandler:     adapterHTTP.NewStatsHandler(statsService),
		TokenService:     tokenService,
		DB:               db,
		Redis:            redisClient,
		StartTime:        startTime,
	})

	srv := &http.Server{
		Addr:         ":" + serverPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Challenge engine running on http://localhost:%s", serverPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Critical server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stop signal received. Shutting down...")

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced shutdown error:", err)
	}

	log.Println("Server stopped gracefully.")
}
