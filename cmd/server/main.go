package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/ielts-prep/backend/internal/auth"
	"github.com/ielts-prep/backend/internal/coach"
	"github.com/ielts-prep/backend/internal/config"
	"github.com/ielts-prep/backend/internal/content"
	"github.com/ielts-prep/backend/internal/database"
	"github.com/ielts-prep/backend/internal/events"
	"github.com/ielts-prep/backend/internal/gamification"
	"github.com/ielts-prep/backend/internal/middleware"
	"github.com/ielts-prep/backend/internal/models"
	"github.com/ielts-prep/backend/internal/practice"
	"github.com/ielts-prep/backend/internal/sessions"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

const resultCacheTTL = 24 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	corpus, err := loadCorpus(cfg.ContentPath)
	if err != nil {
		log.Fatalf("Failed to load content: %v", err)
	}

	publisher, err := events.NewEventPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		log.Fatalf("Failed to connect to message broker: %v", err)
	}
	defer publisher.Close()

	// Initialize services
	gamService := gamification.NewService(gamification.NewStore(db))

	registry := sessions.NewRegistry(cfg.SessionTTL)
	go registry.RunSweeper(ctx, time.Minute)

	practiceService := sessions.NewService(corpus, registry, resultCache(ctx, cfg))
	practiceService.SetRecorder(gamService)
	practiceService.SetPublisher(publisher)
	practiceService.SetCoach(coach.NewFromSettings(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.MockCoach))

	// Initialize handlers
	authHandler := auth.NewHandler(db, []byte(cfg.JWTSecret))
	gamHandler := gamification.NewHandler(gamService)
	practiceHandler := sessions.NewHandler(practiceService)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.AccessLog)
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth([]byte(cfg.JWTSecret)))
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/gamification", gamHandler.GetGamification).Methods("GET")
	protected.HandleFunc("/leaderboard", gamHandler.GlobalLeaderboard).Methods("GET")
	practiceHandler.Register(protected)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
}

// loadCorpus reads the corpus and reports every set that fails
// normalization. Broken sets stay in the corpus; starting one answers 422.
func loadCorpus(path string) (*content.Corpus, error) {
	var corpus *content.Corpus
	if path == "" {
		corpus = content.Default()
		log.Println("[content] using embedded corpus")
	} else {
		var err error
		if corpus, err = content.Load(path); err != nil {
			return nil, err
		}
		log.Printf("[content] loaded %s", path)
	}

	valid, broken := 0, 0
	err := corpus.Each(func(passageID string, set models.QuestionSetContent) error {
		if _, err := practice.Normalize(set); err != nil {
			broken++
			log.Printf("[content] passage %s: %v", passageID, err)
			return nil
		}
		valid++
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[content] %d question sets ready, %d malformed", valid, broken)
	return corpus, nil
}

func resultCache(ctx context.Context, cfg config.Config) sessions.ResultCache {
	if cfg.RedisAddr == "" {
		log.Println("[sessions] REDIS_ADDR is empty, caching results in memory")
		return sessions.NewMemoryCache(resultCacheTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("[sessions] redis at %s unreachable (%v), caching results in memory", cfg.RedisAddr, err)
		client.Close()
		return sessions.NewMemoryCache(resultCacheTTL)
	}
	log.Printf("[sessions] caching results in redis at %s", cfg.RedisAddr)
	return sessions.NewRedisCache(client, resultCacheTTL)
}
