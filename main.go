package main

import (
	"context"
	"log"
	"net/http"

	"github.com/seeclickbuy/backend/api"
	"github.com/seeclickbuy/backend/clicks"
	"github.com/seeclickbuy/backend/config"
	"github.com/seeclickbuy/backend/describe"
	"github.com/seeclickbuy/backend/logger"
	"github.com/seeclickbuy/backend/queue"
	"github.com/seeclickbuy/backend/search"
	"github.com/seeclickbuy/backend/store"
)

func main() {
	config.LoadConfig()

	lg, err := logger.New(config.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer lg.Sync()

	ctx := context.Background()

	db, err := store.Connect(ctx, config.MongoURI, config.DBName)
	if err != nil {
		lg.Fatal("failed to connect to MongoDB", "error", err)
	}

	jobs, err := queue.NewRedis(config.RedisAddr, "", lg)
	if err != nil {
		lg.Fatal("failed to connect to Redis", "error", err)
	}

	gemini, err := describe.NewGemini(ctx, config.GeminiAPIKey, config.GeminiModel)
	if err != nil {
		lg.Fatal("failed to build Gemini client", "error", err)
	}
	descriptions := describe.NewService(gemini, lg)

	searcher := search.New(config.SerpAPIKey, db, lg)
	svc := clicks.NewService(db, jobs, descriptions, searcher, lg)

	mux := http.NewServeMux()
	api.NewHandler(svc, lg).Register(mux)

	// CORS Middleware
	corsMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	lg.Info("server starting", "port", config.Port)
	if err := http.ListenAndServe(":"+config.Port, corsMiddleware(mux)); err != nil {
		lg.Fatal("server failed to start", "error", err)
	}
}
