package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/swipehire/interview-assistant/internal/api"
	"github.com/swipehire/interview-assistant/internal/db"
	"github.com/swipehire/interview-assistant/internal/middleware"
	"github.com/swipehire/interview-assistant/internal/services"
	"github.com/swipehire/interview-assistant/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	addr := utils.SafeEnv("INTERVIEW_ADDR", ":8080")
	dbPath := utils.SafeEnv("INTERVIEW_DB", "interview.db")

	store, err := db.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Single full read of durable state; everything after is write-through.
	snapshot, err := store.LoadSnapshot()
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}
	log.Printf("Loaded %d candidate results", len(snapshot.Results))

	sessions := services.NewSessionService(store, snapshot.Session)
	candidates := services.NewCandidateService(store)
	auth := services.NewAuthService(store, middleware.SignToken)

	mux := http.NewServeMux()
	api.NewRouter(sessions, candidates, auth).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "name": "Interview Assistant API"})
	})

	handler := middleware.CORS(middleware.SecureHeaders(middleware.NoStore(middleware.WithAuth(mux))))

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Interview server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	// Auto-pause a live session so it greets the candidate as resumable on
	// the next start, and flush pending durable writes.
	sessions.Shutdown()
	log.Println("Server exiting gracefully")
}
