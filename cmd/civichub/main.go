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

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/civichub/civichub/internal/adapter/fs"
	"github.com/civichub/civichub/internal/adapter/fsm"
	"github.com/civichub/civichub/internal/adapter/otel"
	"github.com/civichub/civichub/internal/adapter/river"
	"github.com/civichub/civichub/internal/adapter/sqlite"
	"github.com/civichub/civichub/internal/app"
	"github.com/civichub/civichub/internal/domain"

	handler "github.com/civichub/civichub/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	port := envOrDefault("PORT", "3000")
	dbPath := envOrDefault("DATABASE_PATH", "civichub.db")
	uploadsDir := envOrDefault("UPLOADS_DIR", "uploads")
	strictStatus := os.Getenv("STRICT_STATUS") == "true"

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	defer store.Close()

	files, err := fs.New(uploadsDir)
	if err != nil {
		return fmt.Errorf("uploads dir: %w", err)
	}

	queue, err := river.Setup(ctx, db)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := queue.Stop(stopCtx); err != nil {
			log.Printf("river stop: %v", err)
		}
	}()

	publisher := otel.NewTracingPublisher(river.NewPublisher(queue))
	complaints := otel.NewTracingComplaintRepository(store)
	timeline := otel.NewTracingTimelineRepository(store)

	var validator domain.TransitionValidator
	if strictStatus {
		validator = fsm.New()
	}

	// --- Application ---
	svc := app.NewComplaintService(complaints, timeline, store, files, publisher, validator)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(otelchi.Middleware("civichub", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("civichub", "0.1.0"))
	handler.Register(api, svc)
	handler.RegisterUploads(router, files.Dir())

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("civichub listening on :%s", port)
		log.Printf("API docs: http://localhost:%s/docs", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Println("stopped")
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
