package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/tourbook/internal/events"
	"github.com/yourorg/tourbook/internal/handler"
	"github.com/yourorg/tourbook/internal/infrastructure/cloudinary"
	"github.com/yourorg/tourbook/internal/infrastructure/logger"
	"github.com/yourorg/tourbook/internal/infrastructure/mailer"
	redisclient "github.com/yourorg/tourbook/internal/infrastructure/redis"
	"github.com/yourorg/tourbook/internal/infrastructure/strapi"
	"github.com/yourorg/tourbook/internal/observability/metrics"
	"github.com/yourorg/tourbook/internal/observability/tracing"
	"github.com/yourorg/tourbook/internal/repository"
	"github.com/yourorg/tourbook/internal/security/audit"
	"github.com/yourorg/tourbook/internal/security/auth"
	"github.com/yourorg/tourbook/internal/security/middleware"
	"github.com/yourorg/tourbook/internal/security/ratelimit"
	"github.com/yourorg/tourbook/internal/service"
	"github.com/yourorg/tourbook/internal/worker"
	"github.com/yourorg/tourbook/pkg/config"
	"github.com/yourorg/tourbook/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting tourbook server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op without an OTLP endpoint configured)
	shutdownTracing, err := tracing.Init(ctx, log, "tourbook", cfg.Environment)
	if err != nil {
		log.Warn("tracing init failed, continuing without", slog.String("error", err.Error()))
	}

	// 4. Tag cache over Redis
	redisClient, err := redisclient.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 5. Intent journal database
	pool, err := database.NewConnectionPool(ctx, &cfg.Database, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Store clients
	blobStore, err := cloudinary.NewClient(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, log)
	if err != nil {
		log.Error("failed to initialize blob store client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	refStore, err := strapi.NewClient(cfg.StrapiHost, cfg.StrapiToken, redisClient, time.Duration(cfg.CacheTTLSecs)*time.Second, log)
	if err != nil {
		log.Error("failed to initialize reference store client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	resendMailer, err := mailer.New(cfg.ResendAPIKey, log)
	if err != nil {
		log.Error("failed to initialize mailer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. Repositories, events, services
	intentRepo := repository.NewPostgresIntentRepository(pool.GetDB(), log)
	hub := events.NewHub()

	documentService := service.NewDocumentService(blobStore, refStore, refStore, intentRepo, hub, log, cfg)
	reservationService := service.NewReservationService(refStore, refStore, hub, log, cfg)
	tourService := service.NewTourService(refStore, log)
	quoteService := service.NewQuoteService(resendMailer, log, cfg)

	// 8. Security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "tourbook")
	rateLimiter := ratelimit.NewLimiter(100, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 9. Handlers and routes
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)

	mux := http.NewServeMux()
	mux.Handle("POST /api/documents/upload", handler.NewUploadHandler(documentService, auditLogger, log, cfg))
	mux.Handle("POST /api/documents/view", handler.NewViewHandler(documentService, auditLogger, log))
	mux.Handle("DELETE /api/documents/delete", handler.NewDeleteHandler(documentService, auditLogger, log))
	mux.Handle("GET /api/user/documents", handler.NewDocumentsHandler(documentService, log))
	mux.Handle("GET /api/documents/proxy", handler.NewProxyHandler(documentService, auditLogger, log))

	reservationsHandler := handler.NewReservationsHandler(reservationService, log)
	mux.Handle("POST /api/reservations", reservationsHandler)
	mux.Handle("GET /api/reservations", reservationsHandler)
	mux.Handle("GET /api/reservations/{id}", reservationsHandler)
	mux.Handle("POST /api/reservations/{id}/sign", handler.NewSignContractHandler(reservationService, auditLogger, log, cfg))

	toursHandler := handler.NewToursHandler(tourService, log)
	mux.Handle("GET /api/tours", toursHandler)
	mux.Handle("GET /api/tours/destination/{destination}", toursHandler)
	mux.Handle("POST /api/quotes", handler.NewQuoteHandler(quoteService, log))

	mux.Handle("GET /ws/ops/events", handler.NewOpsEventsHandler(hub, log, cfg.CORSAllowedOrigins))

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> audit -> rate limit -> JWT -> CORS
	rootHandler := withRequestID(
		middleware.AuditMiddleware(auditLogger)(
			middleware.RateLimitMiddleware(rateLimiter, log)(
				middleware.JWTMiddleware(tokenManager, log)(handlerWithCORS),
			),
		),
		log,
	)
	rootHandler = metrics.HTTPMetricsMiddleware(rootHandler)
	rootHandler = otelhttp.NewHandler(rootHandler, "tourbook")

	// 10. Start orphan sweep worker
	sweepWorker := worker.NewSweepWorker(
		intentRepo,
		blobStore,
		hub,
		log,
		time.Duration(cfg.SweepIntervalMinutes)*time.Minute,
		time.Duration(cfg.IntentStaleMinutes)*time.Minute,
	)
	go sweepWorker.Start(ctx)

	// 11. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("strapi_host", cfg.StrapiHost),
		slog.Int64("max_upload_bytes", cfg.MaxUploadBytes),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	rateLimiter.Stop()
	if shutdownTracing != nil {
		_ = shutdownTracing(context.Background())
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
