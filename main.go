// main.go
// Site diary API: daily construction reports, resource memory, exports and summaries.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sitediary/ai"
	"sitediary/auth"
	"sitediary/cache"
	"sitediary/config"
	"sitediary/db"
	"sitediary/handlers"
	"sitediary/logging"
	"sitediary/middleware"
	"sitediary/service"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Info("no .env file found, using system environment variables")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("starting sitediary api",
		zap.String("environment", cfg.Server.Environment),
		zap.String("addr", cfg.Addr()),
		zap.String("store", cfg.Store.Backend),
	)

	ctx := context.Background()

	// Firebase app: Firestore backend and ID token verification
	var app *firebase.App
	if cfg.Firebase.ProjectID != "" {
		app, err = db.NewApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
		if err != nil {
			logger.Fatal("failed to initialize firebase", zap.Error(err))
		}
	}

	var store db.Store
	switch cfg.Store.Backend {
	case "memory":
		store = db.NewMemoryDB()
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		store, err = db.NewFirestoreDB(ctx, app, logger)
		if err != nil {
			logger.Fatal("failed to initialize firestore", zap.Error(err))
		}
	}
	defer store.Close()

	var verifier auth.Verifier
	if app != nil {
		fv, err := auth.NewFirebaseVerifier(ctx, app)
		if err != nil {
			logger.Fatal("failed to initialize firebase auth", zap.Error(err))
		}
		verifier = fv
	} else {
		logger.Warn("firebase project not configured; sign-in is disabled")
	}

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration)
	logger.Info("jwt manager initialized", zap.Duration("expiration", cfg.JWT.Expiration))

	// Optional completion cache and completion client
	var kv cache.KV
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable; assistant cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			kv = cache.NewRedisKV(rdb)
			logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
		}
	}
	var completer ai.Completer
	if cfg.AI.Enabled() {
		completer = ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout, logger)
		logger.Info("assistant enabled", zap.String("model", cfg.AI.Model))
	}

	// Services
	validator := service.NewValidator()
	memSvc := service.NewMemoryService(store, cfg.Memory.Debounce, logger)
	reportSvc := service.NewReportService(store, memSvc, validator, logger)
	activitySvc := service.NewActivityService(store, reportSvc, logger)
	masterSvc := service.NewMasterService(store, memSvc, validator, logger)
	assistantSvc := service.NewAssistantService(completer, kv, cfg.Redis.CacheTTL, reportSvc, logger)

	// Handlers
	sessionHandler := handlers.NewSessionHandler(store, verifier, jwtManager, logger)
	reportHandler := handlers.NewReportHandler(reportSvc, logger)
	activityHandler := handlers.NewActivityHandler(activitySvc, logger)
	memoryHandler := handlers.NewMemoryHandler(memSvc, masterSvc, logger)
	masterHandler := handlers.NewMasterHandler(masterSvc, logger)
	exportHandler := handlers.NewExportHandler(reportSvc, logger)
	assistantHandler := handlers.NewAssistantHandler(assistantSvc, logger)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := middleware.NewMetrics(registry)

	// Rate limiter
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	rateLimiter.CleanupOldLimiters(cleanupCtx)

	mux := http.NewServeMux()

	// Public routes (no authentication required)
	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/api/session", sessionHandler.CreateSession)
	mux.HandleFunc("/api/refresh", sessionHandler.RefreshToken)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Protected routes (authentication required)
	authMiddleware := middleware.AuthMiddleware(jwtManager, store, logger)
	read := func(h http.HandlerFunc) http.Handler { return authMiddleware(h) }
	write := func(h http.HandlerFunc) http.Handler { return authMiddleware(middleware.RequireVerified(h)) }

	// Reports
	mux.Handle("/api/reports", read(reportHandler.List))
	mux.Handle("/api/reports/get", read(reportHandler.Get))
	mux.Handle("/api/reports/save", write(reportHandler.Save))
	mux.Handle("/api/reports/delete", write(reportHandler.Delete))

	// Activities
	mux.Handle("/api/activities/add", write(activityHandler.Add))
	mux.Handle("/api/activities/remove", write(activityHandler.Remove))
	mux.Handle("/api/activities/move", write(activityHandler.Move))
	mux.Handle("/api/activities/check-id", read(activityHandler.CheckID))
	mux.Handle("/api/activities/set-id", write(activityHandler.SetID))
	mux.Handle("/api/activities/metrics", read(activityHandler.Metrics))

	// Resource memory
	mux.Handle("/api/memory", read(memoryHandler.Get))
	mux.Handle("/api/memory/lookup", read(memoryHandler.Lookup))
	mux.Handle("/api/memory/fill", read(memoryHandler.Fill))
	mux.Handle("/api/memory/names", write(memoryHandler.Names))
	mux.Handle("/api/memory/sync", write(memoryHandler.Sync))

	// Master data
	mux.Handle("/api/master", read(masterHandler.List))
	mux.Handle("/api/master/save", write(masterHandler.Save))
	mux.Handle("/api/master/delete", write(masterHandler.Delete))

	// Export and views
	mux.Handle("/api/export/csv", read(exportHandler.CSV))
	mux.Handle("/api/export/xlsx", read(exportHandler.XLSX))
	mux.Handle("/api/milestones", read(exportHandler.Milestones))
	mux.Handle("/api/charts/daily", read(exportHandler.Charts))

	// Assistant
	mux.Handle("/api/assistant/summary", read(assistantHandler.Summary))

	// Apply global middleware
	handler := middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(mux)
	handler = rateLimiter.Middleware()(handler)
	handler = httpMetrics.Middleware(logger)(handler)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AI.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	memSvc.Close(shutdownCtx)

	logger.Info("server stopped gracefully")
}
