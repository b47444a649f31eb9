package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aarav0180/aven-backend/internal/config"
	"github.com/aarav0180/aven-backend/internal/handlers"
	"github.com/aarav0180/aven-backend/internal/i18n"
	"github.com/aarav0180/aven-backend/internal/middleware"
	"github.com/aarav0180/aven-backend/internal/services/ai"
	"github.com/aarav0180/aven-backend/internal/services/cache"
	"github.com/aarav0180/aven-backend/internal/services/embedding"
	"github.com/aarav0180/aven-backend/internal/services/mailer"
	"github.com/aarav0180/aven-backend/internal/services/retrieval"
	"github.com/aarav0180/aven-backend/internal/services/storage"
	"github.com/aarav0180/aven-backend/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting Aven support backend...")

	// Initialize storage
	storageManager, err := storage.NewManager(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}

	// Initialize response cache
	responseCache := cache.New(cfg.Cache.File, cfg.Cache.TTL, log)

	// Initialize metrics
	metrics := middleware.NewMetrics()

	// Initialize model providers in fallback order
	providers := buildProviders(cfg, log)
	invoker := ai.NewInvoker(providers, cfg.Models.Timeout, metrics, log)

	// Initialize retrieval and embedding
	retriever := retrieval.NewPineconeRetriever(
		cfg.Retrieval.Endpoint,
		cfg.Retrieval.APIKey,
		cfg.Retrieval.TopK,
		&http.Client{Timeout: cfg.Retrieval.Timeout},
		storageManager,
		log,
	)
	embedder := embedding.NewHTTPEmbedder(
		cfg.Embedding.URL,
		cfg.Embedding.Token,
		cfg.Embedding.Dimension,
		&http.Client{Timeout: cfg.Embedding.Timeout},
		log,
	)

	// Initialize email notifier with sender fallback
	notifier := mailer.NewNotifier(
		[]mailer.Sender{
			mailer.NewSendGridSender(cfg.Email.SendGridAPIKey, "", &http.Client{Timeout: cfg.Email.Timeout}),
			mailer.NewSMTPSender(cfg.Email.SMTP.Host, cfg.Email.SMTP.Port, cfg.Email.SMTP.Password),
		},
		cfg.Email.SenderEmail,
		cfg.Email.SupportEmail,
		log,
	)

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg, log)

	// Initialize i18n
	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Start metrics server if enabled
	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Initialize handlers
	chatHandler := handlers.NewChatHandler(
		cfg,
		responseCache,
		retriever,
		embedder,
		invoker,
		notifier,
		storageManager,
		rateLimiter,
		localizer,
		metrics,
		log,
	)
	cacheAdmin := handlers.NewCacheAdminHandler(responseCache, log)

	// Setup routes
	router := mux.NewRouter()
	router.HandleFunc("/api/chat", chatHandler.HandleChat).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/cache/stats", cacheAdmin.HandleStats).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/cache/clear", cacheAdmin.HandleClear).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/cache/clear-expired", cacheAdmin.HandleClearExpired).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/health", handlers.HandleHealth).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Periodically sweep expired cache entries
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go startCacheSweep(sweepCtx, responseCache, log)

	// Wait for shutdown signal
	<-sigChan
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	log.Info("Server stopped")
}

// buildProviders constructs the provider chain from configuration,
// preserving endpoint order.
func buildProviders(cfg *config.Config, log *logrus.Logger) []ai.Provider {
	client := &http.Client{Timeout: cfg.Models.Timeout}

	var providers []ai.Provider
	for _, ep := range cfg.Models.Endpoints {
		switch ep.Kind {
		case "gemini":
			providers = append(providers, ai.NewGemini(ep.Name, ep.BaseURL, ep.APIKey, ep.Model, client, log))
		case "openrouter":
			providers = append(providers, ai.NewOpenRouter(ep.Name, ep.BaseURL, ep.APIKey, ep.Model, client, log))
		}
	}
	return providers
}

// startCacheSweep drops expired cache entries in the background
func startCacheSweep(ctx context.Context, responseCache *cache.ResponseCache, log *logrus.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := responseCache.ClearExpired(); removed > 0 {
				log.WithField("removed", removed).Info("Expired cache entries cleared")
			}
		}
	}
}
