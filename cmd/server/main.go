package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/chenwei-lan/ledger-service/internal/cache"
	"github.com/chenwei-lan/ledger-service/internal/events"
	"github.com/chenwei-lan/ledger-service/internal/events/kafka"
	"github.com/chenwei-lan/ledger-service/internal/handler"
	"github.com/chenwei-lan/ledger-service/internal/models"
	"github.com/chenwei-lan/ledger-service/internal/repository"
	"github.com/chenwei-lan/ledger-service/internal/service"
)

type Config struct {
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	ServerPort    string
	RedisAddr     string
	RedisPassword string
	KafkaBrokers  string
	HistoryTTL    time.Duration
}

func main() {
	// Initialise logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration, .env first when present
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded configuration from .env")
	}
	config := loadConfig()

	// Connect to the database
	db, err := connectDB(config)
	if err != nil {
		logger.Error("failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database successfully")

	// Optional transaction-history cache
	var history *cache.ViewCache[[]*models.Transaction]
	if config.RedisAddr != "" {
		redisClient, err := cache.NewClient(config.RedisAddr, config.RedisPassword, 0)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err.Error())
			os.Exit(1)
		}
		defer redisClient.Close()
		history = cache.NewViewCache[[]*models.Transaction](redisClient.Client, config.HistoryTTL)
		logger.Info("transaction history cache enabled", "addr", config.RedisAddr)
	}

	// Optional transfer event publisher
	var publisher events.Publisher = events.NopPublisher{}
	if config.KafkaBrokers != "" {
		kafkaPublisher := kafka.NewPublisher(strings.Split(config.KafkaBrokers, ","))
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("transfer event publishing enabled", "brokers", config.KafkaBrokers)
	}

	// Initialise repositories
	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	txRunner := repository.NewTxRunner(db)

	// Initialise services
	accountService := service.NewAccountService(accountRepo, transactionRepo, txRunner, history, logger)
	transferService := service.NewTransferService(txRunner, accountRepo, transactionRepo, publisher, history, logger)

	// Initialise handlers
	accountHandler := handler.NewAccountHandler(accountService, logger)
	transferHandler := handler.NewTransferHandler(transferService, logger)

	// Setup router
	router := mux.NewRouter()

	// Register routes under /api
	api := router.PathPrefix("/api").Subrouter()
	accountHandler.RegisterRoutes(api)
	transferHandler.RegisterRoutes(api)

	// Add health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Add middleware for logging
	router.Use(loggingMiddleware(logger))

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + config.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a go routine
	go func() {
		logger.Info("starting server on port " + config.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err.Error())
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err.Error())
	}

	logger.Info("server exited gracefully")
}

// loads config from environment variables
func loadConfig() Config {
	return Config{
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "password"),
		DBName:        getEnv("DB_NAME", "ledger"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		ServerPort:    getEnv("SERVER_PORT", "8000"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:  getEnv("KAFKA_BROKERS", ""),
		HistoryTTL:    getDurationEnv("HISTORY_CACHE_TTL", 5*time.Minute),
	}
}

// getEnv fetches environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// connectDB establishes a connection to the Postgres database
func connectDB(cfg Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(10 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// loggingMiddleware logs incoming HTTP requests
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
