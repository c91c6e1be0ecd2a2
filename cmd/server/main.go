package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ruralpay/ledger/docs"
	"github.com/ruralpay/ledger/internal/audit"
	"github.com/ruralpay/ledger/internal/config"
	"github.com/ruralpay/ledger/internal/database"
	"github.com/ruralpay/ledger/internal/handlers"
	mW "github.com/ruralpay/ledger/internal/middleware"
	"github.com/ruralpay/ledger/internal/services"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Financial Ledger API
// @version 1.0
// @description Double-entry ledger with deposits, withdrawals and transfers
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.SetConfigType("env")
	viper.AutomaticEnv() // allow environment variables to override .env
	config.BindEnv()
	configErr := viper.ReadInConfig()

	logger := newLogger(viper.GetBool("log.development"))
	defer logger.Sync()

	if configErr != nil {
		logger.Info("config file not found, using environment and defaults", zap.Error(configErr))
	}

	if err := run(logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(development bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func run(logger *zap.Logger) error {
	serverCfg := config.LoadServerConfig()
	ledgerCfg := config.LoadLedgerConfig()
	dbCfg := database.GetConfig()

	if err := serverCfg.Validate(); err != nil {
		return err
	}

	docs.SwaggerInfo.Host = "localhost:" + serverCfg.Port
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(startupCtx, dbCfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if dbCfg.Migrate {
		if err := database.Migrate(startupCtx, db, dbCfg.Name, logger); err != nil {
			return err
		}
	}

	balanceService := services.NewBalanceService(db)
	accountService := services.NewAccountService(db, balanceService, logger)
	iso20022Service := services.NewISO20022Service(accountService)
	auditLogger := audit.NewLogger(logger)

	var (
		events      services.EventPublisher
		idempotency handlers.IdempotencyStore
	)
	redisClient := database.InitRedis(startupCtx, logger)
	if redisClient != nil {
		defer redisClient.Close()
		events = services.NewRedisEventPublisher(redisClient, ledgerCfg.EventsQueue)
		idempotency = services.NewIdempotencyService(redisClient, ledgerCfg.IdempotencyTTL)
	}

	ledgerService := services.NewLedgerService(db, balanceService, ledgerCfg, auditLogger, events, logger)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService, idempotency, logger)
	accountHandler := handlers.NewAccountHandler(accountService, iso20022Service, logger)

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mW.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Timeout(serverCfg.RequestTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handlers.IdempotencyKeyHeader},
		ExposedHeaders:   []string{handlers.IdempotentReplayedHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", handlers.Health(db))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		if serverCfg.AuthEnabled {
			r.Use(mW.NewAuthMiddleware(serverCfg.JWTSecret))
		}

		r.Post("/accounts", accountHandler.CreateAccount)
		r.Get("/accounts/{id}", accountHandler.GetAccount)
		r.Get("/accounts/{id}/ledger", accountHandler.GetLedger)

		r.Post("/deposits", ledgerHandler.Deposit)
		r.Post("/withdrawals", ledgerHandler.Withdraw)
		r.Post("/transfers", ledgerHandler.Transfer)

		r.Get("/transactions/{id}", accountHandler.GetTransaction)
		r.Get("/transactions/{id}/iso20022", accountHandler.ExportISO20022)
	})

	server := &http.Server{
		Addr:         ":" + serverCfg.Port,
		Handler:      r,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		IdleTimeout:  serverCfg.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		logger.Info("server shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
