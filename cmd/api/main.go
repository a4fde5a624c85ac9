package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/tglc-labs/liquidity-service/internal/bank"
	"github.com/tglc-labs/liquidity-service/internal/config"
	"github.com/tglc-labs/liquidity-service/internal/credit"
	"github.com/tglc-labs/liquidity-service/internal/engine"
	"github.com/tglc-labs/liquidity-service/internal/escrow"
	"github.com/tglc-labs/liquidity-service/internal/exposure"
	"github.com/tglc-labs/liquidity-service/internal/handler"
	"github.com/tglc-labs/liquidity-service/internal/integrations/rates"
	"github.com/tglc-labs/liquidity-service/internal/middleware"
	"github.com/tglc-labs/liquidity-service/internal/notify"
	"github.com/tglc-labs/liquidity-service/internal/policy"
	"github.com/tglc-labs/liquidity-service/internal/repository"
	"github.com/tglc-labs/liquidity-service/internal/service"
	"github.com/tglc-labs/liquidity-service/internal/xrpl"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Ledger gateway and issuer wallet
	gateway := xrpl.NewClient(cfg.XRPLNetwork, cfg.XRPLRPCURL, logger)
	issuer := xrpl.Wallet{Address: cfg.IssuerAddress, Seed: cfg.IssuerSeed}

	// Initialize layers
	repo := repository.NewRepository(db)
	registry, err := bank.NewRegistry(repo, gateway, logger)
	if err != nil {
		logger.Fatalf("Failed to load bank registry: %v", err)
	}

	scorer := credit.NewScorer(gateway, logger)
	verifier := credit.NewVerifier(time.Duration(cfg.ProofMaxAgeMins) * time.Minute)
	orchestrator := escrow.NewOrchestrator(gateway, issuer, cfg.XRPLNetwork, cfg.HMACSecret, logger)
	rateClient := rates.NewClient(cfg, logger)
	notifier := notify.NewSender(cfg, logger)

	eng := engine.NewEngine(
		scorer,
		verifier,
		policy.NewEngine(),
		registry,
		exposure.NewTracker(),
		orchestrator,
		rateClient,
		notifier,
		logger,
	)

	authSvc := service.NewAuthService(repo, logger, cfg)
	h := handler.NewHandler(authSvc, eng, scorer, verifier, registry, cfg.EscrowDays, logger)

	// Periodic bank balance refresh from the ledger
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RefreshSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		registry.RefreshBalances(ctx)
	}); err != nil {
		logger.Fatalf("Failed to schedule balance refresh: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/liquidity/credit-score/{address}", h.CreditScore).Methods("GET")
	r.HandleFunc("/liquidity/verify-proof", h.VerifyProof).Methods("POST")
	r.HandleFunc("/banks", h.ListBanks).Methods("GET")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/liquidity/request", h.RequestLiquidity).Methods("POST")
	authRouter.HandleFunc("/liquidity/finish-escrow", h.FinishEscrow).Methods("POST")
	authRouter.HandleFunc("/banks", h.RegisterBank).Methods("POST")
	authRouter.HandleFunc("/banks/{id}/deactivate", h.DeactivateBank).Methods("POST")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Tear down on shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
}
