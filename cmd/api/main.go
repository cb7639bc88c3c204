package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"bodacover-platform/internal/audit"
	"bodacover-platform/internal/auth"
	"bodacover-platform/internal/config"
	"bodacover-platform/internal/escrow"
	"bodacover-platform/internal/gateway"
	"bodacover-platform/internal/httpapi"
	"bodacover-platform/internal/ledger"
	"bodacover-platform/internal/payment"
	"bodacover-platform/internal/plan"
	"bodacover-platform/internal/policy"
	"bodacover-platform/internal/recon"
	"bodacover-platform/internal/settlement"
	"bodacover-platform/internal/wallet"
	"bodacover-platform/pkg/logger"
	"bodacover-platform/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	var gw gateway.Client
	if cfg.GatewaySimulated() {
		log.Warn("gateway credentials absent, running in simulation mode")
		gw = gateway.NewSimulator(cfg.Gateway, log)
	} else {
		gw = gateway.NewDarajaClient(cfg.Gateway, gateway.NewRedisTokenStore(rdb), log)
	}

	var notifier policy.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		kn, err := policy.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka init failed", "err", err)
			os.Exit(1)
		}
		defer kn.Close()
		notifier = kn
	} else {
		notifier = policy.NewLogNotifier(log)
	}

	coverPlan := plan.New(cfg.Plan)
	wallets := wallet.NewService(db, coverPlan.DailyCount())
	ledgerSvc := ledger.NewService(db)
	escrowSvc := escrow.NewService(db, ledgerSvc)
	settlementSvc := settlement.NewService(db, ledgerSvc)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	reconSvc := recon.NewService(recon.NewPostgresRepo(db))
	payments := payment.NewService(db, gw, wallets, coverPlan, ledgerSvc, escrowSvc, auditSvc, notifier, cfg.Payments, log)

	h := httpapi.Handlers{
		Auth:        authManager,
		Gateway:     gw,
		Payments:    payments,
		Wallets:     wallets,
		Escrow:      escrowSvc,
		Settlements: settlementSvc,
		Ledger:      ledgerSvc,
		Recon:       reconSvc,
		Audit:       auditSvc,
		DB:          db,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	jobs := startJobs(rootCtx, payments, escrowSvc, cfg.Payments, log)
	defer jobs.Stop()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "gateway_simulated", cfg.GatewaySimulated())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
