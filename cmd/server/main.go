package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"babettepos/internal/config"
	"babettepos/internal/erp"
	apphttp "babettepos/internal/http"
	"babettepos/internal/integrations/auditsink"
	"babettepos/internal/labels"
	"babettepos/internal/logger"
	"babettepos/internal/service/attrcache"
	"babettepos/internal/service/catalog"
	"babettepos/internal/service/orders"
	"babettepos/internal/service/ratelimit"
	"babettepos/internal/service/vouchers"
	"babettepos/internal/session"
	"babettepos/internal/store/memory"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logg := logger.New(cfg.IsProduction(), cfg.LogLevel)
	defer func() { _ = logg.Sync() }()

	erpClient := erp.NewClient(cfg.ERP.URL, cfg.ERP.DB, cfg.ERP.Timeout, logg)

	limiter := ratelimit.NewLimiter(cfg.Login.MaxAttempts, cfg.Login.Window)
	scheduler := cron.New()
	if _, err := limiter.ScheduleSweep(scheduler, cfg.Login.SweepSchedule, logg.Named("ratelimit")); err != nil {
		logg.Fatal("invalid sweep schedule", zap.String("schedule", cfg.Login.SweepSchedule), zap.Error(err))
	}
	scheduler.Start()

	sessionOpts := session.Options{CookieName: cfg.Session.CookieName, TTL: cfg.Session.TTL}
	if cfg.IsProduction() {
		sessionOpts.Secure = true
		sessionOpts.SameSite = http.SameSiteStrictMode
	}
	sessions, err := session.NewManager(cfg.Session.Secret, sessionOpts)
	if err != nil {
		logg.Fatal("session manager", zap.Error(err))
	}

	sink := auditsink.NewClient(
		cfg.Audit.WebhookURL,
		cfg.Audit.Timeout,
		cfg.Audit.MaxRetries,
		cfg.Audit.RetryBase,
		cfg.Audit.RetryMax,
	)

	srv := apphttp.NewServer(apphttp.Deps{
		Config:    cfg,
		ERP:       erpClient,
		Sessions:  sessions,
		Limiter:   limiter,
		Audit:     memory.NewStore(cfg.Audit.MaxEvents),
		AuditSink: sink,
		Catalog:   catalog.NewService(erpClient, attrcache.New(erpClient, cfg.Catalog.AttributeCacheTTL), logg),
		Orders:    orders.NewService(erpClient, logg),
		Vouchers:  vouchers.NewService(erpClient, logg),
		Labels:    labels.NewRenderer(logg),
		Log:       logg,
	})

	httpServer := srv.HTTPServer(cfg.ListenAddr)

	go func() {
		logg.Info("POS API listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("env", cfg.Env),
			zap.String("erp_host", cfg.ERPHost()),
			zap.String("erp_db", cfg.ERP.DB),
			zap.Bool("audit_webhook", sink.Enabled()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logg.Error("graceful shutdown failed", zap.Error(err))
	}
	<-scheduler.Stop().Done()
	logg.Info("stopped")
}
