package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/anonto42/nano-midea/notice/internal/job"
	"github.com/anonto42/nano-midea/notice/internal/router"
	"github.com/anonto42/nano-midea/notice/pkg/config"
	"github.com/anonto42/nano-midea/notice/pkg/cron"
	"github.com/anonto42/nano-midea/notice/pkg/firebase"
	"github.com/anonto42/nano-midea/notice/pkg/log"
	"github.com/anonto42/nano-midea/notice/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log.SetLevel(cfg.Env)
	defer log.L.Sync()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.L.Fatal("Failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Push is optional
	var messagingClient *messaging.Client
	if cfg.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			log.L.Warn("Firebase disabled", zap.Error(err))
		} else {
			messagingClient = app.MessagingClient
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e)

	aggregator, err := router.SetupRoutes(e, db, cfg, messagingClient)
	if err != nil {
		log.L.Fatal("Failed to set up routes", zap.Error(err))
	}

	jobs := cron.NewManager()
	if err := jobs.Register(cfg.NoticeSweepSpec, job.NewNoticeSweepJob(aggregator)); err != nil {
		log.L.Fatal("Invalid NOTICE_SWEEP_SPEC", zap.Error(err))
	}
	jobs.Start()
	defer jobs.Stop()

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.L.Fatal("Server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.L.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.L.Error("Graceful shutdown failed", zap.Error(err))
	}
}
