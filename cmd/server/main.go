package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Officialbobos/hometownpas-sub000/configs"
	"github.com/Officialbobos/hometownpas-sub000/internal/approval"
	"github.com/Officialbobos/hometownpas-sub000/internal/handlers"
	"github.com/Officialbobos/hometownpas-sub000/internal/ledger"
	"github.com/Officialbobos/hometownpas-sub000/internal/logger"
	"github.com/Officialbobos/hometownpas-sub000/internal/notify"
	"github.com/Officialbobos/hometownpas-sub000/internal/routes"
	"github.com/Officialbobos/hometownpas-sub000/internal/seed"
	"github.com/Officialbobos/hometownpas-sub000/internal/store"
	"github.com/Officialbobos/hometownpas-sub000/internal/transfer"
	"go.uber.org/zap"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	configs.LoadConfig()
	store.NewDB()
	store.DBMigrate()
	seed.Run()

	ledgerStore := ledger.NewGormStore(store.DB)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg := configs.AppConfig.SMTP; cfg.Host != "" {
		notifier = notify.NewSMTPNotifier(cfg.Host, cfg.Port, cfg.From, cfg.Username, cfg.Password)
	}

	transfers := transfer.NewService(ledgerStore, notifier,
		configs.AppConfig.Transfer.AllowedCurrencies,
		configs.AppConfig.Transfer.Precision)
	approvals := approval.NewService(ledgerStore, notifier, configs.AppConfig.Transfer.Precision)
	handler := handlers.NewHandler(ledgerStore, transfers, approvals)

	router := routes.NewRoutes(handler)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}

	sqlDB, err := store.DB.DB()
	if err != nil {
		logger.Log.Error("db close skipped, reason:", zap.Error(err))
	} else {
		sqlDB.Close()
		logger.Log.Info("db closed")
	}

	logger.Log.Info("server stopped")
}
