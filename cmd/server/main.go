package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/csmplay/mapban/internal/api"
	"github.com/csmplay/mapban/internal/catalog"
	"github.com/csmplay/mapban/internal/config"
	"github.com/csmplay/mapban/internal/lobby"
	"github.com/csmplay/mapban/internal/veto"
	"github.com/csmplay/mapban/internal/ws"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if cfg.Environment == "development" {
		log.SetLevel(logrus.DebugLevel)
	}

	store := lobby.NewStore()
	cat := catalog.New()

	hub := ws.NewHub(log)
	ctrl := veto.NewController(store, cat, hub, log, cfg.CoinFlip)
	ctrl.SetBO1PoolSize(cfg.BO1PoolSize)
	hub.SetController(ctrl)

	router := api.NewRouter(ctrl, hub, cfg, log)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
