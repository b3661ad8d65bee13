package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"xiangqi-server/internal/config"
	"xiangqi-server/internal/httpapi"
	"xiangqi-server/internal/obslog"
	"xiangqi-server/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obslog.Init("info", "console")
		obslog.L().Fatal("config load failed", zap.Error(err))
	}
	obslog.Init(cfg.LogLevel, cfg.LogFormat)
	log := obslog.L()
	defer func() { _ = log.Sync() }()

	mgr, err := session.NewManager(cfg.RedisURL, cfg.SessionTTL, log)
	if err != nil {
		log.Fatal("session manager init failed", zap.Error(err))
	}
	defer func() { _ = mgr.Close() }()

	if cfg.DatabaseURL != "" {
		repo, rerr := session.NewRepository(cfg.DatabaseURL)
		if rerr != nil {
			log.Fatal("repository init failed", zap.Error(rerr))
		}
		defer func() { _ = repo.Close() }()
		mgr.AttachRepository(repo)
		log.Info("game archive enabled")
	}

	api := httpapi.New(mgr, log)
	srv := &fasthttp.Server{
		Handler: api.Handler,
		Name:    "xiangqi-server",
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe(cfg.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
		if err := srv.Shutdown(); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	}
}
