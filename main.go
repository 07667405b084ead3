package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/notes-bin/gallery/internal/api"
	"github.com/notes-bin/gallery/internal/config"
	"github.com/notes-bin/gallery/internal/janitor"
	"github.com/notes-bin/gallery/internal/logging"
	"github.com/notes-bin/gallery/internal/metrics"
	"github.com/notes-bin/gallery/internal/redis"
	"github.com/notes-bin/gallery/internal/repository"
	"github.com/notes-bin/gallery/internal/storage"

	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.StringP("config", "c", "config/config.json", "path to the JSON config file")
	flag.Parse()

	// 加载配置文件
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 初始化日志
	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	// 初始化元数据存储
	repo, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	files, err := storage.NewStorage(cfg.UploadDir)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	m := metrics.New()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 孤儿文件清理
	if cfg.Janitor.SweepInterval > 0 {
		go janitor.Start(ctx, repo, files, m, cfg.Janitor.SweepInterval, cfg.Janitor.Grace)
	}

	// 设置路由
	router := api.SetupRouter(cfg, api.Deps{Repo: repo, Storage: files, Metrics: m})

	// 启动服务器
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Server starting on port", "port", cfg.Port, "store", cfg.Store.Driver, "upload_dir", files.Dir())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	slog.Info("Server stopped")
}

func openStore(cfg *config.Config) (repository.Repository, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return repository.NewMemoryRepository(), nil
	case config.DriverRedis:
		client, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		db, err := repository.OpenSQL(cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}
