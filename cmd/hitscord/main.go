package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chebupelek/hitscord-sub000/internal/api"
	"github.com/chebupelek/hitscord-sub000/internal/auth"
	"github.com/chebupelek/hitscord-sub000/internal/config"
	"github.com/chebupelek/hitscord-sub000/internal/database"
	"github.com/chebupelek/hitscord-sub000/internal/gateway"
	redisclient "github.com/chebupelek/hitscord-sub000/internal/redis"
	"github.com/chebupelek/hitscord-sub000/internal/service"
	"github.com/chebupelek/hitscord-sub000/internal/snowflake"
	"github.com/chebupelek/hitscord-sub000/internal/storage"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
	ctx := context.Background()

	// --- Infrastructure ---

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	store := database.NewStore(pool)

	rdb, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	sf, err := snowflake.NewGenerator(cfg.SnowflakeNodeID)
	if err != nil {
		slog.Error("snowflake init failed", "error", err)
		os.Exit(1)
	}
	tokenSvc := auth.NewTokenService(cfg.JWTSecret)

	var cleaner service.ObjectCleaner
	if cfg.MinIOEndpoint != "" {
		mc, err := storage.NewMinIOClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket)
		if err != nil {
			slog.Error("minio init failed", "error", err)
			os.Exit(1)
		}
		cleaner = mc
	}

	// --- Gateway ---

	gwManager := gateway.NewManager(tokenSvc, store.Servers, store.Cursors, rdb)

	// --- Services ---

	serverSvc := service.NewServerService(store, sf, gwManager, cleaner)
	channelSvc := service.NewChannelService(store, sf, gwManager, cleaner)
	roleSvc := service.NewRoleService(store, sf, gwManager)
	banSvc := service.NewBanService(store, gwManager)
	presetSvc := service.NewPresetService(store, sf, gwManager)
	readSvc := service.NewReadService(store, gwManager)

	deps := &api.Dependencies{
		Servers:      api.NewServerHandler(serverSvc),
		Channels:     api.NewChannelHandler(channelSvc),
		Roles:        api.NewRoleHandler(roleSvc),
		Bans:         api.NewBanHandler(banSvc),
		Presets:      api.NewPresetHandler(presetSvc),
		Read:         api.NewReadHandler(readSvc),
		Gateway:      gwManager,
		TokenService: tokenSvc,
		Redis:        rdb,
	}

	// --- Echo ---

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.SetupRouter(e, deps)

	// --- Retention sweep ---

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				n, err := channelSvc.PurgeDeletedChannels(sweepCtx, cfg.ChannelRetention)
				if err != nil {
					slog.Error("channel retention sweep failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Info("purged soft-deleted channels", "count", n)
				}
			}
		}
	}()

	// --- Start ---

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("hitscord starting", "addr", cfg.ServerAddr)
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCtx.Done()
	slog.Info("shutting down")
	if err := e.Shutdown(context.Background()); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
