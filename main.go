package main

import (
	"chatrelay/internal/config"
	"chatrelay/internal/http/http_server"
	"chatrelay/internal/presence"
	"chatrelay/internal/redis/redis_client"
	"chatrelay/internal/ws"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

//	@title			chatrelay admin API
//	@version		1.0
//	@description	Read-only view of the relay's rooms and presence lists.
//	@BasePath		/

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Optional Redis presence mirror
	var hubOpts []ws.HubOption
	if cfg.PresenceMirrorEnabled {
		redisClient, err := redis_client.NewRedisClient(cfg.RedisPresenceHost, int(cfg.RedisPresencePort), cfg.RedisPresenceDb)
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		mirror := presence.NewMirror(redisClient, 0)
		if err := mirror.Reset(ctx); err != nil {
			Log.Warn("presence.reset", zap.Error(err))
		}
		go mirror.Run(ctx)
		hubOpts = append(hubOpts, ws.WithPresenceObserver(mirror.Publish))
		Log.Debug("Presence mirror enabled")
	}

	// 4. Room registry + broadcast engine
	hub := ws.NewHub(hubOpts...)

	// 5. Relay on its own port
	wsSrv := ws.NewWsServer(hub, ws.Options{
		SendBuffer: cfg.WsSendBuffer,
		ReadLimit:  cfg.WsReadLimit,
		PingPeriod: cfg.WsPingPeriod,
	})
	relaySrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.RelayPort),
		Handler:           wsSrv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		Log.Info("relay.listening", zap.String("addr", relaySrv.Addr))
		if err := relaySrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Log.Error("relay.crash", zap.Error(err))
			stop()
		}
	}()

	// 6. Admin HTTP (health, rooms, metrics)
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, hub)
	go func() {
		Log.Info("http.listening", zap.Uint16("port", cfg.HttpServerPort))
		if err := httpServer.Start(); err != nil {
			Log.Error("http.crash", zap.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	Log.Info("server.shutdown.start")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := relaySrv.Shutdown(shutdownCtx); err != nil {
		Log.Warn("relay.shutdown", zap.Error(err))
	}
	wsSrv.Close() // hijacked sockets are not covered by Shutdown
	_ = httpServer.Dispose()

	Log.Info("server.shutdown.complete")
}
