package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JaykaiDos/signaling-server/internal/config"
	"github.com/JaykaiDos/signaling-server/internal/logging"
	"github.com/JaykaiDos/signaling-server/internal/metrics"
	"github.com/JaykaiDos/signaling-server/internal/server"
	"github.com/JaykaiDos/signaling-server/internal/signaling"
	"github.com/JaykaiDos/signaling-server/internal/version"
)

func main() {
	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	log := logging.Init(slog.LevelInfo, cfg.IsProd())
	if envErr != nil {
		log.Debug("no .env file loaded", "err", envErr)
	}

	codec, err := signaling.CodecByName(cfg.Codec)
	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// 1. Create the Hub
	hub := signaling.NewHub(
		signaling.WithCodec(codec),
		signaling.WithLogger(log),
		signaling.WithMetrics(metrics.New(reg)),
		signaling.WithReaping(cfg.ReapInterval, cfg.RoomMaxAge),
		signaling.WithSendBuffer(cfg.SendBuffer),
		signaling.WithMaxMessageSize(cfg.MaxMessageSize),
	)

	// 2. Run the Hub in a separate goroutine.
	// This starts the hub's main event loop (the 'select' statement).
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	// 3. Register our handlers
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: server.NewRouter(hub, server.Options{
			CORSAllow:  cfg.CORSAllow,
			Gatherer:   reg,
			Logger:     log,
			AdminToken: cfg.AdminToken,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 4. Start the server
	go func() {
		log.Info("starting signaling server", "addr", srv.Addr, "version", version.Version, "env", cfg.Env, "codec", codec.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
			"hub": func(ctx context.Context) error {
				stopHub()
				select {
				case <-hub.Done():
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		},
	)

	exitCode := <-wait
	log.Info("signaling server exited", "code", exitCode)
	os.Exit(exitCode)
}
