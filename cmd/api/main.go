package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/api"
	"github.com/tcdata/railnet/internal/bootstrap"
	"github.com/tcdata/railnet/internal/middleware"
	"github.com/tcdata/railnet/internal/routing"
	"github.com/tcdata/railnet/internal/store"
	"github.com/tcdata/railnet/internal/validation"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	ctx := context.Background()
	res, err := bootstrap.Open(ctx, *configPath)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer res.Close()
	logger := res.Logger
	cfg := res.Config

	logger.Info("starting railnet API server")

	snap, network, err := res.Network(ctx)
	if err != nil {
		logger.Fatal("failed to load network", zap.Error(err))
	}
	presets, err := res.Presets()
	if err != nil {
		logger.Fatal("failed to load presets", zap.Error(err))
	}
	tasks, err := res.Tasks()
	if err != nil {
		logger.Fatal("failed to load tasks", zap.Error(err))
	}

	opts := api.Options{
		Network:   network,
		Service:   routing.NewService(routing.NewRouter(logger), res.SuggestionCache(), logger),
		Validator: validation.New(logger),
		Dataset: validation.Input{
			Stations:   snap.Stations,
			Paths:      snap.Paths,
			Equipments: snap.Equipments,
		},
		Checks:   map[string]api.HealthCheck{},
		Defaults: cfg.Suggestion.Routing(),
		Presets:  presets,
		Timeout:  cfg.Server.RequestTimeout,
		Logger:   logger,
	}
	if tasks != nil {
		opts.Dataset.Tasks = tasks.Data
	}
	if res.Pool != nil {
		pool := res.Pool
		opts.Stations = res.Store()
		opts.Checks["database"] = func(ctx context.Context) error { return store.HealthCheck(ctx, pool) }
	}
	if res.Redis != nil {
		opts.Checks["redis"] = res.SuggestionCache().HealthCheck
	}

	app := fiber.New(fiber.Config{
		AppName:      "railnet API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: api.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(middleware.RateLimit(res.Redis, cfg.Server.RateLimitPerSecond, logger))

	api.NewHandler(opts).Register(app)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down gracefully")
		if err := app.Shutdown(); err != nil {
			logger.Error("error during shutdown", zap.Error(err))
		}
	}()

	logger.Info("server listening",
		zap.String("addr", addr),
		zap.Int("stations", network.Graph.NodeCount()),
		zap.Int("paths", network.Graph.EdgeCount()),
	)
	if err := app.Listen(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
