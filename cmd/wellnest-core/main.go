package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/consumer"
	"github.com/snarayanan1095/Wellnest/internal/logger"
	"github.com/snarayanan1095/Wellnest/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting wellnest-core service")

	svc, err := service.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to create service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.Start(ctx)

	mqttConsumer, err := consumer.NewMQTTConsumer(cfg.MQTT, svc.EnqueueRaw, log)
	if err != nil {
		log.Fatal("Failed to connect MQTT consumer", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		if err := mqttConsumer.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		log.Error("Consumer error", zap.Error(err))
		cancel()
	}

	svc.Stop()
	log.Info("Service stopped")
}
