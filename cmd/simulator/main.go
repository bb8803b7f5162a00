// Package main - симулятор IoT датчика комнаты.
//
// Каждые SIMULATOR_INTERVAL генерирует температуру, влажность и качество
// воздуха с суточным ходом и отправляет их на /receive_sensor сервера.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stresssense/stress-sense/config"
	"github.com/stresssense/stress-sense/internal/infrastructure/simulator"
	"github.com/stresssense/stress-sense/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Level:   cfg.Observability.LogLevel,
		Format:  cfg.Observability.LogFormat,
		Debug:   cfg.App.Debug,
		Service: "simulator",
	})
	slog.SetDefault(log)

	seed := cfg.Simulator.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.New(rand.NewPCG(seed, seed>>1|1))

	sensorCfg := simulator.DefaultSensorConfig()
	sensorCfg.Zone = cfg.Zone()
	sensor := simulator.NewSensor(sensorCfg, src)
	client := simulator.NewClient(simulator.ClientConfig{
		BaseURL:   cfg.Simulator.TargetURL,
		DeviceKey: cfg.Simulator.DeviceKey,
		Timeout:   cfg.Simulator.Timeout,
		Logger:    log,
	}, nil, nil)
	runner := simulator.NewRunner(sensor, client, cfg.Simulator.Interval, log)

	log.Info("starting room sensor simulator",
		"target", cfg.Simulator.TargetURL,
		"interval", cfg.Simulator.Interval.String(),
		"seed", seed,
		"timezone", cfg.App.Timezone,
	)

	err = runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("simulator stopped", "breaker", client.Breaker().State().String())
		return nil
	}
	return err
}
