// Package main implements the entry point for the dittobridge application.
// dittobridge subscribes to an Eclipse Ditto digital-twin registry's change
// feed and republishes per-thing telemetry onto NATS subjects.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360/dittobridge/config"
	"github.com/c360/dittobridge/ditto"
	"github.com/c360/dittobridge/health"
	"github.com/c360/dittobridge/metric"
	"github.com/c360/dittobridge/natsclient"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "dittobridge"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	if cliCfg.Debug {
		cfg.Ditto.Debug = true
	}

	ctx := context.Background()

	natsClient, err := connectToNATS(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = natsClient.Close(context.Background()) }()

	metricsRegistry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor()
	monitor.SetStaleAfter(30 * time.Second)

	// One bundle for the stream and publish sides, so every series on
	// /metrics is fed by the component that owns it.
	bridgeMetrics := ditto.NewMetrics(metricsRegistry)

	registry := ditto.NewPublisherRegistry(natsClient,
		slog.Default().With("component", "publisher-registry"), bridgeMetrics)
	router := ditto.NewRouter(registry, slog.Default().With("component", "router"))

	supervisor := ditto.NewSupervisor(ditto.SupervisorDeps{
		Name:    "bridge-main",
		Config:  cfg.Ditto,
		Router:  router,
		Metrics: bridgeMetrics,
		Logger:  slog.Default().With("component", "stream-supervisor"),
	})
	if err := supervisor.Initialize(); err != nil {
		return fmt.Errorf("initialize supervisor: %w", err)
	}

	return runWithSignalHandling(ctx, cfg, supervisor, natsClient, metricsRegistry, monitor, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting dittobridge",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, false, nil
}

// initializeConfiguration loads and validates configuration
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// connectToNATS creates the bus client and waits for it to be ready
func connectToNATS(ctx context.Context, cfg *config.Config) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithClientName(fmt.Sprintf("%s-%s", appName, uuid.NewString()[:8])),
		natsclient.WithLogger(natsclient.NewSlogLogger(slog.With("component", "nats"))),
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}
	if cfg.NATS.MaxReconnects != 0 {
		opts = append(opts, natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects))
	}
	if cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}

	natsClient, err := natsclient.NewClient(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	slog.Info("Connecting to NATS", "url", cfg.NATS.URL)
	if err := natsClient.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := natsClient.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}

	return natsClient, nil
}

// runWithSignalHandling starts the bridge and blocks until a shutdown
// signal arrives or a component fails
func runWithSignalHandling(
	ctx context.Context,
	cfg *config.Config,
	supervisor *ditto.Supervisor,
	natsClient *natsclient.Client,
	metricsRegistry *metric.MetricsRegistry,
	monitor *health.Monitor,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	group, groupCtx := errgroup.WithContext(signalCtx)

	if err := supervisor.Start(groupCtx); err != nil {
		return fmt.Errorf("start supervisor: %w", err)
	}

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry, monitor)
		srv := metricsServer
		// Start blocks in ListenAndServe until the server stops, so it runs
		// under the group; a bind failure cancels groupCtx and tears the
		// bridge down.
		group.Go(func() error {
			slog.Info("Metrics server listening", "address", srv.Address())
			if err := srv.Start(); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				updateHealth(monitor, supervisor, natsClient, metricsRegistry.Metrics)
			}
		}
	})

	slog.Info("dittobridge started successfully")
	<-groupCtx.Done()
	if signalCtx.Err() != nil {
		slog.Info("Received shutdown signal")
	} else {
		slog.Error("Component failed, shutting down")
	}

	var stopErr error
	if err := supervisor.Stop(shutdownTimeout); err != nil {
		slog.Error("Error stopping supervisor", "error", err)
		stopErr = err
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			slog.Error("Error stopping metrics server", "error", err)
		}
	}
	if err := group.Wait(); err != nil && stopErr == nil {
		stopErr = err
	}

	slog.Info("dittobridge shutdown complete")
	return stopErr
}

// updateHealth refreshes the health monitor and platform gauges from live
// component state
func updateHealth(
	monitor *health.Monitor,
	supervisor *ditto.Supervisor,
	natsClient *natsclient.Client,
	metrics *metric.Metrics,
) {
	supervisorHealth := supervisor.Health()
	monitor.Update("stream-supervisor", health.FromComponentHealth("stream-supervisor", supervisorHealth))
	metrics.RecordHealthStatus("stream-supervisor", supervisorHealth.Healthy)

	serviceStatus := 1 // starting
	switch supervisor.State() {
	case ditto.StateStreaming:
		serviceStatus = 2 // running
	case ditto.StateDisconnected:
		serviceStatus = 0 // stopped
	}
	metrics.RecordServiceStatus("stream-supervisor", serviceStatus)

	if rtt, err := natsClient.RTT(); err != nil {
		monitor.UpdateUnhealthy("nats", "connection down")
		metrics.RecordNATSStatus(false)
	} else {
		monitor.UpdateHealthy("nats", "connected")
		metrics.RecordNATSStatus(true)
		metrics.RecordNATSRTT(rtt)
	}
}
