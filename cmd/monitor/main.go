package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/config"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/health"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/orchestrator"
)

func main() {
	log.Printf("Vault Monitor starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Configuration loaded")
	log.Printf("  NATS URL: %s", cfg.NatsURL)
	log.Printf("  Health interval: %s, performance interval: %s",
		cfg.HealthCheckInterval, cfg.PerformanceCheckInterval)
	log.Printf("  Channels: %d, rules: %d", len(cfg.Channels), len(cfg.Rules))

	orch := orchestrator.NewOrchestrator(cfg)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Listen for shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	health.StartServer(cfg.HealthPort)

	if err := orch.Start(); err != nil {
		log.Fatalf("Failed to start orchestrator: %v", err)
	}

	// Drive the monitoring cycles in the background
	go func() {
		if err := orch.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Orchestrator error: %v", err)
		}
	}()

	// Block until shutdown signal
	<-sigChan
	log.Printf("Shutdown signal received...")

	cancel()

	if err := orch.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Printf("Monitor stopped successfully")
}
