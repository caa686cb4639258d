package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	metadatacollector "collector-stack/agents/metadata-collector"
	"collector-stack/shared/config"
	"collector-stack/shared/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context that responds to signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agent := metadatacollector.NewCollectorAgent(cfg, nil)
	s := scheduler.New(cfg, agent)
	metadatacollector.RegisterHandlers(s.HTTP(), agent)

	if len(os.Args) > 1 && os.Args[1] == "--once" {
		fmt.Println("Running once...")
		if err := agent.Initialize(); err != nil {
			log.Fatalf("Failed to initialize agent: %v", err)
		}

		if err := s.RunOnce(ctx); err != nil {
			log.Fatalf("Failed to run: %v", err)
		}
		return
	}

	fmt.Println("Starting collector...")
	if err := s.Start(ctx); err != nil {
		log.Fatalf("Collector stopped: %v", err)
	}
}
