package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"GoJigsaw/internal/config"
	"GoJigsaw/internal/engine/manager"
	"GoJigsaw/internal/model"
	"GoJigsaw/internal/probe"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	log.Println("Starting jigsaw-engine...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize the measurement manager
	managerImpl, err := manager.NewManager(cfg)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}
	managerImpl.Start()

	// 3. Subscribe to the packet stream
	subscriber, err := probe.NewSubscriber(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to create NATS subscriber: %v", err)
	}

	input := managerImpl.InputChannel()
	if err := subscriber.Start(func(info *model.PacketInfo) {
		input <- info
	}); err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	// 4. Wait for a shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping engine...")
	subscriber.Close()
	managerImpl.Stop()
	log.Println("Shutdown complete.")
}
