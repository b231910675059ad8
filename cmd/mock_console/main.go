package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/activity_computer/internal/app"
	"github.com/relabs-tech/activity_computer/internal/config"
)

func main() {
	configPath := flag.String("config", "activity_config.txt", "Path to configuration file")
	flag.Parse()

	log.Println("starting activity-computer mock console (local session)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunMockConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
