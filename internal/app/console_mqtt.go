package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/activity_computer/internal/activity"
	"github.com/relabs-tech/activity_computer/internal/config"
)

// RunConsoleMQTT prints the tracker's snapshots and alerts as they arrive.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}

	if err := subscribeJSON(client, cfg.TopicSession, "console", func(s activity.Snapshot) {
		fmt.Println(formatSnapshot(s))
	}); err != nil {
		return err
	}

	if err := subscribeJSON(client, cfg.TopicAlerts, "console", func(a activity.Alert) {
		fmt.Printf("[ALERT] %s: %s\n", a.Source, a.Message)
	}); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
