package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/activity_computer/internal/config"
	"github.com/relabs-tech/activity_computer/internal/location"
)

const firstFixTimeout = 30 * time.Second

// RunGPSProducer reads NMEA from the GPS serial port and publishes each
// valid fix as JSON on the GPS topic. Throttling is left to subscribers.
func RunGPSProducer() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	gps := location.NewSerialProvider(cfg.GPSSerialPort, cfg.GPSBaudRate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gps.RequestPermission(ctx); err != nil {
		return fmt.Errorf("GPS serial port %s: %w", cfg.GPSSerialPort, err)
	}
	log.Printf("GPS serial port %s at %d baud", cfg.GPSSerialPort, cfg.GPSBaudRate)

	// Cold starts can take a while; keep going without a first fix.
	firstCtx, cancel := context.WithTimeout(ctx, firstFixTimeout)
	if f, err := gps.Current(firstCtx); err != nil {
		log.Printf("GPS no fix after %s: %v", firstFixTimeout, err)
	} else {
		log.Printf("GPS first fix: lat=%.6f lon=%.6f", f.Latitude, f.Longitude)
	}
	cancel()

	failed := make(chan error, 1)
	sub, err := gps.Watch(ctx, location.WatchOptions{}, func(f location.Fix) {
		if err := publishJSON(client, cfg.TopicGPS, true, f); err != nil {
			log.Printf("GPS %v", err)
			return
		}
		log.Printf("published GPS fix: lat=%.6f lon=%.6f", f.Latitude, f.Longitude)
	}, func(err error) {
		failed <- err
	})
	if err != nil {
		return err
	}
	defer sub.Stop()

	select {
	case <-ctx.Done():
		log.Println("GPS producer shutting down")
		return nil
	case err := <-failed:
		return fmt.Errorf("GPS read error: %w", err)
	}
}
