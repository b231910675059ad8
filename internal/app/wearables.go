package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/activity_computer/internal/ble"
	"github.com/relabs-tech/activity_computer/internal/config"
	"github.com/relabs-tech/activity_computer/internal/metrics"
)

const mockSyncDelay = 2 * time.Second

// newWearableManager picks the adapter from BLE_MODE.
func newWearableManager(cfg *config.Config) *ble.Manager {
	if cfg.BLEMode == "real" {
		log.Println("wearables: using host bluetooth adapter")
		return ble.NewManager(ble.NewRealAdapter(), 0, nil)
	}
	log.Println("wearables: using mock bluetooth adapter")
	return ble.NewManager(ble.NewMockAdapter(nil), mockSyncDelay, nil)
}

// RunWearables scans once, connects to every device found, syncs it and
// prints what was read.
func RunWearables() error {
	cfg := config.Get()
	mgr := newWearableManager(cfg)
	ctx := context.Background()

	opts := ble.ScanOptions{
		NameFilter: cfg.BLENameFilter,
		Duration:   time.Duration(cfg.BLEScanSeconds) * time.Second,
	}
	log.Printf("wearables: scanning for %s", opts.Duration)

	var found []ble.Device
	if err := mgr.Scan(ctx, opts, func(d ble.Device) {
		fmt.Printf("[SCAN] %-24s rssi=%4d id=%s\n", d.Name, d.RSSI, d.ID)
		found = append(found, d)
	}); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if len(found) == 0 {
		log.Println("wearables: no devices found")
		return nil
	}

	for _, d := range found {
		cd, err := mgr.Connect(ctx, d)
		if err != nil {
			log.Printf("wearables: %v", err)
			continue
		}
		synced, err := mgr.Sync(ctx, cd.ID)
		if err != nil {
			log.Printf("wearables: %v", err)
		} else {
			cd = synced
		}
		fmt.Printf("[DEV ] %-24s battery=%3d%% hr=%3d bpm last sync %s\n",
			cd.Name, cd.Battery, cd.HeartRate, metrics.FormatLastSync(cd.LastSync, time.Now()))
	}

	for _, cd := range mgr.Devices() {
		if err := mgr.Disconnect(cd.ID); err != nil {
			log.Printf("wearables: disconnect %s: %v", cd.Name, err)
		}
	}
	return nil
}
