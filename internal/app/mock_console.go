// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/activity_computer/internal/activity"
	"github.com/relabs-tech/activity_computer/internal/config"
	"github.com/relabs-tech/activity_computer/internal/location"
	"github.com/relabs-tech/activity_computer/internal/motion"
)

// RunMockConsole runs a whole session on the mock gait and mock route,
// printing a line per interval. Ctrl+C finishes the session and prints
// the summary.
func RunMockConsole() error {
	cfg := config.Get()

	session := activity.New(activity.Options{
		Motion:        motion.NewTickerProvider(motion.NewMockSource(), millis(cfg.MotionSampleInterval)),
		Location:      location.NewMockProvider(),
		Watch:         watchOptions(cfg),
		Steps:         stepConfig(cfg),
		DailyStepGoal: cfg.DailyStepGoal,
		OnAlert: func(a activity.Alert) {
			fmt.Printf("[ALERT] %s: %s\n", a.Source, a.Message)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := session.Start(ctx); err != nil {
		return err
	}
	log.Printf("mock console: session %s started", session.ID())

	ticker := time.NewTicker(millis(cfg.ConsoleLogInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			summary, err := session.Finish()
			if err != nil {
				return err
			}
			fmt.Println(formatSummary(summary))
			return nil
		case <-ticker.C:
			fmt.Println(formatSnapshot(session.Snapshot()))
		}
	}
}
