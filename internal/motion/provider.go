package motion

import (
	"context"
	"log"
	"sync"
	"time"
)

// Subscription is an active sample feed. Stop is idempotent and does not
// wait for an in-flight delivery; callers must tolerate one late sample.
type Subscription interface {
	Stop()
}

// Provider delivers samples to a callback until the subscription is
// stopped. onErr is called at most once; the feed ends after it.
type Provider interface {
	Start(ctx context.Context, deliver func(Sample), onErr func(error)) (Subscription, error)
}

type cancelSubscription struct {
	once   sync.Once
	cancel func()
}

func (s *cancelSubscription) Stop() {
	s.once.Do(s.cancel)
}

// TickerProvider polls a Source at a fixed interval.
type TickerProvider struct {
	src      Source
	interval time.Duration
}

// NewTickerProvider creates a provider polling src every interval.
func NewTickerProvider(src Source, interval time.Duration) *TickerProvider {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &TickerProvider{src: src, interval: interval}
}

// Start begins polling in a new goroutine.
func (p *TickerProvider) Start(ctx context.Context, deliver func(Sample), onErr func(error)) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			s, err := p.src.Next()
			if err != nil {
				log.Printf("motion: read error, stopping feed: %v", err)
				cancel()
				if onErr != nil {
					onErr(err)
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
			deliver(s)
		}
	}()

	return &cancelSubscription{cancel: cancel}, nil
}
