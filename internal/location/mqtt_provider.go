package location

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTProvider subscribes to the fix topic published by the GPS producer.
type MQTTProvider struct {
	client mqtt.Client
	topic  string
}

// NewMQTTProvider creates a provider on an already connected client.
func NewMQTTProvider(client mqtt.Client, topic string) *MQTTProvider {
	return &MQTTProvider{client: client, topic: topic}
}

// RequestPermission is a no-op: the broker connection already implies it.
func (p *MQTTProvider) RequestPermission(ctx context.Context) error {
	return nil
}

// Current returns the retained fix, or the next one published.
func (p *MQTTProvider) Current(ctx context.Context) (Fix, error) {
	return firstFix(ctx, p)
}

// Watch subscribes to the fix topic.
func (p *MQTTProvider) Watch(ctx context.Context, opts WatchOptions, deliver func(Fix), onErr func(error)) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	th := &throttle{opts: opts}

	token := p.client.Subscribe(p.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if ctx.Err() != nil {
			return
		}
		var f Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("location: fix unmarshal error: %v", err)
			return
		}
		if !f.Valid() || !th.allow(f) {
			return
		}
		deliver(f)
	})
	token.Wait()
	if token.Error() != nil {
		cancel()
		return nil, fmt.Errorf("location: subscribe %s: %w", p.topic, token.Error())
	}
	log.Printf("location: subscribed to %s", p.topic)

	// Stop may run under a lock the message handler needs; never wait here.
	return &cancelSubscription{cancel: func() {
		cancel()
		t := p.client.Unsubscribe(p.topic)
		go func() {
			if t.Wait() && t.Error() != nil {
				log.Printf("location: unsubscribe %s: %v", p.topic, t.Error())
			}
		}()
	}}, nil
}
