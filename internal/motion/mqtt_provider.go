package motion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTProvider subscribes to a topic carrying JSON samples, as published by
// the motion producer.
type MQTTProvider struct {
	client mqtt.Client
	topic  string
}

// NewMQTTProvider creates a provider on an already connected client.
func NewMQTTProvider(client mqtt.Client, topic string) *MQTTProvider {
	return &MQTTProvider{client: client, topic: topic}
}

// Start subscribes to the topic. Payloads that do not decode are skipped.
func (p *MQTTProvider) Start(ctx context.Context, deliver func(Sample), onErr func(error)) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	token := p.client.Subscribe(p.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if ctx.Err() != nil {
			return
		}
		var s Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("motion: sample unmarshal error: %v", err)
			return
		}
		deliver(s)
	})
	token.Wait()
	if token.Error() != nil {
		cancel()
		return nil, fmt.Errorf("motion: subscribe %s: %w", p.topic, token.Error())
	}
	log.Printf("motion: subscribed to %s", p.topic)

	// Stop may run under a lock the message handler needs; never wait here.
	return &cancelSubscription{cancel: func() {
		cancel()
		t := p.client.Unsubscribe(p.topic)
		go func() {
			if t.Wait() && t.Error() != nil {
				log.Printf("motion: unsubscribe %s: %v", p.topic, t.Error())
			}
		}()
	}}, nil
}
