package app

import (
	"log"
	"time"

	"github.com/relabs-tech/activity_computer/internal/config"
	"github.com/relabs-tech/activity_computer/internal/motion"
)

// RunMotionProducer samples the local accelerometer (or the mock gait) and
// publishes every sample as JSON on the motion topic.
func RunMotionProducer() error {
	log.Println("starting activity-computer motion producer")

	cfg := config.Get()

	src, err := motionSource(cfg)
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDMotion)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	log.Println("connected to MQTT, starting publish loop")

	ticker := time.NewTicker(millis(cfg.MotionSampleInterval))
	defer ticker.Stop()

	var (
		published int
		lastLog   time.Time
	)
	for t := range ticker.C {
		s, err := src.Next()
		if err != nil {
			log.Printf("motion read error: %v", err)
			continue
		}
		if !s.Valid() {
			continue
		}

		if err := publishJSON(client, cfg.TopicMotion, false, s); err != nil {
			log.Printf("%v", err)
			continue
		}
		published++

		if t.Sub(lastLog) >= millis(cfg.ConsoleLogInterval) {
			logSample(t, s, published)
			lastLog = t
		}
	}
	return nil
}

func logSample(t time.Time, s motion.Sample, published int) {
	tilt := s.Tilt()
	log.Printf("%s tick: accel x=%.3f y=%.3f z=%.3f |a|=%.3fg | tilt R=%.1f P=%.1f | published=%d",
		t.Format(time.RFC3339), s.X, s.Y, s.Z, s.Magnitude(), tilt.Roll, tilt.Pitch, published)
}
