package app

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/wrccoach/stroke_computer/internal/config"
	"github.com/wrccoach/stroke_computer/internal/sim"
)

// RunSimulator plays a scenario over MQTT in real time, standing in for the
// phone's sensors so the processor and monitor can be exercised on a desk.
func RunSimulator() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("simulator: config not initialized")
	}

	sc := sim.DefaultScenario()
	if cfg.SimScenarioFile != "" {
		loaded, err := sim.LoadScenario(cfg.SimScenarioFile)
		if err != nil {
			return err
		}
		sc = loaded
	}
	log.Printf("simulator: scenario %q, %.0f s at %g Hz", sc.Name, sc.DurationSec(), sc.SampleRateHz)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDSimulator)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("simulator: connected to MQTT broker at %s", cfg.MQTTBroker)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	gen := sim.NewGenerator(sc, time.Now().UnixNano())
	ticker := time.NewTicker(time.Duration(float64(time.Second) / sc.SampleRateHz))
	defer ticker.Stop()

	published := 0
	for {
		select {
		case <-sigCh:
			log.Println("simulator: interrupted")
			client.Disconnect(250)
			return nil

		case <-ticker.C:
			s, ok := gen.NextIMU()
			if !ok {
				log.Printf("simulator: scenario finished, %d IMU samples, %.0f m covered",
					published, gen.Distance())
				client.Disconnect(250)
				return nil
			}
			payload, err := json.Marshal(s)
			if err != nil {
				log.Printf("simulator: marshal error: %v", err)
				continue
			}
			client.Publish(cfg.TopicIMU, 0, false, payload)
			published++

			if fix, ok := gen.NextGPS(); ok {
				payload, err := json.Marshal(fix)
				if err != nil {
					log.Printf("simulator: marshal error: %v", err)
					continue
				}
				client.Publish(cfg.TopicGPS, 0, true, payload)
			}
		}
	}
}
