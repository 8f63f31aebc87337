package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/wrccoach/stroke_computer/internal/config"
	"github.com/wrccoach/stroke_computer/internal/orientation"
	"github.com/wrccoach/stroke_computer/internal/stroke"
)

// RunConsole subscribes to the processor's topics and prints live metrics,
// for debugging a rig without the web monitor.
func RunConsole() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("console: config not initialized")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDMonitor + "-console")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to metrics
	metricsToken := client.Subscribe(cfg.TopicMetrics, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var m Metrics
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("console: metrics unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[METR] t=%8.1fs  spm=%2d  drive=%4.1f%%  v=%5.2fm/s  split=%s  surge=%6.2f\n",
			m.T/1000, m.StrokeRateSPM, m.DrivePercent, m.FusedVelocity,
			formatSplit(m.SplitSec), m.DisplaySurge,
		)
	})
	metricsToken.Wait()
	if metricsToken.Error() != nil {
		return metricsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicMetrics)

	// Subscribe to stroke records
	strokeToken := client.Subscribe(cfg.TopicStrokes, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s stroke.Record
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: stroke unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[STRK] #%-3d  %2d spm  drive %4.0f ms (%4.1f%%)  recovery %4.0f ms\n",
			s.Index, s.StrokeRateSPM, s.DriveTimeMs, s.DrivePercent, s.RecoveryTimeMs,
		)
	})
	strokeToken.Wait()
	if strokeToken.Error() != nil {
		return strokeToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStrokes)

	// Subscribe to orientation
	poseToken := client.Subscribe(cfg.TopicOrientation, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p orientation.Pose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("console: pose unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[POSE]  ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f\n",
			p.Roll, p.Pitch, p.Yaw,
		)
	})
	poseToken.Wait()
	if poseToken.Error() != nil {
		return poseToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicOrientation)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

// formatSplit renders seconds-per-500m as m:ss.t, or a dash when the boat
// is effectively stationary.
func formatSplit(sec float64) string {
	if sec <= 0 {
		return "-:--.-"
	}
	min := int(sec) / 60
	rem := sec - float64(min*60)
	return fmt.Sprintf("%d:%04.1f", min, rem)
}
