package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/wrccoach/stroke_computer/internal/boatframe"
	"github.com/wrccoach/stroke_computer/internal/calibration"
	"github.com/wrccoach/stroke_computer/internal/config"
	"github.com/wrccoach/stroke_computer/internal/gps"
	"github.com/wrccoach/stroke_computer/internal/imu"
	"github.com/wrccoach/stroke_computer/internal/pipeline"
	"github.com/wrccoach/stroke_computer/internal/sim"
	"github.com/wrccoach/stroke_computer/internal/wrcdata"
)

// Metrics is the periodic snapshot published to the metrics topic and
// served by the web monitor.
type Metrics struct {
	T             float64 `json:"t"` // session ms
	Pitch         float64 `json:"pitch"`
	Roll          float64 `json:"roll"`
	Yaw           float64 `json:"yaw"`
	DisplaySurge  float64 `json:"displaySurge"`
	StrokeRateSPM int     `json:"strokeRateSpm"`
	DrivePercent  float64 `json:"drivePercent"`
	StrokeCount   int     `json:"strokeCount"`
	FusedVelocity float64 `json:"fusedVelocity"`
	SplitSec      float64 `json:"splitSec"`
	Calibrated    bool    `json:"calibrated"`
}

// CalibrationCommand arrives on the calibration topic from the UI.
type CalibrationCommand struct {
	Action string `json:"action"` // "start", "complete", "cancel"
}

// RunProcessor subscribes to the raw sample topics, runs the session
// pipeline, and publishes metrics and stroke records. On shutdown the
// session is written to a .wrcdata capture file.
func RunProcessor() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("processor: config not initialized")
	}

	pcfg := pipeline.DefaultConfig()
	pcfg.PhoneOrientation = boatframe.ParsePhoneOrientation(cfg.PhoneOrientation)
	pcfg.Automatic = cfg.AutoMode
	pcfg.CatchThreshold = cfg.CatchThreshold
	pcfg.FinishThreshold = cfg.FinishThreshold
	pcfg.Alpha = cfg.ComplementaryAlpha
	pcfg.BandLowHz = cfg.BandLowHz
	pcfg.BandHighHz = cfg.BandHighHz
	pcfg.DisplayFactor = cfg.DisplaySmoothing
	pcfg.BaselineWindowMs = cfg.BaselineWindowMs
	pcfg.RecordRaw = true
	p := pipeline.New(pcfg)

	if cfg.CalibrationFile != "" {
		if rec, err := calibration.LoadRecord(cfg.CalibrationFile); err == nil {
			p.SetCalibration(rec)
			log.Printf("processor: loaded calibration from %s (quality %s)", cfg.CalibrationFile, rec.Quality)
		} else {
			log.Printf("processor: no stored calibration: %v", err)
		}
	}

	// paho delivers messages on its own goroutines; the pipeline is a
	// single-writer state machine, so every touch goes through mu.
	var mu sync.Mutex
	var latest Metrics
	var lastPublish float64

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProcessor)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("processor: connected to MQTT broker at %s", cfg.MQTTBroker)

	sessionStart := float64(time.Now().UnixMilli())

	publish := func(topic string, v any) {
		payload, err := json.Marshal(v)
		if err != nil {
			log.Printf("processor: marshal error: %v", err)
			return
		}
		token := client.Publish(topic, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("processor: publish error on %s: %v", topic, token.Error())
		}
	}

	// onIMU advances the pipeline by one sample and publishes throttled
	// metrics plus any completed stroke. Callers hold mu.
	onIMU := func(s imu.Sample) {
		if p.Calibrating() {
			// During a static hold the samples feed the calibration run
			// as well as the regular chain.
			if err := p.AddCalibrationSample(s); err != nil {
				log.Printf("processor: calibration sample error: %v", err)
			}
		}
		res := p.ProcessIMU(s)

		latest.T = s.T
		latest.Pitch = res.Orientation.Pitch
		latest.Roll = res.Orientation.Roll
		latest.Yaw = res.Orientation.Yaw
		latest.DisplaySurge = res.DisplaySurge
		latest.FusedVelocity = p.Velocity()
		_, latest.Calibrated = p.Calibration()

		if res.Stroke != nil {
			latest.StrokeRateSPM = res.Stroke.StrokeRateSPM
			latest.DrivePercent = res.Stroke.DrivePercent
			latest.StrokeCount = res.Stroke.Index
			publish(cfg.TopicStrokes, res.Stroke)
		}

		if s.T-lastPublish >= float64(cfg.WebPushInterval) {
			lastPublish = s.T
			publish(cfg.TopicMetrics, latest)
			publish(cfg.TopicOrientation, res.Orientation)
		}
	}

	onGPS := func(s gps.Sample) {
		res := p.ProcessGPS(s)
		latest.FusedVelocity = res.FusedVelocity
		latest.SplitSec = res.SplitSec
	}

	if cfg.DemoMode {
		// Demo mode: generate the session in-process instead of
		// subscribing to live sensors.
		go runDemoFeed(cfg, &mu, onIMU, onGPS)
		log.Println("processor: demo mode, feeding synthetic session")
	} else {
		imuToken := client.Subscribe(cfg.TopicIMU, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var s imu.Sample
			if err := json.Unmarshal(msg.Payload(), &s); err != nil {
				log.Printf("processor: imu unmarshal error: %v", err)
				return
			}
			mu.Lock()
			onIMU(s)
			mu.Unlock()
		})
		imuToken.Wait()
		if imuToken.Error() != nil {
			return imuToken.Error()
		}
		log.Printf("processor: subscribed to %s", cfg.TopicIMU)

		gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var s gps.Sample
			if err := json.Unmarshal(msg.Payload(), &s); err != nil {
				log.Printf("processor: gps unmarshal error: %v", err)
				return
			}
			mu.Lock()
			onGPS(s)
			mu.Unlock()
		})
		gpsToken.Wait()
		if gpsToken.Error() != nil {
			return gpsToken.Error()
		}
		log.Printf("processor: subscribed to %s", cfg.TopicGPS)
	}

	calToken := client.Subscribe(cfg.TopicCalibration, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var cmd CalibrationCommand
		if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
			log.Printf("processor: calibration command unmarshal error: %v", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch cmd.Action {
		case "start":
			p.StartCalibration(nil)
			log.Println("processor: static calibration started, hold the boat still")
		case "complete":
			rec, err := p.CompleteCalibration()
			if err != nil {
				log.Printf("processor: calibration failed: %v", err)
				return
			}
			log.Printf("processor: calibration complete, quality %s (%d samples)", rec.Quality, rec.SampleCount)
			if cfg.CalibrationFile != "" {
				if err := rec.Save(cfg.CalibrationFile); err != nil {
					log.Printf("processor: calibration save error: %v", err)
				}
			}
		case "cancel":
			p.CancelCalibration()
			log.Println("processor: calibration cancelled")
		default:
			log.Printf("processor: unknown calibration action %q", cmd.Action)
		}
	})
	calToken.Wait()
	if calToken.Error() != nil {
		return calToken.Error()
	}
	log.Printf("processor: subscribed to %s", cfg.TopicCalibration)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("processor: shutting down")
	client.Disconnect(250)

	mu.Lock()
	defer mu.Unlock()
	return saveCapture(cfg, p, sessionStart)
}

// runDemoFeed plays the configured scenario (or the built-in one) in real
// time through the same callbacks live samples would use.
func runDemoFeed(cfg *config.Config, mu *sync.Mutex, onIMU func(imu.Sample), onGPS func(gps.Sample)) {
	sc := sim.DefaultScenario()
	if cfg.SimScenarioFile != "" {
		loaded, err := sim.LoadScenario(cfg.SimScenarioFile)
		if err != nil {
			log.Printf("processor: scenario load error, using built-in demo: %v", err)
		} else {
			sc = loaded
		}
	}

	gen := sim.NewGenerator(sc, time.Now().UnixNano())
	ticker := time.NewTicker(time.Duration(float64(time.Second) / sc.SampleRateHz))
	defer ticker.Stop()

	for range ticker.C {
		s, ok := gen.NextIMU()
		if !ok {
			log.Println("processor: demo scenario finished")
			return
		}
		mu.Lock()
		onIMU(s)
		if fix, ok := gen.NextGPS(); ok {
			onGPS(fix)
		}
		mu.Unlock()
	}
}

// saveCapture writes the session's raw samples as a .wrcdata file in the
// capture directory. Sessions with no samples are skipped.
func saveCapture(cfg *config.Config, p *pipeline.Pipeline, sessionStart float64) error {
	rawIMU, rawGPS := p.RawSamples()
	if len(rawIMU) == 0 && len(rawGPS) == 0 {
		log.Println("processor: empty session, no capture written")
		return nil
	}

	capture := wrcdata.Capture{
		Meta: wrcdata.Metadata{
			SessionStartMs:   sessionStart,
			PhoneOrientation: boatframe.ParsePhoneOrientation(cfg.PhoneOrientation),
			DemoMode:         cfg.DemoMode,
			CatchThreshold:   float32(cfg.CatchThreshold),
			FinishThreshold:  float32(cfg.FinishThreshold),
		},
		IMU: rawIMU,
		GPS: rawGPS,
	}
	if rec, ok := p.Calibration(); ok && rec.Method == "static" {
		capture.Calibration = &rec
	}

	data, err := wrcdata.Encode(capture)
	if err != nil {
		return fmt.Errorf("encode capture: %w", err)
	}

	name := fmt.Sprintf("session_%s.wrcdata", time.Now().Format("20060102_150405"))
	path := filepath.Join(cfg.CaptureDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write capture: %w", err)
	}
	log.Printf("processor: capture saved to %s (%d IMU, %d GPS samples, %d strokes)",
		path, len(rawIMU), len(rawGPS), len(p.Strokes()))
	return nil
}
