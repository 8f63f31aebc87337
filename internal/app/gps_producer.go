package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/wrccoach/stroke_computer/internal/config"
	"github.com/wrccoach/stroke_computer/internal/gps"
)

// hdopToMeters is the rough conversion from HDOP to horizontal error for
// consumer receivers (HDOP × nominal user range error).
const hdopToMeters = 5.0

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes fixes as JSON to the GPS topic. RMC supplies position, speed
// and course; GGA's HDOP rides along as the accuracy estimate.
func RunGPSProducer() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("gps: config not initialized")
	}

	// ---- 1) Connect to MQTT broker ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDGPS)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("GPS producer connected to MQTT broker at %s", cfg.MQTTBroker)

	// ---- 2) Open GPS serial port ----
	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("GPS serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	reader := bufio.NewReader(port)
	sessionStart := time.Now()

	// Accuracy comes from GGA, everything else from RMC.
	var lastAccuracy float32

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("GPS read error: %v", err)
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// NMEA sentences usually start with '$'
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// noisy GPS or partial sentences; skip quietly
			continue
		}

		switch sentence.DataType() {
		case nmea.TypeGGA:
			m := sentence.(nmea.GGA)
			lastAccuracy = float32(m.HDOP * hdopToMeters)

		case nmea.TypeRMC:
			m := sentence.(nmea.RMC)
			if m.Validity != "A" {
				continue // no fix yet
			}

			t := float64(time.Since(sessionStart).Milliseconds())
			sample := gps.FromRMC(t, m.Latitude, m.Longitude, m.Speed, m.Course)
			sample.Accuracy = lastAccuracy

			payload, err := json.Marshal(sample)
			if err != nil {
				log.Printf("GPS JSON marshal error: %v", err)
				continue
			}

			token := client.Publish(cfg.TopicGPS, 0, true, payload)
			token.Wait()
			if token.Error() != nil {
				log.Printf("GPS publish error: %v", token.Error())
				continue
			}

		default:
			// ignore other sentence types (GSA, GSV, etc.)
		}
	}
}
