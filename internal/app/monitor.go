// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/wrccoach/stroke_computer/internal/config"
	"github.com/wrccoach/stroke_computer/internal/stroke"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// recentStrokeLimit caps the stroke history the monitor keeps in memory.
const recentStrokeLimit = 200

// wsCommand is what the browser sends over the websocket.
type wsCommand struct {
	Action string `json:"action"` // calibrate-start, calibrate-complete, calibrate-cancel
}

// RunMonitor subscribes to the processor's topics and serves the live
// dashboard: JSON endpoints, a websocket push stream, and static files.
func RunMonitor() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("monitor: config not initialized")
	}

	var (
		mu          sync.RWMutex
		latest      Metrics
		haveMetrics bool
		strokes     []stroke.Record
	)

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDMonitor)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("monitor: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Track the latest metrics snapshot
	metricsToken := client.Subscribe(cfg.TopicMetrics, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var m Metrics
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("monitor: metrics unmarshal error: %v", err)
			return
		}
		mu.Lock()
		latest = m
		haveMetrics = true
		mu.Unlock()
	})
	metricsToken.Wait()
	if metricsToken.Error() != nil {
		return metricsToken.Error()
	}
	log.Printf("monitor: subscribed to %s", cfg.TopicMetrics)

	// 3) Accumulate stroke records
	strokeToken := client.Subscribe(cfg.TopicStrokes, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s stroke.Record
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("monitor: stroke unmarshal error: %v", err)
			return
		}
		mu.Lock()
		strokes = append(strokes, s)
		if len(strokes) > recentStrokeLimit {
			strokes = strokes[len(strokes)-recentStrokeLimit:]
		}
		mu.Unlock()
	})
	strokeToken.Wait()
	if strokeToken.Error() != nil {
		return strokeToken.Error()
	}
	log.Printf("monitor: subscribed to %s", cfg.TopicStrokes)

	// 4) JSON API: latest metrics
	http.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if !haveMetrics {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(latest); err != nil {
			log.Printf("monitor: json encode error: %v", err)
		}
	})

	// 5) JSON API: recent strokes
	http.HandleFunc("/api/strokes", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(strokes); err != nil {
			log.Printf("monitor: json encode error: %v", err)
		}
	})

	// 6) Websocket: push the latest metrics on a fixed cadence, and relay
	// calibration commands from the browser to the processor.
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("monitor: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		done := make(chan struct{})

		go func() {
			defer close(done)
			for {
				var cmd wsCommand
				if err := conn.ReadJSON(&cmd); err != nil {
					return
				}
				var action string
				switch cmd.Action {
				case "calibrate-start":
					action = "start"
				case "calibrate-complete":
					action = "complete"
				case "calibrate-cancel":
					action = "cancel"
				default:
					log.Printf("monitor: unknown ws action %q", cmd.Action)
					continue
				}
				payload, err := json.Marshal(CalibrationCommand{Action: action})
				if err != nil {
					log.Printf("monitor: marshal calibration command: %v", err)
					continue
				}
				client.Publish(cfg.TopicCalibration, 0, false, payload)
			}
		}()

		ticker := time.NewTicker(time.Duration(cfg.WebPushInterval) * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				mu.RLock()
				m, ok := latest, haveMetrics
				mu.RUnlock()
				if !ok {
					continue
				}
				if err := conn.WriteJSON(m); err != nil {
					return
				}
			}
		}
	})

	// 7) Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("monitor: web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
