package main

import (
	"log"

	"github.com/wrccoach/stroke_computer/internal/app"
	"github.com/wrccoach/stroke_computer/internal/config"
)

func main() {
	log.Println("starting wrc-coach GPS producer (NMEA → MQTT)")

	if err := config.InitGlobal("wrc_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunGPSProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
