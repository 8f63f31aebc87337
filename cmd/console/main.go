// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/wrccoach/stroke_computer/internal/app"
	"github.com/wrccoach/stroke_computer/internal/config"
)

func main() {
	log.Println("starting wrc-coach console (MQTT subscriber)")

	if err := config.InitGlobal("wrc_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
