// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// wrcdata inspects and converts .wrcdata session captures.
//
//	wrcdata info <capture>            print header and sample summary
//	wrcdata reprocess <capture>       replay through the pipeline, print stroke metrics
//	wrcdata gpx <capture> [out.gpx]   export the GPS track as GPX
//	wrcdata fit <capture> [out.fit]   export as a FIT rowing activity
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/wrccoach/stroke_computer/internal/app"
)

func main() {
	if len(os.Args) < 3 {
		usage()
	}
	cmd, capturePath := os.Args[1], os.Args[2]

	switch cmd {
	case "info":
		c, err := app.LoadCapture(capturePath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		app.PrintCaptureInfo(capturePath, c)

	case "reprocess":
		c, err := app.LoadCapture(capturePath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		app.PrintCaptureInfo(capturePath, c)
		strokes, p := app.ReprocessCapture(c)
		app.PrintStrokeSummary(strokes, p)

	case "gpx":
		out := outPath(capturePath, 3, ".gpx")
		if err := app.ExportCaptureGPX(capturePath, out); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		fmt.Printf("wrote %s\n", out)

	case "fit":
		out := outPath(capturePath, 3, ".fit")
		if err := app.ExportCaptureFIT(capturePath, out); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		fmt.Printf("wrote %s\n", out)

	default:
		usage()
	}
}

// outPath takes the explicit output argument when given, otherwise swaps
// the capture's extension.
func outPath(capturePath string, argIdx int, ext string) string {
	if len(os.Args) > argIdx {
		return os.Args[argIdx]
	}
	return strings.TrimSuffix(capturePath, ".wrcdata") + ext
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s {info|reprocess|gpx|fit} <capture.wrcdata> [output]\n", os.Args[0])
	os.Exit(2)
}
