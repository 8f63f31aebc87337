package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/wrccoach/stroke_computer/internal/filter"
	"github.com/wrccoach/stroke_computer/internal/orientation"
	"github.com/wrccoach/stroke_computer/internal/stroke"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker            string
	MQTTClientIDProcessor string
	MQTTClientIDGPS       string
	MQTTClientIDSimulator string
	MQTTClientIDMonitor   string

	// Topics
	TopicIMU         string
	TopicGPS         string
	TopicMetrics     string
	TopicStrokes     string
	TopicOrientation string
	TopicCalibration string

	// GPS serial
	GPSSerialPort string
	GPSBaudRate   int

	// Detection
	PhoneOrientation string // "rower" or "coxswain"
	AutoMode         bool
	DemoMode         bool
	CatchThreshold   float64
	FinishThreshold  float64

	// Filter tuning
	ComplementaryAlpha float64
	BandLowHz          float64
	BandHighHz         float64
	DisplaySmoothing   float64
	BaselineWindowMs   float64

	// Capture
	CaptureDir      string
	CalibrationFile string

	// Web monitor
	WebServerPort    int
	WebPushInterval  int // milliseconds
	SimScenarioFile  string
	SimSampleRateHz  int
}

// defaults returns a Config pre-filled with the values a bare config file
// inherits. Only MQTT_BROKER has no sensible default.
func defaults() *Config {
	return &Config{
		MQTTClientIDProcessor: "wrc-processor",
		MQTTClientIDGPS:       "wrc-gps-producer",
		MQTTClientIDSimulator: "wrc-simulator",
		MQTTClientIDMonitor:   "wrc-monitor",

		TopicIMU:         "wrc/imu",
		TopicGPS:         "wrc/gps",
		TopicMetrics:     "wrc/metrics",
		TopicStrokes:     "wrc/strokes",
		TopicOrientation: "wrc/orientation",
		TopicCalibration: "wrc/calibration",

		GPSSerialPort: "/dev/serial0",
		GPSBaudRate:   9600,

		PhoneOrientation: "rower",
		CatchThreshold:   stroke.DefaultCatchThreshold,
		FinishThreshold:  stroke.DefaultFinishThreshold,

		ComplementaryAlpha: orientation.DefaultAlpha,
		BandLowHz:          filter.DefaultHighPassHz,
		BandHighHz:         filter.DefaultLowPassHz,
		DisplaySmoothing:   filter.DefaultDisplayFactor,
		BaselineWindowMs:   filter.DefaultBaselineWindowMs,

		CaptureDir: ".",

		WebServerPort:   8080,
		WebPushInterval: 250,
		SimSampleRateHz: 50,
	}
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot access it directly.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock for initialization,
//     read lock for Get() allows multiple concurrent readers.
//
// External code must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PROCESSOR":
		c.MQTTClientIDProcessor = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_SIMULATOR":
		c.MQTTClientIDSimulator = value
	case "MQTT_CLIENT_ID_MONITOR":
		c.MQTTClientIDMonitor = value

	// Topics
	case "TOPIC_IMU":
		c.TopicIMU = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_METRICS":
		c.TopicMetrics = value
	case "TOPIC_STROKES":
		c.TopicStrokes = value
	case "TOPIC_ORIENTATION":
		c.TopicOrientation = value
	case "TOPIC_CALIBRATION":
		c.TopicCalibration = value

	// GPS serial
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Detection
	case "PHONE_ORIENTATION":
		if value != "rower" && value != "coxswain" {
			return fmt.Errorf("PHONE_ORIENTATION must be \"rower\" or \"coxswain\", got %q", value)
		}
		c.PhoneOrientation = value
	case "AUTO_MODE":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid AUTO_MODE %q: %w", value, err)
		}
		c.AutoMode = b
	case "DEMO_MODE":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid DEMO_MODE %q: %w", value, err)
		}
		c.DemoMode = b
	case "CATCH_THRESHOLD":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid CATCH_THRESHOLD %q: %w", value, err)
		}
		c.CatchThreshold = v
	case "FINISH_THRESHOLD":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FINISH_THRESHOLD %q: %w", value, err)
		}
		c.FinishThreshold = v

	// Filter tuning
	case "COMPLEMENTARY_ALPHA":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid COMPLEMENTARY_ALPHA %q: %w", value, err)
		}
		if v <= 0 || v >= 1 {
			return fmt.Errorf("COMPLEMENTARY_ALPHA must be in (0,1), got %g", v)
		}
		c.ComplementaryAlpha = v
	case "BAND_LOW_HZ":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid BAND_LOW_HZ %q: %w", value, err)
		}
		c.BandLowHz = v
	case "BAND_HIGH_HZ":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid BAND_HIGH_HZ %q: %w", value, err)
		}
		c.BandHighHz = v
	case "DISPLAY_SMOOTHING":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_SMOOTHING %q: %w", value, err)
		}
		if v <= 0 || v >= 1 {
			return fmt.Errorf("DISPLAY_SMOOTHING must be in (0,1), got %g", v)
		}
		c.DisplaySmoothing = v
	case "BASELINE_WINDOW_MS":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid BASELINE_WINDOW_MS %q: %w", value, err)
		}
		c.BaselineWindowMs = v

	// Capture
	case "CAPTURE_DIR":
		c.CaptureDir = value
	case "CALIBRATION_FILE":
		c.CalibrationFile = value

	// Web monitor
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port
	case "WEB_PUSH_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_PUSH_INTERVAL %q: %w", value, err)
		}
		c.WebPushInterval = interval

	// Simulator
	case "SIM_SCENARIO_FILE":
		c.SimScenarioFile = value
	case "SIM_SAMPLE_RATE_HZ":
		hz, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SIM_SAMPLE_RATE_HZ %q: %w", value, err)
		}
		if hz < 20 || hz > 100 {
			return fmt.Errorf("SIM_SAMPLE_RATE_HZ must be 20-100, got %d", hz)
		}
		c.SimSampleRateHz = hz

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set and consistent.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be positive")
	}
	if c.CatchThreshold <= c.FinishThreshold {
		return fmt.Errorf("CATCH_THRESHOLD (%g) must be above FINISH_THRESHOLD (%g)",
			c.CatchThreshold, c.FinishThreshold)
	}
	if c.BandLowHz >= c.BandHighHz {
		return fmt.Errorf("BAND_LOW_HZ (%g) must be below BAND_HIGH_HZ (%g)",
			c.BandLowHz, c.BandHighHz)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
