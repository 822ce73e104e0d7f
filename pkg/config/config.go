// Package config sets up a node from command line flags and a YAML file.
package config

import (
	"flag"
	"os"
	"time"
)

// Config defines the command line options of a node.
type Config struct {
	// File is the YAML system description.
	File string
	// Shell starts the diagnostic shell on stdin.
	Shell bool
	// TelemetryURL is the MQTT broker receiving telemetry,
	// e.g. mqtt://host:port/topic-prefix. Empty disables MQTT.
	TelemetryURL string
	// WebsocketAddr serves telemetry to websocket clients. Empty disables it.
	WebsocketAddr string
	// NodeID overrides the node id of the file and of the machine.
	NodeID string
	// ReportInterval is the status reporting period.
	ReportInterval time.Duration
}

var defaultConfig = Config{
	File:           "rtio.yaml",
	ReportInterval: 500 * time.Millisecond,
}

func init() {
	if val := os.Getenv("RTIO_CONFIG"); val != "" {
		defaultConfig.File = val
	}
	if val := os.Getenv("RTIO_TELEMETRY_URL"); val != "" {
		defaultConfig.TelemetryURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.File, "config", defaultConfig.File, "System description file")
	flag.BoolVar(&defaultConfig.Shell, "shell", defaultConfig.Shell, "Start diagnostic shell")
	flag.StringVar(&defaultConfig.TelemetryURL, "telemetry", defaultConfig.TelemetryURL, "MQTT broker URL for telemetry")
	flag.StringVar(&defaultConfig.WebsocketAddr, "ws", defaultConfig.WebsocketAddr, "Listen address of websocket telemetry")
	flag.StringVar(&defaultConfig.NodeID, "node-id", defaultConfig.NodeID, "Node ID, defaults to the machine id")
	flag.DurationVar(&defaultConfig.ReportInterval, "report-interval", defaultConfig.ReportInterval, "Telemetry status period")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}
