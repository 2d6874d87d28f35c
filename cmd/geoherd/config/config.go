// Package config stores the geoherd server configuration
package config

import (
	"fmt"

	"github.com/els0r/geoherd/pkg/defaults"
)

// ServiceName denotes the name of the service for logging and metrics
const ServiceName = "geoherd"

// Config stores geoherd's configuration
type Config struct {
	Topology string       `yaml:"topology"`
	Logging  LogConfig    `yaml:"logging"`
	API      APIConfig    `yaml:"api"`
	Places   PlacesConfig `yaml:"places"`
}

// LogConfig stores the logging configuration
type LogConfig struct {
	Destination string `yaml:"destination"`
	Level       string `yaml:"level"`
	Encoding    string `yaml:"encoding"`
}

// APIConfig stores the status API configuration. The API is disabled when no
// address is set
type APIConfig struct {
	Addr    string `yaml:"addr"`
	Metrics bool   `yaml:"metrics"`
}

// PlacesConfig stores the access parameters for the places oracle. They
// override the values carried in the topology when set
type PlacesConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// New creates a new configuration struct with default settings
func New() *Config {
	return &Config{
		Logging: LogConfig{
			Encoding: "logfmt",
			Level:    "info",
		},
		Places: PlacesConfig{
			URL: defaults.PlacesBaseURL,
		},
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Places.URL == "" {
		return fmt.Errorf("places oracle URL must not be empty")
	}
	return nil
}
