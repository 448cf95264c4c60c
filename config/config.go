// Package config loads the printd settings file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Serial  SerialConfig  `yaml:"serial"`
	Motion  MotionConfig  `yaml:"motion"`
	BedMesh BedMeshConfig `yaml:"bed_mesh"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	DataDir string `yaml:"data_dir"`
}

type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type MotionConfig struct {
	// feed rates in mm/min
	DefaultFeed float64 `yaml:"default_feed"`
	MaxFeed     float64 `yaml:"max_feed"`
}

type BedMeshConfig struct {
	Enabled bool         `yaml:"enabled"`
	Points  []ProbePoint `yaml:"points"`
}

type ProbePoint struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    ":9091",
			DataDir: "./data",
		},
		Serial: SerialConfig{
			Port: "/dev/ttyUSB0",
			Baud: 115200,
		},
		Motion: MotionConfig{
			DefaultFeed: 1500,
			MaxFeed:     18000,
		},
	}
}

// Load reads the config file, falling back to defaults if it does not
// exist.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial baud must be positive, got %d", c.Serial.Baud)
	}
	if c.Motion.DefaultFeed <= 0 {
		return fmt.Errorf("default feed must be positive, got %g", c.Motion.DefaultFeed)
	}
	if c.Motion.MaxFeed < 0 {
		return fmt.Errorf("max feed must be non-negative, got %g", c.Motion.MaxFeed)
	}
	if c.BedMesh.Enabled && len(c.BedMesh.Points) < 3 {
		return fmt.Errorf("bed mesh needs at least 3 probe points, got %d", len(c.BedMesh.Points))
	}
	return nil
}
