package main

import (
	"log"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Default drive parameters, applied when the config file is absent or a
// value is unset/invalid.
const (
	DefaultNamespace     = "heron"
	DefaultRate          = 20.0 // publish rate in Hz
	DefaultMinRate       = 10.0 // minimum acceptable command freshness in Hz
	DefaultMaxUpdateRate = 1.0  // max fractional change per second
)

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker string `toml:"broker"`
	Port   int    `toml:"port"`
}

// Config holds the drive shaping parameters. Immutable after LoadConfig;
// derived timing values are computed from the final field values only.
type Config struct {
	Namespace     string     `toml:"namespace"`
	Rate          float64    `toml:"rate"`
	MinRate       float64    `toml:"min_rate"`
	MaxUpdateRate float64    `toml:"max_update_rate"`
	MQTT          MQTTConfig `toml:"mqtt"`
}

// DefaultConfig returns the built-in parameter set.
func DefaultConfig() Config {
	return Config{
		Namespace:     DefaultNamespace,
		Rate:          DefaultRate,
		MinRate:       DefaultMinRate,
		MaxUpdateRate: DefaultMaxUpdateRate,
		MQTT:          MQTTConfig{Broker: "localhost", Port: 1883},
	}
}

// LoadConfig reads the TOML config at path, falling back to defaults for a
// missing file or unset/invalid values. Config fallback is logged, never an
// error: a misconfigured rate must not keep the drive loop from starting.
func LoadConfig(path string) Config {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			log.Printf("No config file at %s, using defaults\n", path)
		} else {
			log.Printf("Warning: failed to read config %s, using defaults: %v\n", path, err)
			cfg = DefaultConfig()
		}
		return cfg
	}

	cfg.normalize()
	return cfg
}

// normalize substitutes defaults for unset or out-of-range values.
func (c *Config) normalize() {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Rate <= 0 {
		log.Printf("Warning: rate %v is not positive, using default %v\n", c.Rate, DefaultRate)
		c.Rate = DefaultRate
	}
	if c.MinRate <= 0 {
		log.Printf("Warning: min_rate %v is not positive, using default %v\n", c.MinRate, DefaultMinRate)
		c.MinRate = DefaultMinRate
	}
	if c.MaxUpdateRate <= 0 {
		log.Printf("Warning: max_update_rate %v is not positive, using default %v\n", c.MaxUpdateRate, DefaultMaxUpdateRate)
		c.MaxUpdateRate = DefaultMaxUpdateRate
	}
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "localhost"
	}
	if c.MQTT.Port <= 0 {
		c.MQTT.Port = 1883
	}
}

// PublishPeriod is the interval between setpoint publications.
func (c Config) PublishPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.Rate)
}

// CommandTimeout is how stale the last command may get before the watchdog
// zeroes the target.
func (c Config) CommandTimeout() time.Duration {
	return time.Duration(float64(time.Second) / c.MinRate)
}

// MaxCmdDelta bounds how much either channel may change in one publish tick.
func (c Config) MaxCmdDelta() float64 {
	return c.PublishPeriod().Seconds() * c.MaxUpdateRate
}

// CommandTopic is the inbound drive command topic.
func (c Config) CommandTopic() string {
	return c.Namespace + "/cmd_drive"
}

// LeftTopic is the left actuator setpoint topic.
func (c Config) LeftTopic() string {
	return c.Namespace + "/left/cmd"
}

// RightTopic is the right actuator setpoint topic.
func (c Config) RightTopic() string {
	return c.Namespace + "/right/cmd"
}

// StatusTopic carries the daemon's retained availability state.
func (c Config) StatusTopic() string {
	return c.Namespace + "/drivectl/status"
}
