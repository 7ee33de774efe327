// Package config loads the shared YAML configuration of the pipeline
// services. A missing file is not an error; every field has a default and
// the bus and twin endpoints can be overridden from the environment, which
// is how containerised deployments point the services at each other.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables recognised by Load. Each overrides its configuration
// field after the file, if any, has been read.
const (
	EnvTopicURL        = "ROADTWIN_BUS_TOPIC_URL"
	EnvSubscriptionURL = "ROADTWIN_BUS_SUBSCRIPTION_URL"
	EnvHTTPAddr        = "ROADTWIN_HTTP_ADDR"
	EnvTwinURL         = "ROADTWIN_TWIN_URL"
)

type Config struct {
	Bus     Bus     `yaml:"bus"`
	HTTP    HTTP    `yaml:"http"`
	Routing Routing `yaml:"routing"`
}

// Bus names the pubsub endpoints in the URL scheme of gocloud.dev/pubsub,
// for example "rabbit://traffic.events" or "mem://traffic.events".
type Bus struct {
	TopicURL        string `yaml:"topic_url"`
	SubscriptionURL string `yaml:"subscription_url"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

// Routing holds the routing service's twin endpoint and travel-time model.
// The model parameters are expressed in minutes because that is the unit the
// estimates are reported in.
type Routing struct {
	TwinURL           string  `yaml:"twin_url"`
	BaseTravelTimeMin float64 `yaml:"base_travel_time_min"`
	UnitDelayMin      float64 `yaml:"unit_delay_min"`
}

// Load reads the configuration file at path, fills in defaults, applies
// environment overrides and validates the result. An empty path skips the
// file and yields the defaults.
func Load(path string) (Config, error) {
	var conf Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &conf); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	conf.applyDefaults()
	conf.applyEnvironment()

	if err := conf.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return conf, nil
}

func (c *Config) applyDefaults() {
	if c.Bus.TopicURL == "" {
		c.Bus.TopicURL = "rabbit://traffic.events"
	}
	if c.Bus.SubscriptionURL == "" {
		c.Bus.SubscriptionURL = "rabbit://traffic.events"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Routing.TwinURL == "" {
		c.Routing.TwinURL = "http://localhost:8003"
	}
	if c.Routing.BaseTravelTimeMin == 0 {
		c.Routing.BaseTravelTimeMin = 10
	}
	if c.Routing.UnitDelayMin == 0 {
		c.Routing.UnitDelayMin = 0.1
	}
}

func (c *Config) applyEnvironment() {
	if v := os.Getenv(EnvTopicURL); v != "" {
		c.Bus.TopicURL = v
	}
	if v := os.Getenv(EnvSubscriptionURL); v != "" {
		c.Bus.SubscriptionURL = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(EnvTwinURL); v != "" {
		c.Routing.TwinURL = v
	}
}

func (c *Config) validate() error {
	if c.Routing.BaseTravelTimeMin < 0 {
		return fmt.Errorf("routing.base_travel_time_min must not be negative, got %v", c.Routing.BaseTravelTimeMin)
	}
	if c.Routing.UnitDelayMin < 0 {
		return fmt.Errorf("routing.unit_delay_min must not be negative, got %v", c.Routing.UnitDelayMin)
	}
	return nil
}
