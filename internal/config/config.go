// Package config provides configuration for go-puppet commands.
//
// Values come from defaults, an optional YAML file and PUPPET_* environment
// variables, in increasing order of precedence. Command-line flags bound by
// the caller win over all of them.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default animation configuration.
const (
	DefaultUpdatePeriod      = 100 * time.Millisecond
	DefaultPulsePeriod       = 16.0
	DefaultOscillationPeriod = 2.0
	DefaultAmplitude         = math.Pi / 6
	DefaultJoint             = "mHead"
)

// Default transport configuration.
const (
	DefaultTransport     = "stdio"
	DefaultWebSocketURL  = "ws://localhost:8080/puppetry"
	DefaultMQTTBroker    = "tcp://localhost:1883"
	DefaultMQTTTopic     = "puppetry/pose"
	DefaultMQTTClientID  = "go-puppet-headnod"
	DefaultDashboardPort = ""
)

// EnvPrefix is prepended to every environment variable, e.g. PUPPET_PULSE_PERIOD.
const EnvPrefix = "PUPPET"

var (
	// ErrInvalidPeriod is returned when an animation period is not positive.
	ErrInvalidPeriod = errors.New("config: period must be positive")
	// ErrUnknownTransport is returned for an unsupported transport name.
	ErrUnknownTransport = errors.New("config: unknown transport")
)

// Config holds everything cmd/headnod needs to run.
type Config struct {
	UpdatePeriod      time.Duration `mapstructure:"update_period"`
	PulsePeriod       float64       `mapstructure:"pulse_period"`
	OscillationPeriod float64       `mapstructure:"oscillation_period"`
	Amplitude         float64       `mapstructure:"amplitude"`
	Joint             string        `mapstructure:"joint"`

	Transport string          `mapstructure:"transport"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
}

// WebSocketConfig configures the websocket transport.
type WebSocketConfig struct {
	URL string `mapstructure:"url"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

// DashboardConfig configures the pose monitor. An empty port disables it.
type DashboardConfig struct {
	Port string `mapstructure:"port"`
}

// LogConfig configures internal/log.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"` // optional rotating JSON log
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		UpdatePeriod:      DefaultUpdatePeriod,
		PulsePeriod:       DefaultPulsePeriod,
		OscillationPeriod: DefaultOscillationPeriod,
		Amplitude:         DefaultAmplitude,
		Joint:             DefaultJoint,
		Transport:         DefaultTransport,
		WebSocket:         WebSocketConfig{URL: DefaultWebSocketURL},
		MQTT: MQTTConfig{
			Broker:   DefaultMQTTBroker,
			Topic:    DefaultMQTTTopic,
			ClientID: DefaultMQTTClientID,
		},
		Dashboard: DashboardConfig{Port: DefaultDashboardPort},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// SetDefaults registers Default() on v so env vars and files can override it.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("update_period", d.UpdatePeriod)
	v.SetDefault("pulse_period", d.PulsePeriod)
	v.SetDefault("oscillation_period", d.OscillationPeriod)
	v.SetDefault("amplitude", d.Amplitude)
	v.SetDefault("joint", d.Joint)
	v.SetDefault("transport", d.Transport)
	v.SetDefault("websocket.url", d.WebSocket.URL)
	v.SetDefault("mqtt.broker", d.MQTT.Broker)
	v.SetDefault("mqtt.topic", d.MQTT.Topic)
	v.SetDefault("mqtt.client_id", d.MQTT.ClientID)
	v.SetDefault("dashboard.port", d.Dashboard.Port)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}

// Load reads configuration into a Config. file may be empty, in which case
// ./puppet.yaml is used if present.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("puppet")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: reading %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot type-check.
func (c Config) Validate() error {
	if c.UpdatePeriod <= 0 {
		return fmt.Errorf("%w: update_period=%v", ErrInvalidPeriod, c.UpdatePeriod)
	}
	if !(c.PulsePeriod > 0) {
		return fmt.Errorf("%w: pulse_period=%v", ErrInvalidPeriod, c.PulsePeriod)
	}
	if !(c.OscillationPeriod > 0) {
		return fmt.Errorf("%w: oscillation_period=%v", ErrInvalidPeriod, c.OscillationPeriod)
	}
	switch c.Transport {
	case "stdio", "websocket", "mqtt":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, c.Transport)
	}
	return nil
}
