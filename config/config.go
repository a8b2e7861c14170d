// Package config loads the yaml-tagged configuration for the amqpdump
// CLI and any other entrypoint that dials a client.Conn: transport
// address, TLS, SASL, and the observability knobs layered on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lanternmq/amqp1/config/tls"
)

// Config is the root configuration document.
type Config struct {
	Log           LogConfig           `yaml:"log"`
	Transport     TransportConfig     `yaml:"transport"`
	SASL          SASLConfig          `yaml:"sasl"`
	Client        ClientConfig        `yaml:"client"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LogConfig selects slog's level and handler format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// TransportConfig names the dial target and carrier.
type TransportConfig struct {
	Addr        string        `yaml:"addr"`
	Kind        string        `yaml:"kind"` // "tcp", "tls", or "websocket"
	TLS         tls.TLSConfig `yaml:"tls"`
	MaxFrame    uint32        `yaml:"max_frame_size"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// SASLConfig orders the mechanisms offered during negotiation and
// holds PLAIN credentials when that mechanism is selected.
type SASLConfig struct {
	Mechanisms []string `yaml:"mechanisms"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
}

// ClientConfig covers façade-level behavior the engine itself has no
// opinion on: container identity, idle timeout, and receiver defaults.
type ClientConfig struct {
	ContainerID    string        `yaml:"container_id"`
	Hostname       string        `yaml:"hostname"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	ReceiverCredit uint32        `yaml:"receiver_credit"`
	AutoAccept     bool          `yaml:"auto_accept"`
}

// ObservabilityConfig toggles metrics and tracing export.
type ObservabilityConfig struct {
	MetricsAddr    string `yaml:"metrics_addr"`
	TracingEnabled bool   `yaml:"tracing_enabled"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
}

// SetDefaults fills in the values a freshly-unmarshaled Config leaves
// at its zero value.
func (c *Config) SetDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "INFO"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Transport.Kind == "" {
		c.Transport.Kind = "tcp"
	}
	if c.Transport.MaxFrame == 0 {
		c.Transport.MaxFrame = 1 << 16
	}
	if c.Transport.DialTimeout == 0 {
		c.Transport.DialTimeout = 10 * time.Second
	}

	if len(c.SASL.Mechanisms) == 0 {
		c.SASL.Mechanisms = []string{"ANONYMOUS"}
	}

	if c.Client.IdleTimeout == 0 {
		c.Client.IdleTimeout = 60 * time.Second
	}
	if c.Client.ReceiverCredit == 0 {
		c.Client.ReceiverCredit = 64
	}
}

// Validate rejects configurations that SetDefaults cannot repair.
func (c *Config) Validate() error {
	if c.Transport.Addr == "" {
		return errors.New("config: transport.addr not specified")
	}
	switch c.Transport.Kind {
	case "tcp", "tls", "websocket":
	default:
		return fmt.Errorf("config: transport.kind %q not recognized", c.Transport.Kind)
	}
	if c.Transport.Kind == "tls" {
		if err := c.Transport.TLS.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// Load reads the first candidate path that exists, parses it as yaml,
// applies defaults, and validates the result.
func Load(paths ...string) (*Config, error) {
	var data []byte
	var found string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			found = p
			break
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", p, err)
		}
	}
	if found == "" {
		return nil, fmt.Errorf("config: no config file found among %v", paths)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", found, err)
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
