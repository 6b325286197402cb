package config

import (
	"fmt"
	"net"
	"time"
)

// CurrentVersion is the config file schema version
const CurrentVersion = 1

// Defaults for the discovery protocol
const (
	DefaultPort             = 36721
	DefaultBroadcastAddress = "255.255.255.255"
	DefaultInterval         = 5 * time.Second
	DefaultReadBufferSize   = 1500
	DefaultBridgeListen     = ":8080"
	DefaultServiceName      = "devmon"
)

// Config represents the entire devmon configuration file.
type Config struct {
	Version   int       `yaml:"version"`
	LogLevel  string    `yaml:"log_level,omitempty"` // debug, info, warn, error (empty = silent)
	Discovery Discovery `yaml:"discovery"`
	Bridge    Bridge    `yaml:"bridge"`
}

// Discovery holds the UDP discovery settings.
type Discovery struct {
	Port             int           `yaml:"port"`                       // UDP port for both requests and responses
	BroadcastAddress string        `yaml:"broadcast_address"`          // IPv4 broadcast destination
	Interval         time.Duration `yaml:"interval"`                   // Re-discovery period (e.g. "5s")
	ReadBufferSize   int           `yaml:"read_buffer_size,omitempty"` // Max datagram size read from the socket
}

// Bridge holds the HTTP/WebSocket bridge settings.
type Bridge struct {
	Listen            string   `yaml:"listen"`                        // Listen address, e.g. ":8080"
	Advertise         bool     `yaml:"advertise"`                     // Announce the bridge via mDNS
	ServiceName       string   `yaml:"service_name,omitempty"`        // mDNS instance name
	TLSCert           string   `yaml:"tls_cert,omitempty"`            // PEM certificate; serve HTTPS when set with TLSKey
	TLSKey            string   `yaml:"tls_key,omitempty"`             // PEM private key
	AllowedOrigins    []string `yaml:"allowed_origins,omitempty"`     // CORS and websocket origins (empty = any)
	DiscoverRateLimit int      `yaml:"discover_rate_limit,omitempty"` // Manual discover requests per minute per client (0 = unlimited)
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Version:   CurrentVersion,
		Discovery: DefaultDiscovery(),
		Bridge: Bridge{
			Listen:      DefaultBridgeListen,
			ServiceName: DefaultServiceName,
		},
	}
}

// DefaultDiscovery returns the default discovery settings.
func DefaultDiscovery() Discovery {
	return Discovery{
		Port:             DefaultPort,
		BroadcastAddress: DefaultBroadcastAddress,
		Interval:         DefaultInterval,
		ReadBufferSize:   DefaultReadBufferSize,
	}
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	if c.Discovery.Port == 0 {
		c.Discovery.Port = DefaultPort
	}
	if c.Discovery.BroadcastAddress == "" {
		c.Discovery.BroadcastAddress = DefaultBroadcastAddress
	}
	if c.Discovery.Interval == 0 {
		c.Discovery.Interval = DefaultInterval
	}
	if c.Discovery.ReadBufferSize == 0 {
		c.Discovery.ReadBufferSize = DefaultReadBufferSize
	}
	if c.Bridge.Listen == "" {
		c.Bridge.Listen = DefaultBridgeListen
	}
	if c.Bridge.ServiceName == "" {
		c.Bridge.ServiceName = DefaultServiceName
	}
}

// Validate checks the discovery settings.
func (d Discovery) Validate() error {
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 0-65535)", d.Port)
	}
	ip := net.ParseIP(d.BroadcastAddress)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("invalid broadcast address: %q (must be IPv4)", d.BroadcastAddress)
	}
	if d.Interval < 0 {
		return fmt.Errorf("invalid interval: %s (must not be negative)", d.Interval)
	}
	if d.ReadBufferSize < 0 {
		return fmt.Errorf("invalid read buffer size: %d", d.ReadBufferSize)
	}
	return nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if err := c.Discovery.Validate(); err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	if err := c.Bridge.Validate(); err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	return nil
}

// Validate checks the bridge settings.
func (b Bridge) Validate() error {
	if (b.TLSCert == "") != (b.TLSKey == "") {
		return fmt.Errorf("tls_cert and tls_key must be set together")
	}
	if b.DiscoverRateLimit < 0 {
		return fmt.Errorf("invalid discover rate limit: %d", b.DiscoverRateLimit)
	}
	return nil
}
