// Package config provides configuration management for devmon.
//
// This package manages a YAML configuration file holding the discovery
// protocol settings (port, broadcast address, re-discovery interval), the
// HTTP bridge settings and the default log level. Command-line flags override
// values read from the file.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/devmon/config.yaml or $HOME/.config/devmon/config.yaml
//   - macOS: $HOME/.config/devmon/config.yaml
//   - Windows: %LOCALAPPDATA%\devmon\config.yaml
//
// A missing file is not an error; Load returns the defaults.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Discovery.Interval = 10 * time.Second
//	if err := cfg.Save(""); err != nil {
//	    log.Fatal(err)
//	}
//
// # File Format
//
//	version: 1
//	log_level: info
//	discovery:
//	  port: 36721
//	  broadcast_address: 255.255.255.255
//	  interval: 5s
//	bridge:
//	  listen: ":8080"
//	  advertise: false
//
// # Thread Safety
//
// File operations are protected by a mutex and writes are atomic.
package config
