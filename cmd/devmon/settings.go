package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/devmon/internal/config"
	"github.com/muurk/devmon/internal/discovery"
	"github.com/muurk/devmon/internal/logging"
)

// loadConfig reads the config file and applies any flags the user set
// explicitly. Flags left at their defaults never override the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("port") {
		cfg.Discovery.Port = discoveryPort
	}
	if flags.Changed("broadcast") {
		cfg.Discovery.BroadcastAddress = broadcastAddress
	}
	if flags.Changed("interval") {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid --interval %q: %w", interval, err)
		}
		cfg.Discovery.Interval = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// serviceOptions returns the options shared by every command that runs discovery
func serviceOptions(extra ...discovery.Option) []discovery.Option {
	opts := extra
	if bindHost != "" {
		if net.ParseIP(bindHost).To4() == nil {
			logging.Warn("Ignoring --bind: not an IPv4 address")
		} else {
			opts = append(opts, discovery.WithTransportConfig(func(tc *discovery.TransportConfig) {
				tc.BindHost = bindHost
			}))
		}
	}
	return opts
}

// initCLILogging sends log output to stderr so it never mixes with command output
func initCLILogging(cfg *config.Config) {
	if err := logging.InitializeWithOutput(cfg.LogLevel, "stderr"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// initMonitorLogging sends log output to a file next to the config file,
// since the monitor owns the terminal.
func initMonitorLogging(cfg *config.Config) string {
	dir, err := config.GetConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "devmon.log")

	if err := logging.InitializeWithOutput(cfg.LogLevel, path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return path
}

// localIPv4 returns the first non-loopback IPv4 address of this host
func localIPv4() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("failed to list interface addresses: %w", err)
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}
	return "", fmt.Errorf("no non-loopback IPv4 address found")
}
