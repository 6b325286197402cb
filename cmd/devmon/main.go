// Devmon discovers serial-to-network devices on the local network.
//
// Devices announce themselves in answer to a UDP broadcast on port 36721.
// devmon keeps a live registry of every device that answered and presents
// it as an interactive terminal monitor, a one-shot scan, or an
// HTTP/WebSocket bridge for other tools.
//
// Usage:
//
//	devmon [command] [flags]
//
// Running without arguments launches the interactive monitor.
// See 'devmon --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/devmon/internal/config"
	"github.com/muurk/devmon/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "devmon",
	Short: "Serial Device Discovery Monitor",
	Long: `Discover serial-to-network devices on the local network.

devmon broadcasts a discovery request on UDP port 36721 every few seconds
and records every device that answers, keyed by its IP address.

If no command is specified, the interactive monitor will launch automatically.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run the monitor when no subcommand provided
		return runMonitor(cmd, args)
	},
}

// Global flags
var (
	configPath       string
	logLevel         string
	discoveryPort    int
	broadcastAddress string
	interval         string
	bindHost         string
)

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the platform config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides DEVMON_LOG_LEVEL")
	rootCmd.PersistentFlags().IntVar(&discoveryPort, "port", config.DefaultPort, "UDP discovery port")
	rootCmd.PersistentFlags().StringVar(&broadcastAddress, "broadcast", config.DefaultBroadcastAddress, "IPv4 broadcast address for discovery requests")
	rootCmd.PersistentFlags().StringVar(&interval, "interval", config.DefaultInterval.String(), "Re-discovery interval (e.g., 5s, 1m)")
	rootCmd.PersistentFlags().StringVar(&bindHost, "bind", "", "Local address for the discovery socket (default 0.0.0.0)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("devmon %s\n", version.Full())
	},
}
