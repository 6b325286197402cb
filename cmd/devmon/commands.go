package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/devmon/internal/bridge"
	"github.com/muurk/devmon/internal/discovery"
	"github.com/muurk/devmon/internal/logging"
	"github.com/muurk/devmon/internal/metrics"
	"github.com/muurk/devmon/internal/protocol"
	"github.com/muurk/devmon/internal/tui"
	"github.com/muurk/devmon/internal/ui"
	"github.com/muurk/devmon/internal/urls"
)

// Command flags
var (
	scanDuration time.Duration
	scanJSON     bool

	serveListen    string
	serveAdvertise bool
	serveTLSCert   string
	serveTLSKey    string
	serveRateLimit int

	simID      uint8
	simIP      string
	simMAC     string
	simTCPPort uint16
	simBaud    uint32

	bridgesTimeout time.Duration
	bridgesJSON    bool
)

func init() {
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(bridgesCmd)
}

// monitorCmd launches the interactive device monitor
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Launch the interactive device monitor",
	Long: `Launch the interactive device monitor.

The monitor broadcasts a discovery request immediately and then on every
interval, showing each device that answers. Log output goes to devmon.log in
the config directory while the monitor is running.`,
	Example: `  # Monitor with defaults (port 36721, every 5s)
  devmon monitor

  # Faster re-discovery on a specific subnet
  devmon monitor --interval 2s --broadcast 192.168.1.255`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logPath := initMonitorLogging(cfg)
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := discovery.NewService(cfg.Discovery, serviceOptions()...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start discovery: %w", err)
	}
	defer func() { _ = svc.Stop() }()

	logging.Info("Monitor started", zap.String("log_file", logPath))

	model := tui.NewMonitorModel(svc)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("monitor failed: %w", err)
	}
	return nil
}

// scanCmd discovers devices for a fixed time and prints them
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for devices and print the results",
	Long: `Broadcast discovery requests for a fixed duration and print every device
that answered, ordered by IP address.

Requests are sent immediately and then on every interval until the duration
has elapsed.`,
	Example: `  # Scan for 5 seconds (default)
  devmon scan

  # Longer scan with a faster request interval
  devmon scan --duration 15s --interval 2s

  # JSON output for scripting
  devmon scan --json`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanDuration, "duration", 5*time.Second, "How long to listen for responses")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print devices as JSON")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	initCLILogging(cfg)
	defer logging.Sync()

	printer := ui.NewPrinter(cmd.OutOrStdout())
	if !scanJSON {
		printer.PrintHeader(ui.NewHeader("Device Scan", "devmon scan",
			ui.Param{Key: "Port", Value: strconv.Itoa(cfg.Discovery.Port)},
			ui.Param{Key: "Broadcast", Value: cfg.Discovery.BroadcastAddress},
			ui.Param{Key: "Interval", Value: cfg.Discovery.Interval.String()},
			ui.Param{Key: "Duration", Value: scanDuration.String()},
		))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := discovery.NewService(cfg.Discovery, serviceOptions()...)
	start := time.Now()
	if err := svc.Start(ctx); err != nil {
		if !scanJSON {
			printer.PrintResult(ui.NewFailureResult("Discovery unavailable", err, ui.BindFailureTips))
		}
		return fmt.Errorf("failed to start discovery: %w", err)
	}

	select {
	case <-time.After(scanDuration):
	case <-ctx.Done():
	}

	if err := svc.Stop(); err != nil {
		logging.Warn("Error stopping discovery", zap.Error(err))
	}
	devices := svc.Devices()

	if scanJSON {
		return printer.PrintJSON(devices)
	}
	printer.PrintDevices(devices, time.Since(start))
	return nil
}

// serveCmd runs discovery behind the HTTP/WebSocket bridge
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the device registry over HTTP and WebSocket",
	Long: `Run discovery continuously and expose the registry to other tools.

Endpoints:
  GET    /api/devices   Current devices as JSON, ordered by IP
  DELETE /api/devices   Clear the registry
  POST   /api/discover  Broadcast a discovery request now
  GET    /api/version   Build information
  GET    /ws            Live stream of registry changes
  GET    /metrics       Prometheus metrics
  GET    /healthz       Liveness probe

With --advertise the bridge is announced on the local network via mDNS
(_devmon._tcp) so that 'devmon bridges' can find it.

API reference: ` + urls.BridgeAPI,
	Example: `  # Serve on the default address (:8080)
  devmon serve

  # Serve HTTPS and announce via mDNS
  devmon serve --listen :8443 --tls-cert cert.pem --tls-key key.pem --advertise

  # Limit manual discovery requests to 10 per minute per client
  devmon serve --rate-limit 10`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&serveAdvertise, "advertise", false, "Announce the bridge via mDNS")
	serveCmd.Flags().StringVar(&serveTLSCert, "tls-cert", "", "Path to TLS certificate file (enables HTTPS)")
	serveCmd.Flags().StringVar(&serveTLSKey, "tls-key", "", "Path to TLS private key file")
	serveCmd.Flags().IntVar(&serveRateLimit, "rate-limit", 0, "Manual discover requests per minute per client (0 = unlimited)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Bridge.Listen = serveListen
	}
	if flags.Changed("advertise") {
		cfg.Bridge.Advertise = serveAdvertise
	}
	if flags.Changed("tls-cert") {
		cfg.Bridge.TLSCert = serveTLSCert
	}
	if flags.Changed("tls-key") {
		cfg.Bridge.TLSKey = serveTLSKey
	}
	if flags.Changed("rate-limit") {
		cfg.Bridge.DiscoverRateLimit = serveRateLimit
	}
	if err := cfg.Bridge.Validate(); err != nil {
		return fmt.Errorf("invalid bridge settings: %w", err)
	}

	// The bridge is a long-running service; log at info unless told otherwise
	if cfg.LogLevel == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		cfg.LogLevel = "info"
	}
	initCLILogging(cfg)
	defer logging.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := discovery.NewService(cfg.Discovery, serviceOptions(discovery.WithMetrics(metrics.NewDiscovery(reg)))...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start discovery: %w", err)
	}
	defer func() { _ = svc.Stop() }()

	srv, err := bridge.New(bridge.ConfigFrom(cfg.Bridge), svc, reg)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}

	<-ctx.Done()
	logging.Info("Shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("bridge shutdown: %w", err)
	}
	return nil
}

// simulateCmd answers discovery requests like a real device
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Answer discovery requests as a simulated device",
	Long: `Listen on the discovery port and answer every request with a device
response, for bench testing without hardware.

Run it on a different host from the monitor, or on the same host with the
same --port in either order; both sockets share the port and replies to a
requester on that port are broadcast so every socket on it sees them.`,
	Example: `  # Simulate device 7 using this host's address
  devmon simulate --id 7

  # Fully specified device
  devmon simulate --id 7 --ip 192.168.1.50 --mac 02:00:00:00:00:07 --tcp-port 8016 --baud 9600`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().Uint8Var(&simID, "id", 1, "Device ID")
	simulateCmd.Flags().StringVar(&simIP, "ip", "", "Advertised IPv4 address (default: first non-loopback address)")
	simulateCmd.Flags().StringVar(&simMAC, "mac", "", "Advertised MAC address (default: 02:00:00:00:00:<id>)")
	simulateCmd.Flags().Uint16Var(&simTCPPort, "tcp-port", 8016, "Advertised TCP port")
	simulateCmd.Flags().Uint32Var(&simBaud, "baud", 9600, "Advertised UART baud rate")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.LogLevel == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		cfg.LogLevel = "info"
	}
	initCLILogging(cfg)
	defer logging.Sync()

	rec, err := simulatedRecord()
	if err != nil {
		return err
	}

	tc := discovery.TransportConfigFrom(cfg.Discovery)
	if bindHost != "" {
		tc.BindHost = bindHost
	}

	responder, err := discovery.NewResponder(tc, rec)
	if err != nil {
		return err
	}
	if err := responder.Start(); err != nil {
		return fmt.Errorf("failed to start responder: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Simulating %s on %s (Ctrl+C to stop)\n", rec, responder.LocalAddr())
	if err := responder.Serve(ctx); err != nil {
		return fmt.Errorf("responder stopped: %w", err)
	}
	fmt.Printf("Answered %d request(s)\n", responder.Requests())
	return nil
}

// simulatedRecord builds the device record from the simulate flags
func simulatedRecord() (protocol.DeviceRecord, error) {
	ip := simIP
	if ip == "" {
		detected, err := localIPv4()
		if err != nil {
			return protocol.DeviceRecord{}, fmt.Errorf("cannot pick an address, use --ip: %w", err)
		}
		ip = detected
	}

	macStr := simMAC
	if macStr == "" {
		macStr = fmt.Sprintf("02:00:00:00:00:%02x", simID)
	}
	mac, err := net.ParseMAC(macStr)
	if err != nil {
		return protocol.DeviceRecord{}, fmt.Errorf("invalid --mac %q: %w", macStr, err)
	}

	return protocol.DeviceRecord{
		DeviceID: simID,
		IP:       ip,
		MAC:      mac,
		TCPPort:  simTCPPort,
		UARTBaud: simBaud,
	}, nil
}

// bridgesCmd browses for devmon bridges announced via mDNS
var bridgesCmd = &cobra.Command{
	Use:   "bridges",
	Short: "Find devmon bridges on the local network",
	Long: `Browse mDNS for devmon bridges started with 'devmon serve --advertise'
and print their addresses.`,
	Example: `  # Browse for 3 seconds (default)
  devmon bridges

  # JSON output
  devmon bridges --timeout 10s --json`,
	RunE: runBridges,
}

func init() {
	bridgesCmd.Flags().DurationVar(&bridgesTimeout, "timeout", bridge.DefaultScanTimeout, "How long to browse")
	bridgesCmd.Flags().BoolVar(&bridgesJSON, "json", false, "Print bridges as JSON")
}

func runBridges(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	initCLILogging(cfg)
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner := bridge.NewScanner()
	scanner.Timeout = bridgesTimeout

	printer := ui.NewPrinter(cmd.OutOrStdout())
	if !bridgesJSON {
		printer.PrintHeader(ui.NewHeader("Bridge Browse", "devmon bridges",
			ui.Param{Key: "Service", Value: bridge.ServiceType},
			ui.Param{Key: "Timeout", Value: bridgesTimeout.String()},
		))
	}

	bridges, err := scanner.ScanForBridges(ctx)
	if err != nil {
		if !bridgesJSON {
			printer.PrintResult(ui.NewFailureResult("Browse failed", err, nil))
		}
		return fmt.Errorf("bridge browse failed: %w", err)
	}

	if bridgesJSON {
		return printer.PrintJSON(bridges)
	}

	if len(bridges) == 0 {
		printer.PrintResult(ui.NewWarningResult("No bridges found", []string{
			"Start a bridge with 'devmon serve --advertise'",
			"mDNS does not cross routers; browse from the same network segment",
			"Allow UDP port 5353 through the local firewall",
		}))
		return nil
	}

	rows := make([][]string, 0, len(bridges))
	for _, b := range bridges {
		rows = append(rows, []string{b.Instance, b.Hostname, b.URL()})
	}
	printer.Println(ui.RenderTable([]string{"INSTANCE", "HOST", "URL"}, rows))
	printer.Newline()
	printer.PrintResult(ui.NewSuccessResult(fmt.Sprintf("%d bridge(s) found", len(bridges))))
	return nil
}
