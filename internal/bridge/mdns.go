package bridge

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/devmon/internal/logging"
)

const (
	// ServiceType is the mDNS service type devmon bridges advertise
	ServiceType = "_devmon._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for bridge browsing
	DefaultScanTimeout = 3 * time.Second
)

// Advertiser announces a running bridge on the local network
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers instance as a ServiceType service on port
func Advertise(instance string, port int, txt []string) (*Advertiser, error) {
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Bridge advertised via mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)

	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	logging.Info("mDNS advertisement withdrawn")
}

// BridgeInfo describes a bridge found by browsing
type BridgeInfo struct {
	Instance     string            `json:"instance"`
	Hostname     string            `json:"hostname,omitempty"`
	IP           string            `json:"ip"`
	Port         int               `json:"port"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	DiscoveredAt time.Time         `json:"discoveredAt"`
}

// URL returns the base URL of the bridge
func (b *BridgeInfo) URL() string {
	scheme := b.Metadata["scheme"]
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + net.JoinHostPort(b.IP, strconv.Itoa(b.Port))
}

// Scanner browses for other bridges on the local network
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForBridges collects every bridge that answers before the timeout
func (s *Scanner) ScanForBridges(ctx context.Context) ([]*BridgeInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)

	var (
		mu      sync.Mutex
		bridges []*BridgeInfo
		seen    = make(map[string]bool)
		done    = make(chan struct{})
	)

	go func() {
		defer close(done)
		for entry := range entries {
			info := parseServiceEntry(entry)
			if info == nil {
				continue
			}
			mu.Lock()
			if !seen[info.Instance] {
				seen[info.Instance] = true
				bridges = append(bridges, info)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// The resolver closes entries once ctx is done
	<-ctx.Done()
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return bridges, nil
}

// parseServiceEntry converts a zeroconf entry into a BridgeInfo.
// Returns nil if the entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *BridgeInfo {
	if entry == nil || entry.Instance == "" {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &BridgeInfo{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
