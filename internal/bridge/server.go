package bridge

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/muurk/devmon/internal/config"
	"github.com/muurk/devmon/internal/discovery"
	"github.com/muurk/devmon/internal/logging"
	"github.com/muurk/devmon/internal/protocol"
)

// Backend is the part of the discovery service the bridge depends on
type Backend interface {
	Devices() []protocol.DeviceRecord
	Discover() error
	Clear()
	Subscribe(buffer int) (<-chan discovery.Event, func())
}

// Config holds the bridge configuration
type Config struct {
	Listen            string
	TLSCert           string // PEM certificate; HTTPS is served when set together with TLSKey
	TLSKey            string
	Advertise         bool   // Announce the bridge via mDNS
	ServiceName       string // mDNS instance name
	AllowedOrigins    []string
	DiscoverRateLimit int // Requests per minute per client IP on POST /api/discover (0 = unlimited)
}

// ConfigFrom converts file settings into a bridge Config
func ConfigFrom(b config.Bridge) Config {
	return Config{
		Listen:            b.Listen,
		TLSCert:           b.TLSCert,
		TLSKey:            b.TLSKey,
		Advertise:         b.Advertise,
		ServiceName:       b.ServiceName,
		AllowedOrigins:    b.AllowedOrigins,
		DiscoverRateLimit: b.DiscoverRateLimit,
	}
}

// Server exposes the device registry over HTTP and WebSocket
type Server struct {
	config    *Config
	backend   Backend
	gatherer  prometheus.Gatherer
	tlsConfig *tls.Config
	handler   http.Handler

	httpServer *http.Server
	listener   net.Listener
	advertiser *Advertiser

	wg      sync.WaitGroup
	mu      sync.Mutex
	clients map[string]*wsClient
}

// New creates a bridge for backend. Metrics are served from gatherer, or
// from the default registry when gatherer is nil.
func New(cfg Config, backend Backend, gatherer prometheus.Gatherer) (*Server, error) {
	if cfg.Listen == "" {
		cfg.Listen = config.DefaultBridgeListen
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = config.DefaultServiceName
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		config:   &cfg,
		backend:  backend,
		gatherer: gatherer,
		clients:  make(map[string]*wsClient),
	}

	if cfg.TLSCert != "" || cfg.TLSKey != "" {
		tlsConfig, err := NewTLSConfig(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		s.tlsConfig = tlsConfig
	}

	s.handler = s.routes()
	return s, nil
}

// Handler returns the bridge's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background.
// It returns once the listener is bound.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}

	scheme := "http"
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
		scheme = "https"
		logging.Info("TLS Configuration", zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Bridge listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("scheme", scheme),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Bridge stopped serving", zap.Error(err))
		}
	}()

	if s.config.Advertise {
		adv, err := Advertise(s.config.ServiceName, s.Port(), []string{
			"scheme=" + scheme,
			"api=/api/devices",
			"ws=/ws",
		})
		if err != nil {
			// The bridge still works without mDNS
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			s.advertiser = adv
		}
	}

	return nil
}

// Addr returns the bound listen address, or "" before Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Port returns the bound TCP port, or 0 before Start
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	_, port, err := net.SplitHostPort(s.listener.Addr().String())
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}

// Shutdown stops advertising, closes websocket clients and waits for
// in-flight requests up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down bridge...")

	if s.advertiser != nil {
		s.advertiser.Shutdown()
		s.advertiser = nil
	}

	// Hijacked websocket connections are not tracked by http.Server
	s.mu.Lock()
	for id, c := range s.clients {
		logging.LogConnection(c.remoteAddr, id, "closing")
		c.close()
	}
	s.mu.Unlock()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
		if err != nil {
			logging.Warn("Bridge shutdown incomplete", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("Bridge stopped")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	return err
}

// ActiveClients returns the number of connected websocket clients
func (s *Server) ActiveClients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) addClient(c *wsClient) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
}

func (s *Server) removeClient(c *wsClient) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
}
