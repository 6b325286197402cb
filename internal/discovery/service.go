package discovery

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/devmon/internal/config"
	"github.com/muurk/devmon/internal/logging"
	"github.com/muurk/devmon/internal/metrics"
	"github.com/muurk/devmon/internal/protocol"
)

// Service supervises the transport, registry and scheduler.
//
// It is the only component that decides how failures are handled: a bind
// failure is returned from Start, broadcast failures are logged and the next
// tick retries, and datagrams the codec rejects are counted and dropped.
// Presentation layers only ever see decoded records.
type Service struct {
	cfg       config.Discovery
	transport *Transport
	registry  *Registry
	metrics   *metrics.Discovery

	mu        sync.Mutex
	running   bool
	scheduler *Scheduler
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	errMu   sync.Mutex
	recvErr error
}

// Option configures a Service
type Option func(*Service)

// WithMetrics records service activity on m
func WithMetrics(m *metrics.Discovery) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRegistry uses an existing registry instead of a new one
func WithRegistry(r *Registry) Option {
	return func(s *Service) {
		s.registry = r
	}
}

// WithTransportConfig adjusts the socket settings derived from the config
func WithTransportConfig(fn func(*TransportConfig)) Option {
	return func(s *Service) {
		tc := s.transport.cfg
		fn(&tc)
		s.transport = NewTransport(tc)
	}
}

// NewService creates a discovery service. Nothing is bound until Start.
func NewService(cfg config.Discovery, opts ...Option) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = config.DefaultInterval
	}

	s := &Service{
		cfg:       cfg,
		transport: NewTransport(TransportConfigFrom(cfg)),
		registry:  NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the socket and launches the receive loop and the scheduler.
//
// A *BindError leaves the service stopped; Start may be called again later.
// The service also stops when ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if err := s.transport.Start(); err != nil {
		logging.Error("Discovery unavailable", zap.Error(err))
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.setReceiveErr(nil)
	s.scheduler = NewScheduler(s.cfg.Interval, s.scheduledBroadcast)

	s.wg.Add(3)

	go func() {
		defer s.wg.Done()
		if err := s.transport.ReceiveLoop(s.handleDatagram); err != nil {
			logging.Error("Receive loop stopped", zap.Error(err))
			s.setReceiveErr(err)
		}
	}()

	go func() {
		defer s.wg.Done()
		s.scheduler.Run(runCtx)
	}()

	// Closing the socket is the only way to unblock the receive loop
	go func() {
		defer s.wg.Done()
		<-runCtx.Done()
		if err := s.transport.Stop(); err != nil {
			logging.Warn("Error closing discovery socket", zap.Error(err))
		}
	}()

	s.running = true

	logging.Info("Discovery service started",
		zap.Duration("interval", s.scheduler.Interval()),
	)

	return nil
}

// Stop halts the scheduler, closes the socket and waits for both loops to
// exit. The registry is left untouched. Safe to call repeatedly.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.scheduler.Cancel()
	s.cancel()
	s.wg.Wait()

	logging.Info("Discovery service stopped", zap.Int("devices", s.registry.Len()))
	return nil
}

// Running reports whether the service is started and its socket is open.
// Cancelling the Start context closes the socket; Stop must still be called.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.transport.Started()
}

// ReceiveErr returns the error that ended the receive loop, if any
func (s *Service) ReceiveErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.recvErr
}

func (s *Service) setReceiveErr(err error) {
	s.errMu.Lock()
	s.recvErr = err
	s.errMu.Unlock()
}

// Discover broadcasts a discovery request now. The error is returned to the
// caller in addition to being logged.
func (s *Service) Discover() error {
	return s.broadcast("manual")
}

// Clear empties the registry
func (s *Service) Clear() {
	s.registry.Clear()
	s.metrics.SetDevices(0)
	logging.Info("Device registry cleared")
}

// Devices returns a snapshot of the registry ordered by IP
func (s *Service) Devices() []protocol.DeviceRecord {
	return s.registry.Sorted()
}

// Subscribe delivers registry changes; see Registry.Subscribe
func (s *Service) Subscribe(buffer int) (<-chan Event, func()) {
	return s.registry.Subscribe(buffer)
}

// Registry returns the registry owned by the service
func (s *Service) Registry() *Registry {
	return s.registry
}

// LocalAddr returns the bound socket address, or nil when stopped
func (s *Service) LocalAddr() string {
	if addr := s.transport.LocalAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (s *Service) scheduledBroadcast() {
	_ = s.broadcast("scheduled")
}

func (s *Service) broadcast(trigger string) error {
	if err := s.transport.Broadcast(protocol.EncodeRequest()); err != nil {
		s.metrics.SendFailed()
		logging.Warn("Discovery broadcast failed",
			zap.String("trigger", trigger),
			zap.Error(err),
		)
		return err
	}

	s.metrics.RequestSent()
	logging.Debug("Discovery broadcast sent", zap.String("trigger", trigger))
	return nil
}

// handleDatagram decodes one datagram and records the device it describes
func (s *Service) handleDatagram(data []byte, sender string) {
	logging.LogDatagram(sender, data)

	rec, err := protocol.DecodeResponse(data, sender)
	if err != nil {
		reason := metrics.ReasonTooShort
		if errors.Is(err, protocol.ErrUnexpectedType) {
			reason = metrics.ReasonUnexpectedType
		}
		s.metrics.FrameRejected(reason)
		logging.Debug("Ignoring frame",
			zap.String("sender", sender),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}

	s.metrics.ResponseDecoded()
	isNew := s.registry.Upsert(*rec)
	s.metrics.SetDevices(s.registry.Len())

	if isNew {
		logging.Info("Device discovered",
			zap.Uint8("device_id", rec.DeviceID),
			zap.String("ip", rec.IP),
			zap.String("mac", rec.MACString()),
			zap.Uint16("tcp_port", rec.TCPPort),
			zap.Uint32("uart_baud", rec.UARTBaud),
			zap.String("sender", sender),
		)
	} else {
		logging.Debug("Device updated",
			zap.String("ip", rec.IP),
			zap.String("sender", sender),
		)
	}
}
