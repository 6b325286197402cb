package discovery

import (
	"context"
	"net"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/devmon/internal/config"
	"github.com/muurk/devmon/internal/logging"
)

// DefaultBindHost is the address the discovery socket listens on
const DefaultBindHost = "0.0.0.0"

// TransportConfig holds the socket settings for a Transport
type TransportConfig struct {
	// BindHost is the local address to bind (default 0.0.0.0)
	BindHost string

	// Port is the local UDP port. Zero binds an ephemeral port.
	Port int

	// BroadcastAddress is the IPv4 destination for requests
	BroadcastAddress string

	// TargetPort is the destination port for requests. When zero the
	// bound port is used, which is the normal case: devices listen and
	// answer on the same well-known port.
	TargetPort int

	// ReadBufferSize is the largest datagram read from the socket
	ReadBufferSize int
}

// TransportConfigFrom converts discovery settings into a TransportConfig
func TransportConfigFrom(d config.Discovery) TransportConfig {
	return TransportConfig{
		BindHost:         DefaultBindHost,
		Port:             d.Port,
		BroadcastAddress: d.BroadcastAddress,
		ReadBufferSize:   d.ReadBufferSize,
	}
}

// Transport owns the single UDP endpoint used for discovery.
//
// Start binds the socket with broadcast enabled. Broadcast may be called from
// any goroutine; sends are serialized. ReceiveLoop blocks until Stop closes
// the socket. No filtering of self-originated datagrams is applied.
type Transport struct {
	cfg TransportConfig

	mu   sync.Mutex // guards conn
	conn *net.UDPConn

	sendMu sync.Mutex

	// readFrom is replaced in tests
	readFrom func(conn *net.UDPConn, buf []byte) (int, *net.UDPAddr, error)
}

// NewTransport creates a transport. No socket is opened until Start.
func NewTransport(cfg TransportConfig) *Transport {
	if cfg.BindHost == "" {
		cfg.BindHost = DefaultBindHost
	}
	if cfg.BroadcastAddress == "" {
		cfg.BroadcastAddress = config.DefaultBroadcastAddress
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = config.DefaultReadBufferSize
	}
	return &Transport{cfg: cfg, readFrom: readFromUDP}
}

func readFromUDP(conn *net.UDPConn, buf []byte) (int, *net.UDPAddr, error) {
	return conn.ReadFromUDP(buf)
}

// Start binds the discovery socket. Calling Start on a started transport is a no-op.
func (t *Transport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	addr := net.JoinHostPort(t.cfg.BindHost, strconv.Itoa(t.cfg.Port))

	lc := net.ListenConfig{Control: controlBroadcast}
	pc, err := lc.ListenPacket(context.Background(), "udp4", addr)
	if err != nil {
		return &BindError{Addr: addr, Err: err}
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		_ = pc.Close()
		return &BindError{Addr: addr, Err: net.UnknownNetworkError("udp4")}
	}
	t.conn = conn

	logging.Info("Discovery socket bound",
		zap.String("local_addr", conn.LocalAddr().String()),
		zap.String("broadcast_addr", t.cfg.BroadcastAddress),
	)

	return nil
}

// LocalAddr returns the bound address, or nil when not started
func (t *Transport) LocalAddr() *net.UDPAddr {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	addr, _ := t.conn.LocalAddr().(*net.UDPAddr)
	return addr
}

// Started reports whether the socket is currently bound
func (t *Transport) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// targetPort is TargetPort, else the configured port, else the bound
// ephemeral port when conn is non-nil.
func (t *Transport) targetPort(conn *net.UDPConn) int {
	port := t.cfg.TargetPort
	if port == 0 {
		port = t.cfg.Port
	}
	if port == 0 && conn != nil {
		if local, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			port = local.Port
		}
	}
	return port
}

// target returns the broadcast destination as host:port
func (t *Transport) target(conn *net.UDPConn) string {
	return net.JoinHostPort(t.cfg.BroadcastAddress, strconv.Itoa(t.targetPort(conn)))
}

// Broadcast sends frame to the broadcast address on the discovery port
func (t *Transport) Broadcast(frame []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	target := t.target(conn)
	if conn == nil {
		return &SendError{Addr: target, Err: ErrNotStarted}
	}

	dst, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return &SendError{Addr: target, Err: err}
	}

	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	if _, err := conn.WriteToUDP(frame, dst); err != nil {
		return &SendError{Addr: dst.String(), Err: err}
	}

	logging.LogRawBytes("Broadcast sent", frame)
	return nil
}

// SendTo sends frame to a single address, such as the sender of a request
func (t *Transport) SendTo(frame []byte, addr string) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return &SendError{Addr: addr, Err: ErrNotStarted}
	}

	dst, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return &SendError{Addr: addr, Err: err}
	}

	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	if _, err := conn.WriteToUDP(frame, dst); err != nil {
		return &SendError{Addr: addr, Err: err}
	}
	return nil
}

// ReceiveLoop reads datagrams until Stop is called, passing each payload and
// its sender address to onFrame. Every datagram is passed through; deciding
// whether it is a valid response is left to the codec.
//
// It returns nil after Stop and a *ReceiveError on any other socket failure.
func (t *Transport) ReceiveLoop(onFrame func(data []byte, sender string)) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return &ReceiveError{Addr: t.cfg.BindHost, Err: ErrNotStarted}
	}

	buf := make([]byte, t.cfg.ReadBufferSize)
	for {
		n, addr, err := t.readFrom(conn, buf)
		if err != nil {
			if isClosedError(err) {
				return nil
			}
			if isTimeoutError(err) {
				continue
			}
			return &ReceiveError{Addr: conn.LocalAddr().String(), Err: err}
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		sender := ""
		if addr != nil {
			sender = addr.String()
		}
		onFrame(data, sender)
	}
}

// Stop closes the socket, unblocking ReceiveLoop. Safe to call repeatedly.
func (t *Transport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}

	err := t.conn.Close()
	t.conn = nil
	if err != nil && !isClosedError(err) {
		return err
	}

	logging.Info("Discovery socket closed")
	return nil
}
