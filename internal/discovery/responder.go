package discovery

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/devmon/internal/logging"
	"github.com/muurk/devmon/internal/protocol"
)

// Responder plays the device side of the protocol: it answers every
// discovery request with a fixed response frame. It is used for bench
// testing without hardware.
type Responder struct {
	transport *Transport
	response  []byte
	record    protocol.DeviceRecord

	requests atomic.Int64
}

// NewResponder creates a responder announcing rec. The frame is encoded up
// front so invalid records fail here rather than on the first request.
func NewResponder(cfg TransportConfig, rec protocol.DeviceRecord) (*Responder, error) {
	resp, err := protocol.EncodeResponse(rec)
	if err != nil {
		return nil, fmt.Errorf("invalid device record: %w", err)
	}
	return &Responder{
		transport: NewTransport(cfg),
		response:  resp,
		record:    rec,
	}, nil
}

// Start binds the responder socket
func (r *Responder) Start() error {
	return r.transport.Start()
}

// Serve answers requests until ctx is cancelled. Start must be called first.
func (r *Responder) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = r.transport.Stop() })
	defer stop()

	logging.Info("Responder ready",
		zap.String("device", r.record.String()),
	)

	return r.transport.ReceiveLoop(func(data []byte, sender string) {
		if !protocol.IsRequest(data) {
			logging.Debug("Responder ignoring datagram",
				zap.String("sender", sender),
				zap.String("type", messageTypeOf(data)),
			)
			return
		}

		r.requests.Add(1)
		if err := r.reply(sender); err != nil {
			logging.Warn("Responder reply failed", zap.Error(err))
			return
		}
		logging.Debug("Responder answered request", zap.String("sender", sender))
	})
}

// reply answers sender. A requester on our own port may be a second socket
// sharing that port on this host, where the kernel hands unicast to the last
// socket bound. Broadcast reaches every socket on the port.
func (r *Responder) reply(sender string) error {
	if r.sharesPort(sender) {
		return r.transport.Broadcast(r.response)
	}
	return r.transport.SendTo(r.response, sender)
}

func (r *Responder) sharesPort(sender string) bool {
	local := r.transport.LocalAddr()
	if local == nil {
		return false
	}
	addr, err := net.ResolveUDPAddr("udp4", sender)
	if err != nil {
		return false
	}
	return addr.Port == local.Port
}

// Stop closes the responder socket
func (r *Responder) Stop() error {
	return r.transport.Stop()
}

// LocalAddr returns the bound address, or an empty string when not started
func (r *Responder) LocalAddr() string {
	if addr := r.transport.LocalAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Requests returns the number of discovery requests answered so far
func (r *Responder) Requests() int64 {
	return r.requests.Load()
}

func messageTypeOf(data []byte) string {
	if len(data) == 0 {
		return "empty"
	}
	return protocol.MessageTypeName(data[0])
}
