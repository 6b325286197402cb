package discovery

import (
	"errors"
	"fmt"
	"net"
)

// ErrNotStarted is returned when the transport is used before Start or after Stop
var ErrNotStarted = errors.New("transport not started")

// BindError indicates the discovery socket could not be bound.
// Discovery is unavailable until Start succeeds.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// SendError indicates a broadcast attempt failed. It is not fatal; the next
// scheduled broadcast tries again.
type SendError struct {
	Addr string
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("broadcast to %s: %v", e.Addr, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// ReceiveError indicates the receive loop stopped on an unexpected socket error.
type ReceiveError struct {
	Addr string
	Err  error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("receive on %s: %v", e.Addr, e.Err)
}

func (e *ReceiveError) Unwrap() error { return e.Err }

// isClosedError reports whether err comes from reading a closed socket
func isClosedError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// isTimeoutError reports whether err is a transient timeout
func isTimeoutError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
