package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Message type constants
const (
	MsgTypeDeviceInfoRequest  = 0x01 // Discovery request, broadcast by the monitor
	MsgTypeDeviceInfoResponse = 0x02 // Discovery response, sent by devices
)

// Frame size constants
const (
	RequestSize  = 4  // Type + 3 reserved bytes
	ResponseSize = 18 // Minimum response size, trailing bytes are ignored
)

// Response field offsets
const (
	offsetType     = 0
	offsetDeviceID = 1
	offsetIP       = 2
	offsetMAC      = 6
	offsetTCPPort  = 12
	offsetUARTBaud = 14
)

var (
	// ErrFrameTooShort is returned for responses shorter than ResponseSize
	ErrFrameTooShort = errors.New("frame too short")

	// ErrUnexpectedType is returned when the type byte is not a device info response
	ErrUnexpectedType = errors.New("unexpected message type")
)

// DecodeError describes a datagram that failed structural validation.
// It is never surfaced to presentation layers; callers log it and move on.
type DecodeError struct {
	Length int
	Type   byte
	Err    error
}

func (e *DecodeError) Error() string {
	if errors.Is(e.Err, ErrUnexpectedType) {
		return fmt.Sprintf("decode rejected: %v (type=%s, length=%d)", e.Err, MessageTypeName(e.Type), e.Length)
	}
	return fmt.Sprintf("decode rejected: %v (length=%d, want >= %d)", e.Err, e.Length, ResponseSize)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DeviceRecord is a single discovered device as described by its response frame
type DeviceRecord struct {
	DeviceID uint8
	IP       string
	MAC      net.HardwareAddr
	TCPPort  uint16
	UARTBaud uint32
	LastSeen time.Time

	// Source is the UDP sender address. Diagnostic only: the payload IP is authoritative.
	Source string
}

// MACString returns the MAC address as uppercase colon-separated hex
func (r DeviceRecord) MACString() string {
	return strings.ToUpper(r.MAC.String())
}

// URL returns the address a browser should open for this device
func (r DeviceRecord) URL() string {
	return "http://" + r.IP
}

func (r DeviceRecord) String() string {
	return fmt.Sprintf("Device %d (%s) at %s tcp=%d baud=%d", r.DeviceID, r.MACString(), r.IP, r.TCPPort, r.UARTBaud)
}

// EncodeRequest returns the fixed discovery request frame.
// A fresh slice is returned on every call so callers may keep or modify it.
func EncodeRequest() []byte {
	return []byte{MsgTypeDeviceInfoRequest, 0x00, 0x00, 0x00}
}

// IsRequest reports whether data looks like a discovery request
func IsRequest(data []byte) bool {
	return len(data) >= 1 && data[0] == MsgTypeDeviceInfoRequest
}

// DecodeResponse parses a discovery response frame.
//
// sender is the UDP source address and is only kept for diagnostics; the
// registry key is the IP embedded in the payload. Frames shorter than
// ResponseSize or carrying another type byte return a *DecodeError.
func DecodeResponse(data []byte, sender string) (*DeviceRecord, error) {
	if len(data) < ResponseSize {
		return nil, &DecodeError{Length: len(data), Err: ErrFrameTooShort}
	}
	if data[offsetType] != MsgTypeDeviceInfoResponse {
		return nil, &DecodeError{Length: len(data), Type: data[offsetType], Err: ErrUnexpectedType}
	}

	ip := net.IPv4(data[offsetIP], data[offsetIP+1], data[offsetIP+2], data[offsetIP+3])

	mac := make(net.HardwareAddr, 6)
	copy(mac, data[offsetMAC:offsetMAC+6])

	return &DeviceRecord{
		DeviceID: data[offsetDeviceID],
		IP:       ip.String(),
		MAC:      mac,
		TCPPort:  binary.LittleEndian.Uint16(data[offsetTCPPort : offsetTCPPort+2]),
		UARTBaud: binary.LittleEndian.Uint32(data[offsetUARTBaud : offsetUARTBaud+4]),
		LastSeen: time.Now(),
		Source:   sender,
	}, nil
}

// EncodeResponse builds an 18-byte discovery response for rec.
// Used by the bench responder and by tests.
func EncodeResponse(rec DeviceRecord) ([]byte, error) {
	ip := net.ParseIP(rec.IP).To4()
	if ip == nil {
		return nil, fmt.Errorf("invalid IPv4 address: %q", rec.IP)
	}
	if len(rec.MAC) != 6 {
		return nil, fmt.Errorf("invalid MAC address length: %d (want 6)", len(rec.MAC))
	}

	frame := make([]byte, ResponseSize)
	frame[offsetType] = MsgTypeDeviceInfoResponse
	frame[offsetDeviceID] = rec.DeviceID
	copy(frame[offsetIP:offsetIP+4], ip)
	copy(frame[offsetMAC:offsetMAC+6], rec.MAC)
	binary.LittleEndian.PutUint16(frame[offsetTCPPort:offsetTCPPort+2], rec.TCPPort)
	binary.LittleEndian.PutUint32(frame[offsetUARTBaud:offsetUARTBaud+4], rec.UARTBaud)

	return frame, nil
}

// MessageTypeName returns a human-readable name for a type byte
func MessageTypeName(t byte) string {
	switch t {
	case MsgTypeDeviceInfoRequest:
		return "device_info_request"
	case MsgTypeDeviceInfoResponse:
		return "device_info_response"
	default:
		return fmt.Sprintf("unknown(0x%02x)", t)
	}
}
