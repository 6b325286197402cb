// Package protocol implements the devmon UDP discovery wire format.
//
// This package encodes discovery requests and decodes discovery responses
// exchanged with devices on the local broadcast domain. It holds no state and
// performs no I/O.
//
// # Protocol Overview
//
// The monitor broadcasts a 4-byte request to 255.255.255.255 on the
// discovery port (36721 by default):
//
//	[0x01][0x00][0x00][0x00]
//
// Each device answers with an 18-byte response (longer frames are accepted,
// trailing bytes are ignored):
//
//	Offset  Len  Field       Encoding
//	0       1    type        0x02
//	1       1    device id   uint8
//	2       4    ip          four octets, dotted-quad
//	6       6    mac         raw bytes
//	12      2    tcp port    uint16 little-endian
//	14      4    uart baud   uint32 little-endian
//
// # Usage Example
//
//	frame := protocol.EncodeRequest()
//	_, _ = conn.WriteTo(frame, broadcastAddr)
//
//	rec, err := protocol.DecodeResponse(buf[:n], sender.String())
//	if err != nil {
//	    // Short or foreign frame, ignore it
//	    return
//	}
//	fmt.Println(rec.IP, rec.MACString())
//
// # Device Identity
//
// The IP embedded in the payload is authoritative. The UDP sender address is
// kept on the record as Source for diagnostics only, since a relay may forward
// responses on behalf of a device.
//
// # Error Handling
//
// Frames that fail structural validation return a *DecodeError wrapping
// ErrFrameTooShort or ErrUnexpectedType. These are expected on a shared
// broadcast port (the monitor hears its own requests) and should be logged at
// debug level and otherwise ignored.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package protocol
