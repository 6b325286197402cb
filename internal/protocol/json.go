package protocol

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// deviceRecordJSON is the wire form used by the scan command and the HTTP bridge
type deviceRecordJSON struct {
	DeviceID uint8     `json:"deviceId"`
	IP       string    `json:"ip"`
	MAC      string    `json:"mac"`
	TCPPort  uint16    `json:"tcpPort"`
	UARTBaud uint32    `json:"uartBaud"`
	LastSeen time.Time `json:"lastSeen"`
	Source   string    `json:"source,omitempty"`
}

// MarshalJSON renders the MAC address in its canonical uppercase form
func (r DeviceRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(deviceRecordJSON{
		DeviceID: r.DeviceID,
		IP:       r.IP,
		MAC:      r.MACString(),
		TCPPort:  r.TCPPort,
		UARTBaud: r.UARTBaud,
		LastSeen: r.LastSeen,
		Source:   r.Source,
	})
}

// UnmarshalJSON parses the form produced by MarshalJSON
func (r *DeviceRecord) UnmarshalJSON(data []byte) error {
	var raw deviceRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var mac net.HardwareAddr
	if raw.MAC != "" {
		parsed, err := net.ParseMAC(raw.MAC)
		if err != nil {
			return fmt.Errorf("invalid mac %q: %w", raw.MAC, err)
		}
		mac = parsed
	}

	*r = DeviceRecord{
		DeviceID: raw.DeviceID,
		IP:       raw.IP,
		MAC:      mac,
		TCPPort:  raw.TCPPort,
		UARTBaud: raw.UARTBaud,
		LastSeen: raw.LastSeen,
		Source:   raw.Source,
	}
	return nil
}
