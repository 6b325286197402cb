package bridge

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
		wantURL  string
	}{
		{
			name: "ipv4 bridge",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "devmon"},
				HostName:      "lab-pi.local.",
				Port:          8080,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"scheme=http", "api=/api/devices"},
			},
			wantIP:   "192.168.4.16",
			wantPort: 8080,
			wantURL:  "http://192.168.4.16:8080",
		},
		{
			name: "https bridge",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "bench"},
				Port:          8443,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
				Text:          []string{"scheme=https"},
			},
			wantIP:   "10.0.0.5",
			wantPort: 8443,
			wantURL:  "https://10.0.0.5:8443",
		},
		{
			name: "ipv6 fallback",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "v6"},
				Port:          8080,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
			},
			wantIP:   "fe80::1",
			wantPort: 8080,
			wantURL:  "http://[fe80::1]:8080",
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "devmon"},
				Port:          8080,
			},
			wantNil: true,
		},
		{
			name: "no port",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "devmon"},
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantNil: true,
		},
		{
			name: "no instance",
			entry: &zeroconf.ServiceEntry{
				Port:     8080,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if got != nil {
					t.Errorf("parseServiceEntry() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("parseServiceEntry() = nil, want bridge")
			}
			if got.IP != tt.wantIP {
				t.Errorf("IP = %s, want %s", got.IP, tt.wantIP)
			}
			if got.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", got.Port, tt.wantPort)
			}
			if got.URL() != tt.wantURL {
				t.Errorf("URL() = %s, want %s", got.URL(), tt.wantURL)
			}
		})
	}
}

func TestParseServiceEntry_Metadata(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "devmon"},
		Port:          8080,
		AddrIPv4:      []net.IP{net.ParseIP("192.168.1.2")},
		Text:          []string{"ws=/ws", "flag", "empty="},
	}

	got := parseServiceEntry(entry)
	if got == nil {
		t.Fatal("parseServiceEntry() = nil")
	}

	want := map[string]string{"ws": "/ws", "flag": "", "empty": ""}
	for k, v := range want {
		if got.Metadata[k] != v {
			t.Errorf("Metadata[%q] = %q, want %q", k, got.Metadata[k], v)
		}
	}
}

func TestNewScanner(t *testing.T) {
	s := NewScanner()
	if s.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", s.Timeout, DefaultScanTimeout)
	}
}

func TestAdvertiser_NilShutdown(t *testing.T) {
	var a *Advertiser
	a.Shutdown()
}
