package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	if !strings.Contains(configDir, "devmon") {
		t.Errorf("GetConfigDir() = %v, should contain 'devmon'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin", "linux":
		if !strings.Contains(configDir, ".config") && os.Getenv("XDG_CONFIG_HOME") == "" {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigPath_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	want := filepath.Join(dir, "devmon", "config.yaml")
	if got != want {
		t.Errorf("GetConfigPath() = %v, want %v", got, want)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Discovery.Port != 36721 {
		t.Errorf("Discovery.Port = %d, want 36721", cfg.Discovery.Port)
	}
	if cfg.Discovery.BroadcastAddress != "255.255.255.255" {
		t.Errorf("Discovery.BroadcastAddress = %q, want 255.255.255.255", cfg.Discovery.BroadcastAddress)
	}
	if cfg.Discovery.Interval != 5*time.Second {
		t.Errorf("Discovery.Interval = %v, want 5s", cfg.Discovery.Interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Discovery.Port != DefaultPort {
		t.Errorf("Discovery.Port = %d, want %d", cfg.Discovery.Port, DefaultPort)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := Default()
	cfg.LogLevel = "debug"
	cfg.Discovery.Port = 40000
	cfg.Discovery.Interval = 2500 * time.Millisecond
	cfg.Bridge.Advertise = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after Save()")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", loaded.LogLevel)
	}
	if loaded.Discovery.Port != 40000 {
		t.Errorf("Discovery.Port = %d, want 40000", loaded.Discovery.Port)
	}
	if loaded.Discovery.Interval != 2500*time.Millisecond {
		t.Errorf("Discovery.Interval = %v, want 2.5s", loaded.Discovery.Interval)
	}
	if !loaded.Bridge.Advertise {
		t.Error("Bridge.Advertise = false, want true")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		verify  func(t *testing.T, cfg *Config)
	}{
		{
			name: "partial file gets defaults",
			yaml: "discovery:\n  interval: 10s\n",
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Discovery.Interval != 10*time.Second {
					t.Errorf("Interval = %v, want 10s", cfg.Discovery.Interval)
				}
				if cfg.Discovery.Port != DefaultPort {
					t.Errorf("Port = %d, want %d", cfg.Discovery.Port, DefaultPort)
				}
				if cfg.Bridge.Listen != DefaultBridgeListen {
					t.Errorf("Bridge.Listen = %q, want %q", cfg.Bridge.Listen, DefaultBridgeListen)
				}
			},
		},
		{
			name: "empty file",
			yaml: "",
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Version != CurrentVersion {
					t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
				}
			},
		},
		{
			name: "subnet broadcast address",
			yaml: "discovery:\n  broadcast_address: 192.168.1.255\n",
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Discovery.BroadcastAddress != "192.168.1.255" {
					t.Errorf("BroadcastAddress = %q", cfg.Discovery.BroadcastAddress)
				}
			},
		},
		{
			name:    "unsupported version",
			yaml:    "version: 2\n",
			wantErr: true,
		},
		{
			name:    "ipv6 broadcast address",
			yaml:    "discovery:\n  broadcast_address: ff02::1\n",
			wantErr: true,
		},
		{
			name:    "port out of range",
			yaml:    "discovery:\n  port: 70000\n",
			wantErr: true,
		},
		{
			name:    "tls cert without key",
			yaml:    "bridge:\n  tls_cert: /tmp/cert.pem\n",
			wantErr: true,
		},
		{
			name: "bridge origins and rate limit",
			yaml: "bridge:\n  allowed_origins: [\"http://localhost:3000\"]\n  discover_rate_limit: 6\n",
			verify: func(t *testing.T, cfg *Config) {
				if len(cfg.Bridge.AllowedOrigins) != 1 || cfg.Bridge.AllowedOrigins[0] != "http://localhost:3000" {
					t.Errorf("AllowedOrigins = %v", cfg.Bridge.AllowedOrigins)
				}
				if cfg.Bridge.DiscoverRateLimit != 6 {
					t.Errorf("DiscoverRateLimit = %d, want 6", cfg.Bridge.DiscoverRateLimit)
				}
			},
		},
		{
			name:    "malformed yaml",
			yaml:    "discovery: [\n",
			wantErr: true,
		},
		{
			name:    "bad duration",
			yaml:    "discovery:\n  interval: soon\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parse([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.verify != nil && err == nil {
				tt.verify(t, cfg)
			}
		})
	}
}

func BenchmarkGetConfigDir(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = GetConfigDir()
	}
}
