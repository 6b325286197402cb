package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be a nop logger when no level is configured")
	}
}

func TestLogDatagram(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := GetLogger()
	SetLogger(zap.New(core))
	defer SetLogger(prev)

	LogDatagram("10.0.0.1:36721", []byte{0x02, 0x07, 0xC0})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["sender"] != "10.0.0.1:36721" {
		t.Errorf("sender = %v, want 10.0.0.1:36721", fields["sender"])
	}
	if fields["hex"] != "0207c0" {
		t.Errorf("hex = %v, want 0207c0", fields["hex"])
	}
}

func TestHexDump_Truncates(t *testing.T) {
	data := make([]byte, maxDumpBytes+10)
	got := hexDump(data)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("hexDump() of %d bytes should be truncated", len(data))
	}
	if len(got) != maxDumpBytes*2+3 {
		t.Errorf("len(hexDump()) = %d, want %d", len(got), maxDumpBytes*2+3)
	}
}

func TestASCIIDump(t *testing.T) {
	if got := asciiDump([]byte{'o', 'k', 0x00, 0x7F}); got != "ok.." {
		t.Errorf("asciiDump() = %q, want %q", got, "ok..")
	}
}
